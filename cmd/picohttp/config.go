//----------------------------------------------------------------------
// This file is part of picohttp.
// Copyright (C) 2024-present Bernd Fix   >Y<
//
// picohttp is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// picohttp is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bfix/picohttp"
)

// loadConfig reads a YAML configuration file on top of the defaults.
// An empty path returns the defaults.
func loadConfig(path string) (*picohttp.Config, error) {
	cfg := picohttp.DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// applyFlags overrides configuration values with flags set on the
// command line and loads the trust-root bundle.
func applyFlags(cmd *cobra.Command, cfg *picohttp.Config) (err error) {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	dur := func(name string, dst *time.Duration) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetDuration(name)
		}
	}
	str("ssid", &cfg.Credentials.SSID)
	str("passphrase", &cfg.Credentials.Passphrase)
	str("hostname", &cfg.Hostname)
	str("ca-bundle", &cfg.TrustRoots)
	str("log-level", &cfg.LogLevel)
	dur("poll", &cfg.PollInterval)
	dur("max-wait", &cfg.MaxWait)
	dur("settle", &cfg.Settle)
	dur("timeout", &cfg.Timeout)
	dur("report", &cfg.Report)
	if err == nil && flags.Changed("ninep-port") {
		cfg.NinePPort, err = flags.GetUint16("ninep-port")
	}
	if err != nil {
		return
	}
	if cfg.TrustRoots != "" {
		if cfg.RootsPEM, err = os.ReadFile(cfg.TrustRoots); err != nil {
			return fmt.Errorf("failed to read trust roots: %w", err)
		}
	}
	return nil
}
