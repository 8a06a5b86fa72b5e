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

package picohttp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Step is a single request of a plan.
type Step struct {
	Method string `yaml:"method"` // GET or POST
	URL    string `yaml:"url"`
	Body   string `yaml:"body,omitempty"` // POST payload
}

// Plan is an ordered list of requests.
type Plan []Step

// Config of a demo run
type Config struct {
	Credentials  Credentials   `yaml:"wifi"`
	Hostname     string        `yaml:"hostname"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait"`
	Settle       time.Duration `yaml:"settle"`  // delay before the first request
	Timeout      time.Duration `yaml:"timeout"` // per request (0 = none)
	TrustRoots   string        `yaml:"trust_roots,omitempty"`
	Plan         Plan          `yaml:"plan"`
	Report       time.Duration `yaml:"report"`     // IP report interval (0 = off)
	NinePPort    uint16        `yaml:"ninep_port"` // 9P status namespace (0 = off)
	LogLevel     string        `yaml:"log_level"`

	// PEM data of the trust-root bundle (loaded from TrustRoots)
	RootsPEM []byte `yaml:"-"`
}

// DefaultPlan issues a GET and a POST against public demo endpoints.
func DefaultPlan() Plan {
	return Plan{
		{Method: "GET", URL: "http://ifconfig.net"},
		{Method: "POST", URL: "http://example.org/", Body: "Hello world!"},
	}
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Hostname:     "picohttp",
		PollInterval: DefaultPollInterval,
		MaxWait:      DefaultMaxWait,
		Settle:       5 * time.Second,
		Plan:         DefaultPlan(),
		LogLevel:     "info",
	}
}

// Validate checks the configuration for errors.
func (cfg *Config) Validate() error {
	var errs []error
	if len(cfg.Credentials.SSID) > 32 {
		errs = append(errs, errors.New("ssid longer than 32 bytes"))
	}
	if cfg.PollInterval < 0 || cfg.MaxWait < 0 || cfg.Settle < 0 || cfg.Timeout < 0 || cfg.Report < 0 {
		errs = append(errs, errors.New("negative duration"))
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for i, step := range cfg.Plan {
		if err := step.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("plan step %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

// Warnings lists settings that are valid but likely to fail on the
// network. The station decides whether to accept them.
func (cfg *Config) Warnings() (list []string) {
	if n := len(cfg.Credentials.Passphrase); n > 0 && (n < 8 || n > 63) {
		list = append(list, "WPA2 passphrase should be 8..63 bytes")
	}
	return
}

// Validate a plan step
func (s Step) Validate() error {
	switch strings.ToUpper(s.Method) {
	case "GET", "POST":
	default:
		return fmt.Errorf("unsupported method '%s'", s.Method)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w '%s'", ErrBadScheme, u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host in URL")
	}
	return nil
}
