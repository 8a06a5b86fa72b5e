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

// Firmware for Raspberry Pi Pico W / Pico 2 W: join a WiFi network and
// run a few HTTP requests. Credentials are set at build time:
//
//	tinygo flash -target pico2-w -ldflags '-X "main.SSID=xxx" -X "main.Passwd=xxx"' ./example/pico2w
package main

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/bfix/picohttp"
)

// WiFi credentials, hostname, 9p port and request targets
var (
	SSID     string
	Passwd   string
	Host     string
	Port     string
	GetURL   string
	PostURL  string
	ReportIP string
)

// run demo
func main() {
	// access device
	dev := picohttp.InitDevice()
	state := picohttp.NewStatus(dev)
	defer state.Trap(30 * time.Second)
	state.Set(picohttp.StatOK, 0)

	// delay before sending output to monitor
	time.Sleep(2 * time.Second)
	logger := picohttp.NewLogger(dev.Console(), slog.LevelInfo)

	cfg := picohttp.DefaultConfig()
	cfg.Credentials = picohttp.Credentials{SSID: SSID, Passphrase: Passwd}
	if Host != "" {
		cfg.Hostname = Host
	}
	if Port != "" {
		port, err := strconv.ParseUint(Port, 10, 16)
		if err != nil {
			state.Set(picohttp.StatPORT, 0)
			return
		}
		cfg.NinePPort = uint16(port)
	}
	if GetURL != "" {
		cfg.Plan[0].URL = GetURL
	}
	if PostURL != "" {
		cfg.Plan[1].URL = PostURL
	}
	cfg.Report = 10 * time.Second
	if ReportIP == "off" {
		cfg.Report = 0
	}

	_, err := picohttp.Run(context.Background(), dev, cfg, state, logger)
	var serr *picohttp.StartupError
	if errors.As(err, &serr) {
		logger.Error("giving up", slog.String("err", err.Error()))
		state.Set(serr.Status, 0)
	}
}
