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

// Package picohttp brings up a Wi-Fi station and runs plain HTTP
// (or HTTPS) exchanges over it. On a Raspberry Pi Pico W / Pico 2 W
// the station is the CYW43439 radio; on any other platform the host
// network interfaces stand in for it.
package picohttp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
)

// Device is a hardware abstraction
type Device interface {
	// LED on or off (if applicable)
	LED(on bool)

	// Console for diagnostic output
	Console() io.Writer

	// Station acquires the network interface in station (client) mode.
	Station(hostname string) (Station, error)

	// Listen returns a TCP listener on the given port. Only valid
	// once the station is connected.
	Listen(port uint16) (net.Listener, error)
}

// Station is the Wi-Fi interface of a device in client mode.
type Station interface {
	// Configure the interface with client credentials.
	Configure(cred Credentials) error

	// Start the interface.
	Start() error

	// Connect initiates an association attempt and returns without
	// waiting for it to complete.
	Connect() error

	// IsConnected reports if the station is associated and has a
	// usable IP configuration.
	IsConnected() (bool, error)

	// Config returns a snapshot of the current configuration.
	Config() StationConfig

	// IPInfo returns the current IP configuration.
	IPInfo() (IPInfo, error)

	// Dialer for outgoing connections over this station.
	Dialer() Dialer
}

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// StationConfig is a printable snapshot of a station configuration.
// The passphrase is never part of it.
type StationConfig struct {
	SSID     string
	Auth     string // "open" or "wpa2"
	PassLen  int
	Hostname string
	HWAddr   string
}

// String returns a human-readable representation.
func (c StationConfig) String() string {
	return fmt.Sprintf("ssid=%q auth=%s passlen=%d host=%q mac=%s",
		c.SSID, c.Auth, c.PassLen, c.Hostname, c.HWAddr)
}

// IPInfo is the IP configuration of a connected station.
type IPInfo struct {
	Addr    netip.Prefix // address and network
	Gateway netip.Addr   // default router (if known)
	DNS     netip.Addr   // primary name server (if known)
}

// String returns a human-readable representation.
func (ip IPInfo) String() string {
	return fmt.Sprintf("addr=%s gateway=%s dns=%s", ip.Addr, ip.Gateway, ip.DNS)
}

// authMode for a passphrase
func authMode(passwd string) string {
	if len(passwd) == 0 {
		return "open"
	}
	return "wpa2"
}
