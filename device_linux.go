//go:build !rp2040 && !rp2350

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
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
)

// LinuxDevice uses the network interfaces of the host as a stand-in
// for the Wi-Fi station (for testing purposes).
type LinuxDevice struct {
	iface string // interface name (empty: first usable one)
}

// LED on or off (not applicable)
func (dev *LinuxDevice) LED(on bool) {}

// Console is standard output
func (dev *LinuxDevice) Console() io.Writer {
	return os.Stdout
}

// Initialize device
func InitDevice() Device {
	return new(LinuxDevice)
}

// NewLinuxDevice using the named network interface.
func NewLinuxDevice(iface string) *LinuxDevice {
	return &LinuxDevice{iface: iface}
}

// Station returns the selected host interface.
func (dev *LinuxDevice) Station(hostname string) (Station, error) {
	var ifc *net.Interface
	var err error
	if dev.iface != "" {
		if ifc, err = net.InterfaceByName(dev.iface); err != nil {
			return nil, err
		}
	} else if ifc, err = firstInterface(); err != nil {
		return nil, err
	}
	return &hostStation{idx: ifc.Index, host: hostname}, nil
}

// Listen returns a TCP listener on the given port.
func (dev *LinuxDevice) Listen(port uint16) (net.Listener, error) {
	cfg := new(net.ListenConfig)
	return cfg.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
}

// firstInterface that is up and not a loopback
func firstInterface() (*net.Interface, error) {
	list, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, ifc := range list {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		if _, err := hostAddr(&ifc); err == nil {
			return &ifc, nil
		}
	}
	return nil, errors.New("no usable network interface")
}

// hostAddr returns the preferred (IPv4 over IPv6) global unicast
// address of an interface.
func hostAddr(ifc *net.Interface) (netip.Prefix, error) {
	addrs, err := ifc.Addrs()
	if err != nil {
		return netip.Prefix{}, err
	}
	var found netip.Prefix
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipn.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if !ip.IsGlobalUnicast() {
			continue
		}
		bits, _ := ipn.Mask.Size()
		pfx := netip.PrefixFrom(ip, bits)
		if ip.Is4() {
			return pfx, nil
		}
		if !found.IsValid() {
			found = pfx
		}
	}
	if !found.IsValid() {
		return found, errors.New("no global unicast address")
	}
	return found, nil
}

//----------------------------------------------------------------------

// hostStation is a host network interface in the role of a station.
type hostStation struct {
	idx     int
	host    string
	cred    Credentials
	hwaddr  string
	started bool
}

// Configure stores the credentials; the host manages association.
func (sta *hostStation) Configure(cred Credentials) error {
	sta.cred = cred
	return nil
}

// Start checks the interface is still present.
func (sta *hostStation) Start() error {
	ifc, err := net.InterfaceByIndex(sta.idx)
	if err != nil {
		return err
	}
	sta.hwaddr = ifc.HardwareAddr.String()
	sta.started = true
	return nil
}

// Connect is a no-op on a started interface.
func (sta *hostStation) Connect() error {
	if !sta.started {
		return errors.New("interface not started")
	}
	return nil
}

// IsConnected if the interface is up and has an address.
func (sta *hostStation) IsConnected() (bool, error) {
	ifc, err := net.InterfaceByIndex(sta.idx)
	if err != nil {
		return false, err
	}
	if ifc.Flags&net.FlagUp == 0 {
		return false, nil
	}
	_, err = hostAddr(ifc)
	return err == nil, nil
}

// Config snapshot
func (sta *hostStation) Config() StationConfig {
	return StationConfig{
		SSID:     sta.cred.SSID,
		Auth:     authMode(sta.cred.Passphrase),
		PassLen:  len(sta.cred.Passphrase),
		Hostname: sta.host,
		HWAddr:   sta.hwaddr,
	}
}

// IPInfo of the interface. Gateway and DNS are not known.
func (sta *hostStation) IPInfo() (info IPInfo, err error) {
	ifc, err := net.InterfaceByIndex(sta.idx)
	if err != nil {
		return
	}
	info.Addr, err = hostAddr(ifc)
	return
}

// Dialer of the host
func (sta *hostStation) Dialer() Dialer {
	return new(net.Dialer)
}
