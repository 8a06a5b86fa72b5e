//go:build rp2040 || rp2350

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
	"io"
	"log/slog"
	"machine"
	"math/rand"
	"net"
	"net/netip"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/seqs"
	"github.com/soypat/seqs/eth/dhcp"
	"github.com/soypat/seqs/eth/dns"
	"github.com/soypat/seqs/stacks"
)

const (
	mtu         = cyw43439.MTU
	connBufSize = 1024 // TCP buffer sizes
	joinRetries = 5
)

// Raspberry Pico W / Pico2 W  [RP2040/RP2350]
type Pico2WDevice struct {
	ref    *cyw43439.Device // reference to device
	logger *slog.Logger     // device-level logging
	sta    *picoStation     // acquired station

	// TCPPorts is the size of the TCP port table (at least 4).
	TCPPorts int
}

// LED on or off (if applicable)
func (dev *Pico2WDevice) LED(on bool) {
	dev.ref.GPIOSet(0, on)
}

// Console is the USB serial port
func (dev *Pico2WDevice) Console() io.Writer {
	return machine.Serial
}

// Initialize device
func InitDevice() Device {
	// access device
	dev := new(Pico2WDevice)
	dev.ref = cyw43439.NewPicoWDevice()
	dev.logger = slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return dev
}

// Station returns the radio in station mode. There is only one radio,
// so it can be acquired once.
func (dev *Pico2WDevice) Station(hostname string) (Station, error) {
	if dev.sta != nil {
		return nil, errors.New("station already acquired")
	}
	dev.sta = &picoStation{
		dev:      dev.ref,
		host:     hostname,
		logger:   dev.logger,
		tcpPorts: dev.TCPPorts,
	}
	return dev.sta, nil
}

// Listen returns a TCP listener on the given port.
func (dev *Pico2WDevice) Listen(port uint16) (net.Listener, error) {
	if dev.sta == nil || dev.sta.phase.Load() != phaseBound {
		return nil, ErrNotConnected
	}
	listener, err := stacks.NewTCPListener(dev.sta.stack, stacks.TCPListenerConfig{
		MaxConnections: 3,
		ConnTxBufSize:  512,
		ConnRxBufSize:  512,
	})
	if err != nil {
		return nil, err
	}
	if err = listener.StartListening(port); err != nil {
		return nil, err
	}
	return listener, nil
}

//----------------------------------------------------------------------

// association phases
const (
	phaseIdle int32 = iota
	phaseJoining
	phaseDHCP
	phaseBound
	phaseFailed
)

// picoStation is the CYW43439 in station mode with a seqs IP stack.
type picoStation struct {
	dev    *cyw43439.Device
	host   string
	cred   Credentials
	logger *slog.Logger
	mac    net.HardwareAddr

	tcpPorts int // requested TCP port table size

	phase atomic.Int32 // association phase
	err   error        // cause of phaseFailed

	stack *stacks.PortStack
	dhcp  *stacks.DHCPClient
	dns   *Resolver
}

// Configure checks and stores the credentials.
func (sta *picoStation) Configure(cred Credentials) error {
	if len(cred.SSID) > 32 {
		return errors.New("ssid too long")
	}
	if n := len(cred.Passphrase); n > 0 && (n < 8 || n > 63) {
		return errors.New("invalid WPA2 passphrase length")
	}
	sta.cred = cred
	return nil
}

// Start initializes the radio.
func (sta *picoStation) Start() error {
	wificfg := cyw43439.DefaultWifiConfig()
	// wificfg.Logger = sta.logger // Uncomment to see in depth info on wifi device functioning.
	sta.logger.Info("initializing pico W device...")
	devInitTime := time.Now()
	if err := sta.dev.Init(wificfg); err != nil {
		return err
	}
	sta.logger.Info("cyw43439:Init", slog.Duration("duration", time.Since(devInitTime)))
	return nil
}

// Connect starts joining the network in the background.
func (sta *picoStation) Connect() error {
	if !sta.phase.CompareAndSwap(phaseIdle, phaseJoining) {
		return errors.New("connect already initiated")
	}
	go func() {
		if err := sta.join(); err != nil {
			sta.err = err
			sta.phase.Store(phaseFailed)
			return
		}
		sta.phase.Store(phaseDHCP)
	}()
	return nil
}

// join the access point, set up the IP stack and request an address.
func (sta *picoStation) join() (err error) {
	logger := sta.logger
	if len(sta.cred.Passphrase) == 0 {
		logger.Info("joining open network:", slog.String("ssid", sta.cred.SSID))
	} else {
		logger.Info("joining WPA secure network", slog.String("ssid", sta.cred.SSID), slog.Int("passlen", len(sta.cred.Passphrase)))
	}
	for range joinRetries {
		if err = sta.dev.JoinWPA2(sta.cred.SSID, sta.cred.Passphrase); err == nil {
			break
		}
		logger.Error("wifi join failed", slog.String("err", err.Error()))
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		return err
	}
	mac, _ := sta.dev.HardwareAddr6()
	sta.mac = net.HardwareAddr(mac[:])
	logger.Info("wifi join success!", slog.String("mac", sta.mac.String()))

	sta.stack = stacks.NewPortStack(stacks.PortStackConfig{
		MAC:             mac,
		MaxOpenPortsUDP: 2, // DHCP and DNS clients
		MaxOpenPortsTCP: uint16(tcpPorts(sta.tcpPorts)),
		MTU:             mtu,
		Logger:          logger,
	})
	sta.dev.RecvEthHandle(sta.stack.RecvEth)

	// Begin asynchronous packet handling.
	go nicLoop(sta.dev, sta.stack)

	sta.dhcp = stacks.NewDHCPClient(sta.stack, dhcp.DefaultClientPort)
	return sta.dhcp.BeginRequest(stacks.DHCPRequestConfig{
		Xid:      uint32(time.Now().Nanosecond()),
		Hostname: sta.host,
	})
}

// IsConnected once joined and DHCP is bound.
func (sta *picoStation) IsConnected() (bool, error) {
	switch sta.phase.Load() {
	case phaseFailed:
		return false, sta.err
	case phaseBound:
		return true, nil
	case phaseDHCP:
		if sta.dhcp.State() != dhcp.StateBound {
			return false, nil
		}
		// It's important to set the IP address after DHCP completes.
		sta.stack.SetAddr(sta.dhcp.Offer())
		sta.phase.Store(phaseBound)
		sta.logger.Info("DHCP complete",
			slog.String("ourIP", sta.dhcp.Offer().String()),
			slog.String("router", sta.dhcp.Router().String()),
			slog.Duration("lease", sta.dhcp.IPLeaseTime()),
		)
		return true, nil
	}
	return false, nil
}

// Config snapshot
func (sta *picoStation) Config() StationConfig {
	return StationConfig{
		SSID:     sta.cred.SSID,
		Auth:     authMode(sta.cred.Passphrase),
		PassLen:  len(sta.cred.Passphrase),
		Hostname: sta.host,
		HWAddr:   sta.mac.String(),
	}
}

// IPInfo from the DHCP lease
func (sta *picoStation) IPInfo() (info IPInfo, err error) {
	if sta.phase.Load() != phaseBound {
		return info, ErrNotConnected
	}
	info.Addr = netip.PrefixFrom(sta.dhcp.Offer(), int(sta.dhcp.CIDRBits()))
	info.Gateway = sta.dhcp.Router()
	if list := sta.dhcp.DNSServers(); len(list) > 0 {
		info.DNS = list[0]
	}
	return
}

// Dialer over the seqs stack
func (sta *picoStation) Dialer() Dialer {
	return &picoDialer{sta: sta}
}

//----------------------------------------------------------------------

// picoDialer opens TCP connections on the seqs stack.
type picoDialer struct {
	sta *picoStation
}

// DialContext connects to address ("host:port"); host names are
// resolved with the DNS server from the DHCP lease.
func (d *picoDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	sta := d.sta
	if network != "tcp" && network != "tcp4" {
		return nil, errors.New("unsupported network " + network)
	}
	if sta.phase.Load() != phaseBound {
		return nil, ErrNotConnected
	}
	host, portS, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portS, 10, 16)
	if err != nil {
		return nil, err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		if sta.dns == nil {
			if sta.dns, err = NewResolver(sta.stack, sta.dhcp, sta.nextHop); err != nil {
				return nil, err
			}
		}
		addrs, err := sta.dns.LookupNetIP(host)
		if err != nil {
			return nil, err
		}
		addr = addrs[0]
	}
	hwaddr, err := ResolveHardwareAddr(sta.stack, sta.nextHop(addr))
	if err != nil {
		return nil, err
	}
	conn, err := stacks.NewTCPConn(sta.stack, stacks.TCPConnConfig{
		TxBufSize: connBufSize,
		RxBufSize: connBufSize,
	})
	if err != nil {
		return nil, err
	}
	lport := uint16(rand.Intn(65535-1024) + 1024)
	err = conn.OpenDialTCP(lport, hwaddr, netip.AddrPortFrom(addr, uint16(port)), seqs.Value(rand.Uint32()))
	if err != nil {
		return nil, err
	}
	err = waitEstablished(ctx, 5*time.Millisecond, func() (bool, bool) {
		state := conn.State()
		return state == seqs.StateEstablished, state.IsClosed()
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// nextHop for a destination address
func (sta *picoStation) nextHop(dst netip.Addr) netip.Addr {
	local := netip.PrefixFrom(sta.dhcp.Offer(), int(sta.dhcp.CIDRBits()))
	return nextHop(local, sta.dhcp.Router(), dst)
}

//----------------------------------------------------------------------

// ResolveHardwareAddr obtains the hardware address of the given IP address.
func ResolveHardwareAddr(stack *stacks.PortStack, ip netip.Addr) ([6]byte, error) {
	if !ip.IsValid() {
		return [6]byte{}, errors.New("invalid ip")
	}
	arpc := stack.ARP()
	arpc.Abort() // Remove any previous ARP requests.
	err := arpc.BeginResolve(ip)
	if err != nil {
		return [6]byte{}, err
	}
	time.Sleep(4 * time.Millisecond)
	// ARP exchanges should be fast, don't wait too long for them.
	const timeout = time.Second
	const maxretries = 20
	retries := maxretries
	for !arpc.IsDone() && retries > 0 {
		retries--
		if retries == 0 {
			return [6]byte{}, errors.New("arp timed out")
		}
		time.Sleep(timeout / maxretries)
	}
	_, hw, err := arpc.ResultAs6()
	return hw, err
}

// Resolver for host names (DNS A records)
type Resolver struct {
	stack     *stacks.PortStack
	dns       *stacks.DNSClient
	dnsaddr   netip.Addr
	dnshop    netip.Addr // link address to reach the DNS server
	dnshwaddr [6]byte
}

// NewResolver using the DNS server announced by DHCP. hop selects the
// on-link address (router or server) to send queries to.
func NewResolver(stack *stacks.PortStack, dhcp *stacks.DHCPClient, hop func(netip.Addr) netip.Addr) (*Resolver, error) {
	dnsaddrs := dhcp.DNSServers()
	if len(dnsaddrs) == 0 || !dnsaddrs[0].IsValid() {
		return nil, errors.New("dns addr obtained via DHCP not valid")
	}
	return &Resolver{
		stack:   stack,
		dns:     stacks.NewDNSClient(stack, dns.ClientPort),
		dnsaddr: dnsaddrs[0],
		dnshop:  hop(dnsaddrs[0]),
	}, nil
}

// LookupNetIP returns the IPv4 addresses of host.
func (r *Resolver) LookupNetIP(host string) ([]netip.Addr, error) {
	name, err := dns.NewName(host)
	if err != nil {
		return nil, err
	}
	if r.dnshwaddr, err = ResolveHardwareAddr(r.stack, r.dnshop); err != nil {
		return nil, err
	}
	err = r.dns.StartResolve(stacks.DNSResolveConfig{
		Questions: []dns.Question{
			{
				Name:  name,
				Type:  dns.TypeA,
				Class: dns.ClassINET,
			},
		},
		DNSAddr:         r.dnsaddr,
		DNSHWAddr:       r.dnshwaddr,
		EnableRecursion: true,
	})
	if err != nil {
		return nil, err
	}
	time.Sleep(5 * time.Millisecond)
	retries := 100
	for retries > 0 {
		done, _ := r.dns.IsDone()
		if done {
			break
		}
		retries--
		time.Sleep(20 * time.Millisecond)
	}
	done, rcode := r.dns.IsDone()
	if !done && retries == 0 {
		return nil, errors.New("dns lookup timed out")
	} else if rcode != dns.RCodeSuccess {
		return nil, errors.New("dns lookup failed:" + rcode.String())
	}
	var addrs []netip.Addr
	for _, answer := range r.dns.Answers() {
		data := answer.RawData()
		if len(data) == 4 {
			addrs = append(addrs, netip.AddrFrom4([4]byte(data)))
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("no ipv4 dns answers")
	}
	return addrs, nil
}

// nicLoop moves packets between radio and IP stack.
func nicLoop(dev *cyw43439.Device, stack *stacks.PortStack) {
	// Maximum number of packets to queue before sending them.
	const (
		queueSize                = 3
		maxRetriesBeforeDropping = 3
	)
	var queue [queueSize][mtu]byte
	var lenBuf [queueSize]int
	var retries [queueSize]int
	markSent := func(i int) {
		lenBuf[i] = 0
		retries[i] = 0
	}
	for {
		stallRx := true
		// Poll for incoming packets.
		gotPacket, err := dev.PollOne()
		if err != nil {
			println("poll error:", err.Error())
		}
		if gotPacket {
			stallRx = false
		}

		// Queue packets to be sent.
		for i := range queue {
			if retries[i] != 0 {
				continue // Packet currently queued for retransmission.
			}
			var err error
			lenBuf[i], err = stack.HandleEth(queue[i][:])
			if err != nil {
				println("stack error n(should be 0)=", lenBuf[i], "err=", err.Error())
				lenBuf[i] = 0
				continue
			}
			if lenBuf[i] == 0 {
				break
			}
		}
		if lenBuf == [queueSize]int{} {
			if stallRx {
				// Avoid busy waiting when both Rx and Tx stall.
				time.Sleep(51 * time.Millisecond)
			}
			continue
		}

		// Send queued packets.
		for i := range queue {
			n := lenBuf[i]
			if n <= 0 {
				continue
			}
			if err := dev.SendEth(queue[i][:n]); err != nil {
				// Queue packet for retransmission.
				retries[i]++
				if retries[i] > maxRetriesBeforeDropping {
					markSent(i)
					println("dropped outgoing packet:", err.Error())
				}
			} else {
				markSent(i)
			}
		}
	}
}
