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
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Credentials of the access point to join. Empty values are valid;
// the station then simply fails to associate.
type Credentials struct {
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"`
}

// State of a Wi-Fi session
type State int

// session states
const (
	StateUnconfigured State = iota
	StateConfigured
	StateStarted
	StateConnecting
	StateConnected
)

// String returns the name of a state.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateStarted:
		return "started"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ConnectConfig controls the wait for association.
type ConnectConfig struct {
	PollInterval time.Duration // time between two polls
	MaxWait      time.Duration // give up after this time (0 = never)
	Logger       *slog.Logger
}

// Default connect parameters
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxWait      = 30 * time.Second
)

// Session is a Wi-Fi station owned by the caller of Connect.
type Session struct {
	sta   Station
	cred  Credentials
	log   *slog.Logger
	mtx   sync.RWMutex
	state State
}

// Connect configures, starts and associates the station and blocks
// until it is connected, the wait times out or ctx is done. Any error
// is a *StartupError.
func Connect(ctx context.Context, sta Station, cred Credentials, cfg ConnectConfig) (*Session, error) {
	s := &Session{
		sta:  sta,
		cred: cred,
		log:  cfg.Logger,
	}
	if s.log == nil {
		s.log = nopLogger()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	s.log.Info("starting to connect to wifi",
		slog.String("ssid", cred.SSID), slog.Int("passlen", len(cred.Passphrase)))

	if err := sta.Configure(cred); err != nil {
		return s, &StartupError{Stage: "configure", Status: StatCFG, Err: err}
	}
	s.setState(StateConfigured)
	if err := sta.Start(); err != nil {
		return s, &StartupError{Stage: "start", Status: StatWIFI, Err: err}
	}
	s.setState(StateStarted)
	if err := sta.Connect(); err != nil {
		return s, &StartupError{Stage: "connect", Status: StatWPA2, Err: err}
	}
	s.setState(StateConnecting)

	if cfg.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxWait)
		defer cancel()
	}
	tick := time.NewTicker(cfg.PollInterval)
	defer tick.Stop()
	for {
		ok, err := sta.IsConnected()
		if err != nil {
			return s, &StartupError{Stage: "poll", Status: StatWPA2, Err: err}
		}
		if ok {
			break
		}
		s.log.Info("waiting for station", slog.String("config", sta.Config().String()))
		select {
		case <-ctx.Done():
			err = ctx.Err()
			if err == context.DeadlineExceeded {
				err = ErrConnectTimeout
			}
			return s, &StartupError{Stage: "wait", Status: StatTIMEOUT, Err: err}
		case <-tick.C:
		}
	}
	s.setState(StateConnected)
	s.log.Info("connection established", slog.String("config", sta.Config().String()))
	return s, nil
}

// State of the session
func (s *Session) State() State {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mtx.Lock()
	s.state = st
	s.mtx.Unlock()
}

// Connected returns true if the station reached the connected state.
func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// SSID of the joined network
func (s *Session) SSID() string {
	return s.cred.SSID
}

// Station returns the underlying station.
func (s *Session) Station() Station {
	return s.sta
}

// IPInfo returns the current IP configuration.
func (s *Session) IPInfo() (IPInfo, error) {
	if !s.Connected() {
		return IPInfo{}, ErrNotConnected
	}
	return s.sta.IPInfo()
}

// Report logs the IP configuration every interval until ctx is done.
func (s *Session) Report(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrBadInterval
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			ip, err := s.IPInfo()
			if err != nil {
				s.log.Warn("no IP configuration", slog.String("err", err.Error()))
				continue
			}
			s.log.Info("IP info",
				slog.String("addr", ip.Addr.String()),
				slog.String("gateway", ip.Gateway.String()),
				slog.String("dns", ip.DNS.String()))
		}
	}
}

// nopLogger does no logging.
func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(127),
	}))
}
