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
	"fmt"
	"sync/atomic"
	"time"
)

// status codes
const (
	StatUNK     = iota // unknown status (init)
	StatOK             // processing active
	StatDEV            // device failure
	StatCFG            // invalid configuration
	StatWIFI           // can't start WiFi interface
	StatWPA2           // WPA2 join failed
	StatTIMEOUT        // station did not connect in time
	StatDHCP1          // DHCP request failed
	StatDHCP2          // no DHCP reply
	StatIP             // invalid IP address
	StatTLS            // invalid trust-root bundle
	StatREQ            // HTTP exchange failed
	StatLISTEN1        // failed to create listener
	StatLISTEN2        // failed to initialize listener
	StatPORT           // invalid port specified
	StatEXCP           // exception (panic) occured
)

var statText = []string{
	"unknown", "ok", "device failure", "invalid configuration",
	"wifi failure", "wpa2 join failed", "connect timeout", "dhcp request failed",
	"no dhcp reply", "invalid ip address", "invalid trust roots",
	"request failed", "listener failed", "listener init failed",
	"invalid port", "exception",
}

// StatusText returns a short description of a status code.
func StatusText(code int) string {
	if code < 0 || code >= len(statText) {
		return fmt.Sprintf("status(%d)", code)
	}
	return statText[code]
}

// Status handler.
// Show current status depending on hardware device.
type Status struct {
	dev    Device       // reference to device
	curr   atomic.Int32 // current state
	repeat atomic.Int32 // current repeat counter
}

// NewStatus creates a new status display
func NewStatus(dev Device) (state *Status) {
	state = new(Status)
	state.dev = dev
	state.curr.Store(StatOK)
	go func() {
		// blink LED <state>; <repeat> times
		for {
			time.Sleep(5 * time.Second)
			state.blink()
		}
	}()
	return
}

// blink the current state once
func (state *Status) blink() {
	num := state.curr.Load()
	dev := state.dev
	for num > 5 {
		dev.LED(true)
		time.Sleep(1000 * time.Millisecond)
		dev.LED(false)
		time.Sleep(300 * time.Millisecond)
		num -= 5
	}
	for n := num; n > 0; n-- {
		dev.LED(true)
		time.Sleep(150 * time.Millisecond)
		dev.LED(false)
		time.Sleep(150 * time.Millisecond)
	}
	if state.repeat.Add(-1) == 0 {
		state.curr.Store(StatOK)
	}
}

// Set status and repeat <num> times (0 = forever).
func (state *Status) Set(flag, num int) {
	if state != nil {
		state.curr.Store(int32(flag))
		state.repeat.Store(int32(num))
	}
}

// Get current state and repeat counter
func (state *Status) Get() (int, int) {
	if state == nil {
		return StatUNK, 0
	}
	return int(state.curr.Load()), int(state.repeat.Load())
}

// String returns the text of the current state.
func (state *Status) String() string {
	s, _ := state.Get()
	return StatusText(s)
}

// Trap critical failures (panic). Must be deferred directly.
func (state *Status) Trap(t time.Duration) {
	s, _ := state.Get()
	if r := recover(); r != nil {
		fmt.Printf("EXCP: %v\n", r)
		state.Set(StatEXCP, 0)
	} else if s == StatOK {
		state.Set(StatUNK, 0)
	}
	time.Sleep(t)
}
