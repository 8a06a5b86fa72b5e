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
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeDevice hands out a fake station and counts LED flashes.
type fakeDevice struct {
	mtx    sync.Mutex
	sta    Station
	staErr error
	flash  int
	lst    net.Listener
}

func (d *fakeDevice) LED(on bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if on {
		d.flash++
	}
}

func (d *fakeDevice) Console() io.Writer { return io.Discard }

func (d *fakeDevice) Station(string) (Station, error) {
	return d.sta, d.staErr
}

func (d *fakeDevice) Listen(uint16) (net.Listener, error) {
	var err error
	d.lst, err = net.Listen("tcp", "127.0.0.1:0")
	return d.lst, err
}

func TestStatusSetGet(t *testing.T) {
	state := new(Status)
	state.Set(StatWPA2, 3)
	s, n := state.Get()
	assert.Equal(t, StatWPA2, s)
	assert.Equal(t, 3, n)
	assert.Equal(t, "wpa2 join failed", state.String())

	var none *Status
	none.Set(StatOK, 0)
	s, _ = none.Get()
	assert.Equal(t, StatUNK, s)
}

func TestStatusBlink(t *testing.T) {
	dev := new(fakeDevice)
	state := &Status{dev: dev}
	state.Set(StatDEV, 1)
	state.blink()
	assert.Equal(t, StatDEV, dev.flash)
	s, _ := state.Get()
	assert.Equal(t, StatOK, s)
}

func TestStatusTrap(t *testing.T) {
	state := new(Status)
	state.Set(StatOK, 0)
	func() {
		defer state.Trap(0)
		panic(errors.New("oops"))
	}()
	s, _ := state.Get()
	assert.Equal(t, StatEXCP, s)

	state.Set(StatOK, 0)
	func() {
		defer state.Trap(0)
	}()
	s, _ = state.Get()
	assert.Equal(t, StatUNK, s)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "ok", StatusText(StatOK))
	assert.Equal(t, "exception", StatusText(StatEXCP))
	assert.Equal(t, "status(99)", StatusText(99))
}
