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
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextHop(t *testing.T) {
	local := netip.MustParsePrefix("192.168.4.16/24")
	router := netip.MustParseAddr("192.168.4.1")
	tests := []struct {
		dst, want string
	}{
		{"192.168.4.53", "192.168.4.53"}, // DNS server on the LAN
		{"8.8.8.8", "192.168.4.1"},       // public DNS server
		{"93.184.215.14", "192.168.4.1"},
		{"192.168.5.1", "192.168.4.1"},
	}
	for _, tt := range tests {
		got := nextHop(local, router, netip.MustParseAddr(tt.dst))
		assert.Equal(t, tt.want, got.String(), tt.dst)
	}
	// no lease yet: everything goes to the router
	assert.Equal(t, router, nextHop(netip.Prefix{}, router, netip.MustParseAddr("192.168.4.53")))
}

func TestWaitEstablished(t *testing.T) {
	polls := 0
	err := waitEstablished(context.Background(), time.Millisecond, func() (bool, bool) {
		polls++
		return polls == 3, false
	})
	require.NoError(t, err)
	assert.Equal(t, 3, polls)
}

func TestWaitEstablishedReset(t *testing.T) {
	polls := 0
	done := make(chan error, 1)
	go func() {
		done <- waitEstablished(context.Background(), time.Millisecond, func() (bool, bool) {
			polls++
			return false, polls > 2
		})
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrConnRefused)
		assert.ErrorIs(t, err, net.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("reset connection is still waited for")
	}
}

func TestWaitEstablishedCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := waitEstablished(ctx, time.Millisecond, func() (bool, bool) { return false, false })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTCPPorts(t *testing.T) {
	// listener, active dial and a closing connection must fit
	assert.GreaterOrEqual(t, tcpPorts(0), 3)
	assert.Equal(t, minTCPPorts, tcpPorts(2))
	assert.Equal(t, 8, tcpPorts(8))
}
