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
	"net"
	"net/netip"
	"time"
)

// minimum number of TCP ports on the board stack: status listener,
// active dial, a connection still closing and one spare.
const minTCPPorts = 4

// tcpPorts returns the size of the TCP port table for a requested
// number of ports.
func tcpPorts(n int) int {
	return max(n, minTCPPorts)
}

// nextHop returns the address to resolve on the link to reach dst:
// dst itself on the local network, otherwise the router.
func nextHop(local netip.Prefix, router, dst netip.Addr) netip.Addr {
	if local.IsValid() && local.Contains(dst) {
		return dst
	}
	return router
}

// waitEstablished polls a connection state until the handshake is
// done. A connection closed before that (e.g. reset by the peer) is
// refused.
func waitEstablished(ctx context.Context, poll time.Duration, state func() (established, closed bool)) error {
	for {
		established, closed := state()
		switch {
		case established:
			return nil
		case closed:
			return fmt.Errorf("%w: %w", ErrConnRefused, net.ErrClosed)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}
