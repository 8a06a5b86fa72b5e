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
)

// NewMonitor builds a status namespace for a session:
//
//	/net/ssid    joined network
//	/net/state   session state
//	/net/ip      IP configuration
//	/http/last   latest exchange
//	/status      device status
func NewMonitor(sess *Session, rec *Recorder, state *Status) (*Namespace, error) {
	ns := NewNamespace("sys", "sys")
	files := []struct {
		path string
		fcn  func() string
	}{
		{"/net/ssid", sess.SSID},
		{"/net/state", func() string { return sess.State().String() }},
		{"/net/ip", func() string {
			ip, err := sess.IPInfo()
			if err != nil {
				return err.Error()
			}
			return ip.String()
		}},
		{"/http/last", func() string {
			_, num, failed := rec.Last()
			return fmt.Sprintf("%s [%d requests, %d failed]", rec.Summary(), num, failed)
		}},
		{"/status", state.String},
	}
	for _, dir := range []string{"/net", "/http"} {
		if err := ns.NewDir(dir, 0555); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		if err := ns.NewFile(f.path, 0444, NewLineFile(f.fcn)); err != nil {
			return nil, err
		}
	}
	return ns, nil
}
