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
	"fmt"
)

// Error messages
var (
	ErrConnectTimeout = errors.New("timed out waiting for station")
	ErrNotConnected   = errors.New("station not connected")
	ErrNoCertificates = errors.New("no certificates in trust-root bundle")
	ErrBadScheme      = errors.New("unsupported URL scheme")
	ErrConnRefused    = errors.New("connection refused")
	ErrBadInterval    = errors.New("interval must be positive")
)

// StartupError is an unrecoverable failure during network bring-up.
// Status is the code to show on the device (see status.go).
type StartupError struct {
	Stage  string
	Status int
	Err    error
}

// Error returns a human-readable error message.
func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed (%s): %v", e.Stage, e.Err)
}

// Unwrap returns the cause.
func (e *StartupError) Unwrap() error {
	return e.Err
}

// RequestError is a failure during an HTTP exchange. Op is one of
// "request", "submit", "read" or "drain".
type RequestError struct {
	Method string
	URL    string
	Op     string
	Err    error
}

// Error returns a human-readable error message.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Op, e.Err)
}

// Unwrap returns the cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response body prefix that is not valid UTF-8.
type DecodeError struct {
	Offset     int  // index of the first invalid byte
	Incomplete bool // sequence cut off at the end of the buffer
}

// Error returns a human-readable error message.
func (e *DecodeError) Error() string {
	if e.Incomplete {
		return fmt.Sprintf("incomplete utf-8 byte sequence from index %d", e.Offset)
	}
	return fmt.Sprintf("invalid utf-8 sequence from index %d", e.Offset)
}
