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
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"
)

// BodyLimit is the number of response body bytes read and decoded;
// anything beyond is drained unseen.
const BodyLimit = 1024

// Exchange is the outcome of a single request/response.
type Exchange struct {
	Method    string
	URL       string
	Status    int    // HTTP status code
	Read      int    // bytes read into the body buffer
	Body      string // decoded body prefix (if valid UTF-8)
	DecodeErr error  // *DecodeError if the prefix was not valid UTF-8
	Drained   int64  // bytes read and discarded after the buffer
}

// String returns a one-line summary.
func (x *Exchange) String() string {
	s := fmt.Sprintf("%s %s -> %d (%d bytes", x.Method, x.URL, x.Status, x.Read)
	if x.Drained > 0 {
		s += fmt.Sprintf(", %d drained", x.Drained)
	}
	s += ")"
	if x.DecodeErr != nil {
		s += ": " + x.DecodeErr.Error()
	}
	return s
}

// PostHeaders returns the headers sent with a text payload.
func PostHeaders(payload []byte) http.Header {
	hdr := make(http.Header)
	hdr.Set("Accept", "text/plain")
	hdr.Set("Content-Type", "text/plain")
	hdr.Set("Connection", "close")
	hdr.Set("Content-Length", strconv.Itoa(len(payload)))
	return hdr
}

// Get issues a GET request with default headers.
func (c *Client) Get(ctx context.Context, url string) (*Exchange, error) {
	c.log.Info("making GET request", slog.String("url", url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &RequestError{Method: http.MethodGet, URL: url, Op: "request", Err: err}
	}
	return c.exchange(req)
}

// Post sends a text payload.
func (c *Client) Post(ctx context.Context, url string, payload []byte) (*Exchange, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &RequestError{Method: http.MethodPost, URL: url, Op: "request", Err: err}
	}
	req.Header = PostHeaders(payload)
	req.ContentLength = int64(len(payload))
	req.Close = true
	c.log.Info("-> POST", slog.String("url", url), slog.Int64("length", req.ContentLength))
	return c.exchange(req)
}

// exchange submits the request and processes the response: one bounded
// read, decode, drain.
func (c *Client) exchange(req *http.Request) (*Exchange, error) {
	x := &Exchange{
		Method: req.Method,
		URL:    req.URL.String(),
	}
	fail := func(op string, err error) (*Exchange, error) {
		return x, &RequestError{Method: x.Method, URL: x.URL, Op: op, Err: err}
	}
	resp, err := c.Do(req)
	if err != nil {
		return fail("submit", err)
	}
	defer resp.Body.Close()

	x.Status = resp.StatusCode
	c.log.Info("<- status", slog.Int("status", x.Status))

	buf := make([]byte, BodyLimit)
	if x.Read, err = readFull(resp.Body, buf); err != nil {
		return fail("read", err)
	}
	c.log.Info("read body", slog.Int("bytes", x.Read))
	if x.Body, x.DecodeErr = decodeText(buf[:x.Read]); x.DecodeErr != nil {
		c.log.Error("error decoding response body", slog.String("err", x.DecodeErr.Error()))
	} else {
		c.log.Info("response body", slog.Int("limit", BodyLimit), slog.String("body", x.Body))
	}
	if x.Drained, err = drain(resp.Body, buf); err != nil {
		return fail("drain", err)
	}
	if x.Drained > 0 {
		c.log.Debug("drained response body", slog.Int64("bytes", x.Drained))
	}
	return x, nil
}

// readFull reads until buf is full or the stream ends. Hitting the
// end early is not an error.
func readFull(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	return n, err
}

// drain reads and discards until a read returns no more data.
func drain(r io.Reader, buf []byte) (total int64, err error) {
	for {
		n, rerr := r.Read(buf)
		total += int64(n)
		switch {
		case rerr == io.EOF:
			return total, nil
		case rerr != nil:
			return total, rerr
		case n == 0:
			return total, nil
		}
	}
}

// decodeText returns data as a string if it is valid UTF-8.
func decodeText(data []byte) (string, error) {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return "", &DecodeError{
				Offset:     i,
				Incomplete: !utf8.FullRune(data[i:]),
			}
		}
		i += size
	}
	return string(data), nil
}
