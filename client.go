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
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ClientConfig for HTTP client handles
type ClientConfig struct {
	TrustRoots []byte        // PEM bundle for TLS server validation (optional)
	Timeout    time.Duration // per-request limit (0 = none)
	UserAgent  string
	Logger     *slog.Logger
}

// Client is an HTTP client bound to a connected session. It keeps no
// connections between requests.
type Client struct {
	sess  *Session
	hc    *http.Client
	agent string
	log   *slog.Logger
}

// NewClient creates a client for a connected session.
func NewClient(sess *Session, cfg ClientConfig) (*Client, error) {
	if sess == nil || !sess.Connected() {
		return nil, ErrNotConnected
	}
	tr := &connTransport{
		dialer: sess.Station().Dialer(),
	}
	if len(cfg.TrustRoots) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.TrustRoots) {
			return nil, ErrNoCertificates
		}
		tr.roots = pool
	}
	c := &Client{
		sess: sess,
		hc: &http.Client{
			Transport: tr,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		agent: cfg.UserAgent,
		log:   cfg.Logger,
	}
	if c.log == nil {
		c.log = nopLogger()
	}
	return c, nil
}

// Do submits a request and returns the response with status line and
// headers read. The body stream is left to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if !c.sess.Connected() {
		return nil, ErrNotConnected
	}
	if c.agent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.agent)
	}
	return c.hc.Do(req)
}

//----------------------------------------------------------------------

// connTransport dials a fresh connection for every request through a
// station dialer and closes it with the response body.
type connTransport struct {
	dialer Dialer
	roots  *x509.CertPool
}

// RoundTrip implements http.RoundTripper.
func (t *connTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	conn, err := t.dial(ctx, req)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	// abort blocking I/O if the request is cancelled
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	bw := bufio.NewWriter(conn)
	if err = req.Write(bw); err == nil {
		err = bw.Flush()
	}
	if err != nil {
		stop()
		conn.Close()
		return nil, err
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		stop()
		conn.Close()
		return nil, err
	}
	resp.Body = &connBody{ReadCloser: resp.Body, conn: conn, stop: stop}
	return resp, nil
}

// dial the request target (with TLS for https).
func (t *connTransport) dial(ctx context.Context, req *http.Request) (net.Conn, error) {
	host := req.URL.Hostname()
	port := req.URL.Port()
	secure := false
	switch req.URL.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		if port == "" {
			port = "443"
		}
		secure = true
	default:
		return nil, ErrBadScheme
	}
	conn, err := t.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil || !secure {
		return conn, err
	}
	tc := tls.Client(conn, &tls.Config{
		ServerName: host,
		RootCAs:    t.roots,
		MinVersion: tls.VersionTLS12,
	})
	if err = tc.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tc, nil
}

// connBody closes the connection along with the response body.
type connBody struct {
	io.ReadCloser
	conn net.Conn
	stop func() bool
}

// Close body and connection.
func (b *connBody) Close() error {
	err := b.ReadCloser.Close()
	b.stop()
	if cerr := b.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
