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
	"encoding/pem"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a client on a connected fake station and the
// buffer receiving its log output.
func newTestClient(t *testing.T, cfg ClientConfig) (*Client, *fakeStation, *bytes.Buffer) {
	t.Helper()
	buf := new(bytes.Buffer)
	sess, sta := connectFake(t, buf)
	cfg.Logger = NewLogger(buf, slog.LevelInfo)
	c, err := NewClient(sess, cfg)
	require.NoError(t, err)
	buf.Reset()
	return c, sta, buf
}

// serveText responds with a fixed body.
func serveText(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestGetSmallBody(t *testing.T) {
	ts := serveText(t, "1.2.3.4")
	c, sta, buf := newTestClient(t, ClientConfig{})

	x, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, x.Status)
	assert.Equal(t, 7, x.Read)
	assert.Equal(t, "1.2.3.4", x.Body)
	assert.NoError(t, x.DecodeErr)
	assert.Zero(t, x.Drained)

	out := buf.String()
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "bytes=7")
	assert.Contains(t, out, "body=1.2.3.4")

	// no request before the station was connected
	require.NotEmpty(t, sta.dials)
	for _, connected := range sta.dials {
		assert.True(t, connected)
	}
}

func TestGetLargeBody(t *testing.T) {
	ts := serveText(t, strings.Repeat("a", BodyLimit)+strings.Repeat("b", 2000))
	c, _, buf := newTestClient(t, ClientConfig{})

	x, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, BodyLimit, x.Read)
	assert.Equal(t, strings.Repeat("a", BodyLimit), x.Body)
	assert.Equal(t, int64(2000), x.Drained)
	assert.NotContains(t, buf.String(), "bbbb")
}

func TestGetInvalidText(t *testing.T) {
	ts := serveText(t, "ab\xff\xfecd")
	c, _, buf := newTestClient(t, ClientConfig{})

	x, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, 6, x.Read)
	assert.Empty(t, x.Body)
	var derr *DecodeError
	require.ErrorAs(t, x.DecodeErr, &derr)
	assert.Equal(t, 2, derr.Offset)
	assert.False(t, derr.Incomplete)
	assert.Contains(t, buf.String(), "error decoding response body")
}

func TestGetRuneSplitAtLimit(t *testing.T) {
	// two-byte rune starting at the last buffer position
	ts := serveText(t, strings.Repeat("a", BodyLimit-1)+"é"+"tail")
	c, _, _ := newTestClient(t, ClientConfig{})

	x, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	var derr *DecodeError
	require.ErrorAs(t, x.DecodeErr, &derr)
	assert.Equal(t, BodyLimit-1, derr.Offset)
	assert.True(t, derr.Incomplete)
	assert.Equal(t, int64(5), x.Drained)
}

func TestGetEmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()
	c, _, _ := newTestClient(t, ClientConfig{})

	x, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, x.Status)
	assert.Zero(t, x.Read)
	assert.NoError(t, x.DecodeErr)
}

func TestPostHeaders(t *testing.T) {
	tests := []struct {
		payload string
		length  string
	}{
		{"Hello world!", "12"},
		{"", "0"},
		{"héllo", "6"},
		{"日本", "6"},
	}
	for _, tt := range tests {
		hdr := PostHeaders([]byte(tt.payload))
		assert.Equal(t, tt.length, hdr.Get("Content-Length"), tt.payload)
		assert.Equal(t, "text/plain", hdr.Get("Accept"))
		assert.Equal(t, "text/plain", hdr.Get("Content-Type"))
		assert.Equal(t, "close", hdr.Get("Connection"))
	}
}

func TestPost(t *testing.T) {
	var (
		got     *http.Request
		gotBody []byte
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, "thanks")
	}))
	defer ts.Close()
	c, _, buf := newTestClient(t, ClientConfig{})

	x, err := c.Post(context.Background(), ts.URL, []byte("Hello world!"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, x.Status)
	assert.Equal(t, "thanks", x.Body)
	assert.Contains(t, buf.String(), "status=200")

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, int64(12), got.ContentLength)
	assert.Equal(t, "Hello world!", string(gotBody))
	assert.Equal(t, "text/plain", got.Header.Get("Accept"))
	assert.Equal(t, "text/plain", got.Header.Get("Content-Type"))
	assert.True(t, got.Close)
}

func TestRequestErrorIsRecoverable(t *testing.T) {
	ts := serveText(t, "gone")
	url := ts.URL
	ts.Close()
	c, _, _ := newTestClient(t, ClientConfig{})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		var err error
		if method == http.MethodGet {
			_, err = c.Get(context.Background(), url)
		} else {
			_, err = c.Post(context.Background(), url, []byte("x"))
		}
		var rerr *RequestError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, method, rerr.Method)
		assert.Equal(t, "submit", rerr.Op)
	}
}

func TestBadScheme(t *testing.T) {
	c, _, _ := newTestClient(t, ClientConfig{})
	_, err := c.Get(context.Background(), "ftp://example.org/")
	assert.ErrorIs(t, err, ErrBadScheme)
}

func TestClientRequiresConnected(t *testing.T) {
	_, err := NewClient(nil, ClientConfig{})
	assert.ErrorIs(t, err, ErrNotConnected)

	sess, err := Connect(context.Background(), &fakeStation{startErr: errors.New("no radio")}, Credentials{}, ConnectConfig{})
	require.Error(t, err)
	_, err = NewClient(sess, ClientConfig{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClientTrustRoots(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "secure")
	}))
	defer ts.Close()
	bundle := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ts.Certificate().Raw})

	c, _, _ := newTestClient(t, ClientConfig{TrustRoots: bundle})
	x, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, x.Status)
	assert.Equal(t, "secure", x.Body)

	// without the bundle the server is not trusted
	c, _, _ = newTestClient(t, ClientConfig{})
	_, err = c.Get(context.Background(), ts.URL)
	var rerr *RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "submit", rerr.Op)
}

func TestClientBadBundle(t *testing.T) {
	sess, _ := connectFake(t, new(bytes.Buffer))
	_, err := NewClient(sess, ClientConfig{TrustRoots: []byte("not a certificate")})
	assert.ErrorIs(t, err, ErrNoCertificates)
}

func TestDecodeText(t *testing.T) {
	s, err := decodeText([]byte("grüße"))
	require.NoError(t, err)
	assert.Equal(t, "grüße", s)

	_, err = decodeText([]byte{'o', 'k', 0xe6, 0x97})
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 2, derr.Offset)
	assert.True(t, derr.Incomplete)
	assert.Equal(t, "incomplete utf-8 byte sequence from index 2", derr.Error())
}
