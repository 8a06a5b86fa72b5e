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
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteContinuesAfterFailure(t *testing.T) {
	ts := serveText(t, "1.2.3.4")
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	c, _, _ := newTestClient(t, ClientConfig{})

	rec := new(Recorder)
	plan := Plan{
		{Method: "GET", URL: dead.URL},
		{Method: "get", URL: ts.URL},
		{Method: "POST", URL: ts.URL, Body: "Hello world!"},
	}
	list, err := Execute(context.Background(), c, plan, rec)
	require.Error(t, err)
	require.Len(t, list, 3)

	var rerr *RequestError
	assert.ErrorAs(t, list[0].Err, &rerr)
	assert.NoError(t, list[1].Err)
	assert.Equal(t, "1.2.3.4", list[1].Exchange.Body)
	assert.NoError(t, list[2].Err)

	last, num, failed := rec.Last()
	assert.Equal(t, 3, num)
	assert.Equal(t, 1, failed)
	assert.Equal(t, plan[2], last.Step)
	assert.Contains(t, rec.Summary(), "POST "+ts.URL+" -> 200")
}

func TestExecuteUnsupportedMethod(t *testing.T) {
	c, _, _ := newTestClient(t, ClientConfig{})
	list, err := Execute(context.Background(), c, Plan{{Method: "PUT", URL: "http://example.org/"}}, nil)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Exchange)
}

func TestExecuteCancelled(t *testing.T) {
	c, _, _ := newTestClient(t, ClientConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	list, err := Execute(ctx, c, DefaultPlan(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, list)
}

func TestRecorderEmpty(t *testing.T) {
	var rec *Recorder
	last, num, _ := rec.Last()
	assert.Nil(t, last)
	assert.Zero(t, num)
	assert.Equal(t, "no request yet", new(Recorder).Summary())
}
