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
	"log/slog"
	"strings"
	"sync"
)

// Result of a plan step
type Result struct {
	Step     Step
	Exchange *Exchange // nil if the request did not complete
	Err      error
}

// Execute runs all steps of a plan in order. A failed step is logged
// and does not stop the plan; the returned error joins all failures.
// Each result is passed to rec (if not nil).
func Execute(ctx context.Context, c *Client, plan Plan, rec *Recorder) ([]Result, error) {
	var errs []error
	list := make([]Result, 0, len(plan))
	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res := Result{Step: step}
		switch strings.ToUpper(step.Method) {
		case "GET":
			res.Exchange, res.Err = c.Get(ctx, step.URL)
		case "POST":
			res.Exchange, res.Err = c.Post(ctx, step.URL, []byte(step.Body))
		default:
			res.Err = &RequestError{Method: step.Method, URL: step.URL, Op: "request", Err: errors.ErrUnsupported}
		}
		if res.Err != nil {
			c.log.Error("request failed", slog.String("err", res.Err.Error()))
			errs = append(errs, res.Err)
		}
		rec.Add(res)
		list = append(list, res)
	}
	return list, errors.Join(errs...)
}

//----------------------------------------------------------------------

// Recorder keeps the most recent result and failure count.
type Recorder struct {
	mtx    sync.Mutex
	last   *Result
	count  int
	failed int
}

// Add a result.
func (r *Recorder) Add(res Result) {
	if r == nil {
		return
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.last = &res
	r.count++
	if res.Err != nil {
		r.failed++
	}
}

// Last result (or nil) and the number of total and failed requests.
func (r *Recorder) Last() (*Result, int, int) {
	if r == nil {
		return nil, 0, 0
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.last, r.count, r.failed
}

// Summary of the most recent result as a line of text.
func (r *Recorder) Summary() string {
	last, _, _ := r.Last()
	switch {
	case last == nil:
		return "no request yet"
	case last.Err != nil:
		return last.Err.Error()
	case last.Exchange != nil:
		return last.Exchange.String()
	}
	return ""
}
