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
	"time"
)

// Run the demo sequence on a device: acquire the station, connect,
// wait for the settle delay, execute the request plan and (if
// configured) report the IP configuration until ctx is done.
//
// A *StartupError is returned if the network can't be brought up;
// failed requests are logged and shown as status only.
func Run(ctx context.Context, dev Device, cfg *Config, state *Status, logger *slog.Logger) ([]Result, error) {
	if logger == nil {
		logger = nopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &StartupError{Stage: "config", Status: StatCFG, Err: err}
	}
	for _, msg := range cfg.Warnings() {
		logger.Warn(msg)
	}
	sta, err := dev.Station(cfg.Hostname)
	if err != nil {
		return nil, &StartupError{Stage: "acquire", Status: StatDEV, Err: err}
	}
	sess, err := Connect(ctx, sta, cfg.Credentials, ConnectConfig{
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxWait,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	client, err := NewClient(sess, ClientConfig{
		TrustRoots: cfg.RootsPEM,
		Timeout:    cfg.Timeout,
		UserAgent:  "picohttp",
		Logger:     logger,
	})
	if err != nil {
		status := StatREQ
		if errors.Is(err, ErrNoCertificates) {
			status = StatTLS
		}
		return nil, &StartupError{Stage: "client", Status: status, Err: err}
	}

	rec := new(Recorder)
	if cfg.NinePPort != 0 {
		if err = serveMonitor(ctx, dev, sess, rec, state, cfg.NinePPort, logger); err != nil {
			return nil, err
		}
	}

	if cfg.Settle > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.Settle):
		}
	}
	list, err := Execute(ctx, client, cfg.Plan, rec)
	if err != nil {
		state.Set(StatREQ, 3)
	}
	if cfg.Report > 0 {
		if rerr := sess.Report(ctx, cfg.Report); rerr != nil && !errors.Is(rerr, context.Canceled) {
			logger.Warn("report loop ended", slog.String("err", rerr.Error()))
		}
	}
	return list, err
}

// serveMonitor publishes the status namespace over 9P.
func serveMonitor(ctx context.Context, dev Device, sess *Session, rec *Recorder, state *Status, port uint16, logger *slog.Logger) error {
	ns, err := NewMonitor(sess, rec, state)
	if err != nil {
		return &StartupError{Stage: "monitor", Status: StatDEV, Err: err}
	}
	lst, err := dev.Listen(port)
	if err != nil {
		return &StartupError{Stage: "listen", Status: StatLISTEN1, Err: err}
	}
	logger.Info("serving status namespace", slog.Int("port", int(port)))
	context.AfterFunc(ctx, func() { lst.Close() })
	go func() {
		if err := ns.Serve(lst); err != nil && ctx.Err() == nil {
			logger.Error("9p listener failed", slog.String("err", err.Error()))
			state.Set(StatLISTEN2, 3)
		}
	}()
	return nil
}
