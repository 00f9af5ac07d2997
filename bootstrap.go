//----------------------------------------------------------------------
// This file is part of wifiget.
// Copyright (C) 2024-present Bernd Fix   >Y<
//
// wifiget is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// wifiget is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

package wifiget

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Station is a network interface in WiFi client mode.
type Station interface {
	// Begin switches to station mode and initiates a connection
	// to the access point.
	Begin(ssid, passwd string) error

	// Connected returns true once the interface is usable for
	// network operations.
	Connected() bool
}

// BootConfig controls the connection wait.
type BootConfig struct {
	// Poll interval for the connection status (default: 500ms)
	Poll time.Duration
	// Timeout for the connection to be established. A zero value
	// waits forever.
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultBootPoll is the status poll interval used if none is set.
const DefaultBootPoll = 500 * time.Millisecond

// Bootstrap brings the station up and blocks until it reports
// connected. If the configured timeout expires first, an error of kind
// KindTimeout is returned. Without timeout (and a context that is never
// cancelled) wrong credentials or an unreachable network block the
// caller forever.
func Bootstrap(ctx context.Context, st Station, ssid, passwd string, cfg BootConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger()
	}
	poll := cfg.Poll
	if poll <= 0 {
		poll = DefaultBootPoll
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	logger.Info("joining network", slog.String("ssid", ssid), slog.Int("passlen", len(passwd)))
	start := time.Now()
	if err := st.Begin(ssid, passwd); err != nil {
		return newError(KindConnectionFailed, err)
	}
	tick := time.NewTicker(poll)
	defer tick.Stop()
	for !st.Connected() {
		logger.Debug("waiting for network...", slog.Duration("elapsed", time.Since(start)))
		select {
		case <-ctx.Done():
			return ctxError(ctx)
		case <-tick.C:
		}
	}
	logger.Info("network connected", slog.Duration("duration", time.Since(start)))
	return nil
}

// map context termination to our error kinds: an expired deadline is
// a timeout, a cancellation is passed on unchanged.
func ctxError(ctx context.Context) error {
	err := ctx.Err()
	if err == context.DeadlineExceeded {
		return newError(KindTimeout, err)
	}
	return err
}

// logger that drops everything
func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(127),
	}))
}
