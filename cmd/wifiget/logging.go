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

package main

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// zerologHandler passes slog records of the library to zerolog.
type zerologHandler struct {
	log   zerolog.Logger
	group string
}

// newSlogger returns a slog.Logger writing to the zerolog logger.
func newSlogger(log zerolog.Logger) *slog.Logger {
	return slog.New(&zerologHandler{log: log})
}

// map slog levels to zerolog levels
func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l < slog.LevelDebug:
		return zerolog.TraceLevel
	case l < slog.LevelInfo:
		return zerolog.DebugLevel
	case l < slog.LevelWarn:
		return zerolog.InfoLevel
	case l < slog.LevelError:
		return zerolog.WarnLevel
	}
	return zerolog.ErrorLevel
}

func (h *zerologHandler) Enabled(_ context.Context, l slog.Level) bool {
	return zerologLevel(l) >= h.log.GetLevel()
}

func (h *zerologHandler) Handle(_ context.Context, r slog.Record) error {
	ev := h.log.WithLevel(zerologLevel(r.Level))
	r.Attrs(func(a slog.Attr) bool {
		ev = ev.Interface(h.key(a.Key), a.Value.Resolve().Any())
		return true
	})
	ev.Msg(r.Message)
	return nil
}

func (h *zerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	ctx := h.log.With()
	for _, a := range attrs {
		ctx = ctx.Interface(h.key(a.Key), a.Value.Resolve().Any())
	}
	return &zerologHandler{log: ctx.Logger(), group: h.group}
}

func (h *zerologHandler) WithGroup(name string) slog.Handler {
	return &zerologHandler{log: h.log, group: h.key(name)}
}

func (h *zerologHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}
