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
	"time"
)

// Defaults for the fetch cycle
const (
	DefaultHost     = "ifconfig.me"
	DefaultURI      = "/"
	DefaultInterval = 20 * time.Second
)

// Result of a single fetch
type Result struct {
	Seq      uint64        // sequence number (starting with 1)
	Start    time.Time     // time the request started
	Duration time.Duration // time spent in request
	Host     string
	URI      string
	Body     []byte // response body (nil on error)
	Err      error  // nil on success
}

// OK returns true if the fetch succeeded.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Cycle fetches a resource on a fixed interval.
type Cycle struct {
	Client   *Client
	Host     string
	URI      string
	Interval time.Duration
	Report   func(*Result) // called after every fetch (can be nil)

	seq uint64
}

// Once performs a single fetch and reports the result.
func (c *Cycle) Once(ctx context.Context) *Result {
	c.seq++
	res := &Result{
		Seq:   c.seq,
		Start: time.Now(),
		Host:  c.host(),
		URI:   c.uri(),
	}
	res.Body, res.Err = c.Client.Get(ctx, res.Host, res.URI)
	res.Duration = time.Since(res.Start)
	if c.Report != nil {
		c.Report(res)
	}
	return res
}

// Run fetches immediately and then every interval until the context
// is done. Failed fetches don't end the cycle.
func (c *Cycle) Run(ctx context.Context) error {
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	for {
		c.Once(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Cycle) host() string {
	if len(c.Host) == 0 {
		return DefaultHost
	}
	return c.Host
}

func (c *Cycle) uri() string {
	if len(c.URI) == 0 {
		return DefaultURI
	}
	return c.URI
}
