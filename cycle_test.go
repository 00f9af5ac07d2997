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
	"errors"
	"testing"
	"time"
)

// dialer that fails on every other call
type flakyDialer struct {
	calls int
}

func (d *flakyDialer) Dial(_ context.Context, _ string, _ uint16) (Conn, error) {
	d.calls++
	if d.calls%2 == 0 {
		return nil, errors.New("refused")
	}
	return &fakeConn{resp: []byte("HTTP/1.1 200 OK\r\n\r\n1.2.3.4")}, nil
}

func TestCycleOnce(t *testing.T) {
	var got []*Result
	c := &Cycle{
		Client: newTestClient(&flakyDialer{}),
		Report: func(r *Result) { got = append(got, r) },
	}
	r := c.Once(context.Background())
	if !r.OK() || string(r.Body) != "1.2.3.4" {
		t.Fatalf("first fetch: %v %q", r.Err, r.Body)
	}
	if r.Host != DefaultHost || r.URI != DefaultURI || r.Seq != 1 {
		t.Fatalf("result %+v", r)
	}
	r = c.Once(context.Background())
	if r.OK() || !errors.Is(r.Err, ErrConnectionFailed) || r.Seq != 2 {
		t.Fatalf("second fetch: %+v", r)
	}
	if len(got) != 2 {
		t.Fatalf("%d reports", len(got))
	}
}

func TestCycleRun(t *testing.T) {
	j := NewJournal(10)
	c := &Cycle{
		Client:   newTestClient(&flakyDialer{}),
		Host:     "example.org",
		URI:      "/ip",
		Interval: 5 * time.Millisecond,
		Report:   j.Add,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := c.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run ended with %v", err)
	}
	ok, failed := j.Counts()
	if ok < 2 || failed < 1 {
		t.Fatalf("ok=%d, failed=%d", ok, failed)
	}
	if last := j.Last(); last.Host != "example.org" || last.URI != "/ip" {
		t.Fatalf("last result %+v", last)
	}
}
