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

// fakeStation connects after a number of polls.
type fakeStation struct {
	after    int   // polls until connected (<0: never)
	beginErr error // error returned by Begin
	fault    int   // reported failure code

	ssid, passwd string
	polls        int
}

func (st *fakeStation) Begin(ssid, passwd string) error {
	st.ssid, st.passwd = ssid, passwd
	return st.beginErr
}

func (st *fakeStation) Connected() bool {
	st.polls++
	return st.after >= 0 && st.polls > st.after
}

func (st *fakeStation) Fault() int {
	return st.fault
}

func TestBootstrapConnects(t *testing.T) {
	st := &fakeStation{after: 3}
	err := Bootstrap(context.Background(), st, "net", "secret", BootConfig{
		Poll:    time.Millisecond,
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	if st.ssid != "net" || st.passwd != "secret" {
		t.Errorf("credentials %q/%q", st.ssid, st.passwd)
	}
	if st.polls != 4 {
		t.Errorf("%d polls", st.polls)
	}
}

func TestBootstrapTimeout(t *testing.T) {
	st := &fakeStation{after: -1}
	start := time.Now()
	err := Bootstrap(context.Background(), st, "net", "wrong", BootConfig{
		Poll:    time.Millisecond,
		Timeout: 20 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout not honored")
	}
	if s := BootStatus(st, err); s != StatBOOT {
		t.Errorf("boot status %d", s)
	}
	st.fault = StatWPA2
	if s := BootStatus(st, err); s != StatWPA2 {
		t.Errorf("boot status %d", s)
	}
}

func TestBootstrapBeginFails(t *testing.T) {
	st := &fakeStation{beginErr: errors.New("no chip")}
	err := Bootstrap(context.Background(), st, "net", "", BootConfig{})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("expected connection failed, got %v", err)
	}
	if st.polls != 0 {
		t.Errorf("%d polls after failed begin", st.polls)
	}
}

func TestBootstrapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Bootstrap(ctx, &fakeStation{after: -1}, "net", "", BootConfig{Poll: time.Millisecond})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
