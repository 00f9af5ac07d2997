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

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bfix/wifiget"
	"github.com/bfix/wifiget/internal/history"
)

type fixedHistory []history.Entry

func (h fixedHistory) Recent(n int) ([]history.Entry, error) {
	if n > len(h) {
		n = len(h)
	}
	return h[:n], nil
}

func TestLast(t *testing.T) {
	j := wifiget.NewJournal(4)
	handler := NewRouter(j, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/last", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status code is %d", rec.Code)
	}

	j.Add(&wifiget.Result{Seq: 1, Start: time.Now(), Body: []byte("1.2.3.4")})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/last", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "1.2.3.4" {
		t.Fatalf("%d %q", rec.Code, rec.Body.String())
	}

	j.Add(&wifiget.Result{Seq: 2, Start: time.Now(), Err: errors.New("timeout")})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/last", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status code is %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	j := wifiget.NewJournal(4)
	j.Add(&wifiget.Result{Seq: 1, Start: time.Now(), Host: "ifconfig.me", URI: "/", Body: []byte("x")})
	j.Add(&wifiget.Result{Seq: 2, Start: time.Now(), Host: "ifconfig.me", URI: "/", Err: errors.New("dropped")})

	rec := httptest.NewRecorder()
	NewRouter(j, nil).ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	var s Status
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.OK != 1 || s.Failed != 1 || s.Last == "" {
		t.Fatalf("status %+v", s)
	}
}

func TestHistory(t *testing.T) {
	j := wifiget.NewJournal(4)
	for i := 1; i <= 3; i++ {
		j.Add(&wifiget.Result{Seq: uint64(i), Start: time.Now()})
	}

	// from journal
	rec := httptest.NewRecorder()
	NewRouter(j, nil).ServeHTTP(rec, httptest.NewRequest("GET", "/history?n=2", nil))
	var list []history.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Seq != 3 {
		t.Fatalf("history %+v", list)
	}

	// from store
	hist := fixedHistory{{Seq: 7}, {Seq: 6}}
	rec = httptest.NewRecorder()
	NewRouter(j, hist).ServeHTTP(rec, httptest.NewRequest("GET", "/history", nil))
	list = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Seq != 7 {
		t.Fatalf("history %+v", list)
	}

	rec = httptest.NewRecorder()
	NewRouter(j, hist).ServeHTTP(rec, httptest.NewRequest("GET", "/history?n=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status code is %d", rec.Code)
	}
}
