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
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

// build a test namespace
func newNamespace() (ns *Namespace, err error) {
	ns = NewNamespace("sys", "sys")
	if err = ns.NewFile("/readme", 0444, NewTextFile("Just a test...\n")); err != nil {
		return
	}
	if err = ns.NewDir("/fetch", 0777); err != nil {
		return
	}
	err = ns.NewFile("/fetch/body", 0444, NewFuncFile(
		func() ([]byte, error) {
			return []byte("hello"), nil
		},
	))
	return
}

func TestNamespaceNew(t *testing.T) {
	ns, err := newNamespace()
	if err != nil {
		t.Fatal(err)
	}
	e, err := ns.Get("/fetch/body")
	if err != nil {
		t.Fatal(err)
	}
	if e.IsDir() || e.Name() != "body" {
		t.Fatalf("unexpected entry %q (dir=%v)", e.Name(), e.IsDir())
	}
	data, err := e.file.Read()
	if err != nil || string(data) != "hello" {
		t.Fatalf("read: %q, %v", data, err)
	}
	if d, _ := ns.Get("/fetch"); !d.IsDir() {
		t.Fatal("/fetch is not a directory")
	}
}

func TestNamespaceErrors(t *testing.T) {
	ns, err := newNamespace()
	if err != nil {
		t.Fatal(err)
	}
	if _, err = ns.Get("fetch"); !errors.Is(err, errNoAbs) {
		t.Errorf("relative path: %v", err)
	}
	if _, err = ns.Get("/missing"); !errors.Is(err, errNoFile) {
		t.Errorf("missing entry: %v", err)
	}
	if _, err = ns.Get("/readme/x"); !errors.Is(err, errNoDir) {
		t.Errorf("file as directory: %v", err)
	}
	if err = ns.NewFile("/readme", 0444, nil); !errors.Is(err, errExists) {
		t.Errorf("duplicate entry: %v", err)
	}
	if err = ns.NewDir("/readme/sub", 0555); !errors.Is(err, errNoDir) {
		t.Errorf("dir below file: %v", err)
	}
}

func TestNamespaceWalk(t *testing.T) {
	ns, err := newNamespace()
	if err != nil {
		t.Fatal(err)
	}
	root := ns.Root()
	q := ns.Walk(&root.ref.Qid, "fetch")
	if q == nil {
		t.Fatal("walk to 'fetch' failed")
	}
	if q = ns.Walk(q, "body"); q == nil {
		t.Fatal("walk to 'body' failed")
	}
	if ns.Walk(q, "any") != nil {
		t.Fatal("walk below file succeeded")
	}
}

func TestFetchNamespace(t *testing.T) {
	j := NewJournal(4)
	ns, err := NewFetchNamespace(j, "ifconfig.me", "/")
	if err != nil {
		t.Fatal(err)
	}
	read := func(p string) string {
		e, err := ns.Get(p)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		data, err := e.file.Read()
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		return string(data)
	}
	if s := read("/fetch/status"); s != "pending\n" {
		t.Errorf("status before fetch: %q", s)
	}
	if s := read("/fetch/target"); s != "http://ifconfig.me/\n" {
		t.Errorf("target: %q", s)
	}

	j.Add(&Result{Seq: 1, Start: time.Now(), Host: "ifconfig.me", URI: "/", Body: []byte("1.2.3.4")})
	j.Add(&Result{Seq: 2, Start: time.Now(), Host: "ifconfig.me", URI: "/", Err: newError(KindTimeout, nil)})

	if s := read("/fetch/body"); s != "1.2.3.4" {
		t.Errorf("body: %q", s)
	}
	if s := read("/fetch/status"); !strings.Contains(s, "error: timeout") {
		t.Errorf("status: %q", s)
	}
	if s := read("/fetch/count"); s != "ok 1\nfailed 1\n" {
		t.Errorf("count: %q", s)
	}
	hist := read("/fetch/history")
	if n := bytes.Count([]byte(hist), []byte("\n")); n != 2 {
		t.Errorf("history has %d lines", n)
	}
	if !strings.HasPrefix(hist, "#2 ") {
		t.Errorf("history not newest first: %q", hist)
	}
}
