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
	"errors"
	"net"
	"path"
	"strings"
	"sync"

	"git.sr.ht/~moody/ninep"
)

// Error messages
var (
	errNoRoot = errors.New("no root directory")
	errNoFile = errors.New("no such file or directory")
	errNoDir  = errors.New("not a directory")
	errNoAbs  = errors.New("no absolute path")
	errExists = errors.New("file exists")
)

//----------------------------------------------------------------------

// Entry in the filesystem
type Entry struct {
	ref      *ninep.Dir        // 9p reference
	children map[string]*Entry // list of children (for folders) or nil
	file     File              // file implementation or nil (for folders)
}

// IsDir returns true if entry is a directory
func (e *Entry) IsDir() bool {
	return e.children != nil
}

// Name of the entry
func (e *Entry) Name() string {
	return e.ref.Name
}

//----------------------------------------------------------------------

// Namespace is a synthetic file system.
type Namespace struct {
	ninep.NopFS // use default handlers where needed

	user, group string
	mtx         sync.RWMutex
	dict        map[uint64]*Entry // map Qid.Path to filesystem entry
	nextId      uint64            // next Qid.Path
}

// NewNamespace creates a new filesystem (with root directory) owned by
// the given user/group.
func NewNamespace(user, group string) *Namespace {
	ns := &Namespace{
		user:  user,
		group: group,
		dict:  make(map[uint64]*Entry),
	}
	root := ns.newEntry("/", 0555, nil)
	ns.dict[root.ref.Path] = root
	return ns
}

// NewFetchNamespace exposes the fetch journal:
//
//	/readme          description
//	/fetch/target    fetched URL
//	/fetch/body      body of the last successful fetch
//	/fetch/status    outcome of the last fetch
//	/fetch/count     success/failure counters
//	/fetch/history   recent outcomes
func NewFetchNamespace(j *Journal, host, uri string) (ns *Namespace, err error) {
	ns = NewNamespace("sys", "sys")
	if err = ns.NewFile("/readme", 0444, NewTextFile("wifiget: periodic HTTP fetch\n")); err != nil {
		return
	}
	if err = ns.NewDir("/fetch", 0555); err != nil {
		return
	}
	files := []struct {
		name string
		impl File
	}{
		{"target", NewTextFile("http://" + host + uri + "\n")},
		{"body", bodyFile(j)},
		{"status", statusFile(j)},
		{"count", countFile(j)},
		{"history", historyFile(j)},
	}
	for _, f := range files {
		if err = ns.NewFile("/fetch/"+f.name, 0444, f.impl); err != nil {
			return
		}
	}
	return
}

// create a new entry in the filesystem.
// If impl is nil, the entry represents a directory; otherwise a file.
func (ns *Namespace) newEntry(name string, perm uint32, impl File) *Entry {
	e := new(Entry)
	kind := ninep.QTFile
	if impl == nil {
		kind = ninep.QTDir
		e.children = make(map[string]*Entry)
		perm |= ninep.DMDir
	} else {
		e.file = impl
	}
	e.ref = &ninep.Dir{
		Qid: ninep.Qid{
			Path: ns.nextId,
			Vers: 0,
			Type: byte(kind),
		},
		Name: name,
		Mode: perm,
		Uid:  ns.user,
		Gid:  ns.group,
		Muid: ns.user,
	}
	ns.nextId++
	return e
}

// Root returns the entry of the root directory
func (ns *Namespace) Root() *Entry {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	return ns.dict[0]
}

// Get entry with given (absolute) path
func (ns *Namespace) Get(p string) (*Entry, error) {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	return ns.lookup(p)
}

func (ns *Namespace) lookup(p string) (*Entry, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, errNoAbs
	}
	curr := ns.dict[0]
	for _, label := range strings.Split(p[1:], "/") {
		if len(label) == 0 {
			continue
		}
		if curr.children == nil {
			return nil, errNoDir
		}
		e, ok := curr.children[label]
		if !ok {
			return nil, errNoFile
		}
		curr = e
	}
	return curr, nil
}

// NewDir creates a directory at the given path.
func (ns *Namespace) NewDir(p string, perm uint32) error {
	return ns.add(p, perm, nil)
}

// NewFile creates a file at the given path.
func (ns *Namespace) NewFile(p string, perm uint32, impl File) error {
	if impl == nil {
		impl = new(NopFile)
	}
	return ns.add(p, perm, impl)
}

// add entry to parent directory
func (ns *Namespace) add(p string, perm uint32, impl File) error {
	ns.mtx.Lock()
	defer ns.mtx.Unlock()
	dir, name := path.Split(path.Clean(p))
	parent, err := ns.lookup(dir)
	if err != nil {
		return err
	}
	if parent.children == nil {
		return errNoDir
	}
	if _, ok := parent.children[name]; ok {
		return errExists
	}
	e := ns.newEntry(name, perm, impl)
	parent.children[name] = e
	ns.dict[e.ref.Path] = e
	return nil
}

// Serve the 9p protocol for the given listen string
func (ns *Namespace) Serve(listen string) error {
	srv := ninep.NewSrv(func() ninep.FS { return ns })
	return srv.ListenAndServe(listen)
}

// ServeListener accepts 9p sessions on the listener until it fails.
func (ns *Namespace) ServeListener(lst net.Listener) error {
	for {
		c, err := lst.Accept()
		if err != nil {
			return err
		}
		srv := ninep.NewSrv(func() ninep.FS { return ns })
		go func() {
			defer c.Close()
			srv.ServeIO(c, c)
		}()
	}
}

// ninep FS implementation

// Attach to 9p session
func (ns *Namespace) Attach(t *ninep.Tattach) {
	if e := ns.Root(); e != nil {
		t.Respond(&e.ref.Qid)
	} else {
		t.Err(errNoRoot)
	}
}

// Walk to child entry with name "next".
func (ns *Namespace) Walk(cur *ninep.Qid, next string) *ninep.Qid {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	e, ok := ns.dict[cur.Path]
	if !ok || e.children == nil {
		return nil
	}
	if c, ok := e.children[next]; ok {
		return &c.ref.Qid
	}
	return nil
}

// Open entry for file operation
func (ns *Namespace) Open(t *ninep.Topen, q *ninep.Qid) {
	t.Respond(q, 8192)
}

// Read from entry. Either return the content of a file
// or the listing from a directory.
func (ns *Namespace) Read(t *ninep.Tread, q *ninep.Qid) {
	ns.mtx.RLock()
	e, ok := ns.dict[q.Path]
	var kids []ninep.Dir
	if ok && e.children != nil {
		for _, c := range e.children {
			kids = append(kids, *c.ref)
		}
	}
	ns.mtx.RUnlock()
	if !ok {
		t.Err(errNoFile)
		return
	}
	if e.children != nil {
		ninep.ReadDir(t, kids)
		return
	}
	data, err := e.file.Read()
	if err != nil {
		t.Err(err)
	} else {
		ninep.ReadBuf(t, data)
	}
}

// Stat returns information for a filesytem entry.
func (ns *Namespace) Stat(t *ninep.Tstat, q *ninep.Qid) {
	ns.mtx.RLock()
	e, ok := ns.dict[q.Path]
	ns.mtx.RUnlock()
	if !ok {
		t.Err(errNoFile)
	} else {
		t.Respond(e.ref)
	}
}
