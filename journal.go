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

import "sync"

// Journal keeps the most recent fetch results. It is safe for
// concurrent use (the cycle writes, file servers read).
type Journal struct {
	mtx    sync.Mutex
	ring   []*Result // recent results (ring buffer)
	next   int       // next write position in ring
	filled bool      // ring completely filled
	ok     uint64    // number of successful fetches
	failed uint64    // number of failed fetches
}

// NewJournal keeps the last 'size' results (at least one).
func NewJournal(size int) *Journal {
	if size < 1 {
		size = 1
	}
	return &Journal{
		ring: make([]*Result, size),
	}
}

// Add a result to the journal.
func (j *Journal) Add(r *Result) {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	j.ring[j.next] = r
	j.next = (j.next + 1) % len(j.ring)
	if j.next == 0 {
		j.filled = true
	}
	if r.OK() {
		j.ok++
	} else {
		j.failed++
	}
}

// Last returns the most recent result (or nil).
func (j *Journal) Last() *Result {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	return j.ring[(j.next+len(j.ring)-1)%len(j.ring)]
}

// Recent returns the stored results, newest first.
func (j *Journal) Recent() (list []*Result) {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	num := j.next
	if j.filled {
		num = len(j.ring)
	}
	for i := 1; i <= num; i++ {
		list = append(list, j.ring[(j.next+len(j.ring)-i)%len(j.ring)])
	}
	return
}

// Counts returns the number of successful and failed fetches.
func (j *Journal) Counts() (ok, failed uint64) {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	return j.ok, j.failed
}
