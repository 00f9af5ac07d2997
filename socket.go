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
	"time"

	"github.com/soypat/seqs"
)

// socket release on the seqs stack: a closed socket lingers in the
// closing states until the peer finishes the handshake, or until the
// stack drops it (idle closing sockets are aborted after 3s).
const (
	closePolls = 40
	closeWait  = 100 * time.Millisecond
)

// socket is a TCP socket that is closed asynchronously by its stack.
type socket interface {
	State() seqs.State
	Close() error
}

// closeSocket closes a socket (if not closed already) and waits a bounded
// time until it reports closed.
func closeSocket(conn socket, polls int, wait time.Duration) bool {
	if conn.State().IsClosed() {
		return true
	}
	conn.Close()
	for range polls {
		if conn.State().IsClosed() {
			return true
		}
		time.Sleep(wait)
	}
	return conn.State().IsClosed()
}
