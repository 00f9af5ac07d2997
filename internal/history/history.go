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

// Package history keeps a persistent journal of fetch results in a
// SQLite database.
package history

import (
	"database/sql"
	"sync"
	"time"

	"github.com/bfix/wifiget"

	_ "github.com/glebarez/go-sqlite"
)

// Entry is a stored fetch result.
type Entry struct {
	Seq      uint64        `json:"seq"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Host     string        `json:"host"`
	URI      string        `json:"uri"`
	Body     []byte        `json:"body,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// Store of fetch results
type Store struct {
	db         *sql.DB
	writeMutex sync.Mutex
}

// Open the store with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func Open(filename string) (*Store, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			seq INTEGER,
			start INTEGER,
			duration INTEGER,
			host TEXT,
			uri TEXT,
			body BLOB,
			error TEXT
		)`,
		"CREATE INDEX IF NOT EXISTS start_idx ON results (start)",
	}
	for _, stmt := range stmts {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

// Put a fetch result into the store.
func (s *Store) Put(r *wifiget.Result) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	var errText string
	if r.Err != nil {
		errText = r.Err.Error()
	}
	_, err := s.db.Exec(`INSERT INTO results
		(seq, start, duration, host, uri, body, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Seq, r.Start.UnixNano(), int64(r.Duration), r.Host, r.URI, r.Body, errText)
	return err
}

// Recent returns the last 'n' results, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	entries := make([]Entry, 0)
	rows, err := s.db.Query(`SELECT
		seq, start, duration, host, uri, body, error
		FROM results ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return entries, err
	}
	defer rows.Close()
	for rows.Next() {
		var entry Entry
		var start, dur int64
		if err := rows.Scan(&entry.Seq, &start, &dur, &entry.Host, &entry.URI, &entry.Body, &entry.Err); err != nil {
			return entries, err
		}
		entry.Start = time.Unix(0, start)
		entry.Duration = time.Duration(dur)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close the store.
func (s *Store) Close() error {
	return s.db.Close()
}
