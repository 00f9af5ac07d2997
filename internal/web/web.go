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

// Package web serves the fetch status over HTTP.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bfix/wifiget"
	"github.com/bfix/wifiget/internal/history"
	"github.com/go-chi/chi/v5"
)

// History provides stored results.
type History interface {
	Recent(n int) ([]history.Entry, error)
}

// default number of entries in a history listing
const defaultRecent = 20

// Status summary
type Status struct {
	OK     uint64 `json:"ok"`
	Failed uint64 `json:"failed"`
	Last   string `json:"last,omitempty"`
}

// NewRouter returns the handler for the status endpoints. If hist is
// nil, the history is taken from the journal.
func NewRouter(j *wifiget.Journal, hist History) http.Handler {
	r := chi.NewRouter()
	r.Get("/last", func(w http.ResponseWriter, req *http.Request) {
		last := j.Last()
		switch {
		case last == nil:
			http.Error(w, "pending", http.StatusServiceUnavailable)
		case !last.OK():
			http.Error(w, last.Err.Error(), http.StatusServiceUnavailable)
		default:
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(last.Body)
		}
	})
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		var s Status
		s.OK, s.Failed = j.Counts()
		if last := j.Last(); last != nil {
			s.Last = wifiget.FormatResult(last)
		}
		writeJSON(w, s)
	})
	r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
		n := defaultRecent
		if v := req.URL.Query().Get("n"); v != "" {
			var err error
			if n, err = strconv.Atoi(v); err != nil || n < 1 {
				http.Error(w, "invalid count", http.StatusBadRequest)
				return
			}
		}
		if hist == nil {
			writeJSON(w, fromJournal(j, n))
			return
		}
		list, err := hist.Recent(n)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	})
	return r
}

// convert journal results to history entries
func fromJournal(j *wifiget.Journal, n int) []history.Entry {
	list := make([]history.Entry, 0)
	for _, r := range j.Recent() {
		if len(list) == n {
			break
		}
		e := history.Entry{
			Seq:      r.Seq,
			Start:    r.Start,
			Duration: r.Duration,
			Host:     r.Host,
			URI:      r.URI,
			Body:     r.Body,
		}
		if r.Err != nil {
			e.Err = r.Err.Error()
		}
		list = append(list, e)
	}
	return list
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
