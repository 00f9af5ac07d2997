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
	"fmt"
)

// Kind of a fetch or bootstrap failure
type Kind int

// failure kinds
const (
	KindConnectionFailed  Kind = iota + 1 // can't open connection
	KindConnectionDropped                 // peer or stack dropped connection
	KindMalformedResponse                 // no header/body delimiter
	KindTimeout                           // deadline expired while waiting
	KindInvalidRequest                    // bad host or uri
)

// String returns a human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConnectionFailed:
		return "connection failed"
	case KindConnectionDropped:
		return "connection dropped"
	case KindMalformedResponse:
		return "malformed response"
	case KindTimeout:
		return "timeout"
	case KindInvalidRequest:
		return "invalid request"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for use with errors.Is
var (
	ErrConnectionFailed  = &Error{Kind: KindConnectionFailed}
	ErrConnectionDropped = &Error{Kind: KindConnectionDropped}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest}
)

// Error is returned by Bootstrap and Client.Get. It carries the kind of
// failure and (optionally) the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

// Unwrap returns the underlying cause (if any).
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match if target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of a (wrapped) *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
