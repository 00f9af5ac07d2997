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
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
)

// HTTPPort is the (fixed) port of the remote host.
const HTTPPort = 80

// Default values for the fetch client
const (
	DefaultPoll    = 100 * time.Millisecond
	DefaultTimeout = 10 * time.Second
)

// Conn is a connected TCP socket.
type Conn interface {
	io.ReadWriteCloser

	// Available returns the number of bytes that can be read without
	// blocking (snapshot; more data may still be in flight).
	Available() int

	// Dropped returns true if the connection was lost.
	Dropped() bool
}

// Dialer opens TCP connections.
type Dialer interface {
	Dial(ctx context.Context, host string, port uint16) (Conn, error)
}

// LineEnding terminates lines in the outgoing request.
type LineEnding string

// line endings
const (
	LineEndingCRLF LineEnding = "\r\n" // standard HTTP
	LineEndingLF   LineEnding = "\n"   // legacy (bare newline)
)

// header/body delimiter in responses
var headerSep = []byte("\r\n\r\n")

//----------------------------------------------------------------------

// Client performs single blocking HTTP GET requests. Nothing is
// shared between requests; every call opens and closes its own
// connection.
type Client struct {
	Dialer     Dialer
	Logger     *slog.Logger
	Poll       time.Duration // poll interval while waiting for data
	Timeout    time.Duration // max. wait for a response (0: default)
	LineEnding LineEnding    // default: CRLF
}

// NewClient returns a client with default settings using the given
// dialer.
func NewClient(d Dialer, logger *slog.Logger) *Client {
	return &Client{
		Dialer:     d,
		Logger:     logger,
		Poll:       DefaultPoll,
		Timeout:    DefaultTimeout,
		LineEnding: LineEndingCRLF,
	}
}

// Get requests 'uri' from 'host' and returns the response body.
func (c *Client) Get(ctx context.Context, host, uri string) (body []byte, err error) {
	logger := c.Logger
	if logger == nil {
		logger = nopLogger()
	}
	if len(host) == 0 {
		return nil, newError(KindInvalidRequest, errors.New("empty host"))
	}
	if !strings.HasPrefix(uri, "/") {
		return nil, newError(KindInvalidRequest, errors.New("uri must start with '/'"))
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// connect to host
	conn, err := c.Dialer.Dial(ctx, host, HTTPPort)
	if err != nil {
		logger.Error("connection failed", slog.String("host", host), slog.String("err", err.Error()))
		if ctx.Err() == context.DeadlineExceeded {
			return nil, newError(KindTimeout, err)
		}
		return nil, newError(KindConnectionFailed, err)
	}
	defer conn.Close()
	logger.Info("connection successful", slog.String("host", host))

	// send request
	if _, err = conn.Write(BuildRequest(host, uri, c.LineEnding)); err != nil {
		return nil, newError(KindConnectionDropped, err)
	}

	// wait for response data
	if err = c.await(ctx, conn); err != nil {
		logger.Error("no response", slog.String("host", host), slog.String("err", err.Error()))
		return nil, err
	}

	// read what is available
	buf := make([]byte, conn.Available())
	n, err := io.ReadFull(conn, buf)
	if err != nil {
		return nil, newError(KindConnectionDropped, err)
	}
	if body, err = ExtractBody(buf[:n]); err != nil {
		return nil, err
	}
	logger.Info("response", slog.Int("size", n), slog.Int("bodylen", len(body)))
	logger.Debug("body", slog.String("body", string(body)))
	return body, nil
}

// wait until data is available on the connection, the connection is
// dropped or the context expires.
func (c *Client) await(ctx context.Context, conn Conn) error {
	poll := c.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	tick := time.NewTicker(poll)
	defer tick.Stop()
	for conn.Available() == 0 {
		if conn.Dropped() {
			return newError(KindConnectionDropped, nil)
		}
		select {
		case <-ctx.Done():
			return ctxError(ctx)
		case <-tick.C:
		}
	}
	return nil
}

// BuildRequest assembles a minimal GET request. The line ending applies
// to the request and Host lines; the header block always ends with CRLF.
func BuildRequest(host, uri string, eol LineEnding) []byte {
	if len(eol) == 0 {
		eol = LineEndingCRLF
	}
	var buf bytes.Buffer
	buf.WriteString("GET " + uri + " HTTP/1.1" + string(eol))
	buf.WriteString("Host: " + host + string(eol))
	buf.WriteString("Accept: */*\r\n\r\n")
	return buf.Bytes()
}

// ExtractBody returns a copy of everything after the first header/body
// delimiter in a raw response. A response without delimiter is
// reported as KindMalformedResponse.
func ExtractBody(resp []byte) ([]byte, error) {
	pos := bytes.Index(resp, headerSep)
	if pos < 0 {
		return nil, newError(KindMalformedResponse, nil)
	}
	body := make([]byte, len(resp)-pos-len(headerSep))
	copy(body, resp[pos+len(headerSep):])
	return body, nil
}
