//go:build !rp2350

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
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// start a loopback server that handles a single connection
func setupTestServer(t *testing.T, serve func(net.Conn)) (*LinuxDevice, func()) {
	t.Helper()
	lst, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create test server: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := lst.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		serve(c)
	}()
	dev := &LinuxDevice{port: uint16(lst.Addr().(*net.TCPAddr).Port)}
	return dev, func() {
		lst.Close()
		<-done
	}
}

// read a request up to the blank line
func readRequest(c net.Conn) (string, error) {
	rdr := bufio.NewReader(c)
	var sb strings.Builder
	for {
		line, err := rdr.ReadString('\n')
		sb.WriteString(line)
		if err != nil {
			return sb.String(), err
		}
		if line == "\r\n" || line == "\n" {
			return sb.String(), nil
		}
	}
}

// wait until the client closes the connection
func drain(c net.Conn) {
	io.Copy(io.Discard, c)
}

func TestHostGet(t *testing.T) {
	received := make(chan string, 1)
	dev, cleanup := setupTestServer(t, func(c net.Conn) {
		req, _ := readRequest(c)
		received <- req
		c.Write([]byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhello"))
		drain(c)
	})
	defer cleanup()

	client := NewClient(dev.Dialer(), nil)
	client.Poll = 5 * time.Millisecond
	body, err := client.Get(context.Background(), "127.0.0.1", "/")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "hello" {
		t.Fatalf("body %q", body)
	}
	if req := <-received; req != "GET / HTTP/1.1\r\nHost: 127.0.0.1\r\nAccept: */*\r\n\r\n" {
		t.Fatalf("request %q", req)
	}
}

func TestHostGetMalformed(t *testing.T) {
	dev, cleanup := setupTestServer(t, func(c net.Conn) {
		readRequest(c)
		c.Write([]byte("garbage-no-delimiter"))
		drain(c)
	})
	defer cleanup()

	_, err := NewClient(dev.Dialer(), nil).Get(context.Background(), "127.0.0.1", "/")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestHostGetRefused(t *testing.T) {
	lst, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	dev := &LinuxDevice{port: uint16(lst.Addr().(*net.TCPAddr).Port)}
	lst.Close()

	_, err = NewClient(dev.Dialer(), nil).Get(context.Background(), "127.0.0.1", "/")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("expected connection failed, got %v", err)
	}
}

func TestHostGetDropped(t *testing.T) {
	dev, cleanup := setupTestServer(t, func(c net.Conn) {
		readRequest(c)
	})
	defer cleanup()

	client := NewClient(dev.Dialer(), nil)
	client.Poll = 5 * time.Millisecond
	_, err := client.Get(context.Background(), "127.0.0.1", "/")
	if !errors.Is(err, ErrConnectionDropped) {
		t.Fatalf("expected connection dropped, got %v", err)
	}
}

func TestHostGetTimeout(t *testing.T) {
	dev, cleanup := setupTestServer(t, func(c net.Conn) {
		readRequest(c)
		drain(c)
	})
	defer cleanup()

	client := NewClient(dev.Dialer(), nil)
	client.Poll = 5 * time.Millisecond
	client.Timeout = 100 * time.Millisecond
	_, err := client.Get(context.Background(), "127.0.0.1", "/")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestHostListen(t *testing.T) {
	dev := new(LinuxDevice)
	lst, stat := dev.Listen(0)
	if stat != StatOK {
		t.Fatalf("listen failed: %d", stat)
	}
	lst.Close()
}
