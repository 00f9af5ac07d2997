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
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// LinuxDevice (for testing purposes)
type LinuxDevice struct {
	port uint16 // remote port override (tests only)
}

// LED on or off (not applicable)
func (dev *LinuxDevice) LED(on bool) {}

// Initialize device
func InitDevice(_ DeviceConfig) Device {
	return new(LinuxDevice)
}

// Station returns the host network as WiFi station.
func (dev *LinuxDevice) Station() Station {
	return new(hostStation)
}

// Dialer returns a dialer for TCP connections.
func (dev *LinuxDevice) Dialer() Dialer {
	return &hostDialer{port: dev.port}
}

// Listen returns a TCP listener on the given port.
func (dev *LinuxDevice) Listen(port uint16) (net.Listener, int) {
	cfg := new(net.ListenConfig)
	lis, err := cfg.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, StatLISTEN1
	}
	return lis, StatOK
}

//----------------------------------------------------------------------

// hostStation is connected as soon as a non-loopback interface with
// an address is up. The host manages its own network, so credentials
// are ignored.
type hostStation struct{}

// Begin is a no-op on the host.
func (st *hostStation) Begin(ssid, passwd string) error {
	return nil
}

// Connected checks the host interfaces.
func (st *hostStation) Connected() bool {
	list, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, ifc := range list {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		if addrs, err := ifc.Addrs(); err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

//----------------------------------------------------------------------

// time to wait for data when probing a socket
const probeWait = time.Millisecond

// hostDialer uses the operating system network stack.
type hostDialer struct {
	port uint16 // if non-zero: connect to this port instead
}

// Dial a TCP connection to host:port.
func (d *hostDialer) Dial(ctx context.Context, host string, port uint16) (Conn, error) {
	if d.port != 0 {
		port = d.port
	}
	var nd net.Dialer
	c, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, err
	}
	return &hostConn{
		conn: c,
		rdr:  bufio.NewReader(c),
	}, nil
}

// hostConn is a buffered net.Conn that can report pending input.
type hostConn struct {
	conn    net.Conn
	rdr     *bufio.Reader
	dropped bool
}

// Available returns the number of buffered input bytes. If nothing is
// buffered, the socket is probed with a short deadline.
func (c *hostConn) Available() int {
	if n := c.rdr.Buffered(); n > 0 || c.dropped {
		return n
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(probeWait)); err != nil {
		c.dropped = true
		return 0
	}
	_, err := c.rdr.Peek(1)
	c.conn.SetReadDeadline(time.Time{})
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		c.dropped = true
	}
	return c.rdr.Buffered()
}

// Dropped returns true if a probe found the connection closed.
func (c *hostConn) Dropped() bool {
	return c.dropped
}

// Read from the buffered connection.
func (c *hostConn) Read(p []byte) (int, error) {
	return c.rdr.Read(p)
}

// Write to the connection.
func (c *hostConn) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

// Close the connection.
func (c *hostConn) Close() error {
	return c.conn.Close()
}
