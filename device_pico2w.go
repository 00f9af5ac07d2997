//go:build rp2350

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
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"net/netip"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/seqs"
	"github.com/soypat/seqs/eth/dhcp"
	"github.com/soypat/seqs/eth/dns"
	"github.com/soypat/seqs/stacks"
)

const mtu = cyw43439.MTU

// stack and socket sizing
const (
	tcpPorts    = 2 // one outgoing connection, one 9p listener
	udpPorts    = 2 // DNS and DHCP client
	tcpTxBuf    = 512
	tcpRxBuf    = 2048
	dhcpPolls   = 15  // polls before falling back to static IP
	dialPoll    = 100 * time.Millisecond
	minDialPort = 1024
)

// Errors on the device network stack
var (
	errNoStack   = errors.New("network not initialized")
	errBusy      = errors.New("previous connection not closed")
	errRefused   = errors.New("connection refused")
	errNoDNS     = errors.New("no dns server")
	errInvalidIP = errors.New("invalid ip")
)

// Raspberry Pico2 W  [RP2350]
type Pico2WDevice struct {
	ref     *cyw43439.Device // reference to device
	cfg     DeviceConfig     // device settings
	logger  *slog.Logger
	reqAddr netip.Addr // requested (or static) IP address

	ssid, passwd string

	// connection progress
	joined bool
	bound  bool
	polls  int
	fault  int // last bootstrap failure (status code)

	stack  *stacks.PortStack
	dhcp   *stacks.DHCPClient
	dialer *picoDialer
}

// Initialize device
func InitDevice(cfg DeviceConfig) Device {
	dev := new(Pico2WDevice)
	dev.ref = cyw43439.NewPicoWDevice()
	dev.cfg = cfg
	dev.logger = cfg.Logger
	if dev.logger == nil {
		dev.logger = nopLogger()
	}
	return dev
}

// LED on or off (if applicable)
func (dev *Pico2WDevice) LED(on bool) {
	dev.ref.GPIOSet(0, on)
}

// Station returns the device itself (it manages the WiFi connection).
func (dev *Pico2WDevice) Station() Station {
	return dev
}

// Fault returns the status code of the last bootstrap failure.
func (dev *Pico2WDevice) Fault() int {
	return dev.fault
}

// Begin initializes the WiFi chip in station mode.
func (dev *Pico2WDevice) Begin(ssid, passwd string) (err error) {
	if len(dev.cfg.RequestedIP) > 0 {
		if dev.reqAddr, err = netip.ParseAddr(dev.cfg.RequestedIP); err != nil {
			dev.fault = StatIP
			return
		}
	}
	wificfg := cyw43439.DefaultWifiConfig()
	wificfg.Logger = dev.logger
	dev.logger.Info("initializing pico W device...")
	start := time.Now()
	if err = dev.ref.Init(wificfg); err != nil {
		dev.fault = StatWIFI
		return
	}
	dev.logger.Info("cyw43439:Init", slog.Duration("duration", time.Since(start)))
	dev.ssid, dev.passwd = ssid, passwd
	return nil
}

// Connected advances the connection (join, DHCP) one step per call
// and returns true once an IP address is assigned.
func (dev *Pico2WDevice) Connected() bool {
	if !dev.joined {
		dev.join()
		return false
	}
	if dev.bound {
		return true
	}
	if dev.dhcp.State() == dhcp.StateBound {
		dev.bindDHCP()
		return true
	}
	dev.polls++
	if dev.polls > dhcpPolls {
		dev.fault = StatDHCP2
		if dev.reqAddr.IsValid() {
			dev.logger.Info("DHCP did not complete, assigning static IP", slog.String("ip", dev.reqAddr.String()))
			dev.stack.SetAddr(dev.reqAddr)
			dev.bound = true
			return true
		}
	}
	return false
}

// join the access point and start DHCP.
func (dev *Pico2WDevice) join() {
	if err := dev.ref.JoinWPA2(dev.ssid, dev.passwd); err != nil {
		dev.logger.Error("wifi join failed", slog.String("err", err.Error()))
		dev.fault = StatWPA2
		return
	}
	mac, _ := dev.ref.HardwareAddr6()
	dev.logger.Info("wifi join success!", slog.String("mac", net.HardwareAddr(mac[:]).String()))
	dev.joined = true

	dev.stack = stacks.NewPortStack(stacks.PortStackConfig{
		MAC:             mac,
		MaxOpenPortsUDP: udpPorts,
		MaxOpenPortsTCP: tcpPorts,
		MTU:             mtu,
		Logger:          dev.logger,
	})
	dev.ref.RecvEthHandle(dev.stack.RecvEth)
	go nicLoop(dev.ref, dev.stack, dev.logger)

	dev.dhcp = stacks.NewDHCPClient(dev.stack, dhcp.DefaultClientPort)
	err := dev.dhcp.BeginRequest(stacks.DHCPRequestConfig{
		RequestedAddr: dev.reqAddr,
		Xid:           uint32(time.Now().Nanosecond()),
		Hostname:      dev.cfg.Hostname,
	})
	if err != nil {
		dev.logger.Error("DHCP request failed", slog.String("err", err.Error()))
		dev.fault = StatDHCP1
	}
}

// DHCP is bound: set our address.
func (dev *Pico2WDevice) bindDHCP() {
	ip := dev.dhcp.Offer()
	dev.logger.Info("DHCP complete",
		slog.Uint64("cidrbits", uint64(dev.dhcp.CIDRBits())),
		slog.String("ourIP", ip.String()),
		slog.String("gateway", dev.dhcp.Gateway().String()),
		slog.String("router", dev.dhcp.Router().String()),
		slog.String("hostname", string(dev.dhcp.Hostname())),
		slog.Duration("lease", dev.dhcp.IPLeaseTime()),
	)
	// the address must be set after DHCP completes.
	dev.stack.SetAddr(ip)
	dev.bound = true
	dev.fault = StatOK
}

// Dialer returns the TCP dialer of the device.
func (dev *Pico2WDevice) Dialer() Dialer {
	if dev.dialer == nil {
		dev.dialer = &picoDialer{
			dev: dev,
			rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		}
	}
	return dev.dialer
}

// Listen returns a TCP listener on the given port.
func (dev *Pico2WDevice) Listen(port uint16) (net.Listener, int) {
	if dev.stack == nil {
		return nil, StatLISTEN1
	}
	listener, err := stacks.NewTCPListener(dev.stack, stacks.TCPListenerConfig{
		MaxConnections: 3,
		ConnTxBufSize:  512,
		ConnRxBufSize:  512,
	})
	if err != nil {
		return nil, StatLISTEN1
	}
	if listener.StartListening(port) != nil {
		return nil, StatLISTEN2
	}
	return listener, StatOK
}

//----------------------------------------------------------------------

// picoDialer opens outgoing connections on the seqs stack. The socket
// buffers are allocated once and reused for every connection.
type picoDialer struct {
	dev      *Pico2WDevice
	conn     *stacks.TCPConn
	resolver *Resolver
	rng      *rand.Rand
}

// Dial host:port. Host names are resolved via DNS; all traffic is
// sent to the gateway.
func (d *picoDialer) Dial(ctx context.Context, host string, port uint16) (Conn, error) {
	dev := d.dev
	if !dev.bound {
		return nil, errNoStack
	}
	addr, err := d.lookup(host)
	if err != nil {
		return nil, err
	}
	routerhw, err := ResolveHardwareAddr(dev.stack, dev.dhcp.Router())
	if err != nil {
		return nil, err
	}
	if d.conn == nil {
		if d.conn, err = stacks.NewTCPConn(dev.stack, stacks.TCPConnConfig{
			TxBufSize: tcpTxBuf,
			RxBufSize: tcpRxBuf,
		}); err != nil {
			return nil, err
		}
	} else if !closeSocket(d.conn, closePolls, closeWait) {
		return nil, errBusy
	}
	lport := uint16(d.rng.Intn(65535-minDialPort)) + minDialPort
	iss := seqs.Value(d.rng.Intn(65535-minDialPort) + minDialPort)
	if err = d.conn.OpenDialTCP(lport, routerhw, netip.AddrPortFrom(addr, port), iss); err != nil {
		return nil, err
	}
	tick := time.NewTicker(dialPoll)
	defer tick.Stop()
	for d.conn.State() != seqs.StateEstablished {
		if d.conn.State().IsClosed() {
			return nil, errRefused
		}
		select {
		case <-ctx.Done():
			closeSocket(d.conn, closePolls, closeWait)
			return nil, ctx.Err()
		case <-tick.C:
		}
	}
	return &picoConn{conn: d.conn, logger: dev.logger}, nil
}

// resolve host name (or parse IP literal)
func (d *picoDialer) lookup(host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}
	if d.resolver == nil {
		r, err := NewResolver(d.dev.stack, d.dev.dhcp)
		if err != nil {
			return netip.Addr{}, err
		}
		d.resolver = r
	}
	addrs, err := d.resolver.LookupNetIP(host)
	if err != nil {
		return netip.Addr{}, err
	}
	return addrs[0], nil
}

// picoConn is an established connection on the seqs stack.
type picoConn struct {
	conn   *stacks.TCPConn
	logger *slog.Logger
}

// Available returns the number of bytes in the receive buffer.
func (c *picoConn) Available() int {
	return c.conn.BufferedInput()
}

// Dropped returns true if the connection left the established state.
func (c *picoConn) Dropped() bool {
	return c.conn.State() != seqs.StateEstablished
}

// Read from connection.
func (c *picoConn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

// Write to connection.
func (c *picoConn) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

// Close the connection and wait for the socket to be released.
func (c *picoConn) Close() error {
	if !closeSocket(c.conn, closePolls, closeWait) {
		c.logger.Error("tcp:close timed out", slog.String("state", c.conn.State().String()))
		return errBusy
	}
	return nil
}

//----------------------------------------------------------------------

// ResolveHardwareAddr obtains the hardware address of the given IP address.
func ResolveHardwareAddr(stack *stacks.PortStack, ip netip.Addr) ([6]byte, error) {
	if !ip.IsValid() {
		return [6]byte{}, errInvalidIP
	}
	arpc := stack.ARP()
	arpc.Abort() // Remove any previous ARP requests.
	if err := arpc.BeginResolve(ip); err != nil {
		return [6]byte{}, err
	}
	time.Sleep(4 * time.Millisecond)
	// ARP exchanges should be fast, don't wait too long for them.
	const timeout = time.Second
	const maxretries = 20
	for retries := maxretries; !arpc.IsDone(); retries-- {
		if retries == 0 {
			return [6]byte{}, errors.New("arp timed out")
		}
		time.Sleep(timeout / maxretries)
	}
	_, hw, err := arpc.ResultAs6()
	return hw, err
}

// Resolver for host names using the DNS server announced by DHCP.
type Resolver struct {
	stack     *stacks.PortStack
	dns       *stacks.DNSClient
	dnsaddr   netip.Addr
	dnshwaddr [6]byte
}

// NewResolver creates a resolver on the given stack.
func NewResolver(stack *stacks.PortStack, dhcpc *stacks.DHCPClient) (*Resolver, error) {
	dnsaddrs := dhcpc.DNSServers()
	if len(dnsaddrs) == 0 || !dnsaddrs[0].IsValid() {
		return nil, errNoDNS
	}
	return &Resolver{
		stack:   stack,
		dns:     stacks.NewDNSClient(stack, dns.ClientPort),
		dnsaddr: dnsaddrs[0],
	}, nil
}

// LookupNetIP returns the IPv4 addresses of a host.
func (r *Resolver) LookupNetIP(host string) ([]netip.Addr, error) {
	name, err := dns.NewName(host)
	if err != nil {
		return nil, err
	}
	if r.dnshwaddr, err = ResolveHardwareAddr(r.stack, r.dnsaddr); err != nil {
		return nil, err
	}
	err = r.dns.StartResolve(stacks.DNSResolveConfig{
		Questions: []dns.Question{
			{
				Name:  name,
				Type:  dns.TypeA,
				Class: dns.ClassINET,
			},
		},
		DNSAddr:         r.dnsaddr,
		DNSHWAddr:       r.dnshwaddr,
		EnableRecursion: true,
	})
	if err != nil {
		return nil, err
	}
	time.Sleep(5 * time.Millisecond)
	for retries := 100; retries > 0; retries-- {
		if done, _ := r.dns.IsDone(); done {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	done, rcode := r.dns.IsDone()
	if !done {
		return nil, errors.New("dns lookup timed out")
	} else if rcode != dns.RCodeSuccess {
		return nil, errors.New("dns lookup failed:" + rcode.String())
	}
	var addrs []netip.Addr
	for _, answer := range r.dns.Answers() {
		if data := answer.RawData(); len(data) == 4 {
			addrs = append(addrs, netip.AddrFrom4([4]byte(data)))
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("no ipv4 dns answers")
	}
	return addrs, nil
}

//----------------------------------------------------------------------

// nicLoop moves packets between the WiFi chip and the IP stack.
func nicLoop(dev *cyw43439.Device, stack *stacks.PortStack, logger *slog.Logger) {
	// Maximum number of packets to queue before sending them.
	const (
		queueSize                = 3
		maxRetriesBeforeDropping = 3
	)
	var queue [queueSize][mtu]byte
	var lenBuf [queueSize]int
	var retries [queueSize]int
	for {
		gotPacket, err := dev.PollOne()
		if err != nil {
			logger.Error("nic:poll", slog.String("err", err.Error()))
		}

		// queue outgoing packets
		pending := false
		for i := range queue {
			if retries[i] != 0 {
				pending = true
				continue // queued for retransmission.
			}
			if lenBuf[i], err = stack.HandleEth(queue[i][:]); err != nil {
				logger.Error("nic:stack", slog.Int("n", lenBuf[i]), slog.String("err", err.Error()))
				lenBuf[i] = 0
				continue
			}
			if lenBuf[i] == 0 {
				break
			}
			pending = true
		}
		if !pending {
			if !gotPacket {
				// Avoid busy waiting when both Rx and Tx stall.
				time.Sleep(51 * time.Millisecond)
			}
			continue
		}

		// send queued packets
		for i := range queue {
			n := lenBuf[i]
			if n <= 0 {
				continue
			}
			if err = dev.SendEth(queue[i][:n]); err != nil {
				retries[i]++
				if retries[i] <= maxRetriesBeforeDropping {
					continue
				}
				logger.Error("nic:drop", slog.String("err", err.Error()))
			}
			lenBuf[i], retries[i] = 0, 0
		}
	}
}
