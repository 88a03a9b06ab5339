// ev3pipe
// Copyright (c) 2026 The ev3pipe Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of ev3pipe.
//
// ev3pipe is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// ev3pipe is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with ev3pipe; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package tcp implements the TCP/Wi-Fi transport adapter (spec.md §4.6):
// an optional UDP beacon discovery step, a VMTP unlock handshake, and
// then the same length-prefixed framing as the Bluetooth SPP adapter.
// Grounded on the teacher pack's net.Conn-based transport shape, the way
// its UART/I2C adapters wrap an os-level stream with EV3 framing.
package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/wire"
)

const (
	// DefaultPort is the EV3 TCP command port.
	DefaultPort = 5555
	// DefaultDiscoveryPort is the UDP port EV3 bricks beacon on.
	DefaultDiscoveryPort = 3015
	// DefaultDiscoveryTimeout bounds how long Open waits for a beacon.
	DefaultDiscoveryTimeout = 3 * time.Second
	// DefaultHandshakeTimeout bounds the VMTP unlock round trip.
	DefaultHandshakeTimeout = 3 * time.Second

	beaconAck = 0x00
)

// Beacon is a parsed UDP discovery beacon.
type Beacon struct {
	IP       string
	Port     int
	Serial   string
	Protocol string
	Name     string
}

// Config configures an Adapter.
type Config struct {
	Host string
	Port int

	UseDiscovery     bool
	DiscoveryPort    int
	DiscoveryTimeout time.Duration
	SerialNumber     string
	HandshakeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.DiscoveryPort == 0 {
		c.DiscoveryPort = DefaultDiscoveryPort
	}
	if c.DiscoveryTimeout <= 0 {
		c.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return c
}

// Adapter is the TCP ev3pipe.Transport.
type Adapter struct {
	cfg Config

	mu       sync.Mutex
	opened   bool
	inFlight bool
	conn     net.Conn

	recvBuf    []byte
	incoming   chan []byte
	readerDone chan struct{}

	beacon *Beacon
}

// New builds a TCP adapter with cfg (zero fields fall back to
// DefaultPort/DefaultDiscoveryPort/DefaultDiscoveryTimeout/
// DefaultHandshakeTimeout).
func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg.withDefaults()}
}

// Type implements ev3pipe.Transport.
func (a *Adapter) Type() ev3pipe.TransportType { return ev3pipe.TransportTCP }

// ActiveSelection implements ev3pipe.CapableTransport: host:port actually
// connected to, resolved via discovery when configured.
func (a *Adapter) ActiveSelection() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.beacon != nil {
		return fmt.Sprintf("%s:%d", a.beacon.IP, a.beacon.Port)
	}
	return fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port)
}

// IsOpen implements ev3pipe.Transport.
func (a *Adapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opened
}

// Open implements ev3pipe.Transport: runs discovery (if configured), then
// the unlock handshake, then starts the receive loop. Idempotent.
func (a *Adapter) Open(ctx context.Context) error {
	a.mu.Lock()
	if a.opened {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	host := a.cfg.Host
	serial := a.cfg.SerialNumber
	protocol := "EV3"
	port := a.cfg.Port
	var beacon *Beacon

	if a.cfg.UseDiscovery {
		b, err := a.discover(ctx)
		if err != nil {
			if host == "" {
				return err
			}
			// Static host configured: proceed without discovery.
		} else {
			beacon = b
			host = b.IP
			if b.Port != 0 {
				port = b.Port
			}
			if b.Serial != "" {
				serial = b.Serial
			}
			if b.Protocol != "" {
				protocol = b.Protocol
			}
		}
	}
	if host == "" {
		return fmt.Errorf("%w: no TCP host configured or discovered", ev3pipe.ErrNotOpen)
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return &ev3pipe.TransportError{
			Op: "tcp: dial", Port: fmt.Sprintf("%s:%d", host, port), Err: err,
			Type: ev3pipe.ErrorTypeTransient, Retryable: true,
		}
	}

	leftover, err := handshake(conn, serial, protocol, a.cfg.HandshakeTimeout)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ev3pipe.ErrUnlockHandshakeFailed, err)
	}

	a.mu.Lock()
	a.conn = conn
	a.beacon = beacon
	a.recvBuf = leftover
	a.incoming = make(chan []byte, 16)
	a.readerDone = make(chan struct{})
	a.opened = true
	a.mu.Unlock()

	go a.readLoop(conn, a.incoming, a.readerDone)
	return nil
}

// discover waits up to Config.DiscoveryTimeout for a beacon matching
// Config.Host (or any beacon, if Host is unset), ACKs it, and returns the
// parsed contents.
func (a *Adapter) discover(ctx context.Context) (*Beacon, error) {
	pc, err := net.ListenPacket("udp", fmt.Sprintf(":%d", a.cfg.DiscoveryPort))
	if err != nil {
		return nil, fmt.Errorf("tcp: discovery listen: %w", err)
	}
	defer pc.Close()

	deadline := time.Now().Add(a.cfg.DiscoveryTimeout)
	pc.SetDeadline(deadline)

	buf := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: tcp discovery timed out", ev3pipe.ErrTransportUnavailable)
		}

		beacon := parseBeacon(buf[:n])
		if beacon == nil {
			continue
		}
		if a.cfg.Host != "" {
			host, _, _ := net.SplitHostPort(addr.String())
			if host != a.cfg.Host {
				continue
			}
		}
		if beacon.IP == "" {
			host, _, _ := net.SplitHostPort(addr.String())
			beacon.IP = host
		}

		pc.WriteTo([]byte{beaconAck}, addr)
		return beacon, nil
	}
}

// parseBeacon parses "key: value" lines looking for Port, Serial-Number,
// Protocol, and Name.
func parseBeacon(body []byte) *Beacon {
	b := &Beacon{}
	found := false
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		switch key {
		case "Port":
			if p, err := strconv.Atoi(val); err == nil && p >= 1 && p <= 65535 {
				b.Port = p
				found = true
			}
		case "Serial-Number":
			b.Serial = val
			found = true
		case "Protocol":
			b.Protocol = val
			found = true
		case "Name":
			b.Name = val
			found = true
		}
	}
	if !found {
		return nil
	}
	return b
}

// handshake tries the two candidate VMTP unlock requests in order and
// returns any bytes already read past the response delimiter, to be
// treated as the first packet bytes.
func handshake(conn net.Conn, serial, protocol string, timeout time.Duration) ([]byte, error) {
	conn.SetDeadline(time.Now().Add(timeout))
	defer conn.SetDeadline(time.Time{})

	requests := []string{
		fmt.Sprintf("GET /target?sn=%s VMTP1.0\r\nProtocol: %s\r\n\r\n", url.QueryEscape(serial), protocol),
		fmt.Sprintf("GET /target?sn=%s VMTP1.0\nProtocol: %s", serial, protocol),
	}

	var lastErr error
	for _, req := range requests {
		if _, err := conn.Write([]byte(req)); err != nil {
			lastErr = err
			continue
		}

		reader := bufio.NewReader(conn)
		resp, leftover, err := readHandshakeResponse(reader)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.Contains(strings.ToUpper(resp), "ACCEPT: EV3") {
			return leftover, nil
		}
		lastErr = fmt.Errorf("unexpected handshake response: %q", resp)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no handshake request accepted")
	}
	return nil, lastErr
}

// readHandshakeResponse reads until "\r\n\r\n" (or EOF) and returns the
// response text plus any bytes already buffered past the delimiter.
func readHandshakeResponse(reader *bufio.Reader) (string, []byte, error) {
	var resp []byte
	buf := make([]byte, 256)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			resp = append(resp, buf[:n]...)
		}
		if idx := strings.Index(string(resp), "\r\n\r\n"); idx >= 0 {
			return string(resp[:idx]), resp[idx+4:], nil
		}
		if err != nil {
			if len(resp) > 0 {
				return string(resp), nil, nil
			}
			return "", nil, err
		}
	}
}

func (a *Adapter) readLoop(conn net.Conn, incoming chan<- []byte, done chan struct{}) {
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			close(incoming)
			return
		}
		if n == 0 {
			continue
		}
		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		select {
		case incoming <- chunk:
		case <-done:
			return
		}
	}
}

// Close implements ev3pipe.Transport. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if !a.opened {
		a.mu.Unlock()
		return nil
	}
	a.opened = false
	conn := a.conn
	done := a.readerDone
	a.recvBuf = nil
	a.mu.Unlock()

	close(done)
	return conn.Close()
}

// Send implements ev3pipe.Transport.
func (a *Adapter) Send(ctx context.Context, pkt wire.Packet, opts ev3pipe.SendOptions) (wire.Packet, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	a.mu.Lock()
	if !a.opened {
		a.mu.Unlock()
		return wire.Packet{}, ev3pipe.ErrNotOpen
	}
	if a.inFlight {
		a.mu.Unlock()
		return wire.Packet{}, ev3pipe.ErrAlreadyInFlight
	}
	a.inFlight = true
	conn := a.conn
	incoming := a.incoming
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.inFlight = false
		a.mu.Unlock()
	}()

	body, err := wire.Encode(pkt.Counter, pkt.Type, pkt.Payload)
	if err != nil {
		return wire.Packet{}, err
	}

	if _, err := conn.Write(body); err != nil {
		_ = a.forceClose()
		return wire.Packet{}, &ev3pipe.TransportError{
			Op: "tcp: write", Err: err, Type: ev3pipe.ErrorTypeTransient, Retryable: true,
		}
	}

	for {
		packets, remainder := wire.Extract(a.takeRecvBuf(), wire.FramerConfig{})
		a.setRecvBuf(remainder)

		if reply, ok := matchReply(packets, opts.ExpectedCounter); ok {
			return reply, nil
		}

		select {
		case chunk, ok := <-incoming:
			if !ok {
				_ = a.forceClose()
				return wire.Packet{}, fmt.Errorf("%w: tcp connection closed", ev3pipe.ErrNotOpen)
			}
			a.appendRecvBuf(chunk)
		case <-opts.Cancel:
			return wire.Packet{}, ev3pipe.ErrAborted
		case <-ctx.Done():
			return wire.Packet{}, ev3pipe.ErrTimeout
		}
	}
}

func matchReply(packets []wire.Packet, expected *uint16) (wire.Packet, bool) {
	for _, pkt := range packets {
		if expected != nil && pkt.Counter != *expected {
			continue
		}
		return pkt, true
	}
	return wire.Packet{}, false
}

func (a *Adapter) takeRecvBuf() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recvBuf
}

func (a *Adapter) setRecvBuf(buf []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recvBuf = buf
}

func (a *Adapter) appendRecvBuf(chunk []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recvBuf = append(a.recvBuf, chunk...)
}

func (a *Adapter) forceClose() error {
	a.mu.Lock()
	opened := a.opened
	a.mu.Unlock()
	if !opened {
		return nil
	}
	return a.Close()
}

var _ ev3pipe.CapableTransport = (*Adapter)(nil)
