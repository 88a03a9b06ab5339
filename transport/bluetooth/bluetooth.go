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

// Package bluetooth implements the Bluetooth SPP transport adapter
// (spec.md §4.5): a COM/rfcomm port opened at a fixed baud rate, carrying
// the same length-prefixed EV3 frame as TCP, re-framed through the shared
// wire.Extract. Built over go.bug.st/serial in place of the teacher's
// tarm/serial-flavored UART handling, since the teacher's own uart
// package ships no driver file to adapt (only its tests survive in the
// pack) and go.bug.st/serial is the library the rest of the retrieval
// pack's Bluetooth/serial-adjacent code assumes.
package bluetooth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/wire"
)

const (
	// DefaultBaudRate is the fixed SPP baud rate EV3 bricks negotiate.
	DefaultBaudRate = 115200
	// defaultReadBuf is the chunk size used for each blocking Port.Read.
	defaultReadBuf = 1024
)

// Config configures an Adapter.
type Config struct {
	// Port is the OS device path (e.g. "COM3", "/dev/rfcomm0").
	Port string
	// BaudRate overrides DefaultBaudRate; zero means DefaultBaudRate.
	BaudRate int
	// DTR, when true, asserts the DTR line after opening, the way
	// Windows EV3 Bluetooth drivers expect before accepting writes.
	DTR bool
}

func (c Config) withDefaults() Config {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	return c
}

// Adapter is the Bluetooth SPP ev3pipe.Transport.
type Adapter struct {
	cfg Config

	mu       sync.Mutex
	opened   bool
	inFlight bool
	port     serial.Port

	recvBuf    []byte
	incoming   chan []byte
	readErr    chan error
	readerDone chan struct{}
}

// New builds a Bluetooth SPP adapter with cfg (zero BaudRate falls back
// to DefaultBaudRate).
func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg.withDefaults()}
}

// Type implements ev3pipe.Transport.
func (a *Adapter) Type() ev3pipe.TransportType { return ev3pipe.TransportBluetooth }

// ActiveSelection implements ev3pipe.CapableTransport: the COM port this
// adapter actually opened.
func (a *Adapter) ActiveSelection() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Port
}

// IsOpen implements ev3pipe.Transport.
func (a *Adapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opened
}

// Open implements ev3pipe.Transport. Idempotent.
func (a *Adapter) Open(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opened {
		return nil
	}
	if a.cfg.Port == "" {
		return fmt.Errorf("%w: no Bluetooth port configured", ev3pipe.ErrNotOpen)
	}

	mode := &serial.Mode{BaudRate: a.cfg.BaudRate}
	port, err := serial.Open(a.cfg.Port, mode)
	if err != nil {
		return &ev3pipe.TransportError{
			Op: "bluetooth: open", Port: a.cfg.Port, Err: err,
			Type: ev3pipe.ErrorTypeTransient, Retryable: true,
		}
	}

	if a.cfg.DTR {
		if err := port.SetDTR(true); err != nil {
			port.Close()
			return &ev3pipe.TransportError{
				Op: "bluetooth: set DTR", Port: a.cfg.Port, Err: err,
				Type: ev3pipe.ErrorTypeTransient, Retryable: true,
			}
		}
	}

	a.port = port
	a.incoming = make(chan []byte, 16)
	a.readErr = make(chan error, 1)
	a.readerDone = make(chan struct{})
	a.opened = true

	go a.readLoop(port, a.incoming, a.readErr, a.readerDone)
	return nil
}

// readLoop is the OS error/close listener spec.md §4.5 requires: any read
// error (including the port being closed out from under it) is reported
// once on readErr so Send and forceClose can react without the adapter
// crashing on a late write or read abort.
func (a *Adapter) readLoop(port serial.Port, incoming chan<- []byte, readErr chan<- error, done chan struct{}) {
	buf := make([]byte, defaultReadBuf)
	for {
		n, err := port.Read(buf)
		if err != nil {
			select {
			case readErr <- err:
			default:
			}
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

// Close implements ev3pipe.Transport. Idempotent. It does not wait for
// the reader goroutine: the read error that closing the port causes is
// absorbed by readLoop's buffered readErr channel and ends the goroutine.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if !a.opened {
		a.mu.Unlock()
		return nil
	}
	a.opened = false
	port := a.port
	done := a.readerDone
	a.recvBuf = nil
	a.mu.Unlock()

	close(done)
	err := port.Close()
	return err
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
	port := a.port
	incoming := a.incoming
	readErr := a.readErr
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

	if _, err := port.Write(body); err != nil {
		_ = a.forceClose()
		return wire.Packet{}, &ev3pipe.TransportError{
			Op: "bluetooth: write", Port: a.cfg.Port, Err: err,
			Type: ev3pipe.ErrorTypeTransient, Retryable: true,
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
				select {
				case rerr := <-readErr:
					return wire.Packet{}, fmt.Errorf("%w: %v", ev3pipe.ErrNotOpen, rerr)
				default:
					return wire.Packet{}, fmt.Errorf("%w: bluetooth session closed", ev3pipe.ErrNotOpen)
				}
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

// waitReopenDelay is a small grounding hook for the auto-port adapter
// (spec.md §4.9), which needs a brief pause between closing a failed
// candidate port and probing the next one so the OS driver releases it.
func waitReopenDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
