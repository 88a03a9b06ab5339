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

// Package usb implements the USB HID transport adapter (spec.md §4.4):
// fixed-size HID reports carrying the EV3 length-prefixed frame, read
// back through a small receive buffer and the shared wire.Extract
// framer. Built over github.com/google/gousb, mirroring the endpoint
// handling in the retrieved usbtmc package (interface + in/out endpoint
// pair, autodetach, explicit close func).
package usb

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/gousb"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/wire"
)

const (
	// DefaultVendorID is the LEGO Group's USB vendor id.
	DefaultVendorID = 0x0694
	// DefaultProductID is the EV3 brick's USB product id.
	DefaultProductID = 0x0005
	// DefaultReportID is the HID report id EV3 bricks use.
	DefaultReportID = 0x00
	// DefaultReportSize is the fixed HID report length, including the
	// leading report id byte.
	DefaultReportSize = 1025
	// defaultEndpoint is the interrupt endpoint number EV3 exposes for
	// both directions.
	defaultEndpoint = 1
)

// Config configures an Adapter.
type Config struct {
	VendorID   uint16
	ProductID  uint16
	ReportID   byte
	ReportSize int
	// InEndpoint/OutEndpoint override the interrupt endpoint numbers;
	// zero means defaultEndpoint.
	InEndpoint  int
	OutEndpoint int
}

func (c Config) withDefaults() Config {
	if c.VendorID == 0 {
		c.VendorID = DefaultVendorID
	}
	if c.ProductID == 0 {
		c.ProductID = DefaultProductID
	}
	if c.ReportSize == 0 {
		c.ReportSize = DefaultReportSize
	}
	if c.InEndpoint == 0 {
		c.InEndpoint = defaultEndpoint
	}
	if c.OutEndpoint == 0 {
		c.OutEndpoint = defaultEndpoint
	}
	return c
}

// Adapter is the USB HID ev3pipe.Transport.
type Adapter struct {
	cfg Config

	mu       sync.Mutex
	opened   bool
	inFlight bool

	usbCtx    *gousb.Context
	device    *gousb.Device
	ifaceDone func()
	in        *gousb.InEndpoint
	out       *gousb.OutEndpoint

	recvBuf    []byte
	incoming   chan []byte
	readerDone chan struct{}
}

// New builds a USB HID adapter with cfg (zero fields fall back to
// DefaultVendorID/DefaultProductID/DefaultReportID/DefaultReportSize).
func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg.withDefaults()}
}

// Type implements ev3pipe.Transport.
func (a *Adapter) Type() ev3pipe.TransportType { return ev3pipe.TransportUSB }

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

	usbCtx := gousb.NewContext()
	device, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(a.cfg.VendorID), gousb.ID(a.cfg.ProductID))
	if err != nil {
		usbCtx.Close()
		return fmt.Errorf("usb: open device: %w", err)
	}
	if device == nil {
		usbCtx.Close()
		return fmt.Errorf("%w: no device matching vid:pid %04x:%04x", ev3pipe.ErrNotOpen, a.cfg.VendorID, a.cfg.ProductID)
	}

	if err := device.SetAutoDetach(true); err != nil {
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("usb: set auto detach: %w", err)
	}

	iface, ifaceDone, err := device.DefaultInterface()
	if err != nil {
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("usb: claim default interface: %w", err)
	}

	in, err := iface.InEndpoint(a.cfg.InEndpoint)
	if err != nil {
		ifaceDone()
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("usb: open in endpoint: %w", err)
	}
	out, err := iface.OutEndpoint(a.cfg.OutEndpoint)
	if err != nil {
		ifaceDone()
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("usb: open out endpoint: %w", err)
	}

	a.usbCtx = usbCtx
	a.device = device
	a.ifaceDone = ifaceDone
	a.in = in
	a.out = out
	a.incoming = make(chan []byte, 16)
	a.readerDone = make(chan struct{})
	a.opened = true

	go a.readLoop(a.in, a.incoming, a.readerDone)
	return nil
}

func (a *Adapter) readLoop(in *gousb.InEndpoint, incoming chan<- []byte, done chan struct{}) {
	buf := make([]byte, a.cfg.ReportSize)
	for {
		n, err := in.Read(buf)
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
	defer a.mu.Unlock()
	if !a.opened {
		return nil
	}
	a.opened = false
	close(a.readerDone)
	a.ifaceDone()
	err := a.device.Close()
	a.usbCtx.Close()
	a.recvBuf = nil
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
	incoming := a.incoming
	out := a.out
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
	if len(body) > a.cfg.ReportSize-1 {
		return wire.Packet{}, ev3pipe.ErrPayloadTooLarge
	}

	report := make([]byte, a.cfg.ReportSize)
	report[0] = a.cfg.ReportID
	copy(report[1:], body)

	if _, err := out.Write(report); err != nil {
		_ = a.forceClose()
		return wire.Packet{}, fmt.Errorf("usb: write report: %w", err)
	}

	for {
		packets, remainder := wire.Extract(a.takeRecvBuf(), wire.FramerConfig{
			ReportID:            a.cfg.ReportID,
			MaxFrameLength:      a.cfg.ReportSize,
			SkipLeadingReportID: true,
		})
		a.setRecvBuf(remainder)

		if reply, ok := matchReply(packets, opts.ExpectedCounter); ok {
			return reply, nil
		}

		select {
		case chunk, ok := <-incoming:
			if !ok {
				_ = a.forceClose()
				return wire.Packet{}, fmt.Errorf("%w: usb read failed", ev3pipe.ErrNotOpen)
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
