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

package config

import (
	"fmt"
	"time"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/transport/bluetooth"
	"github.com/ev3cockpit/ev3pipe/transport/bluetooth/btport"
	"github.com/ev3cockpit/ev3pipe/transport/mock"
	"github.com/ev3cockpit/ev3pipe/transport/tcp"
	"github.com/ev3cockpit/ev3pipe/transport/usb"
)

// TransportFactory builds an ev3pipe.Transport from a Reader, per
// spec.md §4.12 and the settings table in §6.
type TransportFactory struct {
	Reader Reader
	// Discover supplies the Bluetooth auto-port adapter's candidate port
	// enumeration; used only when transport.bluetooth.autoPortFallback is
	// set. Nil falls back to btport.Discover.
	Discover bluetooth.PortDiscoverer
}

// Build reads transport.mode (default "usb"; invalid values also fall
// back to "usb") and constructs the corresponding adapter.
func (f TransportFactory) Build() (ev3pipe.Transport, error) {
	mode := f.Reader.String("transport.mode", "usb")
	switch mode {
	case "bt":
		return f.buildBluetooth()
	case "tcp":
		return f.buildTCP()
	case "mock":
		return mock.NewAdapter(mock.NewWorld()), nil
	case "usb":
		return f.buildUSB(), nil
	default:
		return f.buildUSB(), nil
	}
}

func (f TransportFactory) buildUSB() ev3pipe.Transport {
	r := f.Reader
	return usb.New(usb.Config{
		VendorID:   uint16(sanitizeInt(r.Int("transport.usb.vendorId", usb.DefaultVendorID), 0)),
		ProductID:  uint16(sanitizeInt(r.Int("transport.usb.productId", usb.DefaultProductID), 0)),
		ReportID:   byte(sanitizeInt(r.Int("transport.usb.reportId", usb.DefaultReportID), 0)),
		ReportSize: sanitizeInt(r.Int("transport.usb.reportSize", usb.DefaultReportSize), 64),
	})
}

func (f TransportFactory) buildBluetooth() (ev3pipe.Transport, error) {
	r := f.Reader
	autoPortFallback := r.Bool("transport.bluetooth.autoPortFallback", false)
	baud := sanitizeInt(r.Int("transport.bluetooth.baudRate", bluetooth.DefaultBaudRate), 1)
	dtr := r.Bool("transport.bluetooth.dtr", false)

	if autoPortFallback {
		discover := f.Discover
		if discover == nil {
			// btport.Discover only resolves real candidates on Windows
			// (spec.md §4.7: EV3 Bluetooth SPP candidates are COM
			// ports); on other platforms it fails fast and the caller
			// should inject its own PortDiscoverer instead.
			discover = btport.Discover
		}
		return bluetooth.NewAutoPortAdapter(bluetooth.AutoPortConfig{
			PreferredPort:    r.String("transport.bluetooth.port", ""),
			BaudRate:         baud,
			DTR:              dtr,
			AutoDTRFallback:  r.Bool("transport.bluetooth.autoDtrFallback", true),
			ProbeTimeout:     time.Duration(sanitizeInt(r.Int("transport.bluetooth.portProbeTimeoutMs", 2000), 1)) * time.Millisecond,
			PortAttempts:     sanitizeInt(r.Int("transport.bluetooth.portAttempts", 2), 1),
			RetryDelay:       time.Duration(sanitizeInt(r.Int("transport.bluetooth.retryDelayMs", 250), 0)) * time.Millisecond,
			PostOpenDelay:    time.Duration(sanitizeInt(r.Int("transport.bluetooth.postOpenDelayMs", 500), 0)) * time.Millisecond,
			RediscoveryTries: sanitizeInt(r.Int("transport.bluetooth.rediscoveryAttempts", 2), 0),
			RediscoveryDelay: time.Duration(sanitizeInt(r.Int("transport.bluetooth.rediscoveryDelayMs", 1000), 0)) * time.Millisecond,
		}, discover), nil
	}

	port := r.String("transport.bluetooth.port", "")
	if port == "" {
		return nil, fmt.Errorf("%w: bluetooth transport requires transport.bluetooth.port when autoPortFallback is false", ev3pipe.ErrNotOpen)
	}
	return bluetooth.New(bluetooth.Config{Port: port, BaudRate: baud, DTR: dtr}), nil
}

func (f TransportFactory) buildTCP() (ev3pipe.Transport, error) {
	r := f.Reader
	host := r.String("transport.tcp.host", "")
	useDiscovery := r.Bool("transport.tcp.useDiscovery", true)
	if host == "" && !useDiscovery {
		return nil, fmt.Errorf("%w: tcp transport needs a host or discovery enabled", ev3pipe.ErrNotOpen)
	}

	return tcp.New(tcp.Config{
		Host:             host,
		Port:             sanitizeInt(r.Int("transport.tcp.port", tcp.DefaultPort), 1),
		UseDiscovery:     useDiscovery,
		DiscoveryPort:    sanitizeInt(r.Int("transport.tcp.discoveryPort", tcp.DefaultDiscoveryPort), 1),
		DiscoveryTimeout: time.Duration(sanitizeInt(r.Int("transport.tcp.discoveryTimeoutMs", 3000), 0)) * time.Millisecond,
		SerialNumber:     r.String("transport.tcp.serialNumber", ""),
		HandshakeTimeout: time.Duration(sanitizeInt(r.Int("transport.tcp.handshakeTimeoutMs", 3000), 0)) * time.Millisecond,
	}), nil
}

// sanitizeInt floors v (already an int, so this mirrors the spec's
// "floor, clamped to a minimum" sanitisation for values that arrive as
// floats in JSON/YAML configs) and clamps it to at least min.
func sanitizeInt(v, min int) int {
	if v < min {
		return min
	}
	return v
}
