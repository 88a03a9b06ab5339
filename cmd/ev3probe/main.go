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

// Command ev3probe opens a transport built from flags/config, sends a
// direct-command probe reading the brick's battery voltage, and prints
// the decoded reply. It is the offline-testable analogue of a hardware
// smoke test: with -mode=mock (the default) it runs against
// transport/mock with no brick attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ev3cockpit/ev3pipe/bytecode"
	"github.com/ev3cockpit/ev3pipe/config"
)

type flags struct {
	mode    *string
	port    *string
	host    *string
	timeout *time.Duration
}

func parseFlags() *flags {
	f := &flags{
		mode:    flag.String("mode", "mock", "Transport mode: usb, bt, tcp, or mock"),
		port:    flag.String("port", "", "Bluetooth COM port (bt mode only)"),
		host:    flag.String("host", "", "EV3 IP address (tcp mode only)"),
		timeout: flag.Duration("timeout", 5*time.Second, "Probe timeout"),
	}
	flag.Parse()
	return f
}

func readerFromFlags(f *flags) config.MapReader {
	r := config.MapReader{"transport.mode": *f.mode}
	if *f.port != "" {
		r["transport.bluetooth.port"] = *f.port
	}
	if *f.host != "" {
		r["transport.tcp.host"] = *f.host
	}
	return r
}

// batteryProbe builds a direct-command payload that reads UI_READ VBATT
// into global variable 0 (spec.md §4.11.1).
func batteryProbe() ([]byte, error) {
	const (
		opUIRead    = 0x81
		uiReadVBatt = 0x01
		gvSize      = 4
	)
	body, err := bytecode.NewProgram().
		Raw(opUIRead, uiReadVBatt).
		GV0(0).
		Bytes()
	if err != nil {
		return nil, fmt.Errorf("build probe payload: %w", err)
	}
	return bytecode.ConcatBytes(bytecode.Uint16LE(gvSize), body), nil
}

func main() {
	f := parseFlags()

	factory := config.TransportFactory{Reader: readerFromFlags(f)}
	client, err := config.ConnectClient(factory)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *f.timeout)
	defer cancel()

	if err := client.Open(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "open transport: %v\n", err)
		os.Exit(1)
	}

	payload, err := batteryProbe()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	reply, err := client.SendDirect(ctx, payload)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}

	volts, err := bytecode.ReadFloat32LE(reply.Payload, 0)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "decode reply: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("battery voltage: %.2fV\n", volts)
}
