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

/*
Package ev3pipe provides a multi-transport, reply-correlated command
pipeline for LEGO MINDSTORMS EV3 bricks.

It carries EV3 "direct" and "system" command packets over three
interchangeable transports: USB HID (transport/usb), Bluetooth SPP serial
(transport/bluetooth), and TCP/IP with UDP beacon discovery
(transport/tcp), composed through an auto-selecting adapter
(transport/auto) and a mock transport (transport/mock) for offline tests.

This package holds the transport-agnostic core: the Transport contract,
the error taxonomy, retry policy, and the priority command scheduler and
Client facade built on top of it. The wire codec lives in package wire and
the direct-command bytecode grammar in package bytecode.

Basic usage:

	adapter := bluetooth.New(bluetooth.Config{Port: "COM4", BaudRate: 115200})
	client, err := ev3pipe.NewClient(adapter, ev3pipe.WithTimeout(time.Second))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	if err := client.Open(context.Background()); err != nil {
		log.Fatal(err)
	}
	reply, err := client.SendDirect(context.Background(), payload)

Thread safety:

Client and Scheduler serialize all adapter access internally (exactly one
in-flight send per transport); they are safe to call from multiple
goroutines. Individual Transport implementations are not required to be
safe for concurrent Send calls on their own — that invariant is the
scheduler's job, not theirs.
*/
package ev3pipe

import (
	"fmt"
	"os"
)

// debugEnabled gates debugln/debugf on the EV3PIPE_DEBUG environment
// variable. No example repo in the retrieval pack wires a structured
// logging library for this class of low-level adapter code (see
// DESIGN.md), so the ambient logger here stays a thin stderr writer
// rather than importing one gratuitously.
var debugEnabled = os.Getenv("EV3PIPE_DEBUG") != ""

func debugln(args ...any) {
	if !debugEnabled {
		return
	}
	fmt.Fprintln(os.Stderr, args...)
}

func debugf(format string, args ...any) {
	if !debugEnabled {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
