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

// Package fixture builds canned EV3 wire bytes for use in adapter and
// scheduler tests, mirroring the teacher pack's internal/testing response
// builders but for the EV3 frame shape instead of PN532's.
package fixture

import (
	"github.com/ev3cockpit/ev3pipe/wire"
)

// Frame encodes a packet and panics on error; only ever used from tests
// with arguments known to be valid, so a panic here signals a test bug.
func Frame(counter uint16, typ wire.PacketType, payload []byte) []byte {
	b, err := wire.Encode(counter, typ, payload)
	if err != nil {
		panic(err)
	}
	return b
}

// EchoDirectReply builds a DIRECT_REPLY frame carrying payload, echoing
// counter back to the caller — the shape a well-behaved brick emulator
// uses to answer a DIRECT_COMMAND_REPLY.
func EchoDirectReply(counter uint16, payload []byte) []byte {
	return Frame(counter, wire.DirectReply, payload)
}

// EchoSystemReply builds a SYSTEM_REPLY frame.
func EchoSystemReply(counter uint16, payload []byte) []byte {
	return Frame(counter, wire.SystemReply, payload)
}

// PadWithZeros appends n zero bytes after data, simulating the zero
// padding HID reports and idle serial lines emit between frames.
func PadWithZeros(data []byte, n int) []byte {
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, make([]byte, n)...)
}
