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

// Package wire encodes and decodes the length-prefixed EV3 packet frame.
//
// Wire form: uint16le(bodyLength) ‖ uint16le(messageCounter) ‖ u8(type) ‖ payload,
// where bodyLength = 3 + len(payload). The package is pure: no I/O, no state.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PacketType tags the direction and family of a Packet.
type PacketType byte

// Packet type tags. Direction is relative to the host issuing commands.
const (
	DirectCommandReply   PacketType = 0x00 // out
	DirectCommandNoReply PacketType = 0x80 // out
	SystemCommandReply   PacketType = 0x01 // out
	SystemCommandNoReply PacketType = 0x81 // out
	DirectReply          PacketType = 0x02 // in
	DirectReplyError     PacketType = 0x04 // in
	SystemReply          PacketType = 0x03 // in
	SystemReplyError     PacketType = 0x05 // in
)

// IsDirect reports whether the type belongs to the direct-command family,
// whether inbound or outbound.
func (t PacketType) IsDirect() bool {
	switch t {
	case DirectCommandReply, DirectCommandNoReply, DirectReply, DirectReplyError:
		return true
	default:
		return false
	}
}

// IsSystem reports whether the type belongs to the system-command family.
func (t PacketType) IsSystem() bool {
	switch t {
	case SystemCommandReply, SystemCommandNoReply, SystemReply, SystemReplyError:
		return true
	default:
		return false
	}
}

// IsError reports whether the type tags an error reply.
func (t PacketType) IsError() bool {
	return t == DirectReplyError || t == SystemReplyError
}

// String implements fmt.Stringer for debug output.
func (t PacketType) String() string {
	switch t {
	case DirectCommandReply:
		return "DIRECT_COMMAND_REPLY"
	case DirectCommandNoReply:
		return "DIRECT_COMMAND_NO_REPLY"
	case SystemCommandReply:
		return "SYSTEM_COMMAND_REPLY"
	case SystemCommandNoReply:
		return "SYSTEM_COMMAND_NO_REPLY"
	case DirectReply:
		return "DIRECT_REPLY"
	case DirectReplyError:
		return "DIRECT_REPLY_ERROR"
	case SystemReply:
		return "SYSTEM_REPLY"
	case SystemReplyError:
		return "SYSTEM_REPLY_ERROR"
	default:
		return fmt.Sprintf("PacketType(0x%02x)", byte(t))
	}
}

// Packet is the decoded form of an EV3 wire frame: a message counter, a
// type tag, and an opaque payload.
type Packet struct {
	Payload []byte
	Counter uint16
	Type    PacketType
}

// ErrMalformedFrame is returned by Decode when bytes do not form a
// well-formed EV3 frame (too short, or declared length mismatched).
var ErrMalformedFrame = errors.New("malformed EV3 frame")

// minFrameLength is the minimum number of bytes a legal frame can take:
// 2 (bodyLength) + 2 (counter) + 1 (type).
const minFrameLength = 5

// MaxPayloadLength is the largest payload Encode accepts: bodyLength is a
// uint16 and counts the 3 bytes of counter and type, so the ceiling is
// 65535-3. Kept as a named constant so callers can budget appropriately.
const MaxPayloadLength = 65535 - 3

// Encode writes the wire form of a packet: uint16le(bodyLength) ‖
// uint16le(counter) ‖ type ‖ payload. Payload may be empty.
func Encode(counter uint16, typ PacketType, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("wire: payload length %d exceeds maximum %d", len(payload), MaxPayloadLength)
	}

	bodyLength := 3 + len(payload)
	out := make([]byte, 2+bodyLength)
	binary.LittleEndian.PutUint16(out[0:2], uint16(bodyLength)) //nolint:gosec // bounded above
	binary.LittleEndian.PutUint16(out[2:4], counter)
	out[4] = byte(typ)
	copy(out[5:], payload)
	return out, nil
}

// Decode parses the wire form of a single packet. It fails with
// ErrMalformedFrame if the buffer is too short, the declared body length
// is below the minimum of 3, or the buffer length does not match
// bodyLength+2 exactly. Decode never returns a Packet that aliases buf's
// backing array for Payload beyond what is necessary; callers that intend
// to reuse buf should not rely on this and may pass a copy.
func Decode(buf []byte) (Packet, error) {
	if len(buf) < minFrameLength {
		return Packet{}, fmt.Errorf("%w: frame too short (%d bytes)", ErrMalformedFrame, len(buf))
	}

	bodyLength := int(binary.LittleEndian.Uint16(buf[0:2]))
	if bodyLength < 3 {
		return Packet{}, fmt.Errorf("%w: body length %d below minimum of 3", ErrMalformedFrame, bodyLength)
	}
	if len(buf) != bodyLength+2 {
		return Packet{}, fmt.Errorf(
			"%w: declared body length %d implies total length %d, got %d",
			ErrMalformedFrame, bodyLength, bodyLength+2, len(buf),
		)
	}

	counter := binary.LittleEndian.Uint16(buf[2:4])
	typ := PacketType(buf[4])
	payload := make([]byte, bodyLength-3)
	copy(payload, buf[5:])

	return Packet{Counter: counter, Type: typ, Payload: payload}, nil
}

// BodyLength returns the declared body length without fully decoding the
// rest of the frame, or an error if buf is too short to contain it. Used
// by stream framers that need to know how many bytes to wait for before
// calling Decode.
func BodyLength(buf []byte) (int, error) {
	if len(buf) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 bytes to read body length", ErrMalformedFrame)
	}
	return int(binary.LittleEndian.Uint16(buf[0:2])), nil
}
