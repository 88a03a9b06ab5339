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

// Package bytecode composes the small literal/global-variable grammar used
// inside EV3 direct-command payloads: LC0/LC1/LC2/LC4 compact literals,
// GV0 global-variable offsets, LCS strings, and plain C strings. Every
// function here is pure and synchronous; validation errors are returned,
// never panicked.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Opcode prefixes for the compact literal/global-variable encodings.
const (
	lc0Tag = 0x00 // low 6 bits carry the signed value directly
	lc1Tag = 0x81
	lc2Tag = 0x82
	lc4Tag = 0x83
	lcsTag = 0x84
	gv0Tag = 0x60 // low 5 bits carry the offset
)

// LC0 encodes a signed 6-bit literal in [-32, 31] as a single byte
// 0x00|bits6. Returns an error if v is out of range.
func LC0(v int8) ([]byte, error) {
	if v < -32 || v > 31 {
		return nil, fmt.Errorf("bytecode: LC0 value %d out of range [-32,31]", v)
	}
	return []byte{lc0Tag | (byte(v) & 0x3f)}, nil
}

// LC1 encodes a signed 8-bit literal as 0x81, int8.
func LC1(v int8) []byte {
	return []byte{lc1Tag, byte(v)}
}

// LC2 encodes a signed 16-bit literal as 0x82, int16le. Returns an error
// if |v| > 32767, so the accepted range is [-32767, 32767].
func LC2(v int32) ([]byte, error) {
	if v > 32767 || v < -32767 {
		return nil, fmt.Errorf("bytecode: LC2 value %d out of range [-32767,32767]", v)
	}
	out := make([]byte, 3)
	out[0] = lc2Tag
	binary.LittleEndian.PutUint16(out[1:], uint16(int16(v))) //nolint:gosec // range checked above
	return out, nil
}

// LC4 encodes a signed 32-bit literal as 0x83, int32le.
func LC4(v int32) []byte {
	out := make([]byte, 5)
	out[0] = lc4Tag
	binary.LittleEndian.PutUint32(out[1:], uint32(v)) //nolint:gosec // two's complement round-trip is intentional
	return out
}

// GV0 encodes a global-variable offset in [0,31] as a single byte
// 0x60|off. Returns an error if off is out of range.
func GV0(offset int) ([]byte, error) {
	if offset < 0 || offset > 31 {
		return nil, fmt.Errorf("bytecode: GV0 offset %d out of range [0,31]", offset)
	}
	return []byte{gv0Tag | byte(offset)}, nil
}

// LCS encodes a caller-truncated UTF-8 string literal as
// 0x84 ‖ utf8(s) ‖ 0x00. Unlike cString, LCS carries its own leading tag
// byte identifying it as a string literal in the direct-command stream.
func LCS(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	out = append(out, lcsTag)
	out = append(out, s...)
	out = append(out, 0x00)
	return out
}

// CString encodes a plain NUL-terminated UTF-8 string with no leading tag
// byte: utf8(s) ‖ 0x00.
func CString(s string) []byte {
	out := make([]byte, 0, len(s)+1)
	out = append(out, s...)
	out = append(out, 0x00)
	return out
}

// Uint16LE encodes v as two little-endian bytes. Used as the
// global-variable-size prefix of every direct-command payload.
func Uint16LE(v uint16) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

// ReadUint32LE reads a little-endian uint32 from buf at off. Returns an
// error if off+4 exceeds len(buf).
func ReadUint32LE(buf []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(buf) {
		return 0, fmt.Errorf("bytecode: ReadUint32LE out of bounds at offset %d (len %d)", off, len(buf))
	}
	return binary.LittleEndian.Uint32(buf[off : off+4]), nil
}

// ReadFloat32LE reads a little-endian IEEE-754 float32 from buf at off.
func ReadFloat32LE(buf []byte, off int) (float32, error) {
	bits, err := ReadUint32LE(buf, off)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// WriteFloat32LE writes v as little-endian IEEE-754 bytes into buf at off.
// Returns an error if off+4 exceeds len(buf).
func WriteFloat32LE(buf []byte, off int, v float32) error {
	if off < 0 || off+4 > len(buf) {
		return fmt.Errorf("bytecode: WriteFloat32LE out of bounds at offset %d (len %d)", off, len(buf))
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	return nil
}

// ConcatBytes concatenates its arguments into a single new slice, mirroring
// the teacher pack's small composition helpers.
func ConcatBytes(parts ...[]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
