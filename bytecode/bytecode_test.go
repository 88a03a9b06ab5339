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

package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLC0Range(t *testing.T) {
	t.Parallel()
	b, err := LC0(-32)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20}, b)

	b, err = LC0(31)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f}, b)

	_, err = LC0(-33)
	require.Error(t, err)
	_, err = LC0(32)
	require.Error(t, err)
}

func TestLC1(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []byte{0x81, 0xff}, LC1(-1))
	assert.Equal(t, []byte{0x81, 0x7f}, LC1(127))
}

func TestLC2Range(t *testing.T) {
	t.Parallel()
	b, err := LC2(32767)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82, 0xff, 0x7f}, b)

	_, err = LC2(32768)
	require.Error(t, err)
	_, err = LC2(-32769)
	require.Error(t, err)
}

func TestLC4(t *testing.T) {
	t.Parallel()
	b := LC4(1000)
	assert.Equal(t, byte(0x83), b[0])
	assert.Len(t, b, 5)
}

func TestGV0Range(t *testing.T) {
	t.Parallel()
	b, err := GV0(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60}, b)

	b, err = GV0(31)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7f}, b)

	_, err = GV0(-1)
	require.Error(t, err)
	_, err = GV0(32)
	require.Error(t, err)
}

func TestLCSAndCString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []byte{0x84, 'h', 'i', 0x00}, LCS("hi"))
	assert.Equal(t, []byte{'h', 'i', 0x00}, CString("hi"))
}

func TestReadUint32LEBounds(t *testing.T) {
	t.Parallel()
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	v, err := ReadUint32LE(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v)

	_, err = ReadUint32LE(buf, 1)
	require.Error(t, err)
}

func TestFloat32RoundTrip(t *testing.T) {
	t.Parallel()
	buf := make([]byte, 4)
	require.NoError(t, WriteFloat32LE(buf, 0, 3.14))
	v, err := ReadFloat32LE(buf, 0)
	require.NoError(t, err)
	assert.InDelta(t, 3.14, v, 0.0001)
}

func TestConcatBytes(t *testing.T) {
	t.Parallel()
	got := ConcatBytes([]byte{1, 2}, nil, []byte{3})
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestProgramBuildsPayload(t *testing.T) {
	t.Parallel()
	payload, err := NewProgram().
		Raw(0x99, 0x05).
		GV0(0).
		GV0(1).
		Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x99, 0x05, 0x60, 0x61}, payload)
}

func TestProgramPropagatesFirstError(t *testing.T) {
	t.Parallel()
	_, err := NewProgram().GV0(99).LC0(0).Bytes()
	require.Error(t, err)
}
