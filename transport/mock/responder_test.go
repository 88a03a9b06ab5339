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

package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/bytecode"
	"github.com/ev3cockpit/ev3pipe/wire"
)

func directRequest(t *testing.T, gvSize uint16, body *bytecode.Program) wire.Packet {
	t.Helper()
	payload, err := body.Bytes()
	require.NoError(t, err)
	return wire.Packet{
		Counter: 1,
		Type:    wire.DirectCommandReply,
		Payload: bytecode.ConcatBytes(bytecode.Uint16LE(gvSize), payload),
	}
}

func TestRespondDirectInputReadSI(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	w.SetSensor(0, 0x10, 0, SensorGenerator{Kind: GeneratorConstant, Value: 37.5})

	req := directRequest(t, 4, bytecode.NewProgram().
		Raw(opInputReadSI).
		LC0(0). // layer
		LC0(0). // no
		LC0(0). // type
		LC0(0). // mode
		GV0(0))

	resp := createResponder(w)
	reply, err := resp(context.Background(), req, ev3pipe.SendOptions{})
	require.NoError(t, err)
	require.Equal(t, wire.DirectReply, reply.Type)

	got, err := bytecode.ReadFloat32LE(reply.Payload, 0)
	require.NoError(t, err)
	require.InDelta(t, 37.5, got, 0.01)
}

func TestRespondDirectOutputSpeedStartCount(t *testing.T) {
	t.Parallel()
	w := NewWorld()

	req := directRequest(t, 4, bytecode.NewProgram().
		Raw(opOutputSpeed).LC0(1).LC0(50).
		Raw(opOutputStart).LC0(1).
		Raw(opOutputCount).LC0(1).GV0(0))

	resp := createResponder(w)
	_, err := resp(context.Background(), req, ev3pipe.SendOptions{})
	require.NoError(t, err)

	w.Tick(1000)
	reply2, err := resp(context.Background(), req, ev3pipe.SendOptions{})
	require.NoError(t, err)

	tacho, err := bytecode.ReadFloat32LE(reply2.Payload, 0)
	require.NoError(t, err)
	require.InDelta(t, 500, tacho, 1)
}

func TestRespondDirectUnknownOpcodeAbortsWalk(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	req := directRequest(t, 2, bytecode.NewProgram().Raw(0xff))

	resp := createResponder(w)
	reply, err := resp(context.Background(), req, ev3pipe.SendOptions{})
	require.NoError(t, err)
	require.Equal(t, wire.DirectReply, reply.Type)
	require.Len(t, reply.Payload, 2)
}

func TestRespondSystemListCreateDeleteRoundTrip(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	require.NoError(t, w.Fs.Mkdir("/prjs"))

	createReq := wire.Packet{
		Counter: 1,
		Type:    wire.SystemCommandReply,
		Payload: bytecode.ConcatBytes([]byte{sysCreateDir}, bytecode.CString("/prjs/demo")),
	}
	reply, err := respondSystem(w, createReq)
	require.NoError(t, err)
	require.Equal(t, wire.SystemReply, reply.Type)

	listReq := wire.Packet{
		Counter: 2,
		Type:    wire.SystemCommandReply,
		Payload: bytecode.ConcatBytes([]byte{sysListFiles, 64}, bytecode.CString("/prjs")),
	}
	listReply, err := respondSystem(w, listReq)
	require.NoError(t, err)
	require.Contains(t, string(listReply.Payload), "demo/")

	deleteReq := wire.Packet{
		Counter: 3,
		Type:    wire.SystemCommandReply,
		Payload: bytecode.ConcatBytes([]byte{sysDeleteFile}, bytecode.CString("/prjs/demo")),
	}
	deleteReply, err := respondSystem(w, deleteReq)
	require.NoError(t, err)
	require.Equal(t, wire.SystemReply, deleteReply.Type)
}
