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

func TestAdapterSendBeforeOpenFails(t *testing.T) {
	t.Parallel()
	a := NewAdapter(NewWorld())
	_, err := a.Send(context.Background(), wire.Packet{Type: wire.DirectCommandReply}, ev3pipe.SendOptions{})
	require.ErrorIs(t, err, ev3pipe.ErrNotOpen)
}

func TestAdapterOpenSendClose(t *testing.T) {
	t.Parallel()
	a := NewAdapter(NewWorld())
	require.NoError(t, a.Open(context.Background()))
	require.True(t, a.IsOpen())

	req := wire.Packet{
		Counter: 5,
		Type:    wire.DirectCommandReply,
		Payload: bytecode.ConcatBytes(bytecode.Uint16LE(0), []byte{opSound}),
	}
	reply, err := a.Send(context.Background(), req, ev3pipe.SendOptions{})
	require.NoError(t, err)
	require.Equal(t, wire.DirectReply, reply.Type)

	require.NoError(t, a.Close())
	require.False(t, a.IsOpen())
	_, err = a.Send(context.Background(), req, ev3pipe.SendOptions{})
	require.ErrorIs(t, err, ev3pipe.ErrNotOpen)
}

func TestAdapterTypeIsMock(t *testing.T) {
	t.Parallel()
	a := NewAdapter(NewWorld())
	require.Equal(t, ev3pipe.TransportMock, a.Type())
}

func TestAdapterReseedPublishesFreshWorld(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	w.SetSensor(0, 0x10, 0, SensorGenerator{Kind: GeneratorConstant, Value: 37.5})
	a := NewAdapter(w)
	require.NoError(t, a.Open(context.Background()))

	readSensor := func() float32 {
		req := directRequest(t, 4, bytecode.NewProgram().
			Raw(opInputReadSI).
			LC0(0). // layer
			LC0(0). // no
			LC0(0). // type
			LC0(0). // mode
			GV0(0))
		reply, err := a.Send(context.Background(), req, ev3pipe.SendOptions{})
		require.NoError(t, err)
		got, err := bytecode.ReadFloat32LE(reply.Payload, 0)
		require.NoError(t, err)
		return got
	}

	require.InDelta(t, 37.5, readSensor(), 0.01)

	a.Reseed(NewWorld())
	require.Equal(t, float32(0), readSensor())
}
