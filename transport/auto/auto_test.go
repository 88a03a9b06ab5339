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

package auto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/wire"
)

type stubTransport struct {
	typ       ev3pipe.TransportType
	openErr   error
	opened    bool
	openCalls int
}

func (s *stubTransport) Type() ev3pipe.TransportType { return s.typ }
func (s *stubTransport) IsOpen() bool                { return s.opened }
func (s *stubTransport) Open(ctx context.Context) error {
	s.openCalls++
	if s.openErr != nil {
		return s.openErr
	}
	s.opened = true
	return nil
}
func (s *stubTransport) Close() error {
	s.opened = false
	return nil
}
func (s *stubTransport) Send(ctx context.Context, pkt wire.Packet, opts ev3pipe.SendOptions) (wire.Packet, error) {
	return wire.Packet{Counter: pkt.Counter, Type: wire.DirectReply}, nil
}

func TestAutoTransportSelectsFirstSuccessAndSkipsLater(t *testing.T) {
	t.Parallel()

	built := map[string]*stubTransport{}
	cCreated := false

	factories := []Factory{
		{Name: "A_fails", Build: func() ev3pipe.Transport {
			s := &stubTransport{typ: ev3pipe.TransportUSB, openErr: ev3pipe.ErrNotOpen}
			built["A"] = s
			return s
		}},
		{Name: "B_succeeds", Build: func() ev3pipe.Transport {
			s := &stubTransport{typ: ev3pipe.TransportBluetooth}
			built["B"] = s
			return s
		}},
		{Name: "C_not_tried", Build: func() ev3pipe.Transport {
			cCreated = true
			return &stubTransport{typ: ev3pipe.TransportTCP}
		}},
	}

	a := New(factories)
	err := a.Open(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "B_succeeds", a.ActiveSelection())
	assert.True(t, a.IsOpen())
	assert.False(t, cCreated)
	assert.Equal(t, ev3pipe.TransportBluetooth, a.Type())
}

func TestAutoTransportCloseThenOpenRestartsWalk(t *testing.T) {
	t.Parallel()

	attempt := 0
	factories := []Factory{
		{Name: "only", Build: func() ev3pipe.Transport {
			attempt++
			return &stubTransport{typ: ev3pipe.TransportUSB}
		}},
	}

	a := New(factories)
	require.NoError(t, a.Open(context.Background()))
	require.NoError(t, a.Close())
	assert.False(t, a.IsOpen())

	require.NoError(t, a.Open(context.Background()))
	assert.True(t, a.IsOpen())
	assert.Equal(t, 2, attempt)
}

func TestAutoTransportAllFailRaisesAggregateError(t *testing.T) {
	t.Parallel()

	factories := []Factory{
		{Name: "A", Build: func() ev3pipe.Transport {
			return &stubTransport{openErr: ev3pipe.ErrNotOpen}
		}},
		{Name: "B", Build: func() ev3pipe.Transport {
			return &stubTransport{openErr: ev3pipe.ErrTransportUnavailable}
		}},
	}

	a := New(factories)
	err := a.Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ev3pipe.ErrAutoTransportFailed)
	assert.Contains(t, err.Error(), "A:")
	assert.Contains(t, err.Error(), "B:")
}
