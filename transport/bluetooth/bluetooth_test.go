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

package bluetooth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/wire"
)

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{Port: "COM3"}.withDefaults()
	assert.Equal(t, DefaultBaudRate, cfg.BaudRate)

	custom := Config{Port: "COM3", BaudRate: 9600}.withDefaults()
	assert.Equal(t, 9600, custom.BaudRate)
}

func TestNewAdapterReportsTypeAndSelection(t *testing.T) {
	t.Parallel()
	a := New(Config{Port: "COM7"})
	assert.Equal(t, ev3pipe.TransportBluetooth, a.Type())
	assert.Equal(t, "COM7", a.ActiveSelection())
	assert.False(t, a.IsOpen())
}

func TestOpenWithoutPortFails(t *testing.T) {
	t.Parallel()
	a := New(Config{})
	err := a.Open(context.Background())
	assert.ErrorIs(t, err, ev3pipe.ErrNotOpen)
}

func TestMatchReply(t *testing.T) {
	t.Parallel()
	counter := uint16(9)
	packets := []wire.Packet{
		{Counter: 1, Type: wire.SystemReply},
		{Counter: 9, Type: wire.SystemReply, Payload: []byte{0x7f}},
	}

	reply, ok := matchReply(packets, &counter)
	assert.True(t, ok)
	assert.Equal(t, uint16(9), reply.Counter)

	_, ok = matchReply(nil, &counter)
	assert.False(t, ok)
}

func TestWaitReopenDelayRespectsContext(t *testing.T) {
	t.Parallel()

	assert.NoError(t, waitReopenDelay(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := waitReopenDelay(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
