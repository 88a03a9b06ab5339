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
	"github.com/stretchr/testify/require"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/transport/bluetooth/btport"
	"github.com/ev3cockpit/ev3pipe/wire"
)

func TestAutoPortOpenFailsWhenNoCandidateOpens(t *testing.T) {
	t.Parallel()

	discoverCalls := 0
	discover := func(ctx context.Context) ([]btport.Candidate, error) {
		discoverCalls++
		return []btport.Candidate{{Path: "COM91", PnpID: "NONEXISTENT"}}, nil
	}

	a := NewAutoPortAdapter(AutoPortConfig{
		PortAttempts:  1,
		ProbeTimeout:  50 * time.Millisecond,
		RetryDelay:    time.Millisecond,
		PostOpenDelay: 0,
	}, discover)

	err := a.Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ev3pipe.ErrBluetoothAutoPortFailed)
	assert.Equal(t, 1, discoverCalls)
	assert.False(t, a.IsOpen())
}

func TestAutoPortOpenFailsWithRediscoveryConfigured(t *testing.T) {
	t.Parallel()

	discoverCalls := 0
	discover := func(ctx context.Context) ([]btport.Candidate, error) {
		discoverCalls++
		return []btport.Candidate{{Path: "COM92", PnpID: "BTHENUM_LOCALMFG&005D"}}, nil
	}

	a := NewAutoPortAdapter(AutoPortConfig{
		PortAttempts:     1,
		ProbeTimeout:     10 * time.Millisecond,
		RetryDelay:       time.Millisecond,
		PostOpenDelay:    0,
		RediscoveryTries: 2,
		RediscoveryDelay: time.Millisecond,
	}, discover)

	err := a.Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ev3pipe.ErrBluetoothAutoPortFailed)
	assert.GreaterOrEqual(t, discoverCalls, 1)
}

func TestAutoPortSendWithoutOpenFails(t *testing.T) {
	t.Parallel()
	a := NewAutoPortAdapter(AutoPortConfig{}, func(ctx context.Context) ([]btport.Candidate, error) {
		return nil, nil
	})
	_, err := a.Send(context.Background(), wire.Packet{}, ev3pipe.SendOptions{})
	assert.ErrorIs(t, err, ev3pipe.ErrNotOpen)
	assert.NoError(t, a.Close())
}
