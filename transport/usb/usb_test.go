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

package usb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ev3cockpit/ev3pipe/wire"
)

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{}.withDefaults()
	assert.Equal(t, uint16(DefaultVendorID), cfg.VendorID)
	assert.Equal(t, uint16(DefaultProductID), cfg.ProductID)
	assert.Equal(t, DefaultReportSize, cfg.ReportSize)
	assert.Equal(t, defaultEndpoint, cfg.InEndpoint)
	assert.Equal(t, defaultEndpoint, cfg.OutEndpoint)

	custom := Config{VendorID: 1, ProductID: 2, ReportSize: 64}.withDefaults()
	assert.Equal(t, uint16(1), custom.VendorID)
	assert.Equal(t, uint16(2), custom.ProductID)
	assert.Equal(t, 64, custom.ReportSize)
}

func TestMatchReply(t *testing.T) {
	t.Parallel()
	counter := uint16(5)
	packets := []wire.Packet{
		{Counter: 3, Type: wire.DirectReply},
		{Counter: 5, Type: wire.DirectReply, Payload: []byte{0x01}},
	}

	reply, ok := matchReply(packets, &counter)
	assert := assert.New(t)
	assert.True(ok)
	assert.Equal(uint16(5), reply.Counter)

	_, ok = matchReply(nil, &counter)
	assert.False(ok)

	reply, ok = matchReply(packets, nil)
	assert.True(ok)
	assert.Equal(uint16(3), reply.Counter)
}
