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

package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/wire"
)

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultDiscoveryPort, cfg.DiscoveryPort)
	assert.Equal(t, DefaultDiscoveryTimeout, cfg.DiscoveryTimeout)
	assert.Equal(t, DefaultHandshakeTimeout, cfg.HandshakeTimeout)

	custom := Config{Port: 1234}.withDefaults()
	assert.Equal(t, 1234, custom.Port)
}

func TestParseBeacon(t *testing.T) {
	t.Parallel()
	body := "Port: 5555\nSerial-Number: 00165312ABCD\nProtocol: EV3\nName: EV3\n"
	b := parseBeacon([]byte(body))
	require.NotNil(t, b)
	assert.Equal(t, 5555, b.Port)
	assert.Equal(t, "00165312ABCD", b.Serial)
	assert.Equal(t, "EV3", b.Protocol)
	assert.Equal(t, "EV3", b.Name)
}

func TestParseBeaconRejectsOutOfRangePort(t *testing.T) {
	t.Parallel()
	b := parseBeacon([]byte("Port: 0\nSerial-Number: X\n"))
	require.NotNil(t, b)
	assert.Equal(t, 0, b.Port)

	b2 := parseBeacon([]byte("garbage, no colons here"))
	assert.Nil(t, b2)
}

func TestMatchReply(t *testing.T) {
	t.Parallel()
	counter := uint16(42)
	packets := []wire.Packet{
		{Counter: 1, Type: wire.DirectReply},
		{Counter: 42, Type: wire.DirectReply, Payload: []byte{0xaa}},
	}
	reply, ok := matchReply(packets, &counter)
	assert.True(t, ok)
	assert.Equal(t, uint16(42), reply.Counter)
}

func TestHandshakeAcceptsEV3Response(t *testing.T) {
	t.Parallel()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		buf := make([]byte, 512)
		server.Read(buf)
		server.Write([]byte("HTTP/1.0 200 OK\r\nAccept: EV3\r\n\r\nLEFTOVER"))
	}()

	leftover, err := handshake(client, "00165312ABCD", "EV3", time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("LEFTOVER"), leftover)
}

func TestHandshakeRejectsUnknownResponse(t *testing.T) {
	t.Parallel()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		buf := make([]byte, 512)
		for {
			n, err := server.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				server.Write([]byte("HTTP/1.0 403 Forbidden\r\n\r\n"))
			}
		}
	}()

	_, err := handshake(client, "X", "EV3", 200*time.Millisecond)
	assert.Error(t, err)
}

func TestAdapterActiveSelectionDefaultsToHostPort(t *testing.T) {
	t.Parallel()
	a := New(Config{Host: "10.0.0.5", Port: 5555})
	assert.Equal(t, "10.0.0.5:5555", a.ActiveSelection())
	assert.Equal(t, ev3pipe.TransportTCP, a.Type())
}
