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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKoanfReaderDefaults(t *testing.T) {
	t.Parallel()
	r, err := NewKoanfReader(map[string]interface{}{
		"transport.mode":          "usb",
		"transport.usb.reportId":  0,
		"transport.bluetooth.dtr": false,
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "usb", r.String("transport.mode", "bogus"))
	assert.Equal(t, 0, r.Int("transport.usb.reportId", -1))
	assert.False(t, r.Bool("transport.bluetooth.dtr", true))
	assert.Equal(t, "fallback", r.String("transport.unknown", "fallback"))
}

func TestKoanfReaderMissingFileIsNotAnError(t *testing.T) {
	t.Parallel()
	_, err := NewKoanfReader(nil, filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
}

func TestKoanfReaderYAMLOverlay(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "ev3pipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport:\n  mode: bt\n  bluetooth:\n    port: COM4\n"), 0o600))

	r, err := NewKoanfReader(map[string]interface{}{"transport.mode": "usb"}, path)
	require.NoError(t, err)

	assert.Equal(t, "bt", r.String("transport.mode", "usb"))
	assert.Equal(t, "COM4", r.String("transport.bluetooth.port", ""))
}

func TestOverriddenShadowsBase(t *testing.T) {
	t.Parallel()
	base := MapReader{"transport.mode": "usb", "transport.bluetooth.dtr": true}
	override := MapReader{"transport.mode": "bt", "transport.bluetooth.dtr": false}

	r := Overridden(base, override)
	assert.Equal(t, "bt", r.String("transport.mode", ""))
	assert.False(t, r.Bool("transport.bluetooth.dtr", true))
}

func TestOverriddenFallsBackWhenKeyAbsent(t *testing.T) {
	t.Parallel()
	base := MapReader{"transport.tcp.port": 5555}
	override := MapReader{"transport.mode": "bt"}

	r := Overridden(base, override)
	assert.Equal(t, 5555, r.Int("transport.tcp.port", 0))
}
