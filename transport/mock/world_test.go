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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSineSensorMatchesLiteralSamples(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	w.SetSensor(0, 0x10, 0, SensorGenerator{Kind: GeneratorSine, Min: 0, Max: 100, PeriodMs: 1000})

	assert.InDelta(t, 50, w.SensorValue(0), 0.5)
	w.Tick(250)
	assert.InDelta(t, 100, w.SensorValue(0), 0.5)
	w.Tick(250)
	assert.InDelta(t, 50, w.SensorValue(0), 0.5)
	w.Tick(250)
	assert.InDelta(t, 0, w.SensorValue(0), 0.5)
}

func TestRandomWalkSensorStaysInBounds(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	w.SetSensor(0, 0x10, 0, SensorGenerator{Kind: GeneratorRandomWalk, Min: 0, Max: 100, StepSize: 5})

	for i := 0; i < 500; i++ {
		w.Tick(10)
		v := w.SensorValue(0)
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(100))
	}
}

func TestMotorTachoAfterOneSecondAtHalfSpeed(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	w.StartMotor(1, 50)
	w.Tick(1000)
	assert.InDelta(t, 500, w.Motors[1].TachoDeg, 0.01)
}

func TestMotorSpeedClamped(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	w.StartMotor(1, 150)
	assert.Equal(t, int32(100), w.Motors[1].Speed)
	w.StartMotor(1, -150)
	assert.Equal(t, int32(-100), w.Motors[1].Speed)
}

func TestStopBrakeZeroesSpeedStopCoastPreserves(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	w.StartMotor(1, 60)
	w.StopMotor(1, true)
	assert.Equal(t, int32(0), w.Motors[1].Speed)
	assert.False(t, w.Motors[1].Running)

	w.StartMotor(2, 60)
	w.StopMotor(2, false)
	assert.Equal(t, int32(60), w.Motors[2].Speed)
	assert.False(t, w.Motors[2].Running)
}

func TestBrickNameClampedTo12Chars(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	w.Brick.setName("ThisNameIsWayTooLong")
	assert.Len(t, w.Brick.Name, 12)
	assert.Equal(t, "ThisNameIsWa", w.Brick.Name)
}

func TestResetRestoresFreshState(t *testing.T) {
	t.Parallel()
	w := NewWorld()
	w.Brick.setName("Renamed")
	w.StartMotor(1, 80)
	w.Tick(2000)
	w.SetSensor(0, 0x10, 0, SensorGenerator{Kind: GeneratorConstant, Value: 42})
	_ = w.SensorValue(0)

	w.Reset()

	assert.Equal(t, "EV3", w.Brick.Name)
	assert.False(t, w.Motors[1].Running)
	assert.Equal(t, float64(0), w.Motors[1].TachoDeg)
	assert.Equal(t, float32(0), w.SensorValue(0))
}
