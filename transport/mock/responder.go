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

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/bytecode"
	"github.com/ev3cockpit/ev3pipe/wire"
)

// Direct opcodes recognised by the responder (spec.md §4.11.1).
const (
	opInputDevice  = 0x99
	opInputReadSI  = 0x9a
	opOutputSpeed  = 0xa5
	opOutputStart  = 0xa6
	opOutputStop   = 0xa3
	opOutputReset  = 0xa2
	opOutputCount  = 0xb3
	opUIRead       = 0x81
	opUIWrite      = 0x82
	opInfo         = 0x7c
	opSound        = 0x94
	subGetTypeMode = 0x05
	subSetTypeMode = 0x01
)

// UI_READ subcodes.
const (
	uiReadVBatt  = 0x01
	uiReadLBatt  = 0x12
	uiReadVolume = 0x08
	uiReadSleep  = 0x17
	uiReadPress  = 0x09
)

// UI_WRITE subcodes.
const (
	uiWriteLED       = 0x1b
	uiWriteSetVolume = 0x01
	uiWriteSetSleep  = 0x02
)

// INFO subcodes.
const (
	infoSetBrickname = 0x08
	infoGetBrickname = 0x0d
)

// Responder answers one EV3 packet, mirroring the ev3pipe.Transport.Send
// signature minus the open/close lifecycle: the mock transport is always
// "open".
type Responder func(ctx context.Context, pkt wire.Packet, opts ev3pipe.SendOptions) (wire.Packet, error)

// createResponder returns a Responder backed by world: direct commands
// walk the bytecode subset in spec.md §4.11.1, system commands operate
// on world.Fs.
func createResponder(world *World) Responder {
	return func(_ context.Context, pkt wire.Packet, _ ev3pipe.SendOptions) (wire.Packet, error) {
		switch {
		case pkt.Type.IsDirect():
			return respondDirect(world, pkt)
		default:
			return respondSystem(world, pkt)
		}
	}
}

func replyType(req wire.PacketType) wire.PacketType {
	if req.IsDirect() {
		return wire.DirectReply
	}
	return wire.SystemReply
}

// respondDirect interprets the global-variable-sized reply buffer
// preamble, then walks opcodes until the payload is exhausted or an
// unrecognised opcode is hit (per spec.md: "unknown opcodes abort the
// walk, return accumulated reply buffer").
func respondDirect(world *World, pkt wire.Packet) (wire.Packet, error) {
	if len(pkt.Payload) < 2 {
		return wire.Packet{Counter: pkt.Counter, Type: replyType(pkt.Type), Payload: nil}, nil
	}
	gvSize := int(pkt.Payload[0]) | int(pkt.Payload[1])<<8
	reply := make([]byte, gvSize)

	r := bytecode.NewReader(pkt.Payload[2:])
	for r.Remaining() > 0 {
		if !stepDirectOpcode(world, r, reply) {
			break
		}
	}
	return wire.Packet{Counter: pkt.Counter, Type: wire.DirectReply, Payload: reply}, nil
}

// stepDirectOpcode executes one opcode from r, writing into reply where
// the opcode names a global-variable destination. It returns false when
// the opcode is unrecognised or the stream is exhausted.
func stepDirectOpcode(world *World, r *bytecode.Reader, reply []byte) bool {
	op, err := r.Byte()
	if err != nil {
		return false
	}

	switch op {
	case opInputDevice:
		sub, err := r.Byte()
		if err != nil {
			return false
		}
		return stepInputDevice(world, r, reply, sub)
	case opInputReadSI:
		return stepInputReadSI(world, r, reply)
	case opOutputSpeed, opOutputStart, opOutputStop, opOutputReset, opOutputCount:
		return stepOutput(world, r, reply, op)
	case opUIRead:
		sub, err := r.Byte()
		if err != nil {
			return false
		}
		return stepUIRead(world, r, reply, sub)
	case opUIWrite:
		sub, err := r.Byte()
		if err != nil {
			return false
		}
		return stepUIWrite(world, r, sub)
	case opInfo:
		sub, err := r.Byte()
		if err != nil {
			return false
		}
		return stepInfo(world, r, reply, sub)
	case opSound:
		// Acknowledge, no effect (spec.md §4.11.1).
		return true
	default:
		return false
	}
}

func readPort(r *bytecode.Reader) (byte, bool) {
	arg, err := r.ReadArg()
	if err != nil {
		return 0, false
	}
	return byte(arg.Value), true
}

func readGVOffset(r *bytecode.Reader) (int, bool) {
	arg, err := r.ReadArg()
	if err != nil || !arg.IsGlobalVar {
		return 0, false
	}
	return arg.GVOffset, true
}

func stepInputDevice(world *World, r *bytecode.Reader, reply []byte, sub byte) bool {
	switch sub {
	case subGetTypeMode:
		port, ok := readPort(r)
		if !ok {
			return false
		}
		gvType, ok := readGVOffset(r)
		if !ok {
			return false
		}
		gvMode, ok := readGVOffset(r)
		if !ok {
			return false
		}
		s := world.Sensors[port]
		if s == nil {
			return false
		}
		if gvType < len(reply) {
			reply[gvType] = s.TypeCode
		}
		if gvMode < len(reply) {
			reply[gvMode] = s.Mode
		}
		return true
	case subSetTypeMode:
		port, ok := readPort(r)
		if !ok {
			return false
		}
		typeArg, err := r.ReadArg()
		if err != nil {
			return false
		}
		modeArg, err := r.ReadArg()
		if err != nil {
			return false
		}
		s := world.Sensors[port]
		if s == nil {
			return false
		}
		s.TypeCode = byte(typeArg.Value)
		s.Mode = byte(modeArg.Value)
		return true
	default:
		return false
	}
}

func stepInputReadSI(world *World, r *bytecode.Reader, reply []byte) bool {
	// LAYER — single-layer brick, read and discarded.
	if _, err := r.ReadArg(); err != nil {
		return false
	}
	port, ok := readPort(r)
	if !ok {
		return false
	}
	// TYPE, MODE — the mock accepts whatever was already configured on
	// the port and ignores the cross-check.
	for i := 0; i < 2; i++ {
		if _, err := r.ReadArg(); err != nil {
			return false
		}
	}
	gv, ok := readGVOffset(r)
	if !ok {
		return false
	}
	if gv+4 > len(reply) {
		return false
	}
	_ = bytecode.WriteFloat32LE(reply, gv, world.SensorValue(port))
	return true
}

func stepOutput(world *World, r *bytecode.Reader, reply []byte, op byte) bool {
	maskArg, err := r.ReadArg()
	if err != nil {
		return false
	}
	mask := byte(maskArg.Value)

	switch op {
	case opOutputSpeed:
		speedArg, err := r.ReadArg()
		if err != nil {
			return false
		}
		world.motor(mask).Speed = clampSpeed(speedArg.Value)
		return true
	case opOutputStart:
		world.StartMotor(mask, world.motor(mask).Speed)
		return true
	case opOutputStop:
		brakeArg, err := r.ReadArg()
		if err != nil {
			return false
		}
		world.StopMotor(mask, brakeArg.Value != 0)
		return true
	case opOutputReset:
		world.ResetMotor(mask)
		return true
	case opOutputCount:
		gv, ok := readGVOffset(r)
		if !ok || gv+4 > len(reply) {
			return false
		}
		tacho := int32(world.motor(mask).TachoDeg)
		_ = bytecode.WriteFloat32LE(reply, gv, float32(tacho))
		return true
	default:
		return false
	}
}

func stepUIRead(world *World, r *bytecode.Reader, reply []byte, sub byte) bool {
	gv, ok := readGVOffset(r)
	if !ok {
		return false
	}
	switch sub {
	case uiReadVBatt:
		if gv+4 > len(reply) {
			return false
		}
		_ = bytecode.WriteFloat32LE(reply, gv, world.Brick.BatteryV)
	case uiReadLBatt:
		if gv >= len(reply) {
			return false
		}
		reply[gv] = batteryPercent(world.Brick.BatteryV)
	case uiReadVolume:
		if gv >= len(reply) {
			return false
		}
		reply[gv] = world.Brick.Volume
	case uiReadSleep:
		if gv+4 > len(reply) {
			return false
		}
		_ = bytecode.WriteFloat32LE(reply, gv, float32(world.Brick.SleepMin))
	case uiReadPress:
		if gv >= len(reply) {
			return false
		}
		reply[gv] = world.Brick.ButtonPress
	default:
		return false
	}
	return true
}

func batteryPercent(v float32) byte {
	const minV, maxV = 6.0, 8.3
	pct := (v - minV) / (maxV - minV) * 100
	return clampByte0to100(int(pct))
}

func stepUIWrite(world *World, r *bytecode.Reader, sub byte) bool {
	switch sub {
	case uiWriteLED:
		arg, err := r.ReadArg()
		if err != nil {
			return false
		}
		world.Brick.LEDPattern = byte(arg.Value)
		return true
	case uiWriteSetVolume:
		arg, err := r.ReadArg()
		if err != nil {
			return false
		}
		world.Brick.Volume = clampByte0to100(int(arg.Value))
		return true
	case uiWriteSetSleep:
		arg, err := r.ReadArg()
		if err != nil {
			return false
		}
		if arg.Value < 0 {
			arg.Value = 0
		}
		world.Brick.SleepMin = int(arg.Value)
		return true
	default:
		return false
	}
}

func stepInfo(world *World, r *bytecode.Reader, reply []byte, sub byte) bool {
	switch sub {
	case infoSetBrickname:
		name, err := r.ReadString()
		if err != nil {
			return false
		}
		world.Brick.setName(name)
		return true
	case infoGetBrickname:
		gv, ok := readGVOffset(r)
		if !ok {
			return false
		}
		encoded := bytecode.CString(world.Brick.Name)
		if gv < 0 || gv+len(encoded) > len(reply) {
			return false
		}
		copy(reply[gv:], encoded)
		return true
	default:
		return false
	}
}
