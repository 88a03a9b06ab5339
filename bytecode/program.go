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

package bytecode

// Program incrementally assembles a direct-command payload out of the
// LC/LCS/GV primitives, carrying the first error encountered so call
// chains don't need to check after every step.
type Program struct {
	err error
	buf []byte
}

// NewProgram starts an empty payload builder. Callers typically prefix
// the result with Uint16LE(globalVarsSize) before sending it.
func NewProgram() *Program {
	return &Program{}
}

// LC0 appends a compact 6-bit literal.
func (p *Program) LC0(v int8) *Program {
	if p.err != nil {
		return p
	}
	b, err := LC0(v)
	if err != nil {
		p.err = err
		return p
	}
	p.buf = append(p.buf, b...)
	return p
}

// LC1 appends an 8-bit literal.
func (p *Program) LC1(v int8) *Program {
	if p.err != nil {
		return p
	}
	p.buf = append(p.buf, LC1(v)...)
	return p
}

// LC2 appends a 16-bit literal.
func (p *Program) LC2(v int32) *Program {
	if p.err != nil {
		return p
	}
	b, err := LC2(v)
	if err != nil {
		p.err = err
		return p
	}
	p.buf = append(p.buf, b...)
	return p
}

// LC4 appends a 32-bit literal.
func (p *Program) LC4(v int32) *Program {
	if p.err != nil {
		return p
	}
	p.buf = append(p.buf, LC4(v)...)
	return p
}

// GV0 appends a global-variable offset reference.
func (p *Program) GV0(offset int) *Program {
	if p.err != nil {
		return p
	}
	b, err := GV0(offset)
	if err != nil {
		p.err = err
		return p
	}
	p.buf = append(p.buf, b...)
	return p
}

// LCS appends a tagged, NUL-terminated string literal.
func (p *Program) LCS(s string) *Program {
	if p.err != nil {
		return p
	}
	p.buf = append(p.buf, LCS(s)...)
	return p
}

// Raw appends arbitrary already-encoded bytes, e.g. a command opcode or a
// subcode that has no LC/GV form of its own.
func (p *Program) Raw(b ...byte) *Program {
	if p.err != nil {
		return p
	}
	p.buf = append(p.buf, b...)
	return p
}

// Bytes returns the assembled payload and any validation error
// encountered while building it.
func (p *Program) Bytes() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]byte, len(p.buf))
	copy(out, p.buf)
	return out, nil
}
