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
	"sync"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/wire"
)

// Adapter is the offline ev3pipe.Transport: it never touches real I/O,
// answering every Send from a Responder (ordinarily one built by
// createResponder over a World, optionally wrapped by a FaultInjector).
type Adapter struct {
	respond Responder

	mu       sync.Mutex
	opened   bool
	inFlight bool
}

// NewAdapter builds a mock transport whose Responder is createResponder
// applied to world.
func NewAdapter(world *World) *Adapter {
	return &Adapter{respond: createResponder(world)}
}

// NewAdapterWithResponder builds a mock transport around a caller-supplied
// Responder, e.g. one wrapped with a FaultInjector.
func NewAdapterWithResponder(respond Responder) *Adapter {
	return &Adapter{respond: respond}
}

// Reseed atomically replaces a's Responder with one built over world,
// publishing the fresh world the way spec.md's mock-world lifecycle
// invariant requires: state is born from a seed and reset by constructing
// a new world and publishing it atomically through the active responder
// slot. Safe to call while the adapter is open; it only races with Send
// for the mutex, never for world state, since Send captures its Responder
// under the same lock before invoking it.
func (a *Adapter) Reseed(world *World) {
	a.ReseedResponder(createResponder(world))
}

// ReseedResponder is Reseed's general form for callers that need a
// caller-supplied Responder (e.g. a FaultInjector wrapping a fresh World)
// rather than a plain World.
func (a *Adapter) ReseedResponder(respond Responder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.respond = respond
}

// Type implements ev3pipe.Transport.
func (a *Adapter) Type() ev3pipe.TransportType { return ev3pipe.TransportMock }

// IsOpen implements ev3pipe.Transport.
func (a *Adapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opened
}

// Open implements ev3pipe.Transport. Idempotent; the mock world has no
// external resource to acquire.
func (a *Adapter) Open(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opened = true
	return nil
}

// Close implements ev3pipe.Transport. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opened = false
	return nil
}

// Send implements ev3pipe.Transport: invokes the Responder, honouring
// opts.Cancel and ctx in case the Responder is fault-injected to never
// reply (spec.md §4.11's timeoutRate path).
func (a *Adapter) Send(ctx context.Context, pkt wire.Packet, opts ev3pipe.SendOptions) (wire.Packet, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	a.mu.Lock()
	if !a.opened {
		a.mu.Unlock()
		return wire.Packet{}, ev3pipe.ErrNotOpen
	}
	if a.inFlight {
		a.mu.Unlock()
		return wire.Packet{}, ev3pipe.ErrAlreadyInFlight
	}
	a.inFlight = true
	respond := a.respond
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.inFlight = false
		a.mu.Unlock()
	}()

	type result struct {
		pkt wire.Packet
		err error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := respond(ctx, pkt, opts)
		done <- result{reply, err}
	}()

	select {
	case r := <-done:
		return r.pkt, r.err
	case <-opts.Cancel:
		return wire.Packet{}, ev3pipe.ErrAborted
	case <-ctx.Done():
		return wire.Packet{}, ev3pipe.ErrTimeout
	}
}

var (
	_ ev3pipe.Transport = (*Adapter)(nil)
)
