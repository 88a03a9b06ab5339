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

// Package auto implements the auto-transport composite (spec.md §4.9):
// an ordered list of named transport factories, tried in order until one
// opens successfully.
package auto

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/wire"
)

// Factory builds a fresh, unopened transport for one named candidate.
type Factory struct {
	Name  string
	Build func() ev3pipe.Transport
}

// Adapter tries each configured Factory in order until one opens.
type Adapter struct {
	factories []Factory

	mu     sync.Mutex
	active ev3pipe.Transport
	name   string
}

// New builds an auto-transport composite trying factories in order.
func New(factories []Factory) *Adapter {
	return &Adapter{factories: factories}
}

// Type implements ev3pipe.Transport. Before a successful Open, reports
// ev3pipe.TransportAuto; afterwards, it reports the active transport's own
// type.
func (a *Adapter) Type() ev3pipe.TransportType {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active != nil {
		return a.active.Type()
	}
	return ev3pipe.TransportAuto
}

// ActiveSelection implements ev3pipe.CapableTransport: the name of the
// factory that is currently open.
func (a *Adapter) ActiveSelection() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// IsOpen implements ev3pipe.Transport.
func (a *Adapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil && a.active.IsOpen()
}

// Open implements ev3pipe.Transport: tries each factory in order, create
// + open, latching the first success as active and never constructing
// the remaining candidates. On total failure, raises
// ev3pipe.ErrAutoTransportFailed listing every failure.
func (a *Adapter) Open(ctx context.Context) error {
	if a.IsOpen() {
		return nil
	}

	var failures []string
	for _, f := range a.factories {
		candidate := f.Build()
		if err := candidate.Open(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}

		a.mu.Lock()
		a.active = candidate
		a.name = f.Name
		a.mu.Unlock()
		return nil
	}

	return fmt.Errorf("%w: %s", ev3pipe.ErrAutoTransportFailed, strings.Join(failures, "; "))
}

// Close implements ev3pipe.Transport. A subsequent Open restarts the walk
// from the first factory.
func (a *Adapter) Close() error {
	a.mu.Lock()
	active := a.active
	a.active = nil
	a.name = ""
	a.mu.Unlock()

	if active == nil {
		return nil
	}
	return active.Close()
}

// Send implements ev3pipe.Transport, delegating to the active transport.
func (a *Adapter) Send(ctx context.Context, pkt wire.Packet, opts ev3pipe.SendOptions) (wire.Packet, error) {
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()
	if active == nil {
		return wire.Packet{}, ev3pipe.ErrNotOpen
	}
	return active.Send(ctx, pkt, opts)
}

var (
	_ ev3pipe.Transport        = (*Adapter)(nil)
	_ ev3pipe.CapableTransport = (*Adapter)(nil)
)
