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
	"math/rand"
	"time"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/wire"
)

// FaultInjectorConfig tunes FaultInjector (spec.md §4.11).
type FaultInjectorConfig struct {
	// ErrorRate is the per-request probability [0,1] of flipping a
	// successful reply's type to its error variant.
	ErrorRate float64
	// LatencyMs is the baseline delay added before invoking the wrapped
	// Responder.
	LatencyMs int
	// JitterMs is a uniform +/- spread applied on top of LatencyMs,
	// clamped so the effective delay never goes negative.
	JitterMs int
	// TimeoutRate is the per-request probability [0,1] of never invoking
	// the wrapped Responder at all; Send then only resolves via
	// cancellation or the caller's context.
	TimeoutRate float64
}

// FaultInjector wraps a Responder with synthetic latency, jitter, and
// error/timeout rates, exercised against the scheduler's retry/timeout
// paths exactly as a flaky real transport would.
type FaultInjector struct {
	cfg FaultInjectorConfig
	rng *rand.Rand
}

// NewFaultInjector builds a FaultInjector from cfg, seeded with seed so
// test runs are reproducible.
func NewFaultInjector(cfg FaultInjectorConfig, seed int64) *FaultInjector {
	return &FaultInjector{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Wrap returns a Responder that applies the fault-injection algorithm of
// spec.md §4.11 around inner:
//  1. roll timeoutRate — if it hits, never respond.
//  2. sleep latencyMs +/- jitterMs (clamped >= 0).
//  3. invoke inner.
//  4. roll errorRate — if it hits, flip the reply's type to its error
//     variant (DirectReply -> DirectReplyError, SystemReply ->
//     SystemReplyError).
func (f *FaultInjector) Wrap(inner Responder) Responder {
	return func(ctx context.Context, pkt wire.Packet, opts ev3pipe.SendOptions) (wire.Packet, error) {
		if f.rng.Float64() < f.cfg.TimeoutRate {
			select {
			case <-ctx.Done():
				return wire.Packet{}, ctx.Err()
			case <-opts.Cancel:
				return wire.Packet{}, context.Canceled
			}
		}

		if delay := f.delay(); delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return wire.Packet{}, ctx.Err()
			case <-opts.Cancel:
				return wire.Packet{}, context.Canceled
			}
		}

		reply, err := inner(ctx, pkt, opts)
		if err != nil {
			return reply, err
		}

		if f.rng.Float64() < f.cfg.ErrorRate {
			reply.Type = errorVariant(reply.Type)
		}
		return reply, nil
	}
}

func (f *FaultInjector) delay() time.Duration {
	base := f.cfg.LatencyMs
	if f.cfg.JitterMs > 0 {
		jitter := f.rng.Intn(2*f.cfg.JitterMs+1) - f.cfg.JitterMs
		base += jitter
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(base) * time.Millisecond
}

func errorVariant(t wire.PacketType) wire.PacketType {
	switch t {
	case wire.DirectReply:
		return wire.DirectReplyError
	case wire.SystemReply:
		return wire.SystemReplyError
	default:
		return t
	}
}
