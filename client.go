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

package ev3pipe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ev3cockpit/ev3pipe/wire"
)

// Client is the caller-facing facade over a Scheduler: it assigns
// request ids, applies default timeouts and lanes, and exposes direct
// and system command helpers. It mirrors the teacher pack's Device
// facade over its Transport, generalized to the scheduler's
// request/result shape.
type Client struct {
	scheduler      *Scheduler
	defaultTimeout time.Duration
	defaultLane    Lane
	retryConfig    *RetryConfig

	nextID uint64
}

// defaultClientTimeout is used when neither WithTimeout nor a per-call
// timeout is supplied.
const defaultClientTimeout = 5 * time.Second

// NewClient builds a Client around transport, applying opts in order.
// If no WithScheduler option is given, a Scheduler is built around
// transport (wrapped in TransportWithRetry first, if WithRetryConfig was
// supplied).
func NewClient(transport Transport, opts ...Option) (*Client, error) {
	c := &Client{defaultTimeout: defaultClientTimeout, defaultLane: LaneNormal}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("apply client option: %w", err)
		}
	}

	if c.scheduler == nil {
		t := transport
		if c.retryConfig != nil {
			t = NewTransportWithRetry(transport, c.retryConfig)
		}
		c.scheduler = NewScheduler(t)
	}
	return c, nil
}

// Open opens the underlying transport.
func (c *Client) Open(ctx context.Context) error {
	return c.scheduler.Open(ctx)
}

// Close closes the underlying transport and stops the scheduler.
func (c *Client) Close() error {
	return c.scheduler.Close()
}

// SendParams overrides Client defaults for a single Send call.
type SendParams struct {
	Lane       Lane
	Timeout    time.Duration
	Idempotent bool
}

// Send submits payload as a command of the given wire type and blocks
// for the matching reply, using the Client's default lane and timeout.
func (c *Client) Send(ctx context.Context, typ wire.PacketType, payload []byte) (wire.Packet, error) {
	return c.SendWith(ctx, typ, payload, SendParams{Lane: c.defaultLane, Timeout: c.defaultTimeout})
}

// SendDirect issues a DIRECT_COMMAND_REPLY with payload.
func (c *Client) SendDirect(ctx context.Context, payload []byte) (wire.Packet, error) {
	return c.Send(ctx, wire.DirectCommandReply, payload)
}

// SendSystem issues a SYSTEM_COMMAND_REPLY with payload.
func (c *Client) SendSystem(ctx context.Context, payload []byte) (wire.Packet, error) {
	return c.Send(ctx, wire.SystemCommandReply, payload)
}

// SendWith submits payload with explicit per-call parameters.
func (c *Client) SendWith(ctx context.Context, typ wire.PacketType, payload []byte, params SendParams) (wire.Packet, error) {
	timeout := params.Timeout
	if timeout == 0 {
		timeout = c.defaultTimeout
	}

	result, err := c.scheduler.Send(ctx, CommandRequest{
		ID:         c.newRequestID(),
		Lane:       params.Lane,
		Idempotent: params.Idempotent,
		Timeout:    timeout,
		Type:       typ,
		Payload:    payload,
	})
	if err != nil {
		return wire.Packet{}, err
	}
	return result.Reply, nil
}

func (c *Client) newRequestID() string {
	n := atomic.AddUint64(&c.nextID, 1)
	return fmt.Sprintf("req-%d", n)
}
