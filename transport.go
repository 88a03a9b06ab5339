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
	"time"

	"github.com/ev3cockpit/ev3pipe/wire"
)

// TransportType names a concrete adapter kind. Factories and diagnostics
// branch on it; adapters themselves are otherwise interchangeable.
type TransportType string

// Recognized transport types (spec.md §2, components C4-C6, C8, C10).
const (
	TransportUSB       TransportType = "usb"
	TransportBluetooth TransportType = "bluetooth"
	TransportTCP       TransportType = "tcp"
	TransportAuto      TransportType = "auto"
	TransportMock      TransportType = "mock"
)

// SendOptions parameterizes a single Send call.
type SendOptions struct {
	// Timeout bounds how long Send waits for a matching reply before
	// failing with ErrTimeout. Zero means no timeout.
	Timeout time.Duration
	// Cancel, if non-nil, aborts the pending reply with ErrAborted when
	// closed or sent to.
	Cancel <-chan struct{}
	// ExpectedCounter, if non-nil, makes the adapter discard any
	// received packet whose Counter differs, continuing until a
	// matching packet arrives or the request aborts/times out.
	ExpectedCounter *uint16
}

// Transport is the uniform surface every EV3 physical transport
// implements: USB HID (transport/usb), Bluetooth SPP (transport/bluetooth),
// TCP/IP (transport/tcp), their auto-selecting composites
// (transport/auto), and the offline mock (transport/mock).
//
// Contract (spec.md §4.3):
//   - At most one Send may be in flight on a Transport at any instant; a
//     second concurrent Send fails immediately with ErrAlreadyInFlight.
//   - Open is idempotent under concurrent callers.
//   - Close is idempotent, releases OS resources, and rejects any
//     in-flight reply.
//   - A driver/IO failure during an in-flight Send rejects the pending
//     reply and transitions the adapter to closed; subsequent Send calls
//     fail with ErrNotOpen until Open is re-invoked.
//   - Close does not abort an Open that is in progress; the opening
//     attempt runs to completion.
//
// Transport is NOT required to be safe for concurrent Send calls from
// multiple goroutines on its own; the scheduler (Scheduler/Client) is
// responsible for serializing access to a given Transport instance.
type Transport interface {
	// Open establishes the connection. Open is idempotent: calling it
	// again on an already-open transport is a no-op success.
	Open(ctx context.Context) error
	// Close tears the connection down and rejects any in-flight reply.
	// Close is idempotent.
	Close() error
	// Send writes pkt and waits for a correlated reply, subject to opts.
	Send(ctx context.Context, pkt wire.Packet, opts SendOptions) (wire.Packet, error)
	// IsOpen reports whether the transport believes itself connected.
	IsOpen() bool
	// Type identifies the concrete adapter kind.
	Type() TransportType
}

// CapableTransport is implemented by transports that can report
// selection diagnostics beyond the base contract, e.g. the active leg of
// an auto-selecting composite (transport/auto).
type CapableTransport interface {
	Transport
	// ActiveSelection names which candidate is currently serving Send
	// calls, or "" if none is active.
	ActiveSelection() string
}

// TransportWithRetry wraps a Transport with the package's generic retry
// policy, matching the teacher pack's TransportWithRetry: it retries
// Send only, since Open/Close have their own idempotence rules and the
// scheduler already guarantees there is never a second in-flight Send to
// race with a retry.
type TransportWithRetry struct {
	transport Transport
	config    *RetryConfig
}

// NewTransportWithRetry wraps transport with the given retry
// configuration, or DefaultRetryConfig if config is nil.
func NewTransportWithRetry(transport Transport, config *RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransportWithRetry{transport: transport, config: config}
}

// Open delegates to the wrapped transport.
func (t *TransportWithRetry) Open(ctx context.Context) error { return t.transport.Open(ctx) }

// Close delegates to the wrapped transport.
func (t *TransportWithRetry) Close() error { return t.transport.Close() }

// IsOpen delegates to the wrapped transport.
func (t *TransportWithRetry) IsOpen() bool { return t.transport.IsOpen() }

// Type delegates to the wrapped transport.
func (t *TransportWithRetry) Type() TransportType { return t.transport.Type() }

// Send retries the wrapped transport's Send according to the configured
// RetryConfig, classifying failures through IsRetryable.
func (t *TransportWithRetry) Send(ctx context.Context, pkt wire.Packet, opts SendOptions) (wire.Packet, error) {
	var result wire.Packet
	err := RetryWithConfig(ctx, t.config, func() error {
		var sendErr error
		result, sendErr = t.transport.Send(ctx, pkt, opts)
		return sendErr
	})
	if err != nil {
		return wire.Packet{}, fmt.Errorf("send with retry: %w", err)
	}
	return result, nil
}

// SetRetryConfig updates the retry configuration used by subsequent Send
// calls.
func (t *TransportWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}

// ActiveSelection forwards to the wrapped transport if it is itself
// capability-aware, otherwise reports the wrapped transport's Type.
func (t *TransportWithRetry) ActiveSelection() string {
	if ct, ok := t.transport.(CapableTransport); ok {
		return ct.ActiveSelection()
	}
	return string(t.transport.Type())
}

var _ Transport = (*TransportWithRetry)(nil)
