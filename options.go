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

import "time"

// Option configures a Client at construction time.
type Option func(*Client) error

// WithTimeout sets the default per-request timeout used by Client.Send
// when the caller does not specify one.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.defaultTimeout = timeout
		return nil
	}
}

// WithRetryConfig installs a retry policy around every scheduler
// dispatch by wrapping the transport in a TransportWithRetry before the
// scheduler is built.
func WithRetryConfig(config *RetryConfig) Option {
	return func(c *Client) error {
		c.retryConfig = config
		return nil
	}
}

// WithScheduler substitutes a pre-built Scheduler, bypassing the one
// NewClient would otherwise construct around the transport. Useful in
// tests that want direct access to the Scheduler for assertions.
func WithScheduler(scheduler *Scheduler) Option {
	return func(c *Client) error {
		c.scheduler = scheduler
		return nil
	}
}

// WithDefaultLane sets the lane Client.Send uses when the caller does
// not specify one explicitly via SendWith (SendParams.Lane).
func WithDefaultLane(lane Lane) Option {
	return func(c *Client) error {
		c.defaultLane = lane
		return nil
	}
}
