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
	"fmt"

	"github.com/ev3cockpit/ev3pipe"
)

// ConnectClient builds a transport from f and wraps it in an
// ev3pipe.Client, mirroring the teacher pack's ConnectDevice: callers get
// one call from configuration to a ready-to-Open Client instead of
// building the transport and Client separately.
func ConnectClient(f TransportFactory, opts ...ev3pipe.Option) (*ev3pipe.Client, error) {
	transport, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	client, err := ev3pipe.NewClient(transport, opts...)
	if err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}
	return client, nil
}
