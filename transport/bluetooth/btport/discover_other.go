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

//go:build !windows

package btport

import (
	"context"
	"fmt"
	"runtime"
)

// Discover is only implemented on Windows, matching the teacher pack's
// detection/uart package: EV3's Bluetooth SPP candidates are always
// Windows COM ports (spec.md §4.7). Non-Windows callers must supply
// their own PortDiscoverer.
func Discover(_ context.Context) ([]Candidate, error) {
	return nil, fmt.Errorf("btport: Discover is not implemented on %s", runtime.GOOS)
}
