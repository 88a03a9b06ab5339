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

//go:build windows

package btport

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// Discover enumerates Windows COM ports, pairing each with the PnP
// hardware id of its owning Bluetooth device when one can be found,
// the way the teacher pack's detection/uart ports_windows.go combines
// the SERIALCOMM registry values with device-tree metadata — simplified
// here to registry-only lookups, since EV3 candidates only need a path
// and a PnP id string for btport.Resolve's heuristics, not the teacher's
// full SetupAPI friendly-name parsing.
func Discover(ctx context.Context) ([]Candidate, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, `HARDWARE\DEVICEMAP\SERIALCOMM`, registry.QUERY_VALUE)
	if err != nil {
		return nil, fmt.Errorf("btport: open SERIALCOMM key: %w", err)
	}
	defer key.Close()

	names, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, fmt.Errorf("btport: read SERIALCOMM values: %w", err)
	}

	pnpByPort := bluetoothPnpIDs()

	candidates := make([]Candidate, 0, len(names))
	for _, name := range names {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		path, _, err := key.GetStringValue(name)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Path:  path,
			PnpID: pnpByPort[strings.ToUpper(path)],
		})
	}
	return candidates, nil
}

// bluetoothPnpIDs walks the BTHENUM device subtree, mapping each COM
// port name found in a device's friendly-name value back to that
// device's own registry key name (its PnP id), best-effort.
func bluetoothPnpIDs() map[string]string {
	out := map[string]string{}

	root, err := registry.OpenKey(registry.LOCAL_MACHINE, `SYSTEM\CurrentControlSet\Enum\BTHENUM`, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return out
	}
	defer root.Close()

	deviceKeys, err := root.ReadSubKeyNames(-1)
	if err != nil {
		return out
	}

	for _, deviceKeyName := range deviceKeys {
		walkBluetoothInstances(root, deviceKeyName, out)
	}
	return out
}

func walkBluetoothInstances(root registry.Key, deviceKeyName string, out map[string]string) {
	deviceKey, err := registry.OpenKey(root, deviceKeyName, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return
	}
	defer deviceKey.Close()

	instances, err := deviceKey.ReadSubKeyNames(-1)
	if err != nil {
		return
	}

	for _, instance := range instances {
		instKey, err := registry.OpenKey(deviceKey, instance, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		friendly, _, err := instKey.GetStringValue("FriendlyName")
		instKey.Close()
		if err != nil {
			continue
		}
		if port := extractCOMPortName(friendly); port != "" {
			out[strings.ToUpper(port)] = strings.ToUpper(deviceKeyName)
		}
	}
}

func extractCOMPortName(friendlyName string) string {
	upper := strings.ToUpper(friendlyName)
	start := strings.Index(upper, "COM")
	if start == -1 {
		return ""
	}
	rest := friendlyName[start:]
	if idx := strings.IndexAny(rest, ") "); idx != -1 {
		rest = rest[:idx]
	}
	return rest
}
