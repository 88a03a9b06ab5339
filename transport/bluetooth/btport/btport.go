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

// Package btport ranks candidate serial ports for the Bluetooth
// auto-port adapter (spec.md §4.7), the way the teacher pack's
// detection/uart package scores candidate ports before probing them,
// generalized from PN532-specific heuristics to the EV3 SPP/PnP-id
// conventions.
package btport

import (
	"regexp"
	"sort"
	"strings"
)

// Candidate is one serial port discovered on the host.
type Candidate struct {
	Path  string
	PnpID string
}

// Plan is a ranked, deduplicated list of candidate COM ports to try, in
// order.
type Plan struct {
	Name  string
	Ports []string
}

const (
	PlanEV3Priority = "ev3-priority"
	PlanLegacyOrder = "legacy-order"
)

var comPortRe = regexp.MustCompile(`(?i)^COM\d+$`)

// ev3HintRe matches the LEGO-assigned PnP-id suffix EV3 Bluetooth SPP
// devices register under (e.g. "BTHENUM...LOCALMFG&005D").
var ev3HintRe = regexp.MustCompile(`(?i)005D$`)

// Resolve builds up to two Plans from candidates, an optional preferred
// port, and an optional preferred serial number. Empty plans are
// omitted; legacy-order is suppressed when it would be identical to
// ev3-priority.
func Resolve(candidates []Candidate, preferredPort, preferredSerial string) []Plan {
	var plans []Plan

	if p := ev3PriorityPlan(candidates, preferredPort, preferredSerial); len(p.Ports) > 0 {
		plans = append(plans, p)
	}
	if p := legacyOrderPlan(candidates, preferredPort); len(p.Ports) > 0 {
		if len(plans) == 0 || !samePorts(plans[0].Ports, p.Ports) {
			plans = append(plans, p)
		}
	}

	return plans
}

func samePorts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type rankedCandidate struct {
	path           string
	serialMismatch bool
	notEV3Hint     bool
	index          int
}

func ev3PriorityPlan(candidates []Candidate, preferredPort, preferredSerial string) Plan {
	upperSerial := strings.ToUpper(preferredSerial)

	var ranked []rankedCandidate
	for i, c := range candidates {
		path := strings.ToUpper(c.Path)
		if !comPortRe.MatchString(path) {
			continue
		}
		upperPnp := strings.ToUpper(c.PnpID)
		serialMismatch := upperSerial == "" || !strings.Contains(upperPnp, upperSerial)
		notEV3Hint := !ev3HintRe.MatchString(upperPnp)
		ranked = append(ranked, rankedCandidate{
			path: path, serialMismatch: serialMismatch, notEV3Hint: notEV3Hint, index: i,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.serialMismatch != b.serialMismatch {
			return !a.serialMismatch // false (match) sorts first
		}
		if a.notEV3Hint != b.notEV3Hint {
			return !a.notEV3Hint // false (has hint) sorts first
		}
		if a.index != b.index {
			return a.index < b.index
		}
		return a.path < b.path
	})

	ports := dedup(mapPaths(ranked))
	ports = promotePreferred(ports, strings.ToUpper(preferredPort))
	return Plan{Name: PlanEV3Priority, Ports: ports}
}

func legacyOrderPlan(candidates []Candidate, preferredPort string) Plan {
	var ports []string
	for _, c := range candidates {
		path := strings.ToUpper(c.Path)
		if !comPortRe.MatchString(path) {
			continue
		}
		ports = append(ports, path)
	}
	ports = dedup(ports)
	ports = promotePreferred(ports, strings.ToUpper(preferredPort))
	return Plan{Name: PlanLegacyOrder, Ports: ports}
}

func mapPaths(ranked []rankedCandidate) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.path
	}
	return out
}

func dedup(ports []string) []string {
	seen := make(map[string]bool, len(ports))
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func promotePreferred(ports []string, preferred string) []string {
	if preferred == "" || !comPortRe.MatchString(preferred) {
		return ports
	}
	out := make([]string, 0, len(ports)+1)
	out = append(out, preferred)
	for _, p := range ports {
		if p != preferred {
			out = append(out, p)
		}
	}
	return out
}
