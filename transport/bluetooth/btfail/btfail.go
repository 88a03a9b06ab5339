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

// Package btfail classifies Bluetooth adapter failure messages into a
// phase and a pair of retry-worthiness flags (spec.md §4.8), the way the
// teacher pack's detection package scores and classifies candidate
// ports — but over free-text error messages instead of port metadata.
package btfail

import (
	"regexp"
	"sort"
	"strconv"
)

// Strategy names the port-selection plan in effect when a failure
// occurred; it changes whether "send aborted" counts as transient.
type Strategy string

const (
	EV3Priority Strategy = "ev3-priority"
	LegacyOrder Strategy = "legacy-order"
)

// Phase names the stage of the Bluetooth connection attempt a failure
// occurred in.
type Phase string

const (
	PhaseDiscovery Phase = "discovery"
	PhaseProbe     Phase = "probe"
	PhaseSend      Phase = "send"
	PhaseSession   Phase = "session"
	PhaseOpen      Phase = "open"
	PhaseUnknown   Phase = "unknown"
)

// phaseOrder is the first-match precedence spec.md §4.8 specifies.
var phaseOrder = []struct {
	phase Phase
	re    *regexp.Regexp
}{
	{PhaseDiscovery, regexp.MustCompile(`(?i)discover|resolve any (serial )?com candidates`)},
	{PhaseProbe, regexp.MustCompile(`(?i)\bprobe\b`)},
	{PhaseSend, regexp.MustCompile(`(?i)\bsend\b`)},
	{PhaseSession, regexp.MustCompile(`(?i)is not open|\bsession\b`)},
	{PhaseOpen, regexp.MustCompile(`(?i)\bopening\b`)},
}

var (
	windowsCodeRe     = regexp.MustCompile(`(?i)unknown error code\s+(\d+)`)
	accessDeniedRe    = regexp.MustCompile(`(?i)access (is )?denied`)
	semaphoreTimeout  = regexp.MustCompile(`(?i)semaphore timeout period has expired`)
	fileNotFoundRe    = regexp.MustCompile(`(?i)file not found`)
	notOpenRe         = regexp.MustCompile(`(?i)is not open`)
	sendAbortedRe     = regexp.MustCompile(`(?i)send aborted`)
	transientWinCodes = map[uint32]bool{121: true, 1256: true, 1167: true}
)

// Classification is the result of classifying one failure message.
type Classification struct {
	Phase                     Phase
	WindowsCode               *uint32
	LikelyTransient           bool
	LikelyDynamicAvailability bool
}

// Classify inspects message (and the port-selection strategy that was in
// effect) and returns its Classification.
func Classify(message string, strategy Strategy) Classification {
	c := Classification{Phase: PhaseUnknown}

	for _, rule := range phaseOrder {
		if rule.re.MatchString(message) {
			c.Phase = rule.phase
			break
		}
	}

	var code *uint32
	if m := windowsCodeRe.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseUint(m[1], 10, 32); err == nil {
			vv := uint32(v)
			code = &vv
		}
	}
	c.WindowsCode = code

	sendAborted := sendAbortedRe.MatchString(message)
	codeTransient := code != nil && transientWinCodes[*code]
	c.LikelyTransient = codeTransient ||
		accessDeniedRe.MatchString(message) ||
		semaphoreTimeout.MatchString(message) ||
		(strategy == EV3Priority && sendAborted)

	c.LikelyDynamicAvailability = codeTransient ||
		fileNotFoundRe.MatchString(message) ||
		accessDeniedRe.MatchString(message) ||
		semaphoreTimeout.MatchString(message) ||
		notOpenRe.MatchString(message) ||
		sendAborted

	return c
}

// Summary aggregates a batch of classified failure messages.
type Summary struct {
	Total                int
	ByPhase              map[Phase]int
	PrimaryPhase         Phase
	WindowsCodes         []uint32
	LikelyTransientCount int
	LikelyDynamicCount   int
}

// primaryPhaseOrder breaks count ties the way spec.md §4.8 requires.
var primaryPhaseOrder = []Phase{PhaseOpen, PhaseProbe, PhaseDiscovery, PhaseSend, PhaseSession, PhaseUnknown}

// Summarize classifies every message (under strategy) and aggregates
// totals, per-phase counts, a sorted set of Windows codes, and a
// tie-broken primary phase.
func Summarize(messages []string, strategy Strategy) Summary {
	s := Summary{ByPhase: make(map[Phase]int)}
	codeSet := make(map[uint32]bool)

	for _, msg := range messages {
		c := Classify(msg, strategy)
		s.Total++
		s.ByPhase[c.Phase]++
		if c.WindowsCode != nil {
			codeSet[*c.WindowsCode] = true
		}
		if c.LikelyTransient {
			s.LikelyTransientCount++
		}
		if c.LikelyDynamicAvailability {
			s.LikelyDynamicCount++
		}
	}

	for code := range codeSet {
		s.WindowsCodes = append(s.WindowsCodes, code)
	}
	sort.Slice(s.WindowsCodes, func(i, j int) bool { return s.WindowsCodes[i] < s.WindowsCodes[j] })

	best := -1
	for _, phase := range primaryPhaseOrder {
		if count := s.ByPhase[phase]; count > best {
			best = count
			s.PrimaryPhase = phase
		}
	}

	return s
}
