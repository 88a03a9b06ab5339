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

package btport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEV3PriorityRanksHintedPortFirst(t *testing.T) {
	t.Parallel()
	candidates := []Candidate{
		{Path: "COM8", PnpID: "GENERIC_DEVICE"},
		{Path: "COM3", PnpID: "BTHENUM_LOCALMFG&005D"},
	}

	plans := Resolve(candidates, "", "")
	require.NotEmpty(t, plans)
	assert.Equal(t, PlanEV3Priority, plans[0].Name)
	require.NotEmpty(t, plans[0].Ports)
	assert.Equal(t, "COM3", plans[0].Ports[0])
}

func TestResolvePrefersSerialMatch(t *testing.T) {
	t.Parallel()
	candidates := []Candidate{
		{Path: "COM8", PnpID: "GENERIC_DEVICE"},
		{Path: "COM3", PnpID: "BTHENUM_LOCALMFG&005D"},
		{Path: "COM5", PnpID: "BTHENUM_SERIAL123_LOCALMFG&005D"},
	}

	plans := Resolve(candidates, "", "SERIAL123")
	require.NotEmpty(t, plans)
	assert.Equal(t, "COM5", plans[0].Ports[0])
}

func TestResolveSuppressesIdenticalLegacyPlan(t *testing.T) {
	t.Parallel()
	candidates := []Candidate{
		{Path: "COM3", PnpID: ""},
	}
	plans := Resolve(candidates, "", "")
	assert.Len(t, plans, 1)
}

func TestResolvePreferredPortFirst(t *testing.T) {
	t.Parallel()
	candidates := []Candidate{
		{Path: "COM3", PnpID: ""},
		{Path: "COM7", PnpID: ""},
	}
	plans := Resolve(candidates, "COM7", "")
	for _, p := range plans {
		require.NotEmpty(t, p.Ports)
		assert.Equal(t, "COM7", p.Ports[0])
	}
}

func TestResolveIgnoresNonComPaths(t *testing.T) {
	t.Parallel()
	candidates := []Candidate{
		{Path: "/dev/rfcomm0", PnpID: ""},
		{Path: "COM9", PnpID: ""},
	}
	plans := Resolve(candidates, "", "")
	require.NotEmpty(t, plans)
	assert.Equal(t, []string{"COM9"}, plans[0].Ports)
}
