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

package bluetooth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ev3cockpit/ev3pipe"
	"github.com/ev3cockpit/ev3pipe/transport/bluetooth/btfail"
	"github.com/ev3cockpit/ev3pipe/transport/bluetooth/btport"
	"github.com/ev3cockpit/ev3pipe/wire"
)

// systemProbeOpcode is the one-byte system command the auto-port adapter
// uses to verify a candidate port actually talks to an EV3 brick (spec.md
// §4.9).
const systemProbeOpcode = 0x9d

// PortDiscoverer enumerates the Bluetooth serial ports currently visible
// to the OS. Adapted per-platform the way the teacher pack's
// detection/uart package discovers candidate UART ports.
type PortDiscoverer func(ctx context.Context) ([]btport.Candidate, error)

// AutoPortConfig configures an AutoPortAdapter.
type AutoPortConfig struct {
	PreferredPort   string
	PreferredSerial string
	BaudRate        int
	DTR             bool
	AutoDTRFallback bool

	ProbeTimeout     time.Duration
	PortAttempts     int
	RetryDelay       time.Duration
	PostOpenDelay    time.Duration
	RediscoveryTries int
	RediscoveryDelay time.Duration
}

func (c AutoPortConfig) withDefaults() AutoPortConfig {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 2 * time.Second
	}
	if c.PortAttempts <= 0 {
		c.PortAttempts = 1
	}
	return c
}

// attemptFailure records one candidate-port attempt's outcome for the
// aggregate error and the failure classifier.
type attemptFailure struct {
	port    string
	dtr     bool
	pass    int
	message string
	class   btfail.Classification
}

// AutoPortAdapter discovers and opens a Bluetooth SPP port automatically,
// per spec.md §4.9: DTR-profile fallback, per-port retry budget, and
// rediscovery rounds driven by the failure classifier's dynamic-
// availability signal.
type AutoPortAdapter struct {
	cfg        AutoPortConfig
	discover   PortDiscoverer
	active     *Adapter
	activePort string
}

// NewAutoPortAdapter builds an auto-port adapter using discover to
// enumerate candidate ports on each round.
func NewAutoPortAdapter(cfg AutoPortConfig, discover PortDiscoverer) *AutoPortAdapter {
	return &AutoPortAdapter{cfg: cfg.withDefaults(), discover: discover}
}

// Type implements ev3pipe.Transport.
func (a *AutoPortAdapter) Type() ev3pipe.TransportType { return ev3pipe.TransportBluetooth }

// ActiveSelection implements ev3pipe.CapableTransport.
func (a *AutoPortAdapter) ActiveSelection() string { return a.activePort }

// IsOpen implements ev3pipe.Transport.
func (a *AutoPortAdapter) IsOpen() bool { return a.active != nil && a.active.IsOpen() }

// Open implements ev3pipe.Transport, running the dtrProfiles × rediscovery
// × per-port-attempt walk spec.md §4.9 specifies.
func (a *AutoPortAdapter) Open(ctx context.Context) error {
	if a.IsOpen() {
		return nil
	}

	dtrProfiles := []bool{a.cfg.DTR}
	if a.cfg.AutoDTRFallback {
		dtrProfiles = append(dtrProfiles, !a.cfg.DTR)
	}

	var allFailures []attemptFailure

	for _, dtr := range dtrProfiles {
		for pass := 0; pass <= a.cfg.RediscoveryTries; pass++ {
			candidates, err := a.discover(ctx)
			if err != nil {
				allFailures = append(allFailures, attemptFailure{
					pass: pass + 1, message: fmt.Sprintf("discovery failed: %v", err),
					class: btfail.Classify(fmt.Sprintf("discovery failed: %v", err), btfail.EV3Priority),
				})
			}

			plans := btport.Resolve(candidates, a.cfg.PreferredPort, a.cfg.PreferredSerial)
			adapter, port, failures := a.tryPlans(ctx, plans, pass+1, dtr)
			allFailures = append(allFailures, failures...)

			if adapter != nil {
				a.active = adapter
				a.activePort = port
				return nil
			}

			if pass == a.cfg.RediscoveryTries || len(allFailures) == 0 {
				break
			}
			if !allFailures[len(allFailures)-1].class.LikelyDynamicAvailability {
				break
			}
			if err := waitReopenDelay(ctx, a.cfg.RediscoveryDelay); err != nil {
				return err
			}
		}
	}

	return a.buildFailure(allFailures)
}

// tryPlans walks plans, then ports (deduplicated across plans), then
// attempts per port, per spec.md §4.9's tryPlans description.
func (a *AutoPortAdapter) tryPlans(ctx context.Context, plans []btport.Plan, pass int, dtr bool) (*Adapter, string, []attemptFailure) {
	seen := make(map[string]bool)
	var failures []attemptFailure

	for _, plan := range plans {
		budget := a.cfg.PortAttempts
		strategy := btfail.EV3Priority
		if plan.Name == btport.PlanLegacyOrder {
			budget = 1
			strategy = btfail.LegacyOrder
		}

		for _, port := range plan.Ports {
			if seen[port] {
				continue
			}
			seen[port] = true

			adapter, fails := a.tryPort(ctx, port, dtr, budget, pass, strategy)
			failures = append(failures, fails...)
			if adapter != nil {
				return adapter, port, failures
			}
		}
	}
	return nil, "", failures
}

// tryPort attempts to open and probe one candidate port up to budget
// times, stopping early when the classifier says a failure is not
// likelyTransient.
func (a *AutoPortAdapter) tryPort(ctx context.Context, port string, dtr bool, budget, pass int, strategy btfail.Strategy) (*Adapter, []attemptFailure) {
	var failures []attemptFailure

	for attempt := 0; attempt < budget; attempt++ {
		adapter := New(Config{Port: port, BaudRate: a.cfg.BaudRate, DTR: dtr})
		if err := adapter.Open(ctx); err != nil {
			msg := err.Error()
			failures = append(failures, attemptFailure{
				port: port, dtr: dtr, pass: pass, message: msg,
				class: btfail.Classify(msg, strategy),
			})
			if !failures[len(failures)-1].class.LikelyTransient {
				return nil, failures
			}
			if err := waitReopenDelay(ctx, a.cfg.RetryDelay); err != nil {
				return nil, failures
			}
			continue
		}

		if err := waitReopenDelay(ctx, a.cfg.PostOpenDelay); err != nil {
			adapter.Close()
			return nil, failures
		}

		if err := a.probe(ctx, adapter); err != nil {
			adapter.Close()
			msg := err.Error()
			failures = append(failures, attemptFailure{
				port: port, dtr: dtr, pass: pass, message: msg,
				class: btfail.Classify(msg, strategy),
			})
			if !failures[len(failures)-1].class.LikelyTransient {
				return nil, failures
			}
			if err := waitReopenDelay(ctx, a.cfg.RetryDelay); err != nil {
				return nil, failures
			}
			continue
		}

		return adapter, failures
	}

	return nil, failures
}

// probe sends the one-byte system probe and requires a SYSTEM_REPLY or
// SYSTEM_REPLY_ERROR back within ProbeTimeout.
func (a *AutoPortAdapter) probe(ctx context.Context, adapter *Adapter) error {
	probeCtx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
	defer cancel()

	reply, err := adapter.Send(probeCtx, wire.Packet{
		Counter: 0, Type: wire.SystemCommandReply, Payload: []byte{systemProbeOpcode},
	}, ev3pipe.SendOptions{Timeout: a.cfg.ProbeTimeout})
	if err != nil {
		return fmt.Errorf("bt auto-port probe: %w", err)
	}
	if reply.Type != wire.SystemReply && reply.Type != wire.SystemReplyError {
		return fmt.Errorf("bt auto-port probe: unexpected reply type %s", reply.Type)
	}
	return nil
}

// buildFailure raises ev3pipe.ErrBluetoothAutoPortFailed with every
// attempt's diagnostics and the classifier's aggregate summary, per
// spec.md §7's "codes=..., phase=..., transient=k/n, dynamic=k/n" format.
func (a *AutoPortAdapter) buildFailure(failures []attemptFailure) error {
	messages := make([]string, len(failures))
	lines := make([]string, len(failures))
	for i, f := range failures {
		messages[i] = f.message
		if f.port != "" {
			lines[i] = fmt.Sprintf("pass %d port %s dtr=%v: %s", f.pass, f.port, f.dtr, f.message)
		} else {
			lines[i] = fmt.Sprintf("pass %d: %s", f.pass, f.message)
		}
	}

	summary := btfail.Summarize(messages, btfail.EV3Priority)
	summaryLine := fmt.Sprintf("codes=%v, phase=%s, transient=%d/%d, dynamic=%d/%d",
		summary.WindowsCodes, summary.PrimaryPhase, summary.LikelyTransientCount, summary.Total,
		summary.LikelyDynamicCount, summary.Total)

	return fmt.Errorf("%w: %s\n%s", ev3pipe.ErrBluetoothAutoPortFailed, summaryLine, strings.Join(lines, "\n"))
}

// Close implements ev3pipe.Transport.
func (a *AutoPortAdapter) Close() error {
	if a.active == nil {
		return nil
	}
	err := a.active.Close()
	a.active = nil
	a.activePort = ""
	return err
}

// Send implements ev3pipe.Transport, delegating to the active port.
func (a *AutoPortAdapter) Send(ctx context.Context, pkt wire.Packet, opts ev3pipe.SendOptions) (wire.Packet, error) {
	if a.active == nil {
		return wire.Packet{}, ev3pipe.ErrNotOpen
	}
	return a.active.Send(ctx, pkt, opts)
}

var (
	_ ev3pipe.Transport        = (*AutoPortAdapter)(nil)
	_ ev3pipe.CapableTransport = (*AutoPortAdapter)(nil)
)
