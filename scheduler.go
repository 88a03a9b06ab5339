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
	"sync"
	"time"

	"github.com/ev3cockpit/ev3pipe/wire"
)

// Lane names a scheduling priority. Requests dispatch highest-lane-first;
// within a lane, FIFO.
type Lane int

const (
	LaneHigh Lane = iota
	LaneNormal
	LaneLow
	laneCount
)

// String implements fmt.Stringer.
func (l Lane) String() string {
	switch l {
	case LaneHigh:
		return "high"
	case LaneNormal:
		return "normal"
	case LaneLow:
		return "low"
	default:
		return "unknown"
	}
}

// CommandRequest is one unit of work submitted to a Scheduler (spec.md
// §3 "Command request").
type CommandRequest struct {
	ID              string
	Lane            Lane
	Idempotent      bool
	Timeout         time.Duration
	Type            wire.PacketType
	Payload         []byte
	ExpectedCounter *uint16
}

// CommandResult is what a successful Send produces (spec.md §3 "Command
// result").
type CommandResult struct {
	RequestID  string
	Counter    uint16
	Reply      wire.Packet
	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

type pendingRequest struct {
	ctx        context.Context
	req        CommandRequest
	enqueuedAt time.Time
	resultCh   chan schedulerOutcome
}

type schedulerOutcome struct {
	result CommandResult
	err    error
}

// defaultForceCloseGrace is how long dispatch waits, after a dispatched
// request's context has already expired, for Transport.Send to notice and
// return before forcing the transport closed out from under it.
const defaultForceCloseGrace = 2 * time.Second

// Scheduler enforces the single-in-flight-per-transport invariant over a
// Transport, assigning message counters and dispatching queued requests
// lane-first, FIFO within a lane (spec.md §4.10).
type Scheduler struct {
	transport Transport

	mu            sync.Mutex
	queues        [laneCount][]*pendingRequest
	notify        chan struct{}
	closed        bool
	closeCh       chan struct{}
	currentCancel context.CancelFunc

	counterMu sync.Mutex
	counter   uint16

	forceCloseGrace time.Duration

	wg sync.WaitGroup
}

// NewScheduler wraps transport with a lane-prioritized dispatcher. The
// transport is not opened automatically; call Open.
func NewScheduler(transport Transport) *Scheduler {
	s := &Scheduler{
		transport:       transport,
		notify:          make(chan struct{}, 1),
		closeCh:         make(chan struct{}),
		forceCloseGrace: defaultForceCloseGrace,
	}
	s.wg.Add(1)
	go s.dispatchLoop()
	return s
}

// SetForceCloseGrace overrides the grace window dispatch allows
// Transport.Send to return in after its context has expired, before
// force-closing the transport (spec.md §4.10). A shorter window makes
// the force-close happen sooner after the deadline.
func (s *Scheduler) SetForceCloseGrace(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceCloseGrace = d
}

// watchForceClose force-closes the transport if sendCtx expires and
// Send still hasn't returned (signaled by closing sendDone) within the
// scheduler's grace window.
func (s *Scheduler) watchForceClose(sendCtx context.Context, sendDone <-chan struct{}, requestID string) {
	select {
	case <-sendDone:
		return
	case <-sendCtx.Done():
	}

	s.mu.Lock()
	grace := s.forceCloseGrace
	s.mu.Unlock()

	select {
	case <-sendDone:
	case <-time.After(grace):
		debugf("scheduler: dispatch id=%s did not return within grace window, force-closing transport", requestID)
		_ = s.transport.Close()
	}
}

// Open opens the underlying transport.
func (s *Scheduler) Open(ctx context.Context) error {
	return s.transport.Open(ctx)
}

// Close stops dispatching new requests, cancels any in-flight send,
// rejects anything still queued with ErrTransportClosed, and closes the
// underlying transport. Close is idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closeCh)
	if s.currentCancel != nil {
		s.currentCancel()
	}
	pending := s.drainLocked()
	s.mu.Unlock()

	for _, p := range pending {
		p.resultCh <- schedulerOutcome{err: ErrTransportClosed}
	}

	s.wg.Wait()
	return s.transport.Close()
}

func (s *Scheduler) drainLocked() []*pendingRequest {
	var all []*pendingRequest
	for lane := range s.queues {
		all = append(all, s.queues[lane]...)
		s.queues[lane] = nil
	}
	return all
}

// Send enqueues req and blocks until it is dispatched and resolved, ctx
// is cancelled, or the scheduler closes. Per-request timeout (req.Timeout)
// starts at dispatch time, not at enqueue.
func (s *Scheduler) Send(ctx context.Context, req CommandRequest) (CommandResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return CommandResult{}, ErrTransportClosed
	}
	p := &pendingRequest{
		ctx:        ctx,
		req:        req,
		enqueuedAt: time.Now(),
		resultCh:   make(chan schedulerOutcome, 1),
	}
	s.queues[req.Lane] = append(s.queues[req.Lane], p)
	s.mu.Unlock()
	s.kick()

	select {
	case outcome := <-p.resultCh:
		return outcome.result, outcome.err
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

func (s *Scheduler) kick() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.closeCh:
			return
		case <-s.notify:
		}

		for {
			p := s.popNextLocked()
			if p == nil {
				break
			}
			s.dispatch(p)
		}
	}
}

func (s *Scheduler) popNextLocked() *pendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for lane := range s.queues {
		q := s.queues[lane]
		if len(q) == 0 {
			continue
		}
		s.queues[lane] = q[1:]
		return q[0]
	}
	return nil
}

func (s *Scheduler) dispatch(p *pendingRequest) {
	startedAt := time.Now()

	counter := p.req.ExpectedCounter
	if counter == nil {
		counter = s.nextCounter()
	}

	pkt := wire.Packet{Counter: *counter, Type: p.req.Type, Payload: p.req.Payload}

	var sendCtx context.Context
	var cancel context.CancelFunc
	if p.req.Timeout > 0 {
		sendCtx, cancel = context.WithTimeout(p.ctx, p.req.Timeout)
	} else {
		sendCtx, cancel = context.WithCancel(p.ctx)
	}
	defer cancel()

	s.mu.Lock()
	s.currentCancel = cancel
	s.mu.Unlock()

	cancelCh := make(chan struct{})
	go func() {
		<-sendCtx.Done()
		close(cancelCh)
	}()

	// spec.md §4.10: once sendCtx expires, the transport gets a short
	// grace window to return on its own before it is force-closed. This
	// is the escape hatch for a Transport.Send that doesn't honor
	// ctx.Done()/opts.Cancel promptly.
	sendDone := make(chan struct{})
	go s.watchForceClose(sendCtx, sendDone, p.req.ID)

	debugf("scheduler: dispatch id=%s lane=%s counter=%d type=%s", p.req.ID, p.req.Lane, *counter, p.req.Type)

	retryCfg := noRetryConfig()
	if p.req.Idempotent {
		retryCfg = LaneRetryConfig(p.req.Lane)
	}

	var reply wire.Packet
	err := RetryWithConfig(sendCtx, retryCfg, func() error {
		r, sendErr := s.transport.Send(sendCtx, pkt, SendOptions{
			Timeout:         p.req.Timeout,
			Cancel:          cancelCh,
			ExpectedCounter: counter,
		})
		if sendErr != nil {
			return sendErr
		}
		if pmErr := checkProtocolMatch(p.req.Type, *counter, r); pmErr != nil {
			return pmErr
		}
		reply = r
		return nil
	})
	close(sendDone)
	finishedAt := time.Now()

	s.mu.Lock()
	s.currentCancel = nil
	s.mu.Unlock()

	if err != nil {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		switch {
		case closed:
			err = ErrTransportClosed
		case p.ctx.Err() != nil:
			err = ErrAborted
		case sendCtx.Err() != nil:
			err = ErrTimeout
		}
		debugf("scheduler: dispatch id=%s failed: %v", p.req.ID, err)
		p.resultCh <- schedulerOutcome{err: err}
		return
	}

	p.resultCh <- schedulerOutcome{result: CommandResult{
		RequestID:  p.req.ID,
		Counter:    *counter,
		Reply:      reply,
		EnqueuedAt: p.enqueuedAt,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Duration:   finishedAt.Sub(startedAt),
	}}
}

// checkProtocolMatch verifies the reply's counter and family agree with
// the request that solicited it (spec.md §4.10 "ProtocolMismatch").
func checkProtocolMatch(reqType wire.PacketType, counter uint16, reply wire.Packet) error {
	if reply.Counter != counter {
		return fmt.Errorf("%w: counter %d, expected %d", ErrProtocolMismatch, reply.Counter, counter)
	}
	switch {
	case reqType.IsDirect() && !(reply.Type == wire.DirectReply || reply.Type == wire.DirectReplyError):
		return fmt.Errorf("%w: direct request answered by %s", ErrProtocolMismatch, reply.Type)
	case reqType.IsSystem() && !(reply.Type == wire.SystemReply || reply.Type == wire.SystemReplyError):
		return fmt.Errorf("%w: system request answered by %s", ErrProtocolMismatch, reply.Type)
	}
	return nil
}

func (s *Scheduler) nextCounter() *uint16 {
	s.counterMu.Lock()
	defer s.counterMu.Unlock()
	c := s.counter
	s.counter++
	return &c
}
