// Copyright 2024 The pmanager Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bus implements the single shared message pipe every participant
// (supervisor, agents, command helpers) communicates over: each writes
// NUL-terminated frames into one transport and nudges its peer with a
// signal so the peer knows to look. It is the direct translation of
// original_source/src/message.c's message_send/message_wait pair into a
// Go API built on the signaling.Signaler and Transport seams, so it can
// run against a real FIFO or an in-process fake (internal/testbus).
package bus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"

	"pmanager/internal/signaling"
)

// Bus is one participant's view of the shared pipe: it knows its own pid
// (stamped into every frame it sends), the transport the frames travel
// over, and how to signal and be signaled.
//
// Frames addressed to a sender other than the one a caller is currently
// Wait-ing for are not discarded: a peer accumulates frames meant for
// others and services them on a later loop iteration. Bus models this
// with a pending queue rather than trusting OS signal metadata for the
// sender pid (which Go's os/signal cannot expose) — the authoritative
// sender pid is always the one encoded in the frame itself.
type Bus struct {
	pid       int
	transport Transport
	signaler  signaling.Signaler
	nudgeSig  syscall.Signal

	events <-chan os.Signal

	mu      sync.Mutex
	buf     []byte
	pending []Message
	closed  bool

	stopEvents func()
}

// New creates a Bus for pid, communicating over t and nudging/being
// nudged with nudgeSig via s.
func New(pid int, t Transport, s signaling.Signaler, nudgeSig syscall.Signal) *Bus {
	b := &Bus{
		pid:       pid,
		transport: t,
		signaler:  s,
		nudgeSig:  nudgeSig,
	}
	events, stop := s.Notify(nudgeSig)
	b.events = events
	b.stopEvents = stop
	return b
}

// Events returns the channel that fires whenever this bus's pid is
// nudged. Callers that need to interleave bus traffic with other event
// sources (an agent's main loop) select on this directly instead of
// going through Wait.
func (b *Bus) Events() <-chan os.Signal {
	return b.events
}

// Close releases the bus's signal registration and underlying transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.stopEvents()
	return b.transport.Close()
}

// Send writes a frame addressed from this bus's pid to `to`, then nudges
// `to` so it knows a frame is waiting. The nudge is retried with backoff
// since signal delivery to a pid that is mid-fork or briefly unscheduled
// can transiently fail.
func (b *Bus) Send(to int, kind Kind, payload string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.mu.Unlock()

	frame := encode(Message{SenderPid: b.pid, Kind: kind, Payload: payload})
	if _, err := b.transport.Write(frame); err != nil {
		return fmt.Errorf("bus: write frame: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Second
	op := func() error { return b.signaler.Send(to, b.nudgeSig) }
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("%w: %v", ErrNudgeFailed, err)
	}
	return nil
}

// nextFrame attempts to assemble one complete frame from the transport
// without blocking. ok is false when the transport currently has no more
// bytes to offer.
func (b *Bus) nextFrame() (m Message, ok bool, err error) {
	for {
		c, rerr := b.transport.ReadByte()
		if errors.Is(rerr, ErrWouldBlock) {
			return Message{}, false, nil
		}
		if rerr != nil {
			return Message{}, false, rerr
		}
		if c == 0 {
			frame := b.buf
			b.buf = nil
			m, derr := decode(frame)
			if derr != nil {
				return Message{}, false, derr
			}
			return m, true, nil
		}
		b.buf = append(b.buf, c)
	}
}

// Read returns the next message addressed to anyone, without regard to
// sender, first draining the pending queue. It returns ErrWouldBlock if
// nothing is available right now.
func (b *Bus) Read() (Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Message{}, ErrClosed
	}
	if len(b.pending) > 0 {
		m := b.pending[0]
		b.pending = b.pending[1:]
		return m, nil
	}
	m, ok, err := b.nextFrame()
	if err != nil {
		return Message{}, err
	}
	if !ok {
		return Message{}, ErrWouldBlock
	}
	return m, nil
}

// Unread pushes m back onto the front of the pending queue, so a later
// Read or Wait sees it again, for a caller that peeked at a message it
// turns out not to be ready to consume yet. No caller in this module
// outside the tests uses it.
func (b *Bus) Unread(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append([]Message{m}, b.pending...)
}

// Wait blocks until a message from `from` (or AnyPid for any sender) is
// available, buffering any other senders' frames it encounters along the
// way into the pending queue rather than dropping them.
func (b *Bus) Wait(ctx context.Context, from int) (Message, error) {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return Message{}, ErrClosed
		}
		for i, m := range b.pending {
			if from == AnyPid || m.SenderPid == from {
				b.pending = append(b.pending[:i:i], b.pending[i+1:]...)
				b.mu.Unlock()
				return m, nil
			}
		}
		for {
			m, ok, err := b.nextFrame()
			if err != nil {
				b.mu.Unlock()
				return Message{}, err
			}
			if !ok {
				break
			}
			if from == AnyPid || m.SenderPid == from {
				b.mu.Unlock()
				return m, nil
			}
			b.pending = append(b.pending, m)
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case _, open := <-b.events:
			if !open {
				return Message{}, ErrClosed
			}
		}
	}
}
