// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"
	"testing"

	"github.com/mia-platform/unisync/internal/events"
)

var _ events.Emitter = &Emitter{}
var _ events.Publisher = &Publisher{}

// Emitter records the emitted events.
type Emitter struct {
	tb testing.TB

	lock   sync.Mutex
	events []events.Event
}

func NewEmitter(tb testing.TB) *Emitter {
	tb.Helper()
	return &Emitter{tb: tb}
}

func (e *Emitter) Emit(_ context.Context, name string, payload events.Payload) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.events = append(e.events, events.Event{Name: name, Payload: payload})
}

// Events returns the events emitted so far.
func (e *Emitter) Events() []events.Event {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]events.Event(nil), e.events...)
}

// Publisher records the published events and fails with Err when set.
type Publisher struct {
	tb  testing.TB
	Err error

	lock      sync.Mutex
	published []events.Event
	closed    bool
}

func NewPublisher(tb testing.TB) *Publisher {
	tb.Helper()
	return &Publisher{tb: tb}
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	if _, ok := ctx.Deadline(); !ok {
		p.tb.Error("publish called without a deadline")
	}
	if p.Err != nil {
		return p.Err
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	p.published = append(p.published, event)
	return nil
}

func (p *Publisher) Close(context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed = true
	return nil
}

// Published returns the events published so far.
func (p *Publisher) Published() []events.Event {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]events.Event(nil), p.published...)
}

// Closed reports whether Close was called.
func (p *Publisher) Closed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}
