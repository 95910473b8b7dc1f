// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package link implements the composable stream transformers placed between a source
// and a destination. Every link reads operations from its input channel and writes the
// resulting operations to its output channel; links are chained over unbuffered
// channels so a slow consumer pauses its producers and operations keep their order.
package link

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mia-platform/unisync/internal/operation"
)

const loggerName = "unisync:link"

// Link transforms a stream of operations. A Link must keep reading in until it is
// closed, must not close out and must abort every blocking send when ctx is done.
type Link func(ctx context.Context, in <-chan operation.Operation, out chan<- operation.Operation) error

// Producer writes a stream of operations to out and returns when it is exhausted.
type Producer func(ctx context.Context, out chan<- operation.Operation) error

// Consumer reads in until it is closed.
type Consumer func(ctx context.Context, in <-chan operation.Operation) error

// Send writes op to out or returns the context error if ctx is done first.
func Send(ctx context.Context, out chan<- operation.Operation, op operation.Operation) error {
	select {
	case out <- op:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Identity passes every operation through unchanged.
func Identity() Link {
	return func(ctx context.Context, in <-chan operation.Operation, out chan<- operation.Operation) error {
		for op := range in {
			if err := Send(ctx, out, op); err != nil {
				return err
			}
		}
		return nil
	}
}

// Chain composes links strictly left to right. Each link runs in its own goroutine and
// the first failure cancels the others.
func Chain(links ...Link) Link {
	switch len(links) {
	case 0:
		return Identity()
	case 1:
		return links[0]
	}

	return func(ctx context.Context, in <-chan operation.Operation, out chan<- operation.Operation) error {
		group, groupCtx := errgroup.WithContext(ctx)

		current := in
		for idx, link := range links {
			if idx == len(links)-1 {
				input := current
				group.Go(func() error {
					return link(groupCtx, input, out)
				})
				break
			}

			next := make(chan operation.Operation)
			input := current
			group.Go(func() error {
				defer close(next)
				return link(groupCtx, input, next)
			})
			current = next
		}

		return group.Wait()
	}
}

// Run drives a whole stream: the operations written by produce go through link and are
// read by consume. Run returns the first error returned by any of the three stages.
func Run(ctx context.Context, produce Producer, link Link, consume Consumer) error {
	group, groupCtx := errgroup.WithContext(ctx)

	source := make(chan operation.Operation)
	sink := make(chan operation.Operation)

	group.Go(func() error {
		defer close(source)
		return produce(groupCtx, source)
	})
	group.Go(func() error {
		defer close(sink)
		return link(groupCtx, source, sink)
	})
	group.Go(func() error {
		return consume(groupCtx, sink)
	})

	return group.Wait()
}

// FromSlice returns a Producer emitting ops in order.
func FromSlice(ops ...operation.Operation) Producer {
	return func(ctx context.Context, out chan<- operation.Operation) error {
		for _, op := range ops {
			if err := Send(ctx, out, op); err != nil {
				return err
			}
		}
		return nil
	}
}

// Apply runs link over ops and returns everything it emitted.
func Apply(ctx context.Context, link Link, ops ...operation.Operation) ([]operation.Operation, error) {
	collected := make([]operation.Operation, 0, len(ops))
	err := Run(ctx, FromSlice(ops...), link, func(_ context.Context, in <-chan operation.Operation) error {
		for op := range in {
			collected = append(collected, op)
		}
		return nil
	})

	return collected, err
}
