// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/mia-platform/unisync/internal/operation"
)

// ErrReadyOvershoot is a protocol violation: more ready signals than expected sources.
var ErrReadyOvershoot = errors.New("received more ready operations than expected")

// MergeReady swallows ready operations until expected of them are received, then emits a
// single ready. One more ready after that fails the stream; fewer never emit.
func MergeReady(expected int) Link {
	return func(ctx context.Context, in <-chan operation.Operation, out chan<- operation.Operation) error {
		count := 0
		for op := range in {
			if op.Type != operation.TypeReady {
				if err := Send(ctx, out, op); err != nil {
					return err
				}
				continue
			}

			count++
			switch {
			case count > expected:
				return fmt.Errorf("%w: %d of %d", ErrReadyOvershoot, count, expected)
			case count == expected:
				if err := Send(ctx, out, operation.NewReady("")); err != nil {
					return err
				}
			}
		}

		return nil
	}
}
