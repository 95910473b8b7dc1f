// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package source

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/operation"
)

// SubSource is one independent part of a source, for example one provider account.
type SubSource struct {
	Name    string
	Produce link.Producer
}

// FanIn runs the sub-sources concurrently and merges their streams. Every sub-source
// ends with a ready operation; a single ready is emitted once all of them are done. The
// operations of each sub-source keep their relative order.
func FanIn(subSources ...SubSource) link.Producer {
	return func(ctx context.Context, out chan<- operation.Operation) error {
		group, groupCtx := errgroup.WithContext(ctx)
		merged := make(chan operation.Operation)

		producers, producersCtx := errgroup.WithContext(groupCtx)
		for _, sub := range subSources {
			producers.Go(func() error {
				if err := sub.Produce(producersCtx, merged); err != nil {
					return err
				}
				return link.Send(producersCtx, merged, operation.NewReady(sub.Name))
			})
		}

		group.Go(func() error {
			defer close(merged)
			return producers.Wait()
		})
		group.Go(func() error {
			return link.MergeReady(len(subSources))(groupCtx, merged, out)
		})

		return group.Wait()
	}
}
