// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"
	"testing"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/operation"
)

var _ connector.Source = &Source{}

// Source is a connector.Source emitting a fixed list of operations. When Err is set it
// is returned after the operations have been emitted.
type Source struct {
	tb   testing.TB
	name string
	ops  []operation.Operation
	lock sync.Mutex

	Err      error
	Requests []connector.SourceRequest
}

func NewSource(tb testing.TB, name string, ops ...operation.Operation) *Source {
	tb.Helper()
	return &Source{tb: tb, name: name, ops: ops}
}

func (s *Source) Name() string {
	return s.name
}

func (s *Source) SourceSync(ctx context.Context, req connector.SourceRequest, out chan<- operation.Operation) error {
	s.tb.Helper()

	s.lock.Lock()
	s.Requests = append(s.Requests, req)
	s.lock.Unlock()

	for _, op := range s.ops {
		if err := link.Send(ctx, out, op); err != nil {
			return err
		}
	}
	return s.Err
}

// LastRequest returns the request of the last sync.
func (s *Source) LastRequest() connector.SourceRequest {
	s.lock.Lock()
	defer s.lock.Unlock()

	if len(s.Requests) == 0 {
		s.tb.Fatal("source never synced")
	}
	return s.Requests[len(s.Requests)-1]
}
