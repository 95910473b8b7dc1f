// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/mia-platform/unisync/internal/destination"
)

// Writer records the batches written through a destination.Batch link. When Err is set
// every write fails with it.
type Writer struct {
	tb   testing.TB
	lock sync.Mutex

	Batches [][]destination.Record
	Err     error
}

func NewWriter(tb testing.TB) *Writer {
	tb.Helper()
	return &Writer{tb: tb}
}

// Write implements destination.WriteFunc.
func (w *Writer) Write(_ context.Context, records []destination.Record) error {
	w.tb.Helper()

	w.lock.Lock()
	defer w.lock.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.Batches = append(w.Batches, slices.Clone(records))
	return nil
}

// Records returns every written record in order.
func (w *Writer) Records() []destination.Record {
	w.lock.Lock()
	defer w.lock.Unlock()
	return slices.Concat(w.Batches...)
}
