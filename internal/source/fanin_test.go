// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/operation"
)

func collect(t *testing.T, producer link.Producer) ([]operation.Operation, error) {
	t.Helper()

	collected := make([]operation.Operation, 0)
	err := link.Run(t.Context(), producer, link.Identity(), func(_ context.Context, in <-chan operation.Operation) error {
		for op := range in {
			collected = append(collected, op)
		}
		return nil
	})
	return collected, err
}

func TestFanIn(t *testing.T) {
	t.Parallel()

	first := []operation.Operation{
		operation.NewData("a1", "account", nil, "plaid"),
		operation.NewData("a2", "account", nil, "plaid"),
	}
	second := []operation.Operation{
		operation.NewData("b1", "account", nil, "plaid"),
	}

	ops, err := collect(t, FanIn(
		SubSource{Name: "item-a", Produce: link.FromSlice(first...)},
		SubSource{Name: "item-b", Produce: link.FromSlice(second...)},
	))
	require.NoError(t, err)
	require.Len(t, ops, 4)

	assert.Equal(t, operation.NewReady(""), ops[3])
	data := make([]string, 0, 3)
	for _, op := range ops[:3] {
		require.Equal(t, operation.TypeData, op.Type)
		data = append(data, op.Data.ID)
	}
	assert.ElementsMatch(t, []string{"a1", "a2", "b1"}, data)
	assert.Less(t, indexOf(data, "a1"), indexOf(data, "a2"))
}

func TestFanInFailure(t *testing.T) {
	t.Parallel()

	failure := errors.New("item login required")
	_, err := collect(t, FanIn(
		SubSource{Name: "item-a", Produce: link.FromSlice(operation.NewData("a1", "account", nil, "plaid"))},
		SubSource{Name: "item-b", Produce: func(context.Context, chan<- operation.Operation) error { return failure }},
	))
	require.ErrorIs(t, err, failure)
}

func TestFanInRejectsExtraReady(t *testing.T) {
	t.Parallel()

	_, err := collect(t, FanIn(
		SubSource{Name: "item-a", Produce: link.FromSlice(operation.NewReady("nested"))},
	))
	require.ErrorIs(t, err, link.ErrReadyOvershoot)
}

func indexOf(values []string, value string) int {
	for idx, v := range values {
		if v == value {
			return idx
		}
	}
	return -1
}
