// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/unisync/internal/operation"
)

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		configs     []Config
		expectedLen int
		expectedErr error
	}{
		"no links": {
			configs: nil,
		},
		"known links in order": {
			configs: []Config{
				{Name: "log", Options: Options{"level": "trace"}},
				{Name: "prefixConnectorName"},
				{Name: "singleTable", Options: Options{"table": "records"}},
				{Name: "mergeReady", Options: Options{"expected": 2}},
			},
			expectedLen: 4,
		},
		"unknown link is fatal": {
			configs:     []Config{{Name: "log"}, {Name: "doesNotExist"}},
			expectedErr: ErrUnknownLink,
		},
		"missing required option": {
			configs:     []Config{{Name: "singleTable"}},
			expectedErr: ErrInvalidOption,
		},
		"invalid option type": {
			configs:     []Config{{Name: "mergeReady", Options: Options{"expected": "two"}}},
			expectedErr: ErrInvalidOption,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			links, err := DefaultRegistry().Resolve(test.configs)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				assert.Nil(t, links)
				return
			}

			require.NoError(t, err)
			assert.Len(t, links, test.expectedLen)
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	registry := DefaultRegistry()
	err := registry.Register("log", func(Options) (Link, error) { return Identity(), nil })
	assert.ErrorIs(t, err, ErrDuplicateLink)

	require.NoError(t, registry.Register("custom", func(Options) (Link, error) { return Identity(), nil }))
	assert.Contains(t, registry.Names(), "custom")
}

func TestResolvedChainRuns(t *testing.T) {
	t.Parallel()

	links, err := DefaultRegistry().Resolve([]Config{
		{Name: "renameEntity", Options: Options{"entities": map[string]any{"transaction": "txn"}}},
		{Name: "prefixConnectorName"},
	})
	require.NoError(t, err)

	output, err := Apply(t.Context(), Chain(links...), data("1", nil))
	require.NoError(t, err)
	require.Len(t, output, 1)
	assert.Equal(t, "sandbox_txn", output[0].Data.EntityName)
	assert.Equal(t, operation.TypeData, output[0].Type)
}
