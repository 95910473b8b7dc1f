// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/unisync/internal/store"
	fakestore "github.com/mia-platform/unisync/internal/store/fake"
)

func TestEnsureDefaultPipeline(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		org              *store.Org
		connectionOrg    string
		existing         *store.Pipeline
		expectedCreated  bool
		expectedPipeline bool
	}{
		"creates the default pipeline": {
			org:              &store.Org{ID: "org_1", DefaultDestinationID: "conn_db"},
			connectionOrg:    "org_1",
			expectedCreated:  true,
			expectedPipeline: true,
		},
		"returns the existing default pipeline": {
			org:              &store.Org{ID: "org_1", DefaultDestinationID: "conn_db"},
			connectionOrg:    "org_1",
			existing:         &store.Pipeline{ID: "pipe_default", SourceID: "conn_src", DestinationID: "conn_db"},
			expectedPipeline: true,
		},
		"keeps connections wired elsewhere": {
			org:           &store.Org{ID: "org_1", DefaultDestinationID: "conn_db"},
			connectionOrg: "org_1",
			existing:      &store.Pipeline{ID: "pipe_other", SourceID: "conn_src", DestinationID: "conn_other"},
		},
		"org without default destination": {
			org:           &store.Org{ID: "org_1"},
			connectionOrg: "org_1",
		},
		"connection without org": {},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := fakestore.NewStore(t)
			if test.org != nil {
				require.NoError(t, s.PutOrg(t.Context(), *test.org))
			}
			_, err := s.CreateConnection(t.Context(), store.Connection{ID: "conn_src", ConnectorName: "plaid", OrgID: test.connectionOrg})
			require.NoError(t, err)
			if test.existing != nil {
				_, _, err := s.CreatePipeline(t.Context(), *test.existing)
				require.NoError(t, err)
			}

			provisioner := NewProvisioner(s)
			pipeline, created, err := provisioner.EnsureDefaultPipeline(t.Context(), "conn_src")
			require.NoError(t, err)
			assert.Equal(t, test.expectedCreated, created)
			if !test.expectedPipeline {
				assert.Empty(t, pipeline.ID)
				return
			}
			assert.Equal(t, "conn_src", pipeline.SourceID)
			assert.Equal(t, "conn_db", pipeline.DestinationID)

			again, created, err := provisioner.EnsureDefaultPipeline(t.Context(), "conn_src")
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, pipeline.ID, again.ID)
		})
	}
}

func TestEnsureDefaultPipelineUnknownConnection(t *testing.T) {
	t.Parallel()

	_, _, err := NewProvisioner(fakestore.NewStore(t)).EnsureDefaultPipeline(t.Context(), "conn_missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}
