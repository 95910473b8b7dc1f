// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/vertical"
	"github.com/mia-platform/unisync/internal/vertical/banking"
)

type named string

func (n named) Name() string { return string(n) }

type testSource struct{ named }

func (testSource) SourceSync(context.Context, SourceRequest, chan<- operation.Operation) error {
	return nil
}

type testDestination struct{ named }

func (testDestination) DestinationSync(context.Context, DestinationRequest) (link.Link, error) {
	return link.Identity(), nil
}

type accountsAdapter struct{}

func (accountsAdapter) ListAccounts(context.Context, vertical.Request[vertical.ListInput]) (vertical.Page[banking.Account], error) {
	return vertical.NewPage[banking.Account](nil, nil), nil
}

type testAdapter struct {
	named
	adapter any
}

func (a testAdapter) Adapter() any { return a.adapter }

type closableInstance struct{ closed bool }

func (c *closableInstance) Close(context.Context) error {
	c.closed = true
	return nil
}

type factory struct{ named }

func (factory) SourceSync(context.Context, SourceRequest, chan<- operation.Operation) error {
	return nil
}

func (factory) NewInstance(_ context.Context, connection store.Connection, onSettingsChanged SettingsChanged) (any, error) {
	return connection.ID, onSettingsChanged(context.Background(), map[string]any{"token": "new"})
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		connectors    []Connector
		expectedNames []string
		expectedErr   error
	}{
		"sources, destinations and adapters": {
			connectors: []Connector{
				testSource{"b-source"},
				testDestination{"a-destination"},
				testAdapter{named: "c-adapter", adapter: accountsAdapter{}},
			},
			expectedNames: []string{"a-destination", "b-source", "c-adapter"},
		},
		"connector without capabilities": {
			connectors:  []Connector{named("plain")},
			expectedErr: ErrInvalidConnector,
		},
		"duplicated name": {
			connectors:  []Connector{testSource{"dup"}, testDestination{"dup"}},
			expectedErr: ErrInvalidConnector,
		},
		"empty name": {
			connectors:  []Connector{testSource{""}},
			expectedErr: ErrInvalidConnector,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			registry, err := NewRegistry(test.connectors...)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				assert.Nil(t, registry)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expectedNames, registry.Names())
		})
	}
}

func TestRegistryLookups(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(testSource{"source"}, testDestination{"destination"})
	require.NoError(t, err)

	_, err = registry.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownConnector)

	source, err := registry.Source("source")
	require.NoError(t, err)
	assert.Equal(t, "source", source.Name())
	_, err = registry.Source("destination")
	assert.ErrorIs(t, err, ErrNotASource)

	destination, err := registry.Destination("destination")
	require.NoError(t, err)
	assert.Equal(t, "destination", destination.Name())
	_, err = registry.Destination("source")
	assert.ErrorIs(t, err, ErrNotADestination)
}

func TestRegisterAdapters(t *testing.T) {
	t.Parallel()

	router := vertical.NewRouter(banking.New())
	registry, err := NewRegistry(
		testSource{"source"},
		testAdapter{named: "bank", adapter: accountsAdapter{}},
	)
	require.NoError(t, err)
	require.NoError(t, registry.RegisterAdapters(t.Context(), router))

	_, err = router.RegisterAdapter("other", struct{}{})
	assert.ErrorIs(t, err, vertical.ErrInvalidAdapter)

	invalid, err := NewRegistry(testAdapter{named: "broken", adapter: struct{}{}})
	require.NoError(t, err)
	assert.ErrorIs(t, invalid.RegisterAdapters(t.Context(), router), vertical.ErrInvalidAdapter)
}

func TestInstances(t *testing.T) {
	t.Parallel()

	var saved map[string]any
	onSettingsChanged := func(_ context.Context, settings map[string]any) error {
		saved = settings
		return nil
	}

	instance, err := NewInstance(t.Context(), factory{"factory"}, store.Connection{ID: "conn_1"}, onSettingsChanged)
	require.NoError(t, err)
	assert.Equal(t, "conn_1", instance)
	assert.Equal(t, map[string]any{"token": "new"}, saved)

	instance, err = NewInstance(t.Context(), testSource{"plain"}, store.Connection{ID: "conn_2"}, onSettingsChanged)
	require.NoError(t, err)
	assert.Nil(t, instance)

	closable := &closableInstance{}
	require.NoError(t, CloseInstance(t.Context(), closable))
	assert.True(t, closable.closed)
	require.NoError(t, CloseInstance(t.Context(), "not closable"))

	typed, err := InstanceAs[string]("conn_1")
	require.NoError(t, err)
	assert.Equal(t, "conn_1", typed)
	_, err = InstanceAs[int]("conn_1")
	assert.ErrorIs(t, err, ErrUnexpectedInstance)
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	type settings struct {
		Token   string `json:"token"`
		Retries int    `json:"retries"`
	}

	encoded, err := EncodeSettings(settings{Token: "abc", Retries: 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"token": "abc", "retries": float64(2)}, encoded)

	decoded, err := DecodeSettings[settings](store.Connection{Settings: encoded})
	require.NoError(t, err)
	assert.Equal(t, settings{Token: "abc", Retries: 2}, decoded)

	_, err = DecodeSettings[settings](store.Connection{Settings: map[string]any{"retries": "many"}})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	request := SourceRequest{}
	assert.True(t, request.StreamEnabled("anything"))
	request.Streams = map[string]bool{"accounts": true}
	assert.True(t, request.StreamEnabled("accounts"))
	assert.False(t, request.StreamEnabled("transactions"))
}
