// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		config      Config
		expectedErr error
	}{
		"log": {
			config: Config{Backend: BackendLog},
		},
		"none": {
			config: Config{Backend: BackendNone},
		},
		"kafka without brokers": {
			config:      Config{Backend: BackendKafka},
			expectedErr: ErrMissingEnvVariable,
		},
		"kafka": {
			config: Config{Backend: BackendKafka, KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "events"},
		},
		"pubsub without topic": {
			config:      Config{Backend: BackendPubSub, PubSubProject: "project"},
			expectedErr: ErrMissingEnvVariable,
		},
		"eventhubs without hub name": {
			config:      Config{Backend: BackendEventHubs, EventHubNamespace: "namespace"},
			expectedErr: ErrMissingEnvVariable,
		},
		"eventhubs without namespace": {
			config:      Config{Backend: BackendEventHubs, EventHubName: "hub"},
			expectedErr: ErrMissingEnvVariable,
		},
		"unknown backend": {
			config:      Config{Backend: "carrier-pigeon"},
			expectedErr: ErrUnknownBackend,
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			err := test.config.validate()
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("EVENTS_BACKEND", BackendKafka)
	t.Setenv("EVENTS_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	config, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Backend:      BackendKafka,
		KafkaBrokers: []string{"kafka-1:9092", "kafka-2:9092"},
		KafkaTopic:   "unisync.sync-events",
	}, config)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	bus, err := NewFromConfig(t.Context(), Config{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, bus)

	bus, err = NewFromConfig(t.Context(), Config{Backend: BackendLog})
	require.NoError(t, err)
	require.NotNil(t, bus)
	assert.IsType(t, LogPublisher{}, bus.publisher)

	bus, err = NewFromConfig(t.Context(), Config{Backend: BackendKafka, KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "events"})
	require.NoError(t, err)
	require.NotNil(t, bus)
	assert.IsType(t, &KafkaPublisher{}, bus.publisher)
}
