// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	BackendNone      = "none"
	BackendLog       = "log"
	BackendKafka     = "kafka"
	BackendPubSub    = "pubsub"
	BackendEventHubs = "eventhubs"
)

var (
	ErrUnknownBackend     = errors.New("unknown events backend")
	ErrMissingEnvVariable = errors.New("missing environment variable")
)

// Config selects and configures the events backend.
type Config struct {
	Backend string `env:"EVENTS_BACKEND" envDefault:"log"`

	KafkaBrokers []string `env:"EVENTS_KAFKA_BROKERS"`
	KafkaTopic   string   `env:"EVENTS_KAFKA_TOPIC" envDefault:"unisync.sync-events"`

	PubSubProject string `env:"EVENTS_PUBSUB_PROJECT"`
	PubSubTopic   string `env:"EVENTS_PUBSUB_TOPIC"`

	EventHubConnectionString string `env:"EVENTS_EVENT_HUB_CONNECTION_STRING"`
	EventHubNamespace        string `env:"EVENTS_EVENT_HUB_NAMESPACE"`
	EventHubName             string `env:"EVENTS_EVENT_HUB_NAME"`
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendNone, BackendLog:
	case BackendKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "EVENTS_KAFKA_BROKERS")
		}
	case BackendPubSub:
		if c.PubSubProject == "" || c.PubSubTopic == "" {
			return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "EVENTS_PUBSUB_PROJECT, EVENTS_PUBSUB_TOPIC")
		}
	case BackendEventHubs:
		if c.EventHubConnectionString == "" && c.EventHubNamespace == "" {
			return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "one of EVENTS_EVENT_HUB_CONNECTION_STRING or EVENTS_EVENT_HUB_NAMESPACE")
		}
		if c.EventHubName == "" {
			return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "EVENTS_EVENT_HUB_NAME")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	return nil
}

// ConfigFromEnv reads the events configuration from the environment.
func ConfigFromEnv() (Config, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	return config, config.validate()
}

// NewFromConfig returns the Bus of the configured backend; nil for BackendNone.
func NewFromConfig(ctx context.Context, config Config) (*Bus, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	var publisher Publisher
	switch config.Backend {
	case BackendNone:
		return nil, nil
	case BackendLog:
		publisher = LogPublisher{}
	case BackendKafka:
		publisher = NewKafkaPublisher(config.KafkaBrokers, config.KafkaTopic)
	case BackendPubSub:
		pubsubPublisher, err := NewPubSubPublisher(ctx, config.PubSubProject, config.PubSubTopic)
		if err != nil {
			return nil, err
		}
		publisher = pubsubPublisher
	case BackendEventHubs:
		eventHubsPublisher, err := NewEventHubsPublisher(config.EventHubConnectionString, config.EventHubNamespace, config.EventHubName)
		if err != nil {
			return nil, err
		}
		publisher = eventHubsPublisher
	}

	return NewBus(config.Backend, publisher), nil
}
