// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package events

import (
	"context"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

// PubSubPublisher publishes the events on a Google Cloud Pub/Sub topic. Messages of the
// same pipeline share the ordering key.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// NewPubSubPublisher returns a publisher for topic, a topic id or its full name, of
// projectID.
func NewPubSubPublisher(ctx context.Context, projectID, topic string, opts ...option.ClientOption) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}

	publisher := client.Publisher(topic)
	publisher.EnableMessageOrdering = true
	return &PubSubPublisher{client: client, publisher: publisher}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, event Event) error {
	data, err := event.Encode()
	if err != nil {
		return err
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: event.Key(),
		Attributes:  map[string]string{"event": event.Name},
	})
	if _, err := result.Get(ctx); err != nil {
		p.publisher.ResumePublish(event.Key())
		return err
	}
	return nil
}

func (p *PubSubPublisher) Close(context.Context) error {
	p.publisher.Stop()
	return p.client.Close()
}
