// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package events

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs/v2"
)

// EventHubsPublisher sends the events to an Azure Event Hub, partitioned by pipeline.
type EventHubsPublisher struct {
	producer *azeventhubs.ProducerClient
}

// NewEventHubsPublisher returns a publisher for eventHub. A connection string takes
// precedence over the namespace, which uses the default Azure credentials.
func NewEventHubsPublisher(connectionString, namespace, eventHub string) (*EventHubsPublisher, error) {
	if connectionString != "" {
		producer, err := azeventhubs.NewProducerClientFromConnectionString(connectionString, eventHub, nil)
		if err != nil {
			return nil, err
		}
		return &EventHubsPublisher{producer: producer}, nil
	}

	credentials, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	producer, err := azeventhubs.NewProducerClient(fullyQualifiedNamespace(namespace), eventHub, credentials, nil)
	if err != nil {
		return nil, err
	}
	return &EventHubsPublisher{producer: producer}, nil
}

func fullyQualifiedNamespace(namespace string) string {
	if strings.Contains(namespace, ".servicebus.windows.net") {
		return namespace
	}

	return namespace + ".servicebus.windows.net"
}

func (p *EventHubsPublisher) Publish(ctx context.Context, event Event) error {
	data, err := eventData(event)
	if err != nil {
		return err
	}

	key := event.Key()
	batch, err := p.producer.NewEventDataBatch(ctx, &azeventhubs.EventDataBatchOptions{PartitionKey: &key})
	if err != nil {
		return err
	}
	if err := batch.AddEventData(data, nil); err != nil {
		return err
	}
	return p.producer.SendEventDataBatch(ctx, batch, nil)
}

func (p *EventHubsPublisher) Close(ctx context.Context) error {
	return p.producer.Close(ctx)
}

func eventData(event Event) (*azeventhubs.EventData, error) {
	body, err := event.Encode()
	if err != nil {
		return nil, err
	}

	contentType := "application/json"
	return &azeventhubs.EventData{
		Body:        body,
		ContentType: &contentType,
		Properties:  map[string]any{"event": event.Name},
	}, nil
}
