// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher produces the events on a Kafka topic keyed by pipeline.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher returns a publisher writing on topic of brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	message, err := kafkaMessage(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, message)
}

func (p *KafkaPublisher) Close(context.Context) error {
	return p.writer.Close()
}

func kafkaMessage(event Event) (kafka.Message, error) {
	value, err := event.Encode()
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Name)},
		},
	}, nil
}
