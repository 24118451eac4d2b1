// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// KafkaConfig holds the producer settings.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	Username string
	Password string
}

// messageWriter is the subset of [*kafka.Writer] used by [KafkaNotifier].
type messageWriter interface {
	WriteMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes messages as JSON, keyed by recipient so every
// message for one address lands on the same partition in order.
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaNotifier creates a synchronous producer. SASL/PLAIN over TLS is
// enabled when a username is configured.
func NewKafkaNotifier(config KafkaConfig) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}

	if config.Username != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: config.Username, Password: config.Password},
			TLS:  &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	return newKafkaNotifier(writer)
}

func newKafkaNotifier(writer messageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, now: time.Now}
}

// Send implements [Notifier].
func (notifier *KafkaNotifier) Send(ctx context.Context, message Message) error {
	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("notify_kafka_encode_failed: %w", err)
	}

	err = notifier.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(message.To),
		Value: value,
		Time:  notifier.now(),
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(message.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("notify_kafka_publish_failed: %w", err)
	}

	return nil
}

// Close flushes and closes the producer.
func (notifier *KafkaNotifier) Close() error {
	return notifier.writer.Close()
}
