package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/vitrine/core/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes notifications to a Kafka topic. The resource ID is the message
// key, so all notifications of one resource land in the same partition.
type Kafka struct {
	writer messageWriter
	topic  string
}

// NewKafka returns a publisher writing to topic on the comma separated brokers
func NewKafka(brokers, topic string) (*Kafka, error) {
	if brokers == "" || topic == "" {
		return nil, fmt.Errorf("kafka needs brokers and a topic")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	logger.Default().Infof("publishing notifications to kafka topic %s on %s", topic, brokers)
	return &Kafka{writer: writer, topic: topic}, nil
}

// Publish implements Publisher
func (k *Kafka) Publish(ctx context.Context, n Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(n.ResourceID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "resource", Value: []byte(n.Resource)},
			{Key: "operation", Value: []byte(n.Operation)},
		},
	}
	if err = k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("cannot write to kafka topic %s: %w", k.topic, err)
	}
	return nil
}

// Close implements Publisher
func (k *Kafka) Close() error {
	return k.writer.Close()
}
