package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"fydeScope/internal/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes user actions to Kafka as JSON, keyed by user address.
type Publisher struct {
	writer messageWriter
	Topic  string
}

func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: writer, Topic: topic}, nil
}

// PutUserActions publishes one message per action in a single write.
func (p *Publisher) PutUserActions(ctx context.Context, actions []model.UserAction) error {
	if len(actions) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(actions))
	for _, action := range actions {
		meta := action.Meta()
		value, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("marshal user action %d: %w", meta.RequestID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(meta.User),
			Value: value,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(meta.Kind)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
