package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

// SNSOrderPublisher publishes order.submitted events to an SNS topic.
type SNSOrderPublisher struct {
	sns      awspkg.SNSPublisher
	topicARN string
}

func NewSNSOrderPublisher(sns awspkg.SNSPublisher, topicARN string) *SNSOrderPublisher {
	return &SNSOrderPublisher{sns: sns, topicARN: topicARN}
}

func (p *SNSOrderPublisher) PublishOrderSubmitted(ctx context.Context, event models.OrderSubmittedEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return p.sns.Publish(ctx, p.topicARN, event.EventType, msg)
}

// KafkaWriter is satisfied by *kafka.Writer.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOrderPublisher writes order.submitted events keyed by cart id so events
// for one cart land on one partition.
type KafkaOrderPublisher struct {
	writer KafkaWriter
}

func NewKafkaOrderPublisher(brokers []string, topic string) *KafkaOrderPublisher {
	return NewKafkaOrderPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	})
}

func NewKafkaOrderPublisherWithWriter(w KafkaWriter) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{writer: w}
}

func (p *KafkaOrderPublisher) PublishOrderSubmitted(ctx context.Context, event models.OrderSubmittedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.CartID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		zap.L().Warn("failed to send Kafka message", zap.String("order_id", event.OrderID), zap.Error(err))
		return err
	}
	return nil
}

func (p *KafkaOrderPublisher) Close() error {
	return p.writer.Close()
}

// NoopOrderPublisher drops events; used when no event sink is configured.
type NoopOrderPublisher struct{}

func (NoopOrderPublisher) PublishOrderSubmitted(context.Context, models.OrderSubmittedEvent) error {
	return nil
}
