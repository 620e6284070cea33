package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSAPI is the subset of the SQS client used by SQSConsumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSConsumer long-polls a queue and hands each message body to a handler.
type SQSConsumer struct {
	client   SQSAPI
	queueURL string
	logger   *zap.Logger

	// backoff after a failed receive, doubled per consecutive failure
	minBackoff, maxBackoff time.Duration
}

func NewSQSConsumer(cfg sdkaws.Config, queueURL string) *SQSConsumer {
	return NewSQSConsumerWithClient(sqs.NewFromConfig(cfg), queueURL)
}

func NewSQSConsumerWithClient(client SQSAPI, queueURL string) *SQSConsumer {
	return &SQSConsumer{
		client:   client,
		queueURL: queueURL,
		logger:   zap.L().With(zap.String("queue_url", queueURL)),

		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// MessageHandler processes one message body. Returning an error leaves the
// message on the queue for redelivery.
type MessageHandler func(ctx context.Context, body string) error

// StartPolling runs until ctx is cancelled.
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting SQS polling")
	wait := time.Duration(0)
	for {
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			c.logger.Info("SQS polling stopped")
			return ctx.Err()
		}

		if _, err := c.PollOnce(ctx, handler); err != nil && ctx.Err() == nil {
			wait = c.nextBackoff(wait)
			c.logger.Warn("Error polling SQS", zap.Error(err), zap.Duration("retry_in", wait))
			continue
		}
		wait = 0
	}
}

func (c *SQSConsumer) nextBackoff(prev time.Duration) time.Duration {
	if prev <= 0 {
		return c.minBackoff
	}
	if next := prev * 2; next < c.maxBackoff {
		return next
	}
	return c.maxBackoff
}

// PollOnce receives a single batch and returns how many messages were handled
// and deleted.
func (c *SQSConsumer) PollOnce(ctx context.Context, handler MessageHandler) (int, error) {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            sdkaws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   30,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to receive messages: %w", err)
	}

	handled := 0
	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}
		if err := handler(ctx, *msg.Body); err != nil {
			c.logger.Warn("Failed to process message", zap.Error(err))
			continue
		}
		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      sdkaws.String(c.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.logger.Warn("Failed to delete message", zap.Error(err))
			continue
		}
		handled++
	}
	return handled, nil
}
