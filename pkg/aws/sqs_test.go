package aws

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	messages []types.Message
	deleted  []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, *in.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSConsumer_PollOnceDeletesOnlyHandled(t *testing.T) {
	fake := &fakeSQS{messages: []types.Message{
		{Body: sdkaws.String("ok"), ReceiptHandle: sdkaws.String("r1")},
		{Body: sdkaws.String("bad"), ReceiptHandle: sdkaws.String("r2")},
		{ReceiptHandle: sdkaws.String("r3")},
	}}
	consumer := NewSQSConsumerWithClient(fake, "https://sqs.local/queue")

	var seen []string
	n, err := consumer.PollOnce(context.Background(), func(ctx context.Context, body string) error {
		seen = append(seen, body)
		if body == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"ok", "bad"}, seen)
	assert.Equal(t, []string{"r1"}, fake.deleted)
}

func TestSQSConsumer_StartPollingStopsOnCancel(t *testing.T) {
	consumer := NewSQSConsumerWithClient(&fakeSQS{}, "q")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := consumer.StartPolling(ctx, func(context.Context, string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

type failingSQS struct {
	fakeSQS
	calls atomic.Int32
}

func (f *failingSQS) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.calls.Add(1)
	return nil, errors.New("AccessDenied")
}

func TestSQSConsumer_BacksOffOnReceiveErrors(t *testing.T) {
	fake := &failingSQS{}
	consumer := NewSQSConsumerWithClient(fake, "q")
	consumer.minBackoff = 20 * time.Millisecond
	consumer.maxBackoff = 40 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := consumer.StartPolling(ctx, func(context.Context, string) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, fake.calls.Load(), int32(5))
	assert.GreaterOrEqual(t, fake.calls.Load(), int32(2))
}

func TestSQSConsumer_NextBackoff(t *testing.T) {
	c := NewSQSConsumerWithClient(&fakeSQS{}, "q")
	assert.Equal(t, time.Second, c.nextBackoff(0))
	assert.Equal(t, 2*time.Second, c.nextBackoff(time.Second))
	assert.Equal(t, 30*time.Second, c.nextBackoff(20*time.Second))
}
