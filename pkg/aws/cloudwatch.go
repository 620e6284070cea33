package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const (
	logBatchSize     = 100
	logFlushInterval = 2 * time.Second
	logQueueSize     = 1024
)

type CloudWatchLogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchLogsClient is an io.Writer that ships log lines to one CloudWatch
// Logs stream in batches. Lines are dropped, never blocked on, when the queue
// is full. Close flushes what is queued.
type CloudWatchLogsClient struct {
	api     CloudWatchLogsAPI
	group   string
	stream  string
	enabled bool

	events  chan types.InputLogEvent
	stop    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Int64
	once    sync.Once
}

func NewCloudWatchLogsClient(ctx context.Context, cfg sdkaws.Config, logGroupName, serviceName string, enabled bool) (*CloudWatchLogsClient, error) {
	stream := fmt.Sprintf("%s-%d", serviceName, time.Now().Unix())
	return NewCloudWatchLogsWriter(ctx, cloudwatchlogs.NewFromConfig(cfg), logGroupName, stream, enabled, logFlushInterval)
}

// NewCloudWatchLogsWriter creates the group and stream and starts the flush loop.
func NewCloudWatchLogsWriter(ctx context.Context, api CloudWatchLogsAPI, group, stream string, enabled bool, flushEvery time.Duration) (*CloudWatchLogsClient, error) {
	if group == "" {
		group = "/supermart/console"
	}
	c := &CloudWatchLogsClient{
		api:     api,
		group:   group,
		stream:  stream,
		enabled: enabled,
		events:  make(chan types.InputLogEvent, logQueueSize),
		stop:    make(chan struct{}),
	}
	if !enabled {
		return c, nil
	}
	if err := c.ensureStream(ctx); err != nil {
		return nil, err
	}
	c.wg.Add(1)
	go c.run(flushEvery)
	return c, nil
}

func (c *CloudWatchLogsClient) ensureStream(ctx context.Context) error {
	var exists *types.ResourceAlreadyExistsException
	if _, err := c.api.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: sdkaws.String(c.group)}); err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("create log group %s: %w", c.group, err)
	}
	if _, err := c.api.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(c.group),
		RetentionInDays: sdkaws.Int32(30),
	}); err != nil {
		return fmt.Errorf("set retention on %s: %w", c.group, err)
	}
	if _, err := c.api.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(c.group),
		LogStreamName: sdkaws.String(c.stream),
	}); err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("create log stream %s: %w", c.stream, err)
	}
	return nil
}

// Write queues a copy of p and never fails.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	if !c.enabled || c.closed.Load() {
		return len(p), nil
	}
	event := types.InputLogEvent{
		Message:   sdkaws.String(string(p)),
		Timestamp: sdkaws.Int64(time.Now().UnixMilli()),
	}
	select {
	case c.events <- event:
	default:
		c.dropped.Add(1)
	}
	return len(p), nil
}

func (c *CloudWatchLogsClient) run(flushEvery time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]types.InputLogEvent, 0, logBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		c.put(batch)
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-c.events:
			batch = append(batch, ev)
			if len(batch) >= logBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-c.stop:
			for {
				select {
				case ev := <-c.events:
					batch = append(batch, ev)
					if len(batch) >= logBatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (c *CloudWatchLogsClient) put(batch []types.InputLogEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events := append([]types.InputLogEvent(nil), batch...)
	if _, err := c.api.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  sdkaws.String(c.group),
		LogStreamName: sdkaws.String(c.stream),
		LogEvents:     events,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "cloudwatch logs: %d events lost: %v\n", len(events), err)
	}
}

// Close flushes queued lines and stops the flush loop.
func (c *CloudWatchLogsClient) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.stop)
	})
	c.wg.Wait()
	if n := c.dropped.Load(); n > 0 {
		fmt.Fprintf(os.Stderr, "cloudwatch logs: %d lines dropped on a full queue\n", n)
	}
	return nil
}

func (c *CloudWatchLogsClient) IsEnabled() bool {
	return c != nil && c.enabled
}
