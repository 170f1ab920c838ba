package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-assessor/internal/observability"
)

// Handler runs one recorded assessment.
type Handler interface {
	Execute(ctx domain.Context, id string, req domain.AssessmentRequest) (domain.AssessmentResult, error)
}

// DeadLetterer receives records that could not be processed.
type DeadLetterer interface {
	PublishDeadLetter(ctx context.Context, rec *kgo.Record, code, reason string) error
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	Topic       string
	Concurrency int
	Retry       config.RetryConfig
	// Retryable decides whether a handler error is worth another attempt; nil retries everything.
	Retryable func(error) bool
}

// Consumer polls assessment jobs and runs up to Concurrency of them at once.
// Offsets are committed after every record of a poll has been handled.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	dlq     DeadLetterer
	cfg     ConsumerConfig
}

// NewConsumer joins cfg.GroupID on cfg.Topic. dlq may be nil.
func NewConsumer(cfg ConsumerConfig, handler Handler, dlq DeadLetterer) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.new_consumer: no seed brokers provided: %w", domain.ErrInvalidArgument)
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("op=redpanda.new_consumer: missing group id: %w", domain.ErrInvalidArgument)
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		tracingHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.new_consumer: %w", err)
	}
	return newConsumer(client, cfg, handler, dlq), nil
}

func newConsumer(client *kgo.Client, cfg ConsumerConfig, handler Handler, dlq DeadLetterer) *Consumer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Consumer{client: client, handler: handler, dlq: dlq, cfg: cfg}
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("assessment consumer started",
		slog.String("topic", c.cfg.Topic),
		slog.String("group_id", c.cfg.GroupID),
		slog.Int("concurrency", c.cfg.Concurrency))
	for {
		fetches := c.client.PollRecords(ctx, c.cfg.Concurrency*2)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			c.client.AllowRebalance()
			slog.Info("assessment consumer stopping")
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("fetch error", slog.String("topic", topic), slog.Int("partition", int(partition)), slog.Any("error", err))
		})
		c.processBatch(ctx, fetches.Records())
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("offset commit failed", slog.Any("error", err))
		}
		c.client.AllowRebalance()
	}
}

func (c *Consumer) processBatch(ctx context.Context, records []*kgo.Record) {
	if len(records) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for _, rec := range records {
		g.Go(func() error {
			c.handle(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()
}

// handle never returns an error: failures end in the DLQ so the partition keeps moving.
func (c *Consumer) handle(ctx context.Context, rec *kgo.Record) {
	var p domain.AssessmentTaskPayload
	if err := json.Unmarshal(rec.Value, &p); err != nil {
		slog.Error("invalid json in assessment record", slog.Int64("offset", rec.Offset), slog.Any("error", err))
		c.deadLetter(ctx, rec, fmt.Errorf("invalid json: %w", err))
		return
	}

	lg := slog.Default().With(slog.String("assessment_id", p.AssessmentID), slog.String("candidate_id", p.Request.CandidateID))
	ctx = obsctx.ContextWithLogger(ctx, lg)
	observability.StartProcessingJob(JobType)

	attempt := 0
	op := func() error {
		attempt++
		_, err := c.handler.Execute(ctx, p.AssessmentID, p.Request)
		if err != nil && c.cfg.Retryable != nil && !c.cfg.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		lg.Warn("assessment attempt failed, retrying", slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(c.cfg.Retry.BackOff(), ctx), notify); err != nil {
		observability.FailJob(JobType)
		lg.Error("assessment job failed", slog.Int("attempts", attempt), slog.Any("error", err))
		c.deadLetter(ctx, rec, err)
		return
	}
	observability.CompleteJob(JobType)
	lg.Info("assessment job completed", slog.Int("attempts", attempt))
}

func (c *Consumer) deadLetter(ctx context.Context, rec *kgo.Record, cause error) {
	if c.dlq == nil {
		return
	}
	code := classifyFailureCode(cause)
	if err := c.dlq.PublishDeadLetter(ctx, rec, code, cause.Error()); err != nil {
		slog.Error("dead letter publish failed", slog.String("error_code", code), slog.Any("error", err))
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
