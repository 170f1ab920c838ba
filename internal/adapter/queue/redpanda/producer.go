// Package redpanda carries assessment jobs over Redpanda/Kafka.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

const (
	// DefaultTopic carries assessment jobs.
	DefaultTopic = "assessment-jobs"
	// JobType labels queue metrics.
	JobType = "assessment"

	dlqSuffix         = ".dlq"
	defaultPartitions = 3
	topicSetupTimeout = 15 * time.Second
)

// DLQTopic returns the dead-letter topic paired with topic.
func DLQTopic(topic string) string { return topic + dlqSuffix }

func tracingHooks() kgo.Opt {
	k := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))))
	return kgo.WithHooks(k.Hooks()...)
}

// Producer publishes assessment jobs and implements domain.Queue.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to brokers and makes sure topic and its DLQ exist.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.new_producer: no seed brokers provided: %w", domain.ErrInvalidArgument)
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1_000_000),
		tracingHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.new_producer: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), topicSetupTimeout)
	defer cancel()
	for _, t := range []string{topic, DLQTopic(topic)} {
		if err := createTopicIfNotExists(ctx, client, t, defaultPartitions, 1); err != nil {
			slog.Warn("topic setup failed, it may already exist", slog.String("topic", t), slog.Any("error", err))
		}
	}
	slog.Info("redpanda producer ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Producer{client: client, topic: topic}, nil
}

// assessmentRecord keys by candidate so one candidate's runs stay ordered.
func assessmentRecord(topic string, payload domain.AssessmentTaskPayload) (*kgo.Record, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(payload.Request.CandidateID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "assessment_id", Value: []byte(payload.AssessmentID)},
			{Key: "candidate_id", Value: []byte(payload.Request.CandidateID)},
		},
	}, nil
}

// EnqueueAssessment publishes payload and waits for the broker ack.
func (p *Producer) EnqueueAssessment(ctx domain.Context, payload domain.AssessmentTaskPayload) (string, error) {
	rec, err := assessmentRecord(p.topic, payload)
	if err != nil {
		return "", fmt.Errorf("op=redpanda.enqueue: marshal payload: %w", err)
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		slog.Error("failed to produce assessment job",
			slog.String("assessment_id", payload.AssessmentID),
			slog.String("topic", p.topic),
			slog.Any("error", err))
		return "", fmt.Errorf("op=redpanda.enqueue: %w", err)
	}
	observability.EnqueueJob(JobType)
	slog.Info("assessment job enqueued",
		slog.String("assessment_id", payload.AssessmentID),
		slog.String("candidate_id", payload.Request.CandidateID),
		slog.String("topic", p.topic))
	return payload.AssessmentID, nil
}

// PublishDeadLetter copies a failed record to the DLQ with the failure reason attached.
func (p *Producer) PublishDeadLetter(ctx context.Context, rec *kgo.Record, code, reason string) error {
	dead := &kgo.Record{
		Topic: DLQTopic(rec.Topic),
		Key:   rec.Key,
		Value: rec.Value,
		Headers: append(append([]kgo.RecordHeader{}, rec.Headers...),
			kgo.RecordHeader{Key: "error_code", Value: []byte(code)},
			kgo.RecordHeader{Key: "error", Value: []byte(reason)},
		),
	}
	if err := p.client.ProduceSync(ctx, dead).FirstErr(); err != nil {
		return fmt.Errorf("op=redpanda.dead_letter: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *Producer) Ping(ctx context.Context) error { return p.client.Ping(ctx) }

// Close flushes pending records and closes the client.
func (p *Producer) Close() error {
	if p.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
