package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

type scriptedHandler struct {
	mu    sync.Mutex
	errs  []error
	calls int
	ids   []string
}

func (h *scriptedHandler) Execute(_ domain.Context, id string, _ domain.AssessmentRequest) (domain.AssessmentResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.ids = append(h.ids, id)
	if len(h.errs) == 0 {
		return domain.AssessmentResult{ProcessingComplete: true}, nil
	}
	err := h.errs[0]
	h.errs = h.errs[1:]
	return domain.AssessmentResult{}, err
}

type deadLetters struct {
	mu    sync.Mutex
	codes []string
}

func (d *deadLetters) PublishDeadLetter(_ context.Context, _ *kgo.Record, code, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes = append(d.codes, code)
	return nil
}

func testRetry(max int) config.RetryConfig {
	return config.RetryConfig{MaxRetries: max, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func record(t *testing.T, id string) *kgo.Record {
	t.Helper()
	rec, err := assessmentRecord(DefaultTopic, domain.AssessmentTaskPayload{
		AssessmentID: id,
		Request:      domain.AssessmentRequest{CandidateID: "cand-" + id},
	})
	require.NoError(t, err)
	return rec
}

func notStepLimit(err error) bool { return !errors.Is(err, domain.ErrStepLimit) }

func TestHandle(t *testing.T) {
	t.Parallel()

	transient := fmt.Errorf("op=assessment.execute: %w", domain.ErrUpstreamTimeout)
	tests := []struct {
		name      string
		errs      []error
		retries   int
		wantCalls int
		wantDLQ   []string
	}{
		{"succeeds first time", nil, 2, 1, nil},
		{"retries transient failures", []error{transient, transient}, 2, 3, nil},
		{"gives up after max retries", []error{transient, transient, transient}, 2, 3, []string{"UPSTREAM_TIMEOUT"}},
		{"permanent failure is not retried", []error{fmt.Errorf("op=pipeline.run: %w", domain.ErrStepLimit)}, 2, 1, []string{"STEP_LIMIT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := &scriptedHandler{errs: tt.errs}
			dlq := &deadLetters{}
			c := newConsumer(nil, ConsumerConfig{Topic: DefaultTopic, Retry: testRetry(tt.retries), Retryable: notStepLimit}, h, dlq)

			c.handle(context.Background(), record(t, "a1"))

			assert.Equal(t, tt.wantCalls, h.calls)
			assert.Equal(t, tt.wantDLQ, dlq.codes)
		})
	}
}

func TestHandle_InvalidJSONGoesToDLQ(t *testing.T) {
	t.Parallel()

	h := &scriptedHandler{}
	dlq := &deadLetters{}
	c := newConsumer(nil, ConsumerConfig{Retry: testRetry(1)}, h, dlq)

	c.handle(context.Background(), &kgo.Record{Topic: DefaultTopic, Value: []byte("{not json")})

	assert.Zero(t, h.calls)
	assert.Equal(t, []string{"SCHEMA_INVALID"}, dlq.codes)
}

func TestHandle_NilDLQ(t *testing.T) {
	t.Parallel()

	h := &scriptedHandler{errs: []error{errors.New("boom")}}
	c := newConsumer(nil, ConsumerConfig{Retry: testRetry(0)}, h, nil)
	assert.NotPanics(t, func() { c.handle(context.Background(), record(t, "a1")) })
	assert.Equal(t, 1, h.calls)
}

func TestProcessBatch_RunsEveryRecord(t *testing.T) {
	t.Parallel()

	h := &scriptedHandler{}
	c := newConsumer(nil, ConsumerConfig{Concurrency: 2, Retry: testRetry(0)}, h, nil)
	c.processBatch(context.Background(), []*kgo.Record{record(t, "a1"), record(t, "a2"), record(t, "a3")})

	assert.Equal(t, 3, h.calls)
	assert.ElementsMatch(t, []string{"a1", "a2", "a3"}, h.ids)
}

func TestAssessmentRecord(t *testing.T) {
	t.Parallel()

	rec := record(t, "a1")
	assert.Equal(t, "cand-a1", string(rec.Key))
	assert.Equal(t, DefaultTopic, rec.Topic)
	require.Len(t, rec.Headers, 2)
	assert.Equal(t, "assessment_id", rec.Headers[0].Key)
	assert.Equal(t, "a1", string(rec.Headers[0].Value))

	var p domain.AssessmentTaskPayload
	require.NoError(t, json.Unmarshal(rec.Value, &p))
	assert.Equal(t, "a1", p.AssessmentID)
}

func TestConstructorsValidate(t *testing.T) {
	t.Parallel()

	_, err := NewProducer(nil, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = NewConsumer(ConsumerConfig{}, &scriptedHandler{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}}, &scriptedHandler{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Equal(t, "assessment-jobs.dlq", DLQTopic(DefaultTopic))
}
