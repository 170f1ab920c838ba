package redpanda

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

func TestClassifyFailureCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, "INTERNAL"},
		{fmt.Errorf("x: %w", domain.ErrInvalidArgument), "INVALID_ARGUMENT"},
		{fmt.Errorf("x: %w", domain.ErrSchemaInvalid), "SCHEMA_INVALID"},
		{fmt.Errorf("x: %w", domain.ErrUpstreamRateLimit), "UPSTREAM_RATE_LIMIT"},
		{fmt.Errorf("x: %w", domain.ErrUpstreamTimeout), "UPSTREAM_TIMEOUT"},
		{fmt.Errorf("x: %w", domain.ErrNotFound), "NOT_FOUND"},
		{fmt.Errorf("x: %w", domain.ErrStepLimit), "STEP_LIMIT"},
		{errors.New("invalid json: unexpected EOF"), "SCHEMA_INVALID"},
		{errors.New("provider said: Rate Limit hit"), "UPSTREAM_RATE_LIMIT"},
		{errors.New("context deadline exceeded"), "UPSTREAM_TIMEOUT"},
		{errors.New("boom"), "INTERNAL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyFailureCode(tt.err), fmt.Sprint(tt.err))
	}
}
