package redpanda

import (
	"errors"
	"strings"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

// classifyFailureCode maps a job error to the API error code used in DLQ headers.
// Sentinels are checked first; messages that crossed a process boundary fall back to text.
func classifyFailureCode(err error) string {
	if err == nil {
		return "INTERNAL"
	}
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrSchemaInvalid):
		return "SCHEMA_INVALID"
	case errors.Is(err, domain.ErrUpstreamRateLimit), errors.Is(err, domain.ErrRateLimited):
		return "UPSTREAM_RATE_LIMIT"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, domain.ErrStepLimit):
		return "STEP_LIMIT"
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "invalid json"):
		return "SCHEMA_INVALID"
	case strings.Contains(s, "rate limit"):
		return "UPSTREAM_RATE_LIMIT"
	case strings.Contains(s, "timeout"), strings.Contains(s, "deadline exceeded"):
		return "UPSTREAM_TIMEOUT"
	default:
		return "INTERNAL"
	}
}
