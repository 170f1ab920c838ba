package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		schema  string
		doc     map[string]any
		wantErr bool
		field   string
	}{
		{
			name:   "technical ok",
			schema: Technical,
			doc: map[string]any{
				"overall_score":   8.5,
				"skill_matches":   map[string]any{"Go": 9.0},
				"evidence":        []any{"built a scheduler"},
				"gaps_identified": []string{"k8s"},
			},
		},
		{name: "missing fields are fine", schema: Behavioral, doc: map[string]any{}},
		{name: "quoted numeric score", schema: Technical, doc: map[string]any{"overall_score": "8.5", "skill_matches": map[string]any{"Go": " 9 "}}},
		{name: "string score", schema: Technical, doc: map[string]any{"overall_score": "high"}, wantErr: true, field: "overall_score"},
		{name: "non-numeric skill", schema: Technical, doc: map[string]any{"skill_matches": map[string]any{"Go": "expert"}}, wantErr: true, field: "skill_matches.Go"},
		{name: "list of numbers", schema: Experience, doc: map[string]any{"relevant_projects": []any{1.0, 2.0}}, wantErr: true},
		{name: "cultural ok", schema: Cultural, doc: map[string]any{"overall_score": 7.0, "recommendations": []string{"pair"}}},
		{name: "resume experience must be objects", schema: Resume, doc: map[string]any{"experience": []any{"Acme"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Validate(tt.schema, tt.doc)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			require.NotEmpty(t, ve.Errors)
			if tt.field != "" {
				assert.Equal(t, tt.field, ve.Errors[0].Field)
			}
		})
	}
}

func TestValidator_UnknownSchema(t *testing.T) {
	t.Parallel()

	v := MustNewValidator()
	err := v.Validate("payroll", map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
