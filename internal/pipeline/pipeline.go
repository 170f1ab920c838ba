// Package pipeline runs one candidate assessment: preprocessing, four stage
// assessments, weighted scoring, report composition and a bounded audit loop.
package pipeline

import (
	"context"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

// Generator is the only way stages reach a model. ai.Adapter implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) ai.Generation
}

// RecordValidator checks a decoded model record against a named schema.
// schema.Validator implements it.
type RecordValidator interface {
	Validate(name string, doc map[string]any) error
}

// Stage is one step that reads and updates the run state. Implementations
// absorb their own failures into ProcessingErrors and never return an error.
type Stage interface {
	Name() string
	Assess(ctx context.Context, st *domain.RunState, gen Generator)
}

// Processing error labels.
const (
	labelPreprocessing = "Data preprocessing"
	labelTechnical     = "Technical assessment"
	labelBehavioral    = "Behavioral assessment"
	labelExperience    = "Experience assessment"
	labelCultural      = "Cultural fit assessment"
	labelScoring       = "Final scoring"
	labelReport        = "Report generation"
	labelQuality       = "Quality assurance"
)

// Input is the library entry payload.
type Input = domain.AssessmentRequest
