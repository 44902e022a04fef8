package annotate

import (
	"encoding/json"
	"strings"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/google/jsonschema-go/jsonschema"
)

func ptr[T any](v T) *T { return &v }

func enumOf[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

var conceptSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"concepts"},
	Properties: map[string]*jsonschema.Schema{
		"concepts": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type:     "object",
				Required: []string{"term", "definition", "category", "importance"},
				Properties: map[string]*jsonschema.Schema{
					"term":       {Type: "string", MinLength: ptr(1)},
					"definition": {Type: "string"},
					"category":   {Type: "string", Enum: enumOf(documentModel.ConceptCategories)},
					"importance": {Type: "integer", Minimum: ptr(1.0), Maximum: ptr(5.0)},
					"occurrences": {
						Type: "array",
						Items: &jsonschema.Schema{
							Type:     "object",
							Required: []string{"position", "context"},
							Properties: map[string]*jsonschema.Schema{
								"position":   {Type: "integer", Minimum: ptr(0.0)},
								"context":    {Type: "string"},
								"confidence": {Type: "number", Minimum: ptr(0.0), Maximum: ptr(1.0)},
							},
						},
					},
					"relatedTerms": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				},
			},
		},
	},
}

var exerciseSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"exercises"},
	Properties: map[string]*jsonschema.Schema{
		"exercises": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type:     "object",
				Required: []string{"type", "question", "correctAnswer", "explanation"},
				Properties: map[string]*jsonschema.Schema{
					"type":          {Type: "string", Enum: enumOf(documentModel.ExerciseTypes)},
					"question":      {Type: "string", MinLength: ptr(1)},
					"options":       {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
					"correctAnswer": {Type: "string", MinLength: ptr(1)},
					"explanation":   {Type: "string"},
				},
			},
		},
	},
}

var mindMapSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"title", "diagramSource"},
	Properties: map[string]*jsonschema.Schema{
		"title":         {Type: "string", MinLength: ptr(1)},
		"diagramSource": {Type: "string", MinLength: ptr(1)},
	},
}

var (
	resolvedConcepts  = mustResolve(conceptSchema)
	resolvedExercises = mustResolve(exerciseSchema)
	resolvedMindMap   = mustResolve(mindMapSchema)
)

func mustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	r, err := s.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// decodeValidated parses raw model output, validates it and decodes it into out.
// A bare array is accepted and wrapped under wrapKey.
func decodeValidated(raw string, schema *jsonschema.Resolved, wrapKey string, out any) error {
	body := stripCodeFence(raw)
	var instance any
	if err := json.Unmarshal([]byte(body), &instance); err != nil {
		return apperr.Wrap(apperr.ResponseFormat, "model output is not valid JSON", err)
	}
	if arr, ok := instance.([]any); ok && wrapKey != "" {
		instance = map[string]any{wrapKey: arr}
	}
	if err := schema.Validate(instance); err != nil {
		return apperr.Wrap(apperr.ResponseFormat, "model output does not match the expected structure", err)
	}

	normalized, err := json.Marshal(instance)
	if err != nil {
		return apperr.Wrap(apperr.ResponseFormat, "model output could not be re-encoded", err)
	}
	if err = json.Unmarshal(normalized, out); err != nil {
		return apperr.Wrap(apperr.ResponseFormat, "model output could not be decoded", err)
	}
	return nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
