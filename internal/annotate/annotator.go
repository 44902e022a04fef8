// Package annotate derives learning artifacts from extracted text with a
// hosted language model. Every structured response is schema checked and
// rejected as a whole when it does not fit.
package annotate

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/docmind/internal/annotate/diagram"
	"github.com/akolanti/docmind/internal/annotate/llm"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/metrics"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/google/jsonschema-go/jsonschema"
	"gorm.io/datatypes"
)

type RestructureOptions struct {
	Style    string
	Language string
}

type SummaryOptions struct {
	Type             documentModel.SummaryType
	Language         string
	IncludeKeyPoints bool
}

type ConceptOptions struct {
	MaxConcepts int
	Language    string
}

type ExerciseOptions struct {
	Count      int
	Types      []documentModel.ExerciseType
	Difficulty string
	Language   string
}

type MindMapOptions struct {
	MaxNodes int
	Language string
	Style    string
}

type MindMap struct {
	Title         string
	DiagramSource string
	Validation    diagram.Result
}

const (
	maxExerciseCount = 50
	maxMindMapNodes  = 200
)

type Annotator struct {
	provider       llm.Provider
	maxPromptRunes int
	logger         *logger_i.Logger
}

func New(provider llm.Provider) *Annotator {
	return &Annotator{
		provider:       provider,
		maxPromptRunes: config.MaxPromptRunes,
		logger:         logger_i.NewLogger("Annotator"),
	}
}

func (a *Annotator) Restructure(ctx context.Context, text string, o RestructureOptions) (string, error) {
	if o.Style == "" {
		o.Style = config.DefaultRestructureMode
	}
	o.Language = languageOr(o.Language)
	return a.generateText(ctx, "restructure", restructurePrompt(a.clip(text), o))
}

func (a *Annotator) Summarize(ctx context.Context, text string, o SummaryOptions) (string, error) {
	if o.Type == "" {
		o.Type = documentModel.SummaryType(config.DefaultSummaryType)
	}
	if !o.Type.Valid() {
		return "", apperr.Newf(apperr.Validation, "unknown summary type %q", o.Type)
	}
	o.Language = languageOr(o.Language)
	return a.generateText(ctx, "summary", summaryPrompt(a.clip(text), o))
}

type conceptPayload struct {
	Concepts []struct {
		Term        string                     `json:"term"`
		Definition  string                     `json:"definition"`
		Category    string                     `json:"category"`
		Importance  int                        `json:"importance"`
		Occurrences []documentModel.Occurrence `json:"occurrences"`
		Related     []string                   `json:"relatedTerms"`
	} `json:"concepts"`
}

func (a *Annotator) ExtractConcepts(ctx context.Context, text string, o ConceptOptions) ([]documentModel.Concept, error) {
	if o.MaxConcepts <= 0 {
		o.MaxConcepts = config.DefaultMaxConcepts
	}
	o.Language = languageOr(o.Language)

	var payload conceptPayload
	if err := a.generateJSON(ctx, "concepts", conceptPrompt(a.clip(text), o), resolvedConcepts, "concepts", &payload); err != nil {
		return nil, err
	}

	out := make([]documentModel.Concept, 0, len(payload.Concepts))
	for _, c := range payload.Concepts {
		if len(out) == o.MaxConcepts {
			break
		}
		occ := c.Occurrences
		if occ == nil {
			occ = []documentModel.Occurrence{}
		}
		related := c.Related
		if related == nil {
			related = []string{}
		}
		out = append(out, documentModel.Concept{
			Term:         strings.TrimSpace(c.Term),
			Definition:   strings.TrimSpace(c.Definition),
			Category:     c.Category,
			Importance:   c.Importance,
			Occurrences:  datatypes.NewJSONSlice(occ),
			RelatedTerms: datatypes.NewJSONSlice(related),
		})
	}
	return out, nil
}

type exercisePayload struct {
	Exercises []documentModel.Exercise `json:"exercises"`
}

func (a *Annotator) GenerateExercises(ctx context.Context, text string, o ExerciseOptions) ([]documentModel.Exercise, error) {
	if o.Count <= 0 || o.Count > maxExerciseCount {
		return nil, apperr.Newf(apperr.Validation, "count must be between 1 and %d", maxExerciseCount)
	}
	if len(o.Types) == 0 {
		o.Types = documentModel.ExerciseTypes
	}
	for _, t := range o.Types {
		if !slices.Contains(documentModel.ExerciseTypes, t) {
			return nil, apperr.Newf(apperr.Validation, "unknown exercise type %q", t)
		}
	}
	if o.Difficulty == "" {
		o.Difficulty = "medium"
	}
	o.Language = languageOr(o.Language)

	var payload exercisePayload
	if err := a.generateJSON(ctx, "exercises", exercisePrompt(a.clip(text), o), resolvedExercises, "exercises", &payload); err != nil {
		return nil, err
	}
	if len(payload.Exercises) == 0 {
		return nil, apperr.New(apperr.ResponseFormat, "model returned no exercises")
	}

	out := make([]documentModel.Exercise, 0, o.Count)
	for i, ex := range payload.Exercises {
		if len(out) == o.Count {
			break
		}
		if !slices.Contains(o.Types, ex.Type) {
			return nil, apperr.Newf(apperr.ResponseFormat, "exercise %d has type %q which was not requested", i, ex.Type)
		}
		checked, err := checkExercise(ex)
		if err != nil {
			return nil, apperr.Wrap(apperr.ResponseFormat, "exercise "+strconv.Itoa(i)+" is inconsistent", err)
		}
		out = append(out, checked)
	}
	return out, nil
}

func checkExercise(ex documentModel.Exercise) (documentModel.Exercise, error) {
	ex.Question = strings.TrimSpace(ex.Question)
	ex.CorrectAnswer = strings.TrimSpace(ex.CorrectAnswer)
	switch ex.Type {
	case documentModel.MultipleChoice:
		if len(ex.Options) < 2 {
			return ex, apperr.New(apperr.ResponseFormat, "multiple choice needs at least two options")
		}
		if !slices.Contains(ex.Options, ex.CorrectAnswer) {
			return ex, apperr.New(apperr.ResponseFormat, "correct answer is not one of the options")
		}
	case documentModel.TrueFalse:
		answer := strings.ToLower(ex.CorrectAnswer)
		if answer != "true" && answer != "false" {
			return ex, apperr.New(apperr.ResponseFormat, "true/false answer must be true or false")
		}
		ex.CorrectAnswer = answer
		ex.Options = []string{"true", "false"}
	case documentModel.ShortAnswer:
		ex.Options = nil
	}
	return ex, nil
}

func (a *Annotator) GenerateMindMap(ctx context.Context, text string, o MindMapOptions) (MindMap, error) {
	if o.MaxNodes <= 0 {
		o.MaxNodes = 30
	}
	if o.MaxNodes > maxMindMapNodes {
		return MindMap{}, apperr.Newf(apperr.Validation, "maxNodes must not exceed %d", maxMindMapNodes)
	}
	if o.Style == "" {
		o.Style = "hierarchical"
	}
	o.Language = languageOr(o.Language)

	var payload struct {
		Title         string `json:"title"`
		DiagramSource string `json:"diagramSource"`
	}
	if err := a.generateJSON(ctx, "mindmap", mindMapPrompt(a.clip(text), o), resolvedMindMap, "", &payload); err != nil {
		return MindMap{}, err
	}

	source := stripCodeFence(payload.DiagramSource)
	res := MindMap{
		Title:         strings.TrimSpace(payload.Title),
		DiagramSource: source,
		Validation:    diagram.Validate(source),
	}
	if !res.Validation.Valid {
		a.logger.FromContext(ctx).Warn("mind map failed validation", "errors", res.Validation.Errors)
	}
	return res, nil
}

func (a *Annotator) generateText(ctx context.Context, op string, prompt string) (string, error) {
	out, err := a.call(ctx, llm.Request{Operation: op, System: systemPrompt, Prompt: prompt})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", apperr.Newf(apperr.ResponseFormat, "model returned an empty %s", op)
	}
	return out, nil
}

func (a *Annotator) generateJSON(ctx context.Context, op string, prompt string, schema *jsonschema.Resolved, wrapKey string, out any) error {
	raw, err := a.call(ctx, llm.Request{Operation: op, System: systemPrompt, Prompt: prompt, JSON: true})
	if err != nil {
		return err
	}
	if err = decodeValidated(raw, schema, wrapKey, out); err != nil {
		a.logger.FromContext(ctx).Warn("discarding malformed model output", "provider", a.provider.Name(), "operation", op, "error", err)
		return err
	}
	return nil
}

func (a *Annotator) call(ctx context.Context, req llm.Request) (string, error) {
	if a.provider == nil {
		return "", apperr.New(apperr.UpstreamUnavailable, "no language model configured")
	}
	ctx, cancel := context.WithTimeout(ctx, config.LLMRequestTimeout)
	defer cancel()

	provider := a.provider.Name()
	start := time.Now()
	out, err := a.provider.Generate(ctx, req)
	metrics.CaptureExecutionMetrics("llm_"+provider+"_"+req.Operation, time.Since(start))
	if err != nil {
		a.logger.FromContext(ctx).Warn("language model call failed", "provider", provider, "operation", req.Operation, "kind", apperr.KindOf(err), "error", err)
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.Wrap(apperr.UpstreamUnavailable, "language model unavailable", err)
		}
	}
	return out, err
}

// clip bounds the prompt size in runes, cutting at a line break when possible.
func (a *Annotator) clip(text string) string {
	if utf8.RuneCountInString(text) <= a.maxPromptRunes {
		return text
	}
	runes := []rune(text)[:a.maxPromptRunes]
	clipped := string(runes)
	if i := strings.LastIndexByte(clipped, '\n'); i > len(clipped)/2 {
		clipped = clipped[:i]
	}
	return clipped
}

func languageOr(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return config.DefaultLanguage
	}
	return strings.TrimSpace(lang)
}
