package pipeline

import (
	"context"

	"github.com/akolanti/docmind/internal/annotate"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/semantic/qdrantDB"
	"gorm.io/datatypes"
)

type ExerciseRequest struct {
	Count      int
	Types      []documentModel.ExerciseType
	Difficulty string
	Language   string
}

type MindMapRequest struct {
	MaxNodes int
	Language string
	Style    string
}

// extracted resolves an owned document that is ready for on-demand generation.
func (o *Orchestrator) extracted(ctx context.Context, ownerID, id string) (*documentModel.Document, error) {
	doc, err := o.docs.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsExtracted() {
		return nil, apperr.New(apperr.Validation, "document text has not been extracted yet")
	}
	if o.annotator == nil {
		return nil, apperr.New(apperr.UpstreamUnavailable, "annotation is not configured")
	}
	return doc, nil
}

func (o *Orchestrator) GenerateExercises(ctx context.Context, ownerID, id string, req ExerciseRequest) (*documentModel.ExerciseSet, error) {
	doc, err := o.extracted(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	language := req.Language
	if language == "" {
		language = config.DefaultLanguage
	}
	exercises, err := o.annotator.GenerateExercises(ctx, doc.ExtractedText, annotate.ExerciseOptions{
		Count:      req.Count,
		Types:      req.Types,
		Difficulty: req.Difficulty,
		Language:   language,
	})
	if err != nil {
		return nil, err
	}
	set := &documentModel.ExerciseSet{
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
		Difficulty: req.Difficulty,
		Language:   language,
		Exercises:  datatypes.NewJSONSlice(exercises),
	}
	if err = o.artifacts.CreateExerciseSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// GenerateMindMap persists the diagram even when it fails validation; the
// outcome is stored next to it.
func (o *Orchestrator) GenerateMindMap(ctx context.Context, ownerID, id string, req MindMapRequest) (*documentModel.MindMap, error) {
	doc, err := o.extracted(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	language := req.Language
	if language == "" {
		language = config.DefaultLanguage
	}
	mm, err := o.annotator.GenerateMindMap(ctx, doc.ExtractedText, annotate.MindMapOptions{
		MaxNodes: req.MaxNodes,
		Language: language,
		Style:    req.Style,
	})
	if err != nil {
		return nil, err
	}
	title := mm.Title
	if title == "" {
		title = doc.Title
	}
	errs := mm.Validation.Errors
	if errs == nil {
		errs = []string{}
	}
	row := &documentModel.MindMap{
		DocumentID:       doc.ID,
		OwnerID:          doc.OwnerID,
		Title:            title,
		Style:            req.Style,
		Language:         language,
		DiagramSource:    mm.DiagramSource,
		Valid:            mm.Validation.Valid,
		ValidationErrors: datatypes.NewJSONSlice(errs),
	}
	if err = o.artifacts.CreateMindMap(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (o *Orchestrator) Search(ctx context.Context, ownerID, id string, query string, limit int) ([]qdrantDB.Hit, error) {
	if query == "" {
		return nil, apperr.New(apperr.Validation, "query parameter q is required")
	}
	if o.semantic == nil {
		return nil, ErrSearchDisabled
	}
	doc, err := o.docs.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsExtracted() {
		return nil, apperr.New(apperr.NotFound, "document has not been indexed yet")
	}
	return o.semantic.Search(ctx, doc.ID, query, limit)
}
