package store

import (
	"context"
	"errors"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormArtifactStore struct {
	db     *gorm.DB
	logger *logger_i.Logger
}

func NewGormArtifactStore(db *gorm.DB) *GormArtifactStore {
	return &GormArtifactStore{db: db, logger: logger_i.NewLogger("ArtifactStore")}
}

// UpsertSummary replaces the content of the (document, type) row in place.
func (s *GormArtifactStore) UpsertSummary(ctx context.Context, summary *documentModel.Summary) (*documentModel.Summary, error) {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content",
			"language",
			"include_key_points",
			"updated_at",
		}),
	}).Create(summary).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not save summary", err)
	}

	var stored documentModel.Summary
	if err = db.Where("document_id = ? AND type = ?", summary.DocumentID, summary.Type).First(&stored).Error; err != nil {
		return nil, dbError(err, "summary not found")
	}
	return &stored, nil
}

func (s *GormArtifactStore) ListSummaries(ctx context.Context, documentID string, summaryType documentModel.SummaryType) ([]documentModel.Summary, error) {
	q := s.db.WithContext(ctx).Where("document_id = ?", documentID)
	if summaryType != "" {
		q = q.Where("type = ?", summaryType)
	}
	out := []documentModel.Summary{}
	if err := q.Order("type").Find(&out).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not list summaries", err)
	}
	return out, nil
}

// MergeConcepts inserts new terms and folds repeated terms into the existing row:
// occurrences and related terms are unioned, importance keeps the maximum and an
// empty definition is filled in.
func (s *GormArtifactStore) MergeConcepts(ctx context.Context, documentID string, ownerID string, concepts []documentModel.Concept) ([]documentModel.Concept, error) {
	merged := make([]documentModel.Concept, 0, len(concepts))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, incoming := range dedupeConcepts(concepts) {
			var existing documentModel.Concept
			err := tx.Where("document_id = ? AND term_key = ?", documentID, incoming.TermKey).First(&existing).Error
			switch {
			case err == nil:
				mergeInto(&existing, incoming)
				if err = tx.Save(&existing).Error; err != nil {
					return err
				}
				merged = append(merged, existing)
			case errors.Is(err, gorm.ErrRecordNotFound):
				incoming.ID = uuid.NewString()
				incoming.DocumentID = documentID
				incoming.OwnerID = ownerID
				if err = tx.Create(&incoming).Error; err != nil {
					return err
				}
				merged = append(merged, incoming)
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not merge concepts", err)
	}
	s.logger.FromContext(ctx).Debug("concepts merged", "documentId", documentID, "count", len(merged))
	return merged, nil
}

// dedupeConcepts folds repeats inside a single batch so each key is written once.
func dedupeConcepts(concepts []documentModel.Concept) []documentModel.Concept {
	index := make(map[string]int, len(concepts))
	out := make([]documentModel.Concept, 0, len(concepts))
	for _, c := range concepts {
		c.TermKey = documentModel.TermKey(c.Term)
		if c.TermKey == "" {
			continue
		}
		if c.Occurrences == nil {
			c.Occurrences = datatypes.JSONSlice[documentModel.Occurrence]{}
		}
		if c.RelatedTerms == nil {
			c.RelatedTerms = datatypes.JSONSlice[string]{}
		}
		if i, ok := index[c.TermKey]; ok {
			mergeInto(&out[i], c)
			continue
		}
		index[c.TermKey] = len(out)
		out = append(out, c)
	}
	return out
}

func mergeInto(dst *documentModel.Concept, src documentModel.Concept) {
	type occKey struct {
		position int
		context  string
	}
	seen := make(map[occKey]bool, len(dst.Occurrences))
	for _, o := range dst.Occurrences {
		seen[occKey{o.Position, o.Context}] = true
	}
	for _, o := range src.Occurrences {
		k := occKey{o.Position, o.Context}
		if !seen[k] {
			seen[k] = true
			dst.Occurrences = append(dst.Occurrences, o)
		}
	}

	related := make(map[string]bool, len(dst.RelatedTerms))
	for _, r := range dst.RelatedTerms {
		related[documentModel.TermKey(r)] = true
	}
	for _, r := range src.RelatedTerms {
		if k := documentModel.TermKey(r); k != "" && !related[k] {
			related[k] = true
			dst.RelatedTerms = append(dst.RelatedTerms, r)
		}
	}

	if src.Importance > dst.Importance {
		dst.Importance = src.Importance
	}
	if dst.Definition == "" {
		dst.Definition = src.Definition
	}
}

func (s *GormArtifactStore) ListConcepts(ctx context.Context, documentID string, filter documentModel.ConceptFilter) ([]documentModel.Concept, error) {
	q := s.db.WithContext(ctx).Where("document_id = ?", documentID)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.MinImportance > 0 {
		q = q.Where("importance >= ?", filter.MinImportance)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	out := []documentModel.Concept{}
	if err := q.Order("importance DESC").Order("term_key").Find(&out).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not list concepts", err)
	}
	return out, nil
}

func (s *GormArtifactStore) CreateExerciseSet(ctx context.Context, set *documentModel.ExerciseSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(set).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "could not save exercises", err)
	}
	return nil
}

func (s *GormArtifactStore) ListExerciseSets(ctx context.Context, documentID string) ([]documentModel.ExerciseSet, error) {
	out := []documentModel.ExerciseSet{}
	err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not list exercises", err)
	}
	return out, nil
}

func (s *GormArtifactStore) CreateMindMap(ctx context.Context, mindMap *documentModel.MindMap) error {
	if mindMap.ID == "" {
		mindMap.ID = uuid.NewString()
	}
	if mindMap.ValidationErrors == nil {
		mindMap.ValidationErrors = datatypes.JSONSlice[string]{}
	}
	if err := s.db.WithContext(ctx).Create(mindMap).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "could not save mind map", err)
	}
	return nil
}

func (s *GormArtifactStore) LatestMindMap(ctx context.Context, documentID string) (*documentModel.MindMap, error) {
	var out documentModel.MindMap
	err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Order("created_at DESC").First(&out).Error
	if err != nil {
		return nil, dbError(err, "mind map not found")
	}
	return &out, nil
}

// PurgeDocument physically removes every artifact of a document.
func (s *GormArtifactStore) PurgeDocument(ctx context.Context, documentID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&documentModel.Summary{},
			&documentModel.Concept{},
			&documentModel.ExerciseSet{},
			&documentModel.MindMap{},
		} {
			if err := tx.Unscoped().Where("document_id = ?", documentID).Delete(model).Error; err != nil {
				return apperr.Wrap(apperr.Internal, "could not purge artifacts", err)
			}
		}
		return nil
	})
}

var _ documentModel.ArtifactStore = (*GormArtifactStore)(nil)
var _ documentModel.DocumentStore = (*GormDocumentStore)(nil)
