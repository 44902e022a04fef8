package documentModel

import (
	"context"
	"time"
)

type DocumentStore interface {
	Create(ctx context.Context, doc *Document) error
	// Get is owner scoped and hides soft-deleted rows; absence and foreign ownership
	// both return apperr.NotFound.
	Get(ctx context.Context, ownerID string, id string) (*Document, error)
	// GetByID is used by background jobs which act on behalf of the owner.
	GetByID(ctx context.Context, id string) (*Document, error)
	// GetIncludingDeleted ignores ownership and soft deletion.
	GetIncludingDeleted(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, ownerID string, filter ListFilter) ([]Document, error)
	// Update persists doc if the stored version equals expectedVersion and bumps
	// doc.Version on success; otherwise returns apperr.Conflict.
	Update(ctx context.Context, doc *Document, expectedVersion int64) error
	SoftDelete(ctx context.Context, ownerID string, id string) error
	// Purge removes the row even when soft-deleted and returns what was removed.
	Purge(ctx context.Context, id string) (*Document, error)
	ListDeletedBefore(ctx context.Context, before time.Time) ([]Document, error)
}

type ArtifactStore interface {
	UpsertSummary(ctx context.Context, summary *Summary) (*Summary, error)
	ListSummaries(ctx context.Context, documentID string, summaryType SummaryType) ([]Summary, error)
	MergeConcepts(ctx context.Context, documentID string, ownerID string, concepts []Concept) ([]Concept, error)
	ListConcepts(ctx context.Context, documentID string, filter ConceptFilter) ([]Concept, error)
	CreateExerciseSet(ctx context.Context, set *ExerciseSet) error
	ListExerciseSets(ctx context.Context, documentID string) ([]ExerciseSet, error)
	CreateMindMap(ctx context.Context, mindMap *MindMap) error
	LatestMindMap(ctx context.Context, documentID string) (*MindMap, error)
	PurgeDocument(ctx context.Context, documentID string) error
}
