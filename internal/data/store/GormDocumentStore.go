package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultListLimit = 100

type GormDocumentStore struct {
	db     *gorm.DB
	logger *logger_i.Logger
}

func NewGormDocumentStore(db *gorm.DB) *GormDocumentStore {
	return &GormDocumentStore{db: db, logger: logger_i.NewLogger("DocumentStore")}
}

func (s *GormDocumentStore) Create(ctx context.Context, doc *documentModel.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "could not create document", err)
	}
	s.logger.FromContext(ctx).Debug("document created", "documentId", doc.ID)
	return nil
}

func (s *GormDocumentStore) Get(ctx context.Context, ownerID string, id string) (*documentModel.Document, error) {
	var doc documentModel.Document
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&doc).Error
	if err != nil {
		return nil, dbError(err, "document not found")
	}
	return &doc, nil
}

func (s *GormDocumentStore) GetByID(ctx context.Context, id string) (*documentModel.Document, error) {
	var doc documentModel.Document
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, dbError(err, "document not found")
	}
	return &doc, nil
}

func (s *GormDocumentStore) GetIncludingDeleted(ctx context.Context, id string) (*documentModel.Document, error) {
	var doc documentModel.Document
	if err := s.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, dbError(err, "document not found")
	}
	return &doc, nil
}

func (s *GormDocumentStore) List(ctx context.Context, ownerID string, filter documentModel.ListFilter) ([]documentModel.Document, error) {
	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if filter.Format != "" {
		q = q.Where("original_format = ?", filter.Format)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	docs := []documentModel.Document{}
	err := q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&docs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not list documents", err)
	}
	return docs, nil
}

// Update writes every mutable column guarded by the version the caller read.
func (s *GormDocumentStore) Update(ctx context.Context, doc *documentModel.Document, expectedVersion int64) error {
	next := expectedVersion + 1
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&documentModel.Document{}).
		Where("id = ? AND version = ?", doc.ID, expectedVersion).
		Updates(map[string]any{
			"title":             doc.Title,
			"source_url":        doc.SourceURL,
			"storage_key":       doc.StorageKey,
			"extracted_text":    doc.ExtractedText,
			"restructured_text": doc.RestructuredText,
			"status":            doc.Status,
			"processing_error":  doc.ProcessingError,
			"metadata":          doc.Metadata,
			"tags":              doc.Tags,
			"version":           next,
			"updated_at":        now,
		})
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "could not update document", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&documentModel.Document{}).Where("id = ?", doc.ID).Count(&count).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "could not update document", err)
		}
		if count == 0 {
			return apperr.New(apperr.NotFound, "document not found")
		}
		return apperr.Newf(apperr.Conflict, "document %s was modified concurrently", doc.ID)
	}
	doc.Version = next
	doc.UpdatedAt = now
	return nil
}

func (s *GormDocumentStore) SoftDelete(ctx context.Context, ownerID string, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&documentModel.Document{})
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "could not delete document", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "document not found")
	}
	return nil
}

func (s *GormDocumentStore) Purge(ctx context.Context, id string) (*documentModel.Document, error) {
	doc, err := s.GetIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = s.db.WithContext(ctx).Unscoped().Delete(&documentModel.Document{}, "id = ?", id).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not purge document", err)
	}
	return doc, nil
}

func (s *GormDocumentStore) ListDeletedBefore(ctx context.Context, before time.Time) ([]documentModel.Document, error) {
	docs := []documentModel.Document{}
	err := s.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
		Order("deleted_at").
		Find(&docs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not list deleted documents", err)
	}
	return docs, nil
}

func dbError(err error, notFoundMessage string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.NotFound, notFoundMessage)
	}
	return apperr.Wrap(apperr.Internal, "database error", err)
}
