package pipeline

import (
	"context"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/documentModel"
)

// Purge physically removes a document, soft-deleted or not, with its artifacts,
// stored blob and index entries. The row goes last so a failed purge can be
// retried.
func (o *Orchestrator) Purge(ctx context.Context, id string) (*documentModel.Document, error) {
	log := o.logger.FromContext(ctx).With("documentId", id)

	doc, err := o.docs.GetIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if key := doc.StorageKeyValue(); key != "" {
		if err = o.blobs.Delete(ctx, key); err != nil && !apperr.IsKind(err, apperr.NotFound) {
			return nil, err
		}
	}
	if o.semantic != nil {
		if err = o.semantic.DeleteDocument(ctx, id); err != nil {
			log.Warn("could not remove index entries", "error", err)
		}
	}
	if err = o.artifacts.PurgeDocument(ctx, id); err != nil {
		return nil, err
	}
	if _, err = o.docs.Purge(ctx, id); err != nil {
		return nil, err
	}
	log.Info("document purged")
	return doc, nil
}

// PurgeDeletedBefore purges every soft-deleted document older than before and
// returns the ids it removed. It stops at the first failure.
func (o *Orchestrator) PurgeDeletedBefore(ctx context.Context, before time.Time) ([]string, error) {
	docs, err := o.docs.ListDeletedBefore(ctx, before)
	if err != nil {
		return nil, err
	}
	purged := make([]string, 0, len(docs))
	for _, d := range docs {
		if _, err = o.Purge(ctx, d.ID); err != nil {
			return purged, err
		}
		purged = append(purged, d.ID)
	}
	return purged, nil
}
