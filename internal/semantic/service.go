// Package semantic keeps a per-document vector index of extracted text.
package semantic

import (
	"context"
	"strconv"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/domain/commonModels"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/semantic/embedding"
	"github.com/akolanti/docmind/internal/semantic/qdrantDB"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/google/uuid"
)

const maxSearchLimit = 20

// VectorIndex is implemented by qdrantDB.ClientHolder.
type VectorIndex interface {
	UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error
	Search(ctx context.Context, documentID string, vector []float32, limit uint64) ([]qdrantDB.Hit, error)
	CountDocument(ctx context.Context, documentID string) (uint64, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

type Service struct {
	embedder  embedding.Embedder
	index     VectorIndex
	batchSize int
	logger    *logger_i.Logger
}

func NewService(embedder embedding.Embedder, index VectorIndex) *Service {
	return &Service{
		embedder:  embedder,
		index:     index,
		batchSize: config.EmbeddingBatchSize,
		logger:    logger_i.NewLogger("SemanticIndex"),
	}
}

// chunkNamespace makes chunk ids stable across re-indexing of the same text.
var chunkNamespace = uuid.MustParse("6f1c3a52-6c1e-4bd4-9a49-0d7d3b1e8a10")

func PrepareChunks(doc *documentModel.Document, embeddingModel string) []commonModels.DocChunk {
	pieces := splitTextIntoChunks(doc.ExtractedText, config.ChunkSize, config.ChunkOverlap)
	now := time.Now().UTC()
	chunks := make([]commonModels.DocChunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, commonModels.DocChunk{
			DocumentId:     doc.ID,
			OwnerId:        doc.OwnerID,
			Title:          doc.Title,
			ChunkId:        uuid.NewSHA1(chunkNamespace, []byte(doc.ID+":"+strconv.Itoa(i))).String(),
			Chunk:          text,
			ChunkOrder:     i,
			EmbeddingModel: embeddingModel,
			IndexedAt:      now,
		})
	}
	return chunks
}

// IndexDocument replaces the document's chunks in the index.
func (s *Service) IndexDocument(ctx context.Context, doc *documentModel.Document) (int, error) {
	log := s.logger.FromContext(ctx).With("documentId", doc.ID)
	chunks := PrepareChunks(doc, s.embedder.Model())
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := s.index.DeleteDocument(ctx, doc.ID); err != nil {
		return 0, err
	}

	for i := 0; i < len(chunks); i += s.batchSize {
		end := min(i+s.batchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Chunk
		}
		vectors, err := s.embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return i, err
		}
		if err = s.index.UpsertBatch(ctx, batch, vectors); err != nil {
			return i, err
		}
		log.Debug("indexed batch", "from", i, "to", end)
	}
	return len(chunks), nil
}

func (s *Service) Search(ctx context.Context, documentID string, query string, limit int) ([]qdrantDB.Hit, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	n, err := s.index.CountDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.New(apperr.NotFound, "document has not been indexed yet")
	}

	vector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.index.Search(ctx, documentID, vector, uint64(limit))
}

func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	return s.index.DeleteDocument(ctx, documentID)
}
