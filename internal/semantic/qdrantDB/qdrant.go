package qdrantDB

import (
	"context"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/domain/commonModels"
	"github.com/akolanti/docmind/internal/metrics"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Hit struct {
	ChunkId    string  `json:"chunk_id"`
	ChunkOrder int     `json:"chunk_order"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

type ClientHolder struct {
	QObj       *qdrant.Client
	collection string
	dimension  uint64
	logger     *logger_i.Logger
}

// NewQdrantClient connects and makes sure the chunk collection exists.
func NewQdrantClient(ctx context.Context, cfg *config.Config) (*ClientHolder, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.QdrantHost,
		Port:     cfg.QdrantPort,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "could not create qdrant client", err)
	}

	db := &ClientHolder{
		QObj:       client,
		collection: config.SemanticCollectionName,
		dimension:  uint64(config.EmbeddingOutputDimensionality),
		logger:     logger_i.NewLogger("Qdrant"),
	}
	if err = db.EnsureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	db.logger.Info("qdrant ready", "collection", db.collection)
	return db, nil
}

func (db *ClientHolder) Close() {
	if err := db.QObj.Close(); err != nil {
		db.logger.Error("could not close qdrant", "error", err)
	}
}

func (db *ClientHolder) EnsureCollection(ctx context.Context) error {
	exists, err := db.QObj.CollectionExists(ctx, db.collection)
	if err != nil {
		return classify("could not check collection", err)
	}
	if exists {
		return nil
	}

	err = db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     db.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return classify("could not create collection", err)
	}

	// payload index keeps per-document filtering cheap
	_, err = db.QObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: db.collection,
		FieldName:      "document_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return classify("could not index document_id", err)
	}
	return nil
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return apperr.Newf(apperr.Internal, "mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkId),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":         chunk.Chunk,
				"document_id":     chunk.DocumentId,
				"owner_id":        chunk.OwnerId,
				"title":           chunk.Title,
				"chunk_order":     chunk.ChunkOrder,
				"chunk_id":        chunk.ChunkId,
				"embedding_model": chunk.EmbeddingModel,
				"indexed_at":      chunk.IndexedAt.Unix(),
			}),
		}
	}

	start := time.Now()
	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	metrics.CaptureExecutionMetrics("qdrant_upsert", time.Since(start))
	if err != nil {
		return classify("qdrant upsert failed", err)
	}
	return nil
}

// Search returns the closest chunks of one document.
func (db *ClientHolder) Search(ctx context.Context, documentID string, vector []float32, limit uint64) ([]Hit, error) {
	start := time.Now()
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID)},
		},
		Limit:       qdrant.PtrOf(limit),
		WithPayload: qdrant.NewWithPayload(true),
	})
	metrics.CaptureExecutionMetrics("qdrant_query", time.Since(start))
	if err != nil {
		db.logger.FromContext(ctx).Error("error querying qdrant", "error", err)
		return nil, classify("qdrant query failed", err)
	}

	hits := make([]Hit, 0, len(result))
	for _, hit := range result {
		hits = append(hits, Hit{
			ChunkId:    hit.Payload["chunk_id"].GetStringValue(),
			ChunkOrder: int(hit.Payload["chunk_order"].GetIntegerValue()),
			Content:    hit.Payload["content"].GetStringValue(),
			Score:      hit.Score,
		})
	}
	return hits, nil
}

func (db *ClientHolder) CountDocument(ctx context.Context, documentID string) (uint64, error) {
	n, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Filter:         documentFilter(documentID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, classify("qdrant count failed", err)
	}
	return n, nil
}

func (db *ClientHolder) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentID)),
	})
	if err != nil {
		return classify("qdrant delete failed", err)
	}
	return nil
}

func documentFilter(documentID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID)},
	}
}

// classify keeps grpc transport failures retryable and everything else internal.
func classify(msg string, err error) error {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return apperr.Wrap(apperr.UpstreamUnavailable, msg, err)
		case codes.NotFound:
			return apperr.Wrap(apperr.NotFound, msg, err)
		}
	}
	return apperr.Wrap(apperr.Internal, msg, err)
}
