package googleEmbedding

import (
	"context"
	"net/http"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/metrics"
	"github.com/akolanti/docmind/internal/semantic/embedding"
	"github.com/akolanti/docmind/pkg/logger_i"
	"google.golang.org/genai"
)

var dimension int32 = config.EmbeddingOutputDimensionality

const retryDelay = 5 * time.Second

type client struct {
	genAi  *genai.Client
	model  string
	logger *logger_i.Logger
}

func NewGoogleEmbedder(ctx context.Context, apiKey string, modelName string, httpClient *http.Client) (embedding.Embedder, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "could not create embedding client", err)
	}
	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", modelName)
	return &client{genAi: c, model: modelName, logger: logger}, nil
}

func (c *client) Model() string {
	return c.model
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	result, err := c.doCall(ctx, genai.Text(query), "RETRIEVAL_QUERY")
	if err != nil {
		c.logger.FromContext(ctx).Error("error getting query embedding", "error", err)
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "embedding service unavailable", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, apperr.New(apperr.UpstreamUnavailable, "embedding service returned no vectors")
	}
	return result.Embeddings[0].Values, nil
}

// BatchEmbedding embeds one batch synchronously, retrying once when rate limited.
func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := c.logger.FromContext(ctx).With("batch", len(chunks))

	res, err := c.doCall(ctx, getContent(chunks), "RETRIEVAL_DOCUMENT")
	if err != nil && doRetry(err, log) {
		log.Debug("retrying after rate limit", "delay", retryDelay)
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.UpstreamUnavailable, "embedding cancelled", ctx.Err())
		}
		res, err = c.doCall(ctx, getContent(chunks), "RETRIEVAL_DOCUMENT")
	}
	if err != nil {
		log.Error("error getting embeddings from google", "error", err)
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "embedding service unavailable", err)
	}
	if len(res.Embeddings) != len(chunks) {
		return nil, apperr.Newf(apperr.UpstreamUnavailable, "embedding service returned %d vectors for %d chunks", len(res.Embeddings), len(chunks))
	}

	vectors := make([][]float32, 0, len(res.Embeddings))
	for _, e := range res.Embeddings {
		vectors = append(vectors, e.Values)
	}
	return vectors, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &dimension,
		TaskType:             taskType,
	})
}
