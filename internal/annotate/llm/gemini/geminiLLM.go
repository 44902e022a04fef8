package gemini

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/docmind/internal/annotate/llm"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

func NewGeminiClient(ctx context.Context, apiKey string, modelName string, httpClient *http.Client) (llm.Provider, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "could not create gemini client", err)
	}
	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, logger: logger}, nil
}

func (c *llmClient) Name() string {
	return "gemini:" + c.modelName
}

func (c *llmClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	log := c.logger.FromContext(ctx).With("operation", req.Operation)

	contentConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(config.ModelTemperature),
	}
	if req.System != "" {
		contentConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.JSON {
		contentConfig.ResponseMIMEType = "application/json"
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(req.Prompt), contentConfig)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			log.Error("gemini returned an error", "code", apiErr.Code, "status", apiErr.Status)
		} else {
			log.Error("gemini call failed", "error", err)
		}
		return "", apperr.Wrap(apperr.UpstreamUnavailable, "language model unavailable", err)
	}
	if result == nil {
		return "", apperr.New(apperr.UpstreamUnavailable, "language model returned no response")
	}
	return result.Text(), nil
}
