package openaiLLM

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/docmind/internal/annotate/llm"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type llmClient struct {
	client    openai.Client
	modelName string
	logger    *logger_i.Logger
}

// NewOpenAIClient accepts extra request options so tests can point it at a fake server.
func NewOpenAIClient(apiKey string, modelName string, httpClient *http.Client, opts ...option.RequestOption) llm.Provider {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		base = append(base, option.WithHTTPClient(httpClient))
	}
	return &llmClient{
		client:    openai.NewClient(append(base, opts...)...),
		modelName: modelName,
		logger:    logger_i.NewLogger("llm_openai"),
	}
}

func (c *llmClient) Name() string {
	return "openai:" + c.modelName
}

func (c *llmClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	log := c.logger.FromContext(ctx).With("operation", req.Operation)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.modelName),
		Messages:    messages,
		Temperature: openai.Float(float64(config.ModelTemperature)),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			log.Error("openai returned an error", "status", apiErr.StatusCode)
		} else {
			log.Error("openai call failed", "error", err)
		}
		return "", apperr.Wrap(apperr.UpstreamUnavailable, "language model unavailable", err)
	}
	if len(completion.Choices) == 0 {
		return "", apperr.New(apperr.UpstreamUnavailable, "language model returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
