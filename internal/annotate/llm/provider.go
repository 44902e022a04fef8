package llm

import "context"

type Request struct {
	Operation string
	System    string
	Prompt    string
	// JSON asks the model for a single JSON object.
	JSON bool
}

// Provider is a hosted language model. Implementations return
// apperr.UpstreamUnavailable for transport and non-success responses.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}
