// Package adapter provides a uniform interface over LLM providers: the
// official Anthropic, OpenAI, and Google SDKs, plus OpenAI-compatible HTTP
// (Perplexity) and a local Ollama endpoint.
package adapter

import "context"

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Generate sends a prompt to the model and returns the response.
	Generate(ctx context.Context, model string, prompt string) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}
