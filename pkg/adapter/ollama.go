package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOllamaHost = "http://localhost:11434"

// OllamaAdapter implements the Adapter interface for a local Ollama server.
// No authentication is required; generation is non-streaming.
type OllamaAdapter struct {
	host       string
	httpClient *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// NewOllamaAdapter creates an adapter for the Ollama server at host.
// An empty host defaults to http://localhost:11434.
func NewOllamaAdapter(host string) *OllamaAdapter {
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaAdapter{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{},
	}
}

// Name returns the adapter identifier.
func (a *OllamaAdapter) Name() string {
	return "ollama"
}

// Models returns commonly installed local models. The actual set depends on
// what the local server has pulled.
func (a *OllamaAdapter) Models() []string {
	return []string{
		"llama3.1",
		"mistral",
	}
}

// Generate sends a prompt to the local Ollama generate endpoint.
func (a *OllamaAdapter) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	reqBody := ollamaRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.host+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if ollamaResp.Error != "" {
		return nil, &AdapterError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("ollama error: %s", ollamaResp.Error),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &AdapterError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	return &Response{
		Content: ollamaResp.Response,
		Adapter: a.Name(),
		Model:   model,
		Usage: &Usage{
			PromptTokens:     ollamaResp.PromptEvalCount,
			CompletionTokens: ollamaResp.EvalCount,
			TotalTokens:      ollamaResp.PromptEvalCount + ollamaResp.EvalCount,
		},
	}, nil
}
