// Package llm provides Ollama LLM client implementation
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaClient implements LLMClient using local Ollama API
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaClient creates a new Ollama LLM client
// baseURL is typically "http://localhost:11434"
// model is the LLM model name, e.g. "mistral"
func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second, // 5 minutes for slow local models
		},
	}
}

type ollamaGenerateRequest struct {
	Model  string          `json:"model"`
	System string          `json:"system,omitempty"`
	Prompt string          `json:"prompt"`
	Images []string        `json:"images,omitempty"`
	Stream bool            `json:"stream"`
	Format json.RawMessage `json:"format,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete sends the request to /api/generate and returns the response text.
// The schema, when present, is passed as Ollama's structured output format.
func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	format := json.RawMessage(`"json"`)
	if req.Schema != nil {
		schema, err := req.Schema.MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("marshal schema: %w", err)
		}
		format = schema
	}

	reqBody := ollamaGenerateRequest{
		Model:  c.model,
		System: req.System,
		Prompt: req.Prompt,
		Stream: false,
		Format: format,
	}
	if req.Image != nil {
		reqBody.Images = []string{req.Image.Base64()}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", transportError(ctx, fmt.Errorf("ollama: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(body))
		if retryableStatus(resp.StatusCode) {
			return "", &TransientError{StatusCode: resp.StatusCode, Err: err}
		}
		return "", err
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return result.Response, nil
}
