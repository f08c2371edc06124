package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "qwen2.5-large:7b"
)

// OllamaClient calls a local Ollama server's /api/generate endpoint.
type OllamaClient struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewOllamaClient creates a client. Empty host and model fall back to the
// defaults; a nil httpClient uses http.DefaultClient. Deadlines come from
// the request context.
func NewOllamaClient(host, model string, httpClient *http.Client) *OllamaClient {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaClient{
		host:       strings.TrimRight(host, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

func (c *OllamaClient) Name() string { return "ollama" }

// Model returns the default model used when a request does not name one.
func (c *OllamaClient) Model() string { return c.model }

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate sends a non-streaming generation request.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OllamaClient.Generate: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("OllamaClient.Generate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if IsTimeout(err) {
			return nil, fmt.Errorf("OllamaClient.Generate: %w", err)
		}
		return nil, fmt.Errorf("OllamaClient.Generate: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("OllamaClient.Generate: read response: %w", err)
	}

	var out ollamaGenerateResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(data, &out) == nil && out.Error != "" {
			return nil, fmt.Errorf("OllamaClient.Generate: status %d: %s", resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("OllamaClient.Generate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("OllamaClient.Generate: decode response: %w", err)
	}
	if out.Model == "" {
		out.Model = model
	}

	return &Response{Model: out.Model, Text: out.Response}, nil
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the models installed on the server.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("OllamaClient.ListModels: build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("OllamaClient.ListModels: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OllamaClient.ListModels: status %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("OllamaClient.ListModels: decode response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

var _ Generator = (*OllamaClient)(nil)
