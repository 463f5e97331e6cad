// Package perception is the model-facing side of the assistant: the HTTP
// client for an Ollama-style inference server and the parser that finds a
// function call in the text the model sends back.
package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"localcoder/internal/logging"
	"localcoder/internal/types"
)

// Options are the sampling parameters forwarded with every chat request.
type Options struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	TopK          int     `json:"top_k"`
	NumPredict    int     `json:"num_predict"`
	RepeatPenalty float64 `json:"repeat_penalty"`
}

// OllamaConfig configures an OllamaClient.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Options Options
	Timeout time.Duration
}

// DefaultOllamaConfig returns defaults for a local server.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL: "http://localhost:11434",
		Model:   "qwen2.5-coder:7b",
		Options: Options{
			Temperature:   0.1,
			TopP:          0.9,
			TopK:          40,
			NumPredict:    4096,
			RepeatPenalty: 1.1,
		},
		Timeout: 300 * time.Second,
	}
}

// APIError is returned when the server answers with a non-200 status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  Options         `json:"options"`
}

type chatResponse struct {
	Model   string        `json:"model"`
	Message types.Message `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []types.ModelInfo `json:"models"`
}

// OllamaClient implements types.LLMClient and types.ModelLister.
// Model and options may be changed between calls.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	model   string
	options Options
}

// NewOllamaClient creates a client from config.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.Timeout <= 0 {
		config.Timeout = 300 * time.Second
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		model:      config.Model,
		options:    config.Options,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// BaseURL returns the server address.
func (c *OllamaClient) BaseURL() string { return c.baseURL }

// Model returns the current model name.
func (c *OllamaClient) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel switches the model used by subsequent requests.
func (c *OllamaClient) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// Options returns the current sampling options.
func (c *OllamaClient) Options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.options
}

// SetOptions replaces the sampling options.
func (c *OllamaClient) SetOptions(o Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = o
}

// Chat posts the conversation to /api/chat and returns the reply text.
func (c *OllamaClient) Chat(ctx context.Context, messages []types.Message) (string, error) {
	startTime := time.Now()
	reqID := uuid.NewString()

	c.mu.RLock()
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  c.options,
	}
	c.mu.RUnlock()

	logging.APIDebug("[%s] chat: model=%s messages=%d", reqID, reqBody.Model, len(messages))

	body, err := c.do(ctx, http.MethodPost, "/api/chat", reqID, reqBody)
	if err != nil {
		logging.APIError("[%s] chat failed after %v: %v", reqID, time.Since(startTime), err)
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("API error: %s", resp.Error)
	}

	logging.API("[%s] chat: completed in %v response_len=%d", reqID, time.Since(startTime), len(resp.Message.Content))
	return resp.Message.Content, nil
}

// ListModels returns the models installed on the server.
func (c *OllamaClient) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/tags", uuid.NewString(), nil)
	if err != nil {
		return nil, err
	}
	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}
	return tags.Models, nil
}

// Ping checks that the server is reachable.
func (c *OllamaClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/tags", uuid.NewString(), nil)
	return err
}

func (c *OllamaClient) do(ctx context.Context, method, path, reqID string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
