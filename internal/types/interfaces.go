package types

import (
	"context"
)

// LLMClient defines the interface for model interactions.
// Chat sends the full history and returns the assistant's reply text.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ModelLister is implemented by clients that can enumerate available models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelInfo describes one model known to the inference server.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
	ModifiedAt string `json:"modified_at"`
}
