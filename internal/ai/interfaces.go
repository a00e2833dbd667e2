package ai

import (
	"context"

	"atsengine/internal/types"
)

// AIProvider is a language model backend. Critique and Rewrite also return
// the tokens the call consumed, nil when the backend does not report them.
type AIProvider interface {
	Critique(ctx context.Context, text string) (types.Critique, *TokenUsage, error)
	Rewrite(ctx context.Context, req types.RewriteRequest) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage counts prompt and completion tokens for one model call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo is what /health reports about a configured model.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
