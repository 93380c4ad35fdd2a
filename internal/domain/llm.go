package domain

import (
	"context"
	"time"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is one message in a completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// CompletionRequest is an OpenAI-compatible chat completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// CompletionResponse carries the first choice's content.
type CompletionResponse struct {
	Content string
	Model   string
}

// UpstreamError is what completion clients return for failed calls so the
// retry controller can classify them. StatusCode is 0 for transport errors.
type UpstreamError struct {
	StatusCode int
	// ResetAfter is the server's hint for when to try again; zero if absent.
	ResetAfter time.Duration
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return "upstream error"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// CompletionClient performs a single chat completion attempt.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
