package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"glauk-api/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaClient serves completions from a local Ollama server, for development
// without OpenRouter credentials.
type OllamaClient struct {
	model llms.Model
}

func NewOllamaClient(serverURL, modelName string) (*OllamaClient, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("ollama server URL cannot be empty")
	}
	if modelName == "" {
		return nil, fmt.Errorf("ollama model name cannot be empty")
	}

	llm, err := ollama.New(
		ollama.WithModel(modelName),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LangchainGo Ollama client: %w", err)
	}
	return &OllamaClient{model: llm}, nil
}

func newOllamaClientWithModel(model llms.Model) *OllamaClient {
	return &OllamaClient{model: model}
}

func (c *OllamaClient) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == domain.RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		content = append(content, llms.TextParts(role, m.Content))
	}

	opts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return nil, &domain.UpstreamError{StatusCode: ollamaStatus(err), Err: fmt.Errorf("ollama generate content: %w", err)}
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, domain.NewEmptyUpstreamResponseError(nil)
	}
	return &domain.CompletionResponse{Content: resp.Choices[0].Content}, nil
}

// ollamaStatus treats connection failures as transient and everything else as a bad request.
func ollamaStatus(err error) int {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return 0
	}
	return 400
}
