package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"glauk-api/internal/domain"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterConfig configures the OpenAI-compatible chat completion client.
type OpenRouterConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Referer string
	Title   string
	Timeout time.Duration
}

// OpenRouterClient performs one chat completion per call. Retries belong to
// the caller; failed calls come back as *domain.UpstreamError.
type OpenRouterClient struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func NewOpenRouterClient(cfg OpenRouterConfig) (*OpenRouterClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key cannot be empty")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openrouter model name cannot be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	c := &OpenRouterClient{model: cfg.Model, now: time.Now}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &responseRecorder{
		inner:   &http.Client{Timeout: timeout},
		referer: cfg.Referer,
		title:   cfg.Title,
		now:     func() time.Time { return c.now() },
	}
	c.client = openai.NewClientWithConfig(clientCfg)
	return c, nil
}

func (c *OpenRouterClient) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == domain.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	rec := &responseInfo{}
	ctx = context.WithValue(ctx, responseInfoKey{}, rec)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		status := statusFromError(err)
		if status == 0 {
			status = rec.status
		}
		if status >= 200 && status < 300 {
			// 2xx whose body did not decode
			return nil, domain.NewEmptyUpstreamResponseError(err)
		}
		return nil, &domain.UpstreamError{
			StatusCode: status,
			ResetAfter: rec.resetAfter,
			Err:        fmt.Errorf("openrouter chat completion: %w", err),
		}
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, domain.NewEmptyUpstreamResponseError(nil)
	}
	return &domain.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}, nil
}

func statusFromError(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

type responseInfoKey struct{}

// responseInfo collects what go-openai errors do not expose: the raw status
// and the rate-limit reset headers.
type responseInfo struct {
	status     int
	resetAfter time.Duration
}

// responseRecorder adds the attribution headers and records response metadata
// into the responseInfo carried by the request context.
type responseRecorder struct {
	inner   openai.HTTPDoer
	referer string
	title   string
	now     func() time.Time
}

func (r *responseRecorder) Do(req *http.Request) (*http.Response, error) {
	if r.referer != "" {
		req.Header.Set("HTTP-Referer", r.referer)
	}
	if r.title != "" {
		req.Header.Set("X-Title", r.title)
	}

	resp, err := r.inner.Do(req)
	if err != nil {
		return nil, err
	}
	if info, ok := req.Context().Value(responseInfoKey{}).(*responseInfo); ok {
		info.status = resp.StatusCode
		if resp.StatusCode >= 400 {
			info.resetAfter = ResetHint(resp.Header, r.now())
		}
	}
	return resp, nil
}

// ResetHint reads Retry-After (seconds or HTTP date) or X-RateLimit-Reset
// (epoch milliseconds or seconds) and returns how long to wait from now.
func ResetHint(h http.Header, now time.Time) time.Duration {
	if ra := strings.TrimSpace(h.Get("Retry-After")); ra != "" {
		if secs, err := strconv.ParseFloat(ra, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
		if at, err := http.ParseTime(ra); err == nil {
			if d := at.Sub(now); d > 0 {
				return d
			}
		}
	}
	if reset := strings.TrimSpace(h.Get("X-RateLimit-Reset")); reset != "" {
		if v, err := strconv.ParseInt(reset, 10, 64); err == nil && v > 0 {
			var at time.Time
			switch {
			case v > 1e12:
				at = time.UnixMilli(v)
			case v > 1e9:
				at = time.Unix(v, 0)
			default:
				return time.Duration(v) * time.Second
			}
			if d := at.Sub(now); d > 0 {
				return d
			}
		}
	}
	return 0
}
