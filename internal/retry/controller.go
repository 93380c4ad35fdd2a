// Package retry wraps outbound completion calls with rate-limit and
// server-error aware retries, backoff with jitter, and global pacing.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"glauk-api/internal/domain"

	"go.uber.org/zap"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// JitterFunc returns a random duration in [0, max].
type JitterFunc func(max time.Duration) time.Duration

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max) + 1))
}

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
	// MaxDelay caps a server reset hint; it never shortens the computed backoff.
	MaxDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   3 * time.Second,
		MaxJitter:   time.Second,
		MaxDelay:    time.Minute,
	}
}

type Option func(*Controller)

func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

func WithJitter(j JitterFunc) Option {
	return func(c *Controller) { c.jitter = j }
}

// Controller decorates a CompletionClient with the retry policy and the shared pacer.
type Controller struct {
	client domain.CompletionClient
	pacer  *Pacer
	policy Policy
	sleep  Sleeper
	jitter JitterFunc
	logger *zap.Logger
}

func NewController(client domain.CompletionClient, pacer *Pacer, policy Policy, logger *zap.Logger, opts ...Option) *Controller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		client: client,
		pacer:  pacer,
		policy: policy,
		sleep:  SleepContext,
		jitter: randomJitter,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs CallWithRetry with the policy's attempt bound, so a Controller
// can stand in wherever a CompletionClient is expected.
func (c *Controller) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return c.CallWithRetry(ctx, req, c.policy.MaxAttempts)
}

type failureKind int

const (
	kindFatal failureKind = iota
	kindRateLimited
	kindTransient
	kindEmpty
)

func classify(err error) (failureKind, int, time.Duration) {
	if domain.IsCode(err, domain.CodeEmptyUpstreamResponse) {
		return kindEmpty, 0, 0
	}
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		return kindFatal, 0, 0
	}
	switch {
	case upErr.StatusCode == 429:
		return kindRateLimited, upErr.StatusCode, upErr.ResetAfter
	case upErr.StatusCode == 0, upErr.StatusCode == 408, upErr.StatusCode >= 500:
		return kindTransient, upErr.StatusCode, upErr.ResetAfter
	default:
		return kindFatal, upErr.StatusCode, 0
	}
}

// Backoff is the wait before the attempt following attempt (1-based):
// BaseDelay*attempt plus jitter, or the server hint when that is longer.
func (c *Controller) Backoff(attempt int, hint time.Duration) time.Duration {
	computed := c.policy.BaseDelay*time.Duration(attempt) + c.jitter(c.policy.MaxJitter)
	if hint <= computed {
		return computed
	}
	if c.policy.MaxDelay > 0 && hint > c.policy.MaxDelay {
		if c.policy.MaxDelay > computed {
			return c.policy.MaxDelay
		}
		return computed
	}
	return hint
}

// CallWithRetry performs req, retrying 429, 408, 5xx and transport failures
// up to maxAttempts. Other statuses fail at once with UpstreamCallFailed; an
// empty 2xx body fails with EmptyUpstreamResponse.
func (c *Controller) CallWithRetry(ctx context.Context, req domain.CompletionRequest, maxAttempts int) (*domain.CompletionResponse, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		lastErr  error
		lastKind failureKind
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.client.Complete(ctx, req)
		if err == nil {
			if resp == nil || strings.TrimSpace(resp.Content) == "" {
				return nil, domain.NewEmptyUpstreamResponseError(nil)
			}
			if attempt > 1 {
				c.logger.Info("Upstream call succeeded after retry", zap.Int("attempt", attempt))
			}
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		kind, status, hint := classify(err)
		switch kind {
		case kindEmpty:
			return nil, err
		case kindFatal:
			c.logger.Error("Upstream call failed", zap.Int("status", status), zap.Error(err))
			return nil, domain.NewUpstreamCallFailedError(status, err)
		}

		lastErr, lastKind = err, kind
		if attempt == maxAttempts {
			break
		}

		delay := c.Backoff(attempt, hint)
		c.logger.Warn("Upstream call retrying",
			zap.String("model", req.Model),
			zap.Int("status", status),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("sleep", delay),
			zap.Duration("reset_hint", hint),
			zap.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.logger.Error("Upstream retries exhausted", zap.Int("attempts", maxAttempts), zap.Error(lastErr))
	if lastKind == kindRateLimited {
		return nil, domain.NewRateLimitExceededError(maxAttempts, lastErr)
	}
	return nil, domain.NewUpstreamUnavailableError(maxAttempts, lastErr)
}
