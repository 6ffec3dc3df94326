package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"campus-assistant/internal/domain"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 10 * time.Second
)

// Gateway wraps a backend client with per-attempt timeouts, transient-fault
// retries with exponential backoff, and backend concurrency control. It is
// the only LLMClient the rest of the application sees; callers may invoke
// Chat concurrently regardless of what the backend can serve.
type Gateway struct {
	backend    domain.LLMClient
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger

	// slot serializes requests when the backend shares a single model
	// instance (local weights on one accelerator). Nil means unrestricted.
	slot *semaphore.Weighted
	// limiter throttles hosted APIs. Nil means unrestricted.
	limiter *rate.Limiter

	sleep func(ctx context.Context, d time.Duration) error
}

// GatewayOption customizes gateway construction.
type GatewayOption func(*Gateway)

// WithSingleInferenceSlot serializes all backend calls through one in-flight
// request. Used for the local backend.
func WithSingleInferenceSlot() GatewayOption {
	return func(g *Gateway) {
		g.slot = semaphore.NewWeighted(1)
	}
}

// WithRateLimit throttles backend calls to rps requests per second. Used
// for hosted APIs.
func WithRateLimit(rps float64, burst int) GatewayOption {
	return func(g *Gateway) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewGateway wraps the backend with retry and concurrency policy.
func NewGateway(backend domain.LLMClient, maxRetries, timeoutSeconds int, logger *slog.Logger, opts ...GatewayOption) *Gateway {
	if maxRetries < 1 {
		maxRetries = 1
	}
	g := &Gateway{
		backend:    backend,
		maxRetries: maxRetries,
		timeout:    time.Duration(timeoutSeconds) * time.Second,
		logger:     logger,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Chat runs one generation with up to maxRetries attempts. Each attempt is
// bounded by the per-attempt timeout; a timed-out attempt's partial output
// is discarded, never consumed. The options, including any fixed seed, are
// passed to every attempt unchanged.
func (g *Gateway) Chat(ctx context.Context, messages []domain.Message, opts domain.GenerateOptions) (*domain.LLMResponse, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		resp, err := g.attempt(ctx, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// Caller gave up; do not keep retrying on their behalf.
			return nil, &domain.GenerationError{Cause: ctx.Err(), Attempts: attempt}
		}
		if !isTransient(err) {
			return nil, &domain.GenerationError{Cause: err, Attempts: attempt}
		}
		if attempt == g.maxRetries {
			break
		}

		delay := backoff + time.Duration(rand.Int63n(int64(initialBackoff)))
		g.logger.Warn("generation attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()))
		if err := g.sleep(ctx, delay); err != nil {
			return nil, &domain.GenerationError{Cause: err, Attempts: attempt}
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return nil, &domain.GenerationError{Cause: lastErr, Attempts: g.maxRetries}
}

func (g *Gateway) attempt(ctx context.Context, messages []domain.Message, opts domain.GenerateOptions) (*domain.LLMResponse, error) {
	if g.slot != nil {
		if err := g.slot.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquire inference slot: %w", err)
		}
		defer g.slot.Release(1)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	return g.backend.Chat(attemptCtx, messages, opts)
}

// Version returns the wrapped backend's model identifier.
func (g *Gateway) Version() string {
	return g.backend.Version()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ domain.LLMClient = (*Gateway)(nil)
