package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-assistant/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedBackend fails with errs[i] on attempt i and succeeds once the
// script runs out. It records the options of every attempt.
type scriptedBackend struct {
	mu    sync.Mutex
	errs  []error
	calls int
	opts  []domain.GenerateOptions
}

func (b *scriptedBackend) Chat(_ context.Context, _ []domain.Message, opts domain.GenerateOptions) (*domain.LLMResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts = append(b.opts, opts)
	idx := b.calls
	b.calls++
	if idx < len(b.errs) {
		return nil, b.errs[idx]
	}
	return &domain.LLMResponse{Text: "好的。", Done: true}, nil
}

func (b *scriptedBackend) Version() string { return "scripted" }

func (b *scriptedBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newTestGateway(backend domain.LLMClient, maxRetries int, opts ...GatewayOption) *Gateway {
	g := NewGateway(backend, maxRetries, 5, discardLogger(), opts...)
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g
}

func TestGateway_RetriesTransientThenSucceeds(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		&apiError{StatusCode: 503, Body: "overloaded"},
		&apiError{StatusCode: 429, Body: "slow down"},
	}}
	g := newTestGateway(backend, 5)

	resp, err := g.Chat(context.Background(), nil, domain.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "好的。", resp.Text)
	assert.Equal(t, 3, backend.callCount())
}

func TestGateway_ExhaustsRetries(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		&apiError{StatusCode: 500, Body: "a"},
		&apiError{StatusCode: 500, Body: "b"},
		&apiError{StatusCode: 500, Body: "c"},
	}}
	g := newTestGateway(backend, 3)

	_, err := g.Chat(context.Background(), nil, domain.GenerateOptions{})
	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 3, genErr.Attempts)
	assert.Equal(t, 3, backend.callCount())
}

func TestGateway_NonTransientFailsFast(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		&apiError{StatusCode: 401, Body: "bad key"},
		&apiError{StatusCode: 401, Body: "bad key"},
	}}
	g := newTestGateway(backend, 5)

	_, err := g.Chat(context.Background(), nil, domain.GenerateOptions{})
	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, genErr.Attempts)
	assert.Equal(t, 1, backend.callCount(), "auth errors must not be retried")
}

func TestGateway_SeedReusedAcrossAttempts(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		&apiError{StatusCode: 502, Body: "bad gateway"},
	}}
	g := newTestGateway(backend, 3)

	opts := domain.GenerateOptions{Temperature: 0.2, MaxTokens: 1024, Seed: 42}
	_, err := g.Chat(context.Background(), nil, opts)
	require.NoError(t, err)
	require.Len(t, backend.opts, 2)
	for _, got := range backend.opts {
		assert.Equal(t, opts, got)
	}
}

func TestGateway_CanceledContextStopsRetrying(t *testing.T) {
	backend := &scriptedBackend{errs: []error{
		&apiError{StatusCode: 500, Body: "boom"},
		&apiError{StatusCode: 500, Body: "boom"},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGateway(backend, 5, 5, discardLogger())
	g.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := g.Chat(ctx, nil, domain.GenerateOptions{})
	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, genErr.Cause, context.Canceled)
	assert.Equal(t, 1, backend.callCount())
}

func TestGateway_MinimumOneAttempt(t *testing.T) {
	backend := &scriptedBackend{}
	g := newTestGateway(backend, 0)

	_, err := g.Chat(context.Background(), nil, domain.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.callCount())
}

func TestGateway_SingleInferenceSlotSerializes(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	backend := &blockingBackend{enter: func() {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
	}, exit: func() {
		mu.Lock()
		inFlight--
		mu.Unlock()
	}}
	g := newTestGateway(backend, 1, WithSingleInferenceSlot())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Chat(context.Background(), nil, domain.GenerateOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
}

type blockingBackend struct {
	enter func()
	exit  func()
}

func (b *blockingBackend) Chat(context.Context, []domain.Message, domain.GenerateOptions) (*domain.LLMResponse, error) {
	b.enter()
	time.Sleep(5 * time.Millisecond)
	b.exit()
	return &domain.LLMResponse{Text: "ok", Done: true}, nil
}

func (b *blockingBackend) Version() string { return "blocking" }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "server error", err: &apiError{StatusCode: 500}, want: true},
		{name: "rate limited", err: &apiError{StatusCode: 429}, want: true},
		{name: "unauthorized", err: &apiError{StatusCode: 401}, want: false},
		{name: "bad request", err: &apiError{StatusCode: 400}, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "wrapped deadline", err: errors.Join(errors.New("chat"), context.DeadlineExceeded), want: true},
		{name: "plain error", err: errors.New("parse failure"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
