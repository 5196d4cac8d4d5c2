package llm

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/jonathan/bullet-ranker/internal/apperr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Embedder defaults
const (
	defaultMaxConcurrent = 3
	defaultMaxRetries    = 3
	defaultBaseDelay     = 500 * time.Millisecond
	defaultMaxDelay      = 8 * time.Second
	jitterFraction       = 0.10
)

// EmbedderConfig tunes the embedding client's concurrency and retry policy.
type EmbedderConfig struct {
	// MaxConcurrent caps in-flight embedding requests. Additional calls
	// queue in submission order and are released FIFO as slots free.
	MaxConcurrent int
	// MaxRetries is the retry ceiling for transient failures.
	MaxRetries int
	// BaseDelay is the first backoff delay, doubled per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration
}

func (c *EmbedderConfig) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
}

// Progress is one event in a batch embedding sequence: exactly one event per
// input text, in input order, with either the vector or the terminal error.
type Progress struct {
	Index  int
	Total  int
	Vector []float64
	Err    error
}

// Embedder is the rate-limited, retrying embedding client. It wraps a
// Provider with input normalization, a bounded in-flight ceiling, and
// exponential backoff on transient failures.
type Embedder struct {
	provider Provider
	keys     *Keyring
	cfg      EmbedderConfig
	sem      *semaphore.Weighted
	logger   *zap.Logger

	// sleep is replaceable in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEmbedder creates an embedding client around the given provider.
func NewEmbedder(provider Provider, keys *Keyring, cfg EmbedderConfig, logger *zap.Logger) *Embedder {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		provider: provider,
		keys:     keys,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Embed converts one text into a vector. The text is trimmed and its
// whitespace collapsed before sending; empty text fails with InvalidInput
// and no key fails with NoKey, both without any network call.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "cannot embed empty text")
	}
	if e.keys.Get() == "" {
		return nil, apperr.New(apperr.KindNoKey, "no API key configured")
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	for attempt := 0; ; attempt++ {
		vector, err := e.provider.Embed(ctx, normalized)
		if err == nil {
			return vector, nil
		}

		if !apperr.Retryable(err) || attempt >= e.cfg.MaxRetries {
			return nil, err
		}

		delay := e.retryDelay(err, attempt)
		e.logger.Debug("retrying embedding request",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.String("kind", string(apperr.KindOf(err))))

		if err := e.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// EmbedBatchEvents embeds texts sequentially, emitting one Progress event
// per text in input order. The channel closes after the last event; a
// failed item is the final event.
func (e *Embedder) EmbedBatchEvents(ctx context.Context, texts []string) <-chan Progress {
	events := make(chan Progress)
	go func() {
		defer close(events)
		for i, text := range texts {
			vector, err := e.Embed(ctx, text)
			select {
			case events <- Progress{Index: i, Total: len(texts), Vector: vector, Err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return events
}

// EmbedBatch embeds texts sequentially and returns vectors in input order.
// Any item failure fails the whole batch; no partial result is returned.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for event := range e.EmbedBatchEvents(ctx, texts) {
		if event.Err != nil {
			return nil, event.Err
		}
		vectors = append(vectors, event.Vector)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, apperr.New(apperr.KindInvalidResponse, "batch terminated early")
	}
	return vectors, nil
}

// retryDelay honors a server-supplied retry-after hint when present, else
// doubles the base delay per attempt, caps it, and adds up to 10% jitter.
func (e *Embedder) retryDelay(err error, attempt int) time.Duration {
	var kerr *apperr.Error
	if errors.As(err, &kerr) && kerr.RetryAfter > 0 {
		return kerr.RetryAfter
	}

	delay := e.cfg.BaseDelay << uint(attempt)
	if delay > e.cfg.MaxDelay {
		delay = e.cfg.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(float64(delay)*jitterFraction) + 1))
	return delay + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
