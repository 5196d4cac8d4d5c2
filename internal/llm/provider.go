// Package llm provides the embedding and chat provider abstraction plus the
// rate-limited, retrying embedding client built on top of it.
package llm

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/bullet-ranker/internal/apperr"
)

// ProviderName identifies a supported provider wire format.
type ProviderName string

// Supported providers. Each name maps to exactly one wire format; there is
// no aliasing of one provider's symbols onto another's protocol.
const (
	// ProviderOpenAI speaks the /v1/embeddings and /v1/chat/completions shape.
	ProviderOpenAI ProviderName = "openai"
	// ProviderAnthropic speaks the /v1/messages shape. Chat only: embedding
	// requests fail with UnsupportedOperation.
	ProviderAnthropic ProviderName = "anthropic"
)

// ChatMessage is a single message in a chat exchange.
type ChatMessage struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ChatRequest is the provider-independent chat request.
type ChatRequest struct {
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

// ChatResponse is the normalized chat response. Every provider's reply is
// mapped into this shape regardless of its native format.
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
}

// Provider is a single polymorphic embedding/chat capability. Variants that
// lack one half of the capability return UnsupportedOperation for it.
type Provider interface {
	// Name identifies the provider variant.
	Name() ProviderName
	// Embed converts text into a fixed-length vector.
	Embed(ctx context.Context, text string) ([]float64, error)
	// Chat runs a chat completion and normalizes the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Config holds provider settings.
type Config struct {
	Provider       ProviderName  `json:"provider"`
	BaseURL        string        `json:"base_url,omitempty"`
	Model          string        `json:"model,omitempty"`
	EmbeddingModel string        `json:"embedding_model,omitempty"`
	Dimensions     int           `json:"dimensions,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Timeout        time.Duration `json:"-"`
}

// DefaultConfig returns the default OpenAI-shaped configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderOpenAI,
		BaseURL:        "https://api.openai.com",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		Dimensions:     512,
		MaxTokens:      1024,
		Timeout:        30 * time.Second,
	}
}

// NewProvider constructs the provider variant named in cfg.
func NewProvider(cfg *Config, keys *Keyring) (Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIProvider(cfg, keys), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg, keys), nil
	default:
		return nil, apperr.Newf(apperr.KindUnsupportedOperation, "unknown provider %q", cfg.Provider)
	}
}

// normalizeHTTPError maps a non-2xx response to the error taxonomy, carrying
// the HTTP status and any server-supplied retry delay.
func normalizeHTTPError(resp *http.Response, body []byte) *apperr.Error {
	var err *apperr.Error
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		err = apperr.New(apperr.KindRateLimitExceeded, "rate limited by provider")
		if after := parseRetryAfter(resp.Header.Get("Retry-After")); after > 0 {
			err = err.WithRetryAfter(after)
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		err = apperr.New(apperr.KindKeyInvalid, "provider rejected API key")
	case resp.StatusCode == http.StatusNotFound:
		err = apperr.New(apperr.KindModelUnavailable, "model not available")
	case resp.StatusCode >= 500:
		err = apperr.Newf(apperr.KindServerError, "provider error: %s", firstLine(body))
	default:
		err = apperr.Newf(apperr.KindInvalidInput, "provider rejected request: %s", firstLine(body))
	}
	return err.WithStatus(resp.StatusCode)
}

// wrapTransportError classifies a failed round trip as a network error
// unless the context ended, which is reported as-is.
func wrapTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return apperr.Wrap(apperr.KindNetworkError, "request failed", err)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func firstLine(body []byte) string {
	const max = 200
	s := string(body)
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || i >= max {
			return s[:i]
		}
	}
	return s
}

func readBody(r io.Reader) []byte {
	body, _ := io.ReadAll(io.LimitReader(r, 1<<20))
	return body
}
