package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/bullet-ranker/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverConfig(url string) *Config {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.Dimensions = 3
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestOpenAIEmbed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello world", req.Input)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}}},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider(serverConfig(server.URL), testKeyring(t, "sk-test"))
	vector, err := p.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vector)
}

func TestOpenAIEmbed_MissingEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	}))
	defer server.Close()

	p := NewOpenAIProvider(serverConfig(server.URL), testKeyring(t, "sk-test"))
	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidResponse, apperr.KindOf(err))
}

func TestOpenAIEmbed_WrongDimensions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1}}},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider(serverConfig(server.URL), testKeyring(t, "sk-test"))
	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidResponse, apperr.KindOf(err))
}

func TestOpenAIEmbed_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		kind   apperr.Kind
	}{
		{http.StatusUnauthorized, apperr.KindKeyInvalid},
		{http.StatusForbidden, apperr.KindKeyInvalid},
		{http.StatusNotFound, apperr.KindModelUnavailable},
		{http.StatusBadRequest, apperr.KindInvalidInput},
		{http.StatusInternalServerError, apperr.KindServerError},
		{http.StatusTooManyRequests, apperr.KindRateLimitExceeded},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		p := NewOpenAIProvider(serverConfig(server.URL), testKeyring(t, "sk-test"))
		_, err := p.Embed(context.Background(), "hello")
		server.Close()

		require.Error(t, err, "status %d", tt.status)
		var kerr *apperr.Error
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, tt.kind, kerr.Kind, "status %d", tt.status)
		assert.Equal(t, tt.status, kerr.Status)
	}
}

func TestOpenAIEmbed_RetryAfterHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewOpenAIProvider(serverConfig(server.URL), testKeyring(t, "sk-test"))
	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)

	var kerr *apperr.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, 7*time.Second, kerr.RetryAfter)
}

// End to end: three 429 responses followed by a 200 succeed through the
// retrying embedder, with the total delay inside the backoff bounds.
func TestEmbedder_ThreeRateLimitsThenSuccess(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{1, 2, 3}}},
		})
	}))
	defer server.Close()

	keys := testKeyring(t, "sk-test")
	e := NewEmbedder(NewOpenAIProvider(serverConfig(server.URL), keys), keys,
		EmbedderConfig{BaseDelay: 20 * time.Millisecond, MaxRetries: 3}, nil)
	var total time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		total += d
		return nil
	}

	vector, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, vector)
	assert.Equal(t, int32(4), hits.Load())

	// 20 + 40 + 80 ms, each with up to 10% jitter.
	assert.GreaterOrEqual(t, total, 140*time.Millisecond)
	assert.LessOrEqual(t, total, 154*time.Millisecond+3*time.Millisecond)
}

func TestAnthropicChat_MergesSystemMessages(t *testing.T) {
	var captured anthropicChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "normalized"}},
		})
	}))
	defer server.Close()

	cfg := serverConfig(server.URL)
	cfg.Provider = ProviderAnthropic
	p := NewAnthropicProvider(cfg, testKeyring(t, "sk-ant"))

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hello"},
			{Role: "system", Content: "answer in JSON"},
		},
		MaxTokens: 256,
	})
	require.NoError(t, err)

	// System messages lifted out of the message list into the top-level field.
	assert.Equal(t, "be terse\n\nanswer in JSON", captured.System)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)

	// Response normalized into the choices shape.
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
	assert.Equal(t, "normalized", resp.Choices[0].Message.Content)
}

func TestAnthropicEmbed_Unsupported(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderAnthropic
	p := NewAnthropicProvider(cfg, testKeyring(t, "sk-ant"))

	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnsupportedOperation, apperr.KindOf(err))
}

func TestNewProvider_UnknownName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "cohere"
	_, err := NewProvider(cfg, testKeyring(t, "k"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnsupportedOperation, apperr.KindOf(err))
}

func TestKeyring_Lifecycle(t *testing.T) {
	ctx := context.Background()
	keys := testKeyring(t, "")
	assert.Empty(t, keys.Get())

	require.NoError(t, keys.Set(ctx, "sk-live"))
	assert.Equal(t, "sk-live", keys.Get())

	require.NoError(t, keys.Clear(ctx))
	assert.Empty(t, keys.Get())
}
