package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/jonathan/bullet-ranker/internal/apperr"
)

// OpenAIProvider speaks the OpenAI wire format: bearer-token auth,
// /v1/embeddings for vectors and /v1/chat/completions for chat.
type OpenAIProvider struct {
	cfg        *Config
	keys       *Keyring
	httpClient *http.Client
}

// NewOpenAIProvider creates an OpenAI-shaped provider.
func NewOpenAIProvider(cfg *Config, keys *Keyring) *OpenAIProvider {
	return &OpenAIProvider{
		cfg:        cfg,
		keys:       keys,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name identifies the provider variant.
func (p *OpenAIProvider) Name() ProviderName {
	return ProviderOpenAI
}

type openAIEmbedRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed requests an embedding vector for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := p.post(ctx, "/v1/embeddings", openAIEmbedRequest{
		Input:      text,
		Model:      p.cfg.EmbeddingModel,
		Dimensions: p.cfg.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	var parsed openAIEmbedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, "decoding embeddings response", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, apperr.New(apperr.KindInvalidResponse, "response contains no embedding")
	}
	if p.cfg.Dimensions > 0 && len(parsed.Data[0].Embedding) != p.cfg.Dimensions {
		return nil, apperr.Newf(apperr.KindInvalidResponse,
			"embedding has %d dimensions, expected %d", len(parsed.Data[0].Embedding), p.cfg.Dimensions)
	}
	return parsed.Data[0].Embedding, nil
}

type openAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// Chat runs a chat completion. The response already has the normalized
// choices shape.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	body, err := p.post(ctx, "/v1/chat/completions", openAIChatRequest{
		Model:       p.cfg.Model,
		Messages:    req.Messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	var parsed ChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, "decoding chat response", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, apperr.New(apperr.KindInvalidResponse, "response contains no choices")
	}
	return &parsed, nil
}

func (p *OpenAIProvider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	key := p.keys.Get()
	if key == "" {
		return nil, apperr.New(apperr.KindNoKey, "no API key configured")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body := readBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, normalizeHTTPError(resp, body)
	}
	return body, nil
}
