package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jonathan/bullet-ranker/internal/apperr"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider speaks the /v1/messages wire format. It is chat-only:
// system-role messages are merged into the request's top-level system field,
// and the native content-block response is normalized back into the choices
// shape. Embedding requests fail with UnsupportedOperation.
type AnthropicProvider struct {
	cfg        *Config
	keys       *Keyring
	httpClient *http.Client
}

// NewAnthropicProvider creates an Anthropic-shaped provider.
func NewAnthropicProvider(cfg *Config, keys *Keyring) *AnthropicProvider {
	return &AnthropicProvider{
		cfg:        cfg,
		keys:       keys,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name identifies the provider variant.
func (p *AnthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

// Embed always fails: this provider has no embeddings endpoint.
func (p *AnthropicProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, apperr.New(apperr.KindUnsupportedOperation, "anthropic provider does not support embeddings")
}

type anthropicChatRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
}

type anthropicChatResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Chat runs a chat completion, merging system messages into the top-level
// system field as the wire format requires.
func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	key := p.keys.Get()
	if key == "" {
		return nil, apperr.New(apperr.KindNoKey, "no API key configured")
	}

	var system []string
	messages := make([]ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		messages = append(messages, m)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	raw, err := json.Marshal(anthropicChatRequest{
		Model:       p.cfg.Model,
		System:      strings.Join(system, "\n\n"),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "encoding request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/messages", bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "building request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", key)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body := readBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, normalizeHTTPError(resp, body)
	}

	var parsed anthropicChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, "decoding chat response", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, apperr.New(apperr.KindInvalidResponse, "response contains no text content")
	}

	// Normalize into the provider-independent choices shape.
	return &ChatResponse{
		Choices: []ChatChoice{
			{Message: ChatMessage{Role: "assistant", Content: text.String()}},
		},
	}, nil
}
