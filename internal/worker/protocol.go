package worker

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/bullet-ranker/internal/apperr"
	"github.com/mitchellh/mapstructure"
)

// MessageType tags a worker request.
type MessageType string

// Supported message types
const (
	TypeVectorOperation  MessageType = "vector_operation"
	TypeRecommendation   MessageType = "recommendation"
	TypeHealthCheck      MessageType = "health_check"
	TypePerformanceReset MessageType = "performance_reset"
)

// Message is a request into the worker. The caller generates a unique ID
// and matches the response by it; the payload is opaque at this layer.
type Message struct {
	Type MessageType    `json:"type"`
	ID   string         `json:"id"`
	Data map[string]any `json:"data,omitempty"`
}

// NewMessage creates a message with a generated correlation ID.
func NewMessage(msgType MessageType, data map[string]any) Message {
	return Message{Type: msgType, ID: uuid.NewString(), Data: data}
}

// Response echoes the request ID and carries either a result or an error
// string, plus the elapsed processing time.
type Response struct {
	Type           MessageType   `json:"type"`
	ID             string        `json:"id"`
	Success        bool          `json:"success"`
	Data           any           `json:"data,omitempty"`
	Error          string        `json:"error,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// VectorOpRequest is the payload of a vector_operation message.
type VectorOpRequest struct {
	Op string    `mapstructure:"op"` // cosine_similarity, relevance
	A  []float64 `mapstructure:"a"`
	B  []float64 `mapstructure:"b"`
}

// RecommendRequest is the payload of a recommendation message.
type RecommendRequest struct {
	JobTitle       string `mapstructure:"job_title"`
	JobDescription string `mapstructure:"job_description"`
	FunctionBias   string `mapstructure:"function_bias"`
	Limit          int    `mapstructure:"limit"`
}

// decodePayload maps an opaque message payload onto a typed request.
func decodePayload(data map[string]any, out any) error {
	if err := mapstructure.Decode(data, out); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "malformed message payload", err)
	}
	return nil
}
