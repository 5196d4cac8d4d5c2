// Package types provides type definitions for structured data used throughout the bullet-ranker system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// EmbeddingState tracks where a bullet is in its embedding lifecycle
type EmbeddingState string

// Embedding lifecycle states
const (
	// EmbeddingPending means the bullet has no current embedding
	EmbeddingPending EmbeddingState = "pending"
	// EmbeddingInProgress means an embedding request is in flight
	EmbeddingInProgress EmbeddingState = "embedding"
	// EmbeddingReady means the Embedding field holds a valid vector
	EmbeddingReady EmbeddingState = "ready"
	// EmbeddingFailed means the last embedding attempt errored
	EmbeddingFailed EmbeddingState = "failed"
)

// BulletFeatures holds structural quality flags derived from bullet text
type BulletFeatures struct {
	HasNumbers bool `json:"has_numbers"`
	ActionVerb bool `json:"action_verb"`
	LengthOK   bool `json:"length_ok"`
}

// Bullet represents a single reusable resume bullet point
type Bullet struct {
	ID          string         `json:"id"`
	RoleID      string         `json:"role_id"`
	ProjectID   string         `json:"project_id,omitempty"`
	Text        string         `json:"text"`
	Fingerprint string         `json:"fingerprint"`
	Features    BulletFeatures `json:"features"`
	State       EmbeddingState `json:"state"`
	Embedding   []float64      `json:"embedding,omitempty"`
	Retries     int            `json:"retries"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewBullet creates a bullet with its fingerprint and features derived from text.
func NewBullet(id, roleID, text string) Bullet {
	now := time.Now()
	return Bullet{
		ID:          id,
		RoleID:      roleID,
		Text:        text,
		Fingerprint: NormalizeFingerprint(text),
		Features:    ExtractFeatures(text),
		State:       EmbeddingPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetText replaces the bullet text. The fingerprint and features are pure
// functions of the text, so both are recomputed, and any existing embedding
// is invalidated back to pending.
func (b *Bullet) SetText(text string) {
	if text == b.Text {
		return
	}
	b.Text = text
	b.Fingerprint = NormalizeFingerprint(text)
	b.Features = ExtractFeatures(text)
	b.State = EmbeddingPending
	b.Embedding = nil
	b.Retries = 0
	b.UpdatedAt = time.Now()
}
