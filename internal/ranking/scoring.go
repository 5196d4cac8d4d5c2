// Package ranking scores embedded bullets against an analyzed job using
// relevance, quality, and recency signals.
package ranking

import (
	"math"

	"github.com/jonathan/bullet-ranker/internal/apperr"
	"github.com/jonathan/bullet-ranker/internal/types"
)

// Feature bonuses and their cap for the quality score
const (
	bonusHasNumbers = 0.20
	bonusActionVerb = 0.10
	bonusLengthOK   = 0.05
	qualityCap      = 0.35

	// The oldest role still scores half as much as the most recent one.
	recencyFloor = 0.5
)

// CosineSimilarity computes the cosine of the angle between two vectors.
// The result lies in [-1, 1]. Vectors of different lengths are a
// DimensionMismatch error, never silently truncated.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, apperr.Newf(apperr.KindDimensionMismatch,
			"vector lengths differ: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, apperr.New(apperr.KindInvalidInput, "empty vectors")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// RelevanceScore is cosine similarity clamped to [0, 1] for scoring.
func RelevanceScore(jobEmbedding, bulletEmbedding []float64) (float64, error) {
	sim, err := CosineSimilarity(jobEmbedding, bulletEmbedding)
	if err != nil {
		return 0, err
	}
	return clamp01(sim), nil
}

// QualityScore sums the structural feature bonuses, capped at qualityCap.
func QualityScore(features types.BulletFeatures) float64 {
	score := 0.0
	if features.HasNumbers {
		score += bonusHasNumbers
	}
	if features.ActionVerb {
		score += bonusActionVerb
	}
	if features.LengthOK {
		score += bonusLengthOK
	}
	if score > qualityCap {
		score = qualityCap
	}
	return score
}

// RecencyScore maps a role's order index to [recencyFloor, 1]: the most
// recent role (index 0) scores 1.0, decaying linearly to recencyFloor at the
// oldest index. A single-role history always scores 1.0.
func RecencyScore(orderIndex, maxOrderIndex int) float64 {
	if maxOrderIndex <= 0 {
		return 1.0
	}
	if orderIndex < 0 {
		orderIndex = 0
	}
	if orderIndex > maxOrderIndex {
		orderIndex = maxOrderIndex
	}
	frac := float64(orderIndex) / float64(maxOrderIndex)
	return 1.0 - frac*(1.0-recencyFloor)
}

// BulletScore holds the per-bullet components and their weighted composite.
// Redundancy is deliberately absent: it is pairwise and applied only inside
// the diversification step.
type BulletScore struct {
	BulletID  string
	Relevance float64
	Quality   float64
	Recency   float64
	Composite float64
}

// ScoreBullets computes component and composite scores for each bullet
// against the job embedding. The bullet order is preserved.
func ScoreBullets(jobEmbedding []float64, bullets []types.Bullet, maxOrderIndex int, roleOrder map[string]int, weights types.AlgorithmWeights) ([]BulletScore, error) {
	scores := make([]BulletScore, len(bullets))
	for i, bullet := range bullets {
		relevance, err := RelevanceScore(jobEmbedding, bullet.Embedding)
		if err != nil {
			return nil, err
		}
		quality := QualityScore(bullet.Features)
		recency := RecencyScore(roleOrder[bullet.RoleID], maxOrderIndex)

		scores[i] = BulletScore{
			BulletID:  bullet.ID,
			Relevance: relevance,
			Quality:   quality,
			Recency:   recency,
			Composite: weights.Relevance*relevance +
				weights.Quality*quality +
				weights.Recency*recency,
		}
	}
	return scores, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
