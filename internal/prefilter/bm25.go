package prefilter

import (
	"math"
	"sort"
	"strings"

	"github.com/jonathan/bullet-ranker/internal/types"
)

// BM25 parameters
const (
	k1 = 1.5
	b  = 0.75
)

// Quality bonuses applied independently of term matching
const (
	bonusQuantified = 0.3
	bonusActionVerb = 0.2
	bonusLength     = 0.1
)

// ScoredBullet pairs a bullet with its lexical score.
type ScoredBullet struct {
	Bullet types.Bullet
	Score  float64
}

// Prefilter scores the bullet pool against the job's lexical terms and
// returns at most limit bullets sorted by descending score. The sort is
// stable, so ties keep their original pool order and the result is
// deterministic for a fixed input.
func Prefilter(analysis *types.JobAnalysis, bullets []types.Bullet, limit int) []types.Bullet {
	if len(bullets) == 0 || limit <= 0 {
		return nil
	}

	terms := BuildSearchTerms(analysis)
	scored := scorePool(terms, bullets)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > len(scored) {
		limit = len(scored)
	}
	out := make([]types.Bullet, limit)
	for i := 0; i < limit; i++ {
		out[i] = scored[i].Bullet
	}
	return out
}

// ScorePool exposes the raw lexical scores, in pool order.
func ScorePool(analysis *types.JobAnalysis, bullets []types.Bullet) []ScoredBullet {
	return scorePool(BuildSearchTerms(analysis), bullets)
}

func scorePool(terms []string, bullets []types.Bullet) []ScoredBullet {
	docs := make([][]string, len(bullets))
	lowered := make([]string, len(bullets))
	totalLen := 0
	for i, bullet := range bullets {
		lowered[i] = strings.ToLower(bullet.Text)
		docs[i] = strings.Fields(lowered[i])
		totalLen += len(docs[i])
	}

	// Average document length over the full pool, not the filtered subset.
	avgdl := float64(totalLen) / float64(len(bullets))
	if avgdl == 0 {
		avgdl = 1
	}

	// Document frequency per term: how many bullets contain the term as a
	// substring anywhere in their text.
	df := make(map[string]int, len(terms))
	for _, term := range terms {
		for i := range bullets {
			if strings.Contains(lowered[i], term) {
				df[term]++
			}
		}
	}

	n := float64(len(bullets))
	scored := make([]ScoredBullet, len(bullets))
	for i, bullet := range bullets {
		score := 0.0
		dl := float64(len(docs[i]))
		for _, term := range terms {
			tf := termFrequency(docs[i], term)
			if tf == 0 {
				// Absent terms contribute nothing, in particular no
				// negative IDF penalty.
				continue
			}
			idf := math.Log((n - float64(df[term]) + 0.5) / (float64(df[term]) + 0.5))
			norm := float64(tf) * (k1 + 1) / (float64(tf) + k1*(1-b+b*dl/avgdl))
			score += idf * norm
		}

		score += qualityBonus(bullet.Text)
		scored[i] = ScoredBullet{Bullet: bullet, Score: score}
	}
	return scored
}

// termFrequency counts document words containing the term as a substring.
func termFrequency(words []string, term string) int {
	count := 0
	for _, word := range words {
		if strings.Contains(word, term) {
			count++
		}
	}
	return count
}

// qualityBonus rewards structural signals independent of term matching, so
// a strong bullet never scores below a weak one purely for missing terms.
func qualityBonus(text string) float64 {
	bonus := 0.0
	if types.HasQuantifiedResult(text) {
		bonus += bonusQuantified
	}
	if types.StartsWithActionVerb(text) {
		bonus += bonusActionVerb
	}
	if types.LengthOK(text) {
		bonus += bonusLength
	}
	return bonus
}
