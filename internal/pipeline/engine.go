// Package pipeline sequences the ranking stages per request: job analysis,
// lexical prefilter, embedding, vector scoring, and MMR selection.
package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/bullet-ranker/internal/apperr"
	"github.com/jonathan/bullet-ranker/internal/prefilter"
	"github.com/jonathan/bullet-ranker/internal/ranking"
	"github.com/jonathan/bullet-ranker/internal/selection"
	"github.com/jonathan/bullet-ranker/internal/types"
)

const (
	// DefaultCandidateLimit bounds the pool that reaches the embedding stage.
	DefaultCandidateLimit = 20
	// DefaultCacheTTL is the freshness window of the job analysis cache.
	DefaultCacheTTL = 5 * time.Minute
)

// Embedder produces embedding vectors for texts.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// JobExtractor pulls structured skills and requirements out of a raw job
// description. The engine works without one, falling back to lexical
// analysis of the raw text.
type JobExtractor interface {
	ExtractJobAnalysis(ctx context.Context, description string) (*types.JobAnalysis, error)
}

// Config tunes the engine. Zero values pick the defaults.
type Config struct {
	CandidateLimit int
	CacheTTL       time.Duration
}

func (c *Config) applyDefaults() {
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = DefaultCandidateLimit
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
}

// RankedBullet is one selected bullet with its score breakdown.
type RankedBullet struct {
	Bullet types.Bullet       `json:"bullet"`
	Score  ranking.BulletScore `json:"score"`
}

// RoleResult holds the selection for one role, in pick order.
type RoleResult struct {
	Role    types.Role     `json:"role"`
	Bullets []RankedBullet `json:"bullets"`
}

// Recommendation is the full pipeline output, roles ordered most recent
// first.
type Recommendation struct {
	Analysis *types.JobAnalysis `json:"analysis"`
	Weights  types.AlgorithmWeights `json:"weights"`
	Roles    []RoleResult       `json:"roles"`
}

// Request describes one ranking run.
type Request struct {
	JobTitle       string
	JobDescription string
	// FunctionBias overrides the extracted bias when set.
	FunctionBias string
	// Limit overrides the candidate limit when positive.
	Limit int
}

// Engine holds the explicitly constructed pipeline dependencies. All mutable
// state lives here, scoped to the instance; a single-slot analysis cache is
// the only shared state.
type Engine struct {
	embedder  Embedder
	extractor JobExtractor
	bank      *types.ExperienceBank
	logger    *zap.Logger
	cfg       Config

	mu       sync.Mutex
	cached   *types.JobAnalysis
	cachedAt time.Time

	nowFunc func() time.Time
}

// NewEngine builds an engine. extractor may be nil; the bank may be swapped
// later with SetBank.
func NewEngine(embedder Embedder, extractor JobExtractor, bank *types.ExperienceBank, cfg Config, logger *zap.Logger) *Engine {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		embedder:  embedder,
		extractor: extractor,
		bank:      bank,
		logger:    logger,
		cfg:       cfg,
		nowFunc:   time.Now,
	}
}

// SetBank replaces the experience bank and drops the cached analysis.
func (e *Engine) SetBank(bank *types.ExperienceBank) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bank = bank
	e.cached = nil
}

// Recommend runs the full pipeline. Any stage failure surfaces as a single
// error with no partial result.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Recommendation, error) {
	if req.JobDescription == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "job description is empty")
	}

	e.mu.Lock()
	bank := e.bank
	e.mu.Unlock()
	if bank == nil || len(bank.Bullets) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "experience bank is empty")
	}
	if err := types.ValidateRoles(bank.Roles); err != nil {
		return nil, err
	}

	analysis, err := e.analyzeJob(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.FunctionBias != "" {
		analysis.FunctionBias = req.FunctionBias
	}
	weights := ranking.WeightsFor(analysis.FunctionBias)

	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.CandidateLimit
	}
	candidates := prefilter.Prefilter(analysis, bank.Bullets, limit)
	if len(candidates) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "no bullets matched the job description")
	}

	if len(analysis.Embedding) == 0 {
		jobVec, err := e.embedder.Embed(ctx, embeddingText(analysis))
		if err != nil {
			return nil, err
		}
		analysis.Embedding = jobVec
		e.storeCache(analysis)
	}

	texts := make([]string, len(candidates))
	for i, b := range candidates {
		texts[i] = b.Text
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].Embedding = vectors[i]
		candidates[i].State = types.EmbeddingReady
	}

	roleOrder := make(map[string]int, len(bank.Roles))
	for _, r := range bank.Roles {
		roleOrder[r.ID] = r.OrderIndex
	}
	scores, err := ranking.ScoreBullets(analysis.Embedding, candidates, bank.MaxOrderIndex(), roleOrder, weights)
	if err != nil {
		return nil, err
	}

	roles, err := e.selectPerRole(bank, candidates, scores, weights)
	if err != nil {
		return nil, err
	}

	e.logger.Info("recommendation complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("roles", len(roles)),
		zap.String("function_bias", analysis.FunctionBias))

	return &Recommendation{Analysis: analysis, Weights: weights, Roles: roles}, nil
}

// analyzeJob returns a fresh job analysis, serving the cache on an exact
// description match within the freshness window. The cache always hands out
// copies.
func (e *Engine) analyzeJob(ctx context.Context, req Request) (*types.JobAnalysis, error) {
	e.mu.Lock()
	if e.cached != nil && e.cached.Description == req.JobDescription &&
		e.nowFunc().Sub(e.cachedAt) < e.cfg.CacheTTL {
		cached := e.cached.Clone()
		e.mu.Unlock()
		return cached, nil
	}
	e.mu.Unlock()

	analysis := &types.JobAnalysis{
		Title:       req.JobTitle,
		Description: req.JobDescription,
	}
	if e.extractor != nil {
		extracted, err := e.extractor.ExtractJobAnalysis(ctx, req.JobDescription)
		if err != nil {
			// Extraction enriches the term set; ranking proceeds on the
			// raw text without it.
			e.logger.Warn("job analysis extraction failed, using lexical analysis",
				zap.Error(err))
		} else {
			extracted.Description = req.JobDescription
			if extracted.Title == "" {
				extracted.Title = req.JobTitle
			}
			analysis = extracted
		}
	}

	e.storeCache(analysis)
	return analysis, nil
}

// storeCache replaces the single cache slot with a copy of the analysis.
// The freshness clock starts when a description first arrives; enriching
// the same analysis (adding the embedding) does not extend it.
func (e *Engine) storeCache(analysis *types.JobAnalysis) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cached == nil || e.cached.Description != analysis.Description {
		e.cachedAt = e.nowFunc()
	}
	e.cached = analysis.Clone()
}

// selectPerRole runs MMR independently within each role, honoring its
// bullet limit.
func (e *Engine) selectPerRole(bank *types.ExperienceBank, candidates []types.Bullet, scores []ranking.BulletScore, weights types.AlgorithmWeights) ([]RoleResult, error) {
	byRole := make(map[string][]int)
	for i, b := range candidates {
		byRole[b.RoleID] = append(byRole[b.RoleID], i)
	}

	results := make([]RoleResult, 0, len(byRole))
	for _, role := range bank.Roles {
		indices, ok := byRole[role.ID]
		if !ok {
			continue
		}

		composite := make([]float64, len(indices))
		embeddings := make([][]float64, len(indices))
		for j, idx := range indices {
			composite[j] = scores[idx].Composite
			embeddings[j] = candidates[idx].Embedding
		}

		k := role.MaxBullets
		if k <= 0 {
			k = len(indices)
		}
		picked, err := selection.SelectMMR(composite, embeddings, k, weights.Redundancy)
		if err != nil {
			return nil, err
		}

		result := RoleResult{Role: role, Bullets: make([]RankedBullet, 0, len(picked))}
		for _, j := range picked {
			idx := indices[j]
			result.Bullets = append(result.Bullets, RankedBullet{
				Bullet: candidates[idx],
				Score:  scores[idx],
			})
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Role.OrderIndex < results[j].Role.OrderIndex
	})
	return results, nil
}

// embeddingText composes the text embedded for the job side, folding in the
// extracted skills so the vector reflects them.
func embeddingText(analysis *types.JobAnalysis) string {
	parts := make([]string, 0, 3)
	if analysis.Title != "" {
		parts = append(parts, analysis.Title)
	}
	if analysis.Description != "" {
		parts = append(parts, analysis.Description)
	}
	if len(analysis.Skills) > 0 {
		parts = append(parts, strings.Join(analysis.Skills, ", "))
	}
	return strings.Join(parts, "\n")
}
