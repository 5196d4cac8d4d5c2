package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/bullet-ranker/internal/apperr"
	"github.com/jonathan/bullet-ranker/internal/types"
)

// stubEmbedder returns canned vectors by text, with a fallback for texts it
// does not know.
type stubEmbedder struct {
	vectors  map[string][]float64
	fallback []float64
	err      error
	calls    int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.fallback, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// stubExtractor returns a fixed analysis and counts invocations.
type stubExtractor struct {
	analysis *types.JobAnalysis
	err      error
	calls    int
}

func (s *stubExtractor) ExtractJobAnalysis(_ context.Context, _ string) (*types.JobAnalysis, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	clone := s.analysis.Clone()
	return clone, nil
}

const goBullet = "Built distributed Go services handling production traffic at massive scale"
const sqlBullet = "Optimized database queries and reporting dashboards for the finance team"
const perlBullet = "Maintained legacy scripts for internal office tooling and some workflows"

func testBank() *types.ExperienceBank {
	return &types.ExperienceBank{
		Roles: []types.Role{
			{ID: "r1", Title: "Backend Engineer", Company: "Acme", OrderIndex: 0, MaxBullets: 1},
			{ID: "r2", Title: "Developer", Company: "Initech", OrderIndex: 1, MaxBullets: 2},
		},
		Bullets: []types.Bullet{
			types.NewBullet("b1", "r1", goBullet),
			types.NewBullet("b2", "r1", sqlBullet),
			types.NewBullet("b3", "r2", perlBullet),
		},
	}
}

func testEmbedder() *stubEmbedder {
	return &stubEmbedder{
		vectors: map[string][]float64{
			goBullet:   {1, 0},
			sqlBullet:  {0.6, 0.8},
			perlBullet: {0, 1},
		},
		fallback: []float64{1, 0}, // the job side
	}
}

func TestRecommend_RanksAndGroupsByRole(t *testing.T) {
	engine := NewEngine(testEmbedder(), nil, testBank(), Config{}, nil)

	rec, err := engine.Recommend(context.Background(), Request{
		JobTitle:       "Go Engineer",
		JobDescription: "Building distributed Go services",
	})
	require.NoError(t, err)
	require.Len(t, rec.Roles, 2)

	// Roles come back most recent first.
	assert.Equal(t, "r1", rec.Roles[0].Role.ID)
	assert.Equal(t, "r2", rec.Roles[1].Role.ID)

	// r1 allows one bullet; the Go one wins on relevance.
	require.Len(t, rec.Roles[0].Bullets, 1)
	assert.Equal(t, "b1", rec.Roles[0].Bullets[0].Bullet.ID)
	assert.Greater(t, rec.Roles[0].Bullets[0].Score.Composite, 0.0)

	require.Len(t, rec.Roles[1].Bullets, 1)
	assert.Equal(t, "b3", rec.Roles[1].Bullets[0].Bullet.ID)
}

func TestRecommend_HonorsMaxBullets(t *testing.T) {
	bank := testBank()
	bank.Roles[0].MaxBullets = 1
	engine := NewEngine(testEmbedder(), nil, bank, Config{}, nil)

	rec, err := engine.Recommend(context.Background(), Request{
		JobTitle:       "Engineer",
		JobDescription: "distributed services and database work",
	})
	require.NoError(t, err)
	for _, role := range rec.Roles {
		assert.LessOrEqual(t, len(role.Bullets), role.Role.MaxBullets)
	}
}

func TestRecommend_EmptyDescription(t *testing.T) {
	engine := NewEngine(testEmbedder(), nil, testBank(), Config{}, nil)
	_, err := engine.Recommend(context.Background(), Request{JobTitle: "X"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestRecommend_EmptyBank(t *testing.T) {
	engine := NewEngine(testEmbedder(), nil, &types.ExperienceBank{}, Config{}, nil)
	_, err := engine.Recommend(context.Background(), Request{JobDescription: "anything"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestRecommend_EmbedderFailureNoPartialResult(t *testing.T) {
	emb := testEmbedder()
	emb.err = apperr.New(apperr.KindServerError, "upstream down")
	engine := NewEngine(emb, nil, testBank(), Config{}, nil)

	rec, err := engine.Recommend(context.Background(), Request{JobDescription: "Go services"})
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, apperr.KindServerError, apperr.KindOf(err))
}

func TestRecommend_ExtractorFailureDegrades(t *testing.T) {
	ext := &stubExtractor{err: apperr.New(apperr.KindParseError, "bad json")}
	engine := NewEngine(testEmbedder(), ext, testBank(), Config{}, nil)

	rec, err := engine.Recommend(context.Background(), Request{
		JobTitle:       "Go Engineer",
		JobDescription: "distributed Go services",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ext.calls)
	assert.NotEmpty(t, rec.Roles)
}

func TestRecommend_FunctionBiasSelectsProfile(t *testing.T) {
	ext := &stubExtractor{analysis: &types.JobAnalysis{
		Title:        "Marketing Lead",
		Skills:       []string{"seo"},
		FunctionBias: "marketing",
	}}
	engine := NewEngine(testEmbedder(), ext, testBank(), Config{}, nil)

	rec, err := engine.Recommend(context.Background(), Request{
		JobDescription: "grow organic traffic",
	})
	require.NoError(t, err)
	assert.Equal(t, "marketing", rec.Analysis.FunctionBias)

	// An explicit bias overrides the extracted one.
	rec, err = engine.Recommend(context.Background(), Request{
		JobDescription: "grow organic traffic",
		FunctionBias:   "technical",
	})
	require.NoError(t, err)
	assert.Equal(t, "technical", rec.Analysis.FunctionBias)
}

func TestAnalyzeJob_CacheHitWithinWindow(t *testing.T) {
	ext := &stubExtractor{analysis: &types.JobAnalysis{Skills: []string{"go"}}}
	engine := NewEngine(testEmbedder(), ext, testBank(), Config{}, nil)

	ctx := context.Background()
	req := Request{JobTitle: "Go Engineer", JobDescription: "Go services"}
	_, err := engine.Recommend(ctx, req)
	require.NoError(t, err)
	_, err = engine.Recommend(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 1, ext.calls)
}

func TestAnalyzeJob_CacheExpires(t *testing.T) {
	ext := &stubExtractor{analysis: &types.JobAnalysis{Skills: []string{"go"}}}
	engine := NewEngine(testEmbedder(), ext, testBank(), Config{}, nil)

	now := time.Now()
	engine.nowFunc = func() time.Time { return now }

	ctx := context.Background()
	req := Request{JobTitle: "Go Engineer", JobDescription: "Go services"}
	_, err := engine.Recommend(ctx, req)
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	_, err = engine.Recommend(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 2, ext.calls)
}

func TestAnalyzeJob_DifferentDescriptionMisses(t *testing.T) {
	ext := &stubExtractor{analysis: &types.JobAnalysis{Skills: []string{"go"}}}
	engine := NewEngine(testEmbedder(), ext, testBank(), Config{}, nil)

	ctx := context.Background()
	_, err := engine.Recommend(ctx, Request{JobDescription: "Go services"})
	require.NoError(t, err)
	_, err = engine.Recommend(ctx, Request{JobDescription: "Rust services"})
	require.NoError(t, err)

	assert.Equal(t, 2, ext.calls)
}

func TestAnalyzeJob_CacheHandsOutCopies(t *testing.T) {
	ext := &stubExtractor{analysis: &types.JobAnalysis{Skills: []string{"go", "sql"}}}
	engine := NewEngine(testEmbedder(), ext, testBank(), Config{}, nil)

	ctx := context.Background()
	req := Request{JobDescription: "Go services"}
	first, err := engine.Recommend(ctx, req)
	require.NoError(t, err)

	// Mutating a returned analysis must not leak into the cache.
	first.Analysis.Skills[0] = "clobbered"

	second, err := engine.Recommend(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql"}, second.Analysis.Skills)
}

func TestSetBank_DropsCache(t *testing.T) {
	ext := &stubExtractor{analysis: &types.JobAnalysis{Skills: []string{"go"}}}
	engine := NewEngine(testEmbedder(), ext, testBank(), Config{}, nil)

	ctx := context.Background()
	req := Request{JobDescription: "Go services"}
	_, err := engine.Recommend(ctx, req)
	require.NoError(t, err)

	engine.SetBank(testBank())
	_, err = engine.Recommend(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 2, ext.calls)
}

func TestRecommend_CachedEmbeddingSkipsJobEmbed(t *testing.T) {
	emb := testEmbedder()
	engine := NewEngine(emb, nil, testBank(), Config{}, nil)

	ctx := context.Background()
	req := Request{JobTitle: "Go Engineer", JobDescription: "Go services"}
	_, err := engine.Recommend(ctx, req)
	require.NoError(t, err)
	firstCalls := emb.calls

	_, err = engine.Recommend(ctx, req)
	require.NoError(t, err)

	// The second run reuses the cached job vector: only the candidate
	// batch is embedded again.
	assert.Equal(t, firstCalls+3, emb.calls)
}
