package pipeline

import (
	"context"

	"github.com/jonathan/bullet-ranker/internal/apperr"
	"github.com/jonathan/bullet-ranker/internal/ranking"
	"github.com/jonathan/bullet-ranker/internal/worker"
)

// HandleVectorOperation serves raw vector computations through the worker.
func (e *Engine) HandleVectorOperation(_ context.Context, req worker.VectorOpRequest) (any, error) {
	switch req.Op {
	case "cosine_similarity":
		return ranking.CosineSimilarity(req.A, req.B)
	case "relevance":
		return ranking.RelevanceScore(req.A, req.B)
	default:
		return nil, apperr.Newf(apperr.KindInvalidInput, "unknown vector operation %q", req.Op)
	}
}

// HandleRecommendation serves full ranking runs through the worker.
func (e *Engine) HandleRecommendation(ctx context.Context, req worker.RecommendRequest) (any, error) {
	return e.Recommend(ctx, Request{
		JobTitle:       req.JobTitle,
		JobDescription: req.JobDescription,
		FunctionBias:   req.FunctionBias,
		Limit:          req.Limit,
	})
}
