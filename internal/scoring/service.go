package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pmehra7/loanbook/internal/features"
	"github.com/pmehra7/loanbook/internal/logging"
	"github.com/pmehra7/loanbook/internal/metrics"
	"github.com/pmehra7/loanbook/internal/traces"
)

// ScoreRequest identifies the customer and the loan terms to score.
type ScoreRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	features.LoanRequest
}

// BatchItem is one result of a batch run. Failed items carry the error
// message and the customer it belongs to; successful items carry the
// prediction. The output slice preserves input order.
type BatchItem struct {
	CustomerID string      `json:"customer_id"`
	Prediction *Prediction `json:"prediction,omitempty"`
	Error      string      `json:"error,omitempty"`
	Cached     bool        `json:"cached,omitempty"`
}

// Service runs the scoring pipeline.
type Service struct {
	builder    *features.Builder
	classifier Classifier
	cache      *Cache
}

// NewService wires the feature builder and the loaded classifier. cache may
// be nil when Redis is not configured.
func NewService(builder *features.Builder, classifier Classifier, cache *Cache) *Service {
	return &Service{builder: builder, classifier: classifier, cache: cache}
}

// Score runs the full pipeline for one application: engineer the feature
// vector, align it to the classifier's declared column order, predict, and
// explain.
func (s *Service) Score(ctx context.Context, req ScoreRequest) (*Prediction, error) {
	ctx, span := traces.StartSpan(ctx, "scoring.Score",
		traces.CustomerID(req.CustomerID),
		traces.LoanAmount(req.Amount))
	defer span.End()

	start := time.Now()

	vec, err := s.builder.Build(ctx, req.CustomerID, req.LoanRequest)
	if err != nil {
		metrics.PredictionErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		return nil, err
	}

	names := s.classifier.FeatureNames()
	aligned := features.Align(names, vec)

	probability, err := s.classifier.PredictProbability(aligned)
	if err != nil {
		metrics.PredictionErrorsTotal.WithLabelValues("internal").Inc()
		return nil, fmt.Errorf("predict for %s: %w", req.CustomerID, err)
	}

	pred := newPrediction(probability, s.explain(names, aligned), vec)

	metrics.PredictionsTotal.WithLabelValues(pred.RiskLevel).Inc()
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	logging.L(ctx).Debug("scored application",
		"customer_id", req.CustomerID,
		"risk_level", pred.RiskLevel,
		"risk_probability", pred.RiskProbability)
	return pred, nil
}

// ScoreBatch scores many applications in one call. Individual failures do
// not abort the run: each failed item records its error in place, so
// results[i] always corresponds to requests[i]. Cached predictions are
// reused when a cache is configured.
func (s *Service) ScoreBatch(ctx context.Context, requests []ScoreRequest) []BatchItem {
	ctx, span := traces.StartSpan(ctx, "scoring.ScoreBatch", traces.BatchSize(len(requests)))
	defer span.End()

	results := make([]BatchItem, len(requests))
	for i, req := range requests {
		item := BatchItem{CustomerID: req.CustomerID}

		if cached := s.cache.Get(ctx, req.CustomerID, req.LoanRequest); cached != nil {
			item.Prediction = cached
			item.Cached = true
			metrics.BatchScoringItemsTotal.WithLabelValues("cached").Inc()
			results[i] = item
			continue
		}

		pred, err := s.Score(ctx, req)
		if err != nil {
			item.Error = err.Error()
			metrics.BatchScoringItemsTotal.WithLabelValues("failed").Inc()
			logging.L(ctx).Warn("batch item failed",
				"customer_id", req.CustomerID, "error", err)
		} else {
			item.Prediction = pred
			s.cache.Put(ctx, req.CustomerID, req.LoanRequest, pred)
			metrics.BatchScoringItemsTotal.WithLabelValues("scored").Inc()
		}
		results[i] = item
	}
	return results
}

// errorKind buckets a scoring failure for the error counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, features.ErrCustomerNotFound),
		errors.Is(err, features.ErrEmploymentNotFound):
		return "not_found"
	case errors.Is(err, features.ErrZeroIncome),
		errors.Is(err, features.ErrInvalidLoan),
		errors.Is(err, features.ErrUnknownPurpose):
		return "invalid_state"
	default:
		return "internal"
	}
}
