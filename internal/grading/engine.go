// Package grading turns essay/key point similarities into rubric scores,
// a weighted total and feedback text.
package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/RubachokBoss/essay-grader/internal/models"
	"github.com/RubachokBoss/essay-grader/internal/similarity"
)

// Engine grades essays. It holds no per-request state and is safe for
// concurrent use when its provider is.
type Engine struct {
	provider    similarity.Provider
	thresholds  Thresholds
	concurrency int
	logger      zerolog.Logger
}

type Option func(*Engine)

func WithThresholds(t Thresholds) Option { return func(e *Engine) { e.thresholds = t } }

// WithConcurrency sets how many provider calls for one criterion may run at
// once. Values below 2 keep the calls sequential. Ignored for batch providers.
func WithConcurrency(n int) Option { return func(e *Engine) { e.concurrency = n } }

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.logger = l } }

func New(provider similarity.Provider, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("grading: similarity provider is required")
	}
	e := &Engine{
		provider:    provider,
		thresholds:  DefaultThresholds(),
		concurrency: 1,
		logger:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	if err := e.thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("grading: %w", err)
	}
	return e, nil
}

// Grade scores essay against every criterion of rubric, in rubric order.
// Each criterion compares the essay with every key point. Any provider error
// aborts grading and is returned as is.
func (e *Engine) Grade(ctx context.Context, essay string, keyPoints models.KeyPointSet, rubric models.Rubric) (*models.GradingResult, error) {
	result := &models.GradingResult{
		PerCriterion: make(map[string]models.CriterionScore, len(rubric.Criteria)),
		Criteria:     make([]models.CriterionResult, 0, len(rubric.Criteria)),
	}
	feedback := make([]string, 0, len(rubric.Criteria))

	for _, criterion := range rubric.Criteria {
		sims, err := e.similarities(ctx, essay, keyPoints.Points)
		if err != nil {
			return nil, err
		}

		avg := mean(sims)
		score := e.thresholds.Level(avg)
		description := DescriptionFor(criterion, score)

		feedback = append(feedback, criterionLine(criterion.Name, description, avg))

		points := make([]models.KeyPointSimilarity, len(sims))
		suggestions := 0
		for i, sim := range sims {
			weak := sim < e.thresholds.Suggestion
			if weak {
				feedback = append(feedback, suggestionLine(keyPoints.Points[i], sim))
				suggestions++
			}
			points[i] = models.KeyPointSimilarity{
				Point:      keyPoints.Points[i],
				Similarity: sim,
				Suggested:  weak,
			}
		}

		result.TotalScore += float64(score) * criterion.Weight
		result.MaxScore += float64(MaxLevel) * criterion.Weight

		// Later criteria with the same name replace earlier ones here;
		// result.Criteria keeps all of them.
		result.PerCriterion[criterion.Name] = models.CriterionScore{
			Score:         score,
			AvgSimilarity: avg,
		}
		result.Criteria = append(result.Criteria, models.CriterionResult{
			Name:          criterion.Name,
			Weight:        criterion.Weight,
			Score:         score,
			AvgSimilarity: avg,
			Description:   description,
			KeyPoints:     points,
		})

		e.logger.Debug().
			Str("criterion", criterion.Name).
			Float64("avg_similarity", avg).
			Int("score", score).
			Int("suggestions", suggestions).
			Msg("Criterion graded")
	}

	result.Feedback = strings.Join(feedback, "\n")
	return result, nil
}

// similarities returns one value per key point, in key point order.
func (e *Engine) similarities(ctx context.Context, essay string, points []string) ([]float64, error) {
	if len(points) == 0 {
		return nil, nil
	}

	if bp, ok := e.provider.(similarity.BatchProvider); ok {
		sims, err := bp.Similarities(ctx, essay, points)
		if err != nil {
			return nil, err
		}
		if len(sims) != len(points) {
			return nil, fmt.Errorf("similarity provider returned %d values for %d key points", len(sims), len(points))
		}
		return sims, nil
	}

	sims := make([]float64, len(points))

	if e.concurrency < 2 {
		for i, point := range points {
			sim, err := e.provider.Similarity(ctx, essay, point)
			if err != nil {
				return nil, err
			}
			sims[i] = sim
		}
		return sims, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, point := range points {
		i, point := i, point
		g.Go(func() error {
			sim, err := e.provider.Similarity(gctx, essay, point)
			if err != nil {
				return err
			}
			sims[i] = sim
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sims, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
