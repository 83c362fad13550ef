package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rehearsal-dev/voicescreen/internal/observe"
	"github.com/rehearsal-dev/voicescreen/internal/resilience"
	"github.com/rehearsal-dev/voicescreen/pkg/provider/scoring"
)

// ScoreResult is the immutable outcome of a finalized session.
type ScoreResult struct {
	// Score is the aggregate 0–100 score: the rounded mean of per-turn
	// scores.
	Score int

	// PerTurn holds the per-turn scores in question order.
	PerTurn []int

	// Disqualified is the OR of all per-turn disqualification flags.
	Disqualified bool

	// Flags is the union of content flags across turns.
	Flags scoring.Flags

	// ScoringVersion tags the rubric used, so stored results stay
	// interpretable if the rubric changes.
	ScoringVersion string
}

// Finalizer scores a completed session's answers. Scoring calls go
// through a retry loop inside a circuit breaker; if no score can be
// obtained the finalizer returns an error wrapping
// [scoring.ErrUnavailable] rather than inventing a result.
type Finalizer struct {
	scorer  scoring.Scorer
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	metrics *observe.Metrics
}

// NewFinalizer creates a finalizer around the given scorer.
func NewFinalizer(scorer scoring.Scorer) *Finalizer {
	return &Finalizer{
		scorer:  scorer,
		metrics: observe.DefaultMetrics(),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         "scoring",
			MaxFailures:  3,
			ResetTimeout: 30 * time.Second,
		}),
		retry: resilience.RetryConfig{
			Name:      "scoring",
			Attempts:  3,
			BaseDelay: 2 * time.Second,
		},
	}
}

// Finalize scores every turn and aggregates the results. The session's
// sticky disqualification flag is folded into the result alongside the
// per-turn flags.
func (f *Finalizer) Finalize(ctx context.Context, sess *Session) (ScoreResult, error) {
	if len(sess.Turns) == 0 {
		return ScoreResult{}, fmt.Errorf("finalize session %s: no turns to score", sess.ID)
	}

	ic := scoring.Context{Company: sess.Company, Role: sess.Role}
	result := ScoreResult{
		PerTurn:        make([]int, 0, len(sess.Turns)),
		Disqualified:   sess.Disqualified,
		ScoringVersion: f.scorer.Version(),
	}

	var sum int
	for _, turn := range sess.Turns {
		ts, err := f.scoreTurn(ctx, ic, turn)
		if err != nil {
			return ScoreResult{}, fmt.Errorf("finalize session %s: question %d: %w", sess.ID, turn.Index, err)
		}
		turn.Score = ts.Score
		result.PerTurn = append(result.PerTurn, ts.Score)
		sum += ts.Score
		if ts.Disqualified {
			result.Disqualified = true
		}
		result.Flags = unionFlags(result.Flags, ts.Flags)

		slog.Debug("turn scored",
			"session_id", sess.ID,
			"question_index", turn.Index,
			"score", ts.Score,
			"disqualified", ts.Disqualified)
	}

	result.Score = int(math.Round(float64(sum) / float64(len(sess.Turns))))
	return result, nil
}

func (f *Finalizer) scoreTurn(ctx context.Context, ic scoring.Context, turn *Turn) (scoring.TurnScore, error) {
	start := time.Now()
	defer func() {
		f.metrics.ScoringDuration.Record(ctx, time.Since(start).Seconds())
	}()

	var ts scoring.TurnScore
	err := f.breaker.Execute(func() error {
		return resilience.Retry(ctx, f.retry, func(ctx context.Context) error {
			var err error
			ts, err = f.scorer.ScoreAnswer(ctx, ic, scoring.Answer{
				QuestionIndex: turn.Index,
				Question:      turn.Question,
				Text:          turn.Answer,
			})
			return err
		})
	})
	if err != nil {
		return scoring.TurnScore{}, fmt.Errorf("%w: %w", scoring.ErrUnavailable, err)
	}
	return ts, nil
}

func unionFlags(a, b scoring.Flags) scoring.Flags {
	return scoring.Flags{
		HarassmentHate: a.HarassmentHate || b.HarassmentHate,
		Sexual:         a.Sexual || b.Sexual,
		ViolenceThreat: a.ViolenceThreat || b.ViolenceThreat,
		Unprofessional: a.Unprofessional || b.Unprofessional,
	}
}
