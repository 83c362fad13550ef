// Package scoring defines the Scorer interface for answer-evaluation
// backends.
//
// A scorer judges one candidate answer against its interview question and
// returns a 0–100 score plus content flags. Flagged content caps the score
// regardless of answer quality, and the worst flag categories disqualify the
// answer outright; the caps are applied uniformly by [TurnScore.Normalize]
// so every backend reports comparable results.
//
// Scoring failures are surfaced as errors wrapping [ErrUnavailable] — a
// scorer must never fabricate a score when the backing service cannot
// produce one.
package scoring

import (
	"context"
	"errors"
)

// DefaultVersion is the scoring-rubric version tag recorded on results so
// historical scores remain interpretable if the rubric changes.
const DefaultVersion = "star-v2"

// Score caps applied when content flags are set.
const (
	disqualifyingCap  = 15
	unprofessionalCap = 35
)

// ErrUnavailable indicates the scoring backend failed or timed out and no
// score could be obtained. Wrap it so callers can test with errors.Is.
var ErrUnavailable = errors.New("scoring service unavailable")

// Answer is one closed turn submitted for evaluation.
type Answer struct {
	// QuestionIndex is the turn's 1-based question index.
	QuestionIndex int

	// Question is the canonical question text that was asked.
	Question string

	// Text is the candidate's final merged answer transcript.
	Text string
}

// Flags marks content categories that cap or disqualify an answer.
type Flags struct {
	HarassmentHate bool `json:"harassment_hate"`
	Sexual         bool `json:"sexual"`
	ViolenceThreat bool `json:"violence_threat"`
	Unprofessional bool `json:"unprofessional"`
}

// Disqualifying reports whether any flag category disqualifies the answer
// outright.
func (f Flags) Disqualifying() bool {
	return f.HarassmentHate || f.Sexual || f.ViolenceThreat
}

// Any reports whether any flag is set.
func (f Flags) Any() bool {
	return f.HarassmentHate || f.Sexual || f.ViolenceThreat || f.Unprofessional
}

// Map returns the flags as a name→value map for wire serialization.
func (f Flags) Map() map[string]bool {
	return map[string]bool{
		"harassment_hate": f.HarassmentHate,
		"sexual":          f.Sexual,
		"violence_threat": f.ViolenceThreat,
		"unprofessional":  f.Unprofessional,
	}
}

// TurnScore is the evaluation of a single answer.
type TurnScore struct {
	// Score in [0, 100], after normalization.
	Score int

	// Disqualified reports that this single answer disqualifies the whole
	// session regardless of other scores.
	Disqualified bool

	// Flags records which content categories were detected.
	Flags Flags
}

// Normalize clamps the score to [0, 100] and applies the flag caps:
// disqualifying content caps at 15 and sets Disqualified, unprofessional
// content caps at 35.
func (t TurnScore) Normalize() TurnScore {
	if t.Score < 0 {
		t.Score = 0
	}
	if t.Score > 100 {
		t.Score = 100
	}
	if t.Flags.Disqualifying() {
		t.Disqualified = true
		if t.Score > disqualifyingCap {
			t.Score = disqualifyingCap
		}
	}
	if t.Flags.Unprofessional && t.Score > unprofessionalCap {
		t.Score = unprofessionalCap
	}
	return t
}

// Context carries the interview setting the answer was given in.
type Context struct {
	Company string
	Role    string
}

// Scorer is the abstraction over any answer-evaluation backend.
//
// Implementations must be safe for concurrent use and must return a
// normalized [TurnScore] (callers may assume caps are already applied).
type Scorer interface {
	// ScoreAnswer evaluates one answer. On backend failure it returns an
	// error wrapping [ErrUnavailable]; it never guesses a score.
	ScoreAnswer(ctx context.Context, ic Context, ans Answer) (TurnScore, error)

	// Version returns the rubric version tag recorded on results.
	Version() string
}
