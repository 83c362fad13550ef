// Package mock provides a scripted scoring.Scorer for tests.
package mock

import (
	"context"
	"sync"

	"github.com/rehearsal-dev/voicescreen/pkg/provider/scoring"
)

// Scorer returns scripted results and records every call.
type Scorer struct {
	mu sync.Mutex

	// Results are returned in order, one per call. When exhausted, the
	// last entry repeats.
	Results []scoring.TurnScore

	// Err, when set, is returned by every call instead of a result.
	Err error

	// Calls records the answers submitted for scoring.
	Calls []scoring.Answer

	// VersionTag is returned by Version; defaults to scoring.DefaultVersion.
	VersionTag string

	next int
}

var _ scoring.Scorer = (*Scorer)(nil)

// ScoreAnswer implements scoring.Scorer.
func (s *Scorer) ScoreAnswer(_ context.Context, _ scoring.Context, ans scoring.Answer) (scoring.TurnScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, ans)
	if s.Err != nil {
		return scoring.TurnScore{}, s.Err
	}
	if len(s.Results) == 0 {
		return scoring.TurnScore{Score: 50}.Normalize(), nil
	}
	res := s.Results[min(s.next, len(s.Results)-1)]
	s.next++
	return res.Normalize(), nil
}

// Version implements scoring.Scorer.
func (s *Scorer) Version() string {
	if s.VersionTag == "" {
		return scoring.DefaultVersion
	}
	return s.VersionTag
}

// CallCount returns the number of scoring calls made so far.
func (s *Scorer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
