// Package session owns one interview conversation: its turn-taking state
// machine, per-turn transcript accumulation, and final evaluation.
//
// A Session is created on transport connect and destroyed on disconnect or
// completion. Only the orchestrator loop for that session mutates Session
// and Turn fields; concurrent sub-flows (audio forwarding in either
// direction) communicate with the loop over channels instead of touching
// state directly.
package session

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rehearsal-dev/voicescreen/internal/transcript"
)

// Turn is one question/answer exchange.
type Turn struct {
	// Index is the 1-based question index.
	Index int

	// Question is the canonical question text spoken to the candidate.
	Question string

	// Transcript accumulates the candidate's recognized speech for this
	// turn.
	Transcript *transcript.Assembler

	// Answer is the final merged answer text, set when the turn closes.
	Answer string

	// HadSpeech records whether the client's detector confirmed speech
	// during the turn.
	HadSpeech bool

	// AudioMS is the total duration of candidate audio received, used by
	// the minimum-answer guard.
	AudioMS int64

	// AudioChunks counts candidate audio messages received.
	AudioChunks int

	// Score is the per-turn score assigned during finalization.
	Score int

	// Retries counts how many times this turn was re-opened after an
	// unusable answer.
	Retries int
}

// ResetAnswer discards everything the candidate produced for the turn so
// it can be retried under the same index.
func (t *Turn) ResetAnswer() {
	t.Transcript.Reset()
	t.Answer = ""
	t.HadSpeech = false
	t.AudioMS = 0
	t.AudioChunks = 0
	t.Retries++
}

// Session is one interview conversation.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	// Company and Role come from the client handshake and parameterize
	// question generation, the interviewer persona, and scoring.
	Company string
	Role    string

	// Questions is the pre-generated question list, fixed at handshake.
	Questions []string

	// Turns holds one entry per question, in order. Turns[i] is question
	// i+1.
	Turns []*Turn

	// Current is the index into Turns of the open or most recent turn,
	// -1 before the first question.
	Current int

	// State is the turn-taking state. Mutated only via Transition.
	State State

	// Disqualified is sticky: once set it is never cleared.
	Disqualified bool

	// CreatedAt is the session's creation instant.
	CreatedAt time.Time

	// answerTurn is the turn whose candidate audio most recently went
	// upstream. Transcription fragments fold into it rather than into
	// whichever turn is currently open, since recognition can trail
	// past the grace window into the next question. Loop-owned.
	answerTurn *Turn

	// lastActivity (unix nanoseconds) and observedState are read by the
	// store's eviction sweep from outside the owning goroutine, so both
	// are atomic. Everything else on Session belongs to the orchestrator
	// loop alone.
	lastActivity  atomic.Int64
	observedState atomic.Value // State
}

// New creates a session in StateConnecting with a fresh ID.
func New(company, role string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		Company:   company,
		Role:      role,
		Current:   -1,
		CreatedAt: now,
	}
	s.setState(StateConnecting)
	s.lastActivity.Store(now.UnixNano())
	return s
}

// Transition moves the session to a new state, or returns
// *ErrBadTransition if the table forbids it.
func (s *Session) Transition(to State) error {
	if !CanTransition(s.State, to) {
		return &ErrBadTransition{From: s.State, To: to}
	}
	s.setState(to)
	s.Touch()
	return nil
}

// setState writes both the loop-owned field and the atomic snapshot.
func (s *Session) setState(to State) {
	s.State = to
	s.observedState.Store(to)
}

// Touch updates the last-activity timestamp.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UTC().UnixNano())
}

// LastActivity returns the last-activity instant. Safe from any
// goroutine.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load()).UTC()
}

// ObservedState returns the latest state snapshot. Safe from any
// goroutine; code on the orchestrator loop reads State directly.
func (s *Session) ObservedState() State {
	st, _ := s.observedState.Load().(State)
	return st
}

// SetQuestions fixes the question list and allocates one turn per
// question.
func (s *Session) SetQuestions(questions []string) {
	s.Questions = questions
	s.Turns = make([]*Turn, len(questions))
	for i, q := range questions {
		s.Turns[i] = &Turn{
			Index:      i + 1,
			Question:   q,
			Transcript: transcript.NewAssembler(),
		}
	}
}

// CurrentTurn returns the open or most recent turn, nil before the first
// question.
func (s *Session) CurrentTurn() *Turn {
	if s.Current < 0 || s.Current >= len(s.Turns) {
		return nil
	}
	return s.Turns[s.Current]
}

// AdvanceTurn opens the next turn and returns it, or nil when every
// question has been asked.
func (s *Session) AdvanceTurn() *Turn {
	if s.Current+1 >= len(s.Turns) {
		return nil
	}
	s.Current++
	return s.Turns[s.Current]
}

// Remaining reports how many questions have not been asked yet.
func (s *Session) Remaining() int {
	return len(s.Turns) - (s.Current + 1)
}
