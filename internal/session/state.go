package session

import "fmt"

// State is the turn-taking state of an interview session. Exactly one
// state is active at a time; every other "whose turn is it" question is a
// derived read of this value.
type State string

const (
	// StateConnecting covers the window between transport accept and the
	// client's handshake.
	StateConnecting State = "connecting"

	// StateAskingQuestion means the upstream engine has been asked to
	// speak the current question but no audio has come back yet.
	StateAskingQuestion State = "asking_question"

	// StateInterviewerSpeaking means interviewer audio is streaming to
	// the client. Candidate audio arriving now is dropped.
	StateInterviewerSpeaking State = "interviewer_speaking"

	// StateWaitingForCandidate means the client has been told to open
	// its microphone and no candidate audio has arrived yet.
	StateWaitingForCandidate State = "waiting_for_candidate"

	// StateCandidateSpeaking means candidate audio or transcript
	// fragments are arriving for the open turn.
	StateCandidateSpeaking State = "candidate_speaking"

	// StateProcessingResponse means the turn closed and the session is
	// deciding whether to retry, advance, or review.
	StateProcessingResponse State = "processing_response"

	// StateReviewing means all questions are answered and finalization
	// is in progress.
	StateReviewing State = "reviewing"

	// StateComplete is the terminal success state.
	StateComplete State = "complete"

	// StateError is the terminal failure state.
	StateError State = "error"
)

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	switch s {
	case StateConnecting, StateAskingQuestion, StateInterviewerSpeaking,
		StateWaitingForCandidate, StateCandidateSpeaking,
		StateProcessingResponse, StateReviewing, StateComplete, StateError:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

// transitions is the full transition table. StateError is reachable from
// every non-terminal state and is handled in CanTransition rather than
// listed per row. The terminal states have no rows: a completed or failed
// session never moves again.
var transitions = map[State][]State{
	StateConnecting:          {StateAskingQuestion},
	StateAskingQuestion:      {StateInterviewerSpeaking},
	StateInterviewerSpeaking: {StateWaitingForCandidate},
	StateWaitingForCandidate: {StateCandidateSpeaking, StateProcessingResponse},
	StateCandidateSpeaking:   {StateProcessingResponse},
	StateProcessingResponse:  {StateWaitingForCandidate, StateAskingQuestion, StateReviewing},
	StateReviewing:           {StateComplete},
}

// CanTransition reports whether the state machine permits moving from
// one state to another.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateError {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrBadTransition describes a rejected state change.
type ErrBadTransition struct {
	From, To State
}

func (e *ErrBadTransition) Error() string {
	return fmt.Sprintf("session: invalid transition %s -> %s", e.From, e.To)
}
