// Package live defines the Provider interface for upstream conversational
// engines.
//
// A live provider wraps a real-time voice service that speaks interviewer
// utterances and (optionally) transcribes candidate replies over a single
// stateful duplex session. The orchestrator drives one session per
// interview: it pushes candidate audio and text instructions in, and
// consumes a single ordered stream of events — synthesised audio,
// transcript fragments, and utterance-complete markers — out.
//
// Events are delivered on one channel rather than per-kind channels so that
// ordering between audio and the utterance-complete marker is preserved: a
// TurnComplete event is never observed before the audio of the utterance it
// terminates.
//
// All implementations must be safe for concurrent use.
package live

import (
	"context"
	"time"
)

// Speaker identifies whose speech a transcript fragment belongs to.
type Speaker string

const (
	// SpeakerCandidate marks text recognised from the candidate's audio.
	SpeakerCandidate Speaker = "candidate"

	// SpeakerInterviewer marks text of the engine's own spoken output.
	SpeakerInterviewer Speaker = "interviewer"
)

// Fragment is a chunk of recognised or generated text. Partial fragments
// may be revised by later fragments; final fragments are stable.
type Fragment struct {
	Speaker   Speaker
	Text      string
	Final     bool
	Timestamp time.Time
}

// AudioChunk is one piece of synthesised interviewer speech.
type AudioChunk struct {
	// PCM is signed 16-bit little-endian mono sample data.
	PCM []byte

	// SampleRate in Hz as reported by the engine, typically 24000.
	SampleRate int
}

// Event is one item on a session's ordered event stream. Exactly one of the
// pointer fields is set, or TurnComplete/Interrupted is true.
type Event struct {
	// Audio carries a chunk of interviewer speech.
	Audio *AudioChunk

	// Transcript carries a recognised or generated text fragment.
	Transcript *Fragment

	// TurnComplete marks the end of the engine's current spoken utterance.
	TurnComplete bool

	// Interrupted reports that the engine abandoned its utterance mid-way.
	Interrupted bool
}

// SessionConfig is the initial configuration for a new live session.
type SessionConfig struct {
	// Voice selects the engine's synthesised voice. Empty means the engine
	// default.
	Voice string

	// Instructions is the system-level prompt constraining the engine's
	// behaviour for the whole session.
	Instructions string
}

// SessionHandle represents an open upstream session. It is an interface so
// that tests can supply scripted implementations without a live connection.
//
// The session sits on the interview hot path — every method must return
// quickly. Callers must call Close when the session is no longer needed and
// must drain Events promptly to avoid stalling the engine's receive loop.
type SessionHandle interface {
	// SendAudio delivers one chunk of candidate PCM16 audio at 16 kHz.
	// Returns an error if the session is closed or the write fails.
	SendAudio(pcm []byte) error

	// SendText delivers a realtime text instruction to the engine, e.g. the
	// directive to speak the next question verbatim.
	SendText(instruction string) error

	// EndAudio signals that the candidate's audio stream for the current
	// turn is complete; without it some engines wait indefinitely for more
	// input before responding.
	EndAudio() error

	// Events returns the session's ordered event stream. The channel is
	// closed when the session ends; call Err afterwards to check whether it
	// ended cleanly.
	Events() <-chan Event

	// Err returns the error that caused the Events channel to close
	// prematurely, or nil if the session ended cleanly.
	Err() error

	// Close terminates the session and releases all resources. Calling
	// Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any upstream conversational backend.
//
// Implementations must be safe for concurrent use; the server opens one
// session per active interview.
type Provider interface {
	// Connect establishes a new live session with the given configuration.
	// The returned SessionHandle is ready to accept audio and instructions
	// immediately. The caller owns the handle and must call Close.
	Connect(ctx context.Context, cfg SessionConfig) (SessionHandle, error)
}
