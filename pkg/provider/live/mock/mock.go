// Package mock provides test doubles for the live package interfaces.
//
// Use Provider to verify Connect calls and feed controlled sessions. Use
// Session to drive the event stream and inspect which methods the
// orchestrator invoked. The OnSendText and OnEndAudio hooks let a test
// script engine behaviour, e.g. emitting audio and a TurnComplete event
// whenever the orchestrator asks for a question to be spoken.
package mock

import (
	"context"
	"sync"

	"github.com/rehearsal-dev/voicescreen/pkg/provider/live"
)

// ConnectCall records a single invocation of Provider.Connect.
type ConnectCall struct {
	// Ctx is the context passed to Connect.
	Ctx context.Context
	// Cfg is the SessionConfig passed to Connect.
	Cfg live.SessionConfig
}

// Provider is a mock implementation of live.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by Connect. If nil, Connect
	// returns a new default Session with a buffered event channel.
	Session live.SessionHandle

	// ConnectErr, if non-nil, is returned as the error from Connect.
	ConnectErr error

	// ConnectCalls records every call to Connect in order.
	ConnectCalls []ConnectCall
}

// Connect records the call and returns Session, ConnectErr.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{Ctx: ctx, Cfg: cfg})
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return NewSession(), nil
}

// Ensure Provider implements live.Provider at compile time.
var _ live.Provider = (*Provider)(nil)

// Session is a mock implementation of live.SessionHandle. Tests feed events
// through EventsCh (or the Emit helper) and close the channel to signal
// end-of-session.
type Session struct {
	mu sync.Mutex

	// EventsCh is the channel returned by Events(). Callers own this channel.
	EventsCh chan live.Event

	// --- Configurable errors ---

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// SendTextErr, if non-nil, is returned by every SendText call.
	SendTextErr error

	// EndAudioErr, if non-nil, is returned by every EndAudio call.
	EndAudioErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// ErrVal is returned by Err.
	ErrVal error

	// --- Script hooks, invoked without the mock's lock held ---

	// OnSendText, if set, runs after each SendText call with the instruction.
	OnSendText func(instruction string)

	// OnEndAudio, if set, runs after each EndAudio call.
	OnEndAudio func()

	// --- Call records ---

	// SendAudioCalls records a copy of every chunk passed to SendAudio.
	SendAudioCalls [][]byte

	// SendTextCalls records every instruction passed to SendText in order.
	SendTextCalls []string

	// EndAudioCallCount is the number of times EndAudio was called.
	EndAudioCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// NewSession creates a Session with a buffered event channel.
func NewSession() *Session {
	return &Session{EventsCh: make(chan live.Event, 64)}
}

// Emit places evt on the event channel. It blocks if the channel is full.
func (s *Session) Emit(evt live.Event) {
	s.EventsCh <- evt
}

// CloseEvents closes the event channel, signalling end-of-session.
func (s *Session) CloseEvents() {
	close(s.EventsCh)
}

// SendAudio records the call and returns SendAudioErr.
func (s *Session) SendAudio(pcm []byte) error {
	s.mu.Lock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	s.SendAudioCalls = append(s.SendAudioCalls, cp)
	err := s.SendAudioErr
	s.mu.Unlock()
	return err
}

// SendText records the call, runs the OnSendText hook, and returns SendTextErr.
func (s *Session) SendText(instruction string) error {
	s.mu.Lock()
	s.SendTextCalls = append(s.SendTextCalls, instruction)
	hook := s.OnSendText
	err := s.SendTextErr
	s.mu.Unlock()
	if hook != nil {
		hook(instruction)
	}
	return err
}

// EndAudio records the call, runs the OnEndAudio hook, and returns EndAudioErr.
func (s *Session) EndAudio() error {
	s.mu.Lock()
	s.EndAudioCallCount++
	hook := s.OnEndAudio
	err := s.EndAudioErr
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

// Events returns EventsCh.
func (s *Session) Events() <-chan live.Event { return s.EventsCh }

// Err returns ErrVal.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ErrVal
}

// Close records the call and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// SentText returns a snapshot of recorded SendText instructions. Thread-safe.
func (s *Session) SentText() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.SendTextCalls))
	copy(out, s.SendTextCalls)
	return out
}

// SentAudioBytes returns the total size of all recorded audio chunks.
func (s *Session) SentAudioBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, c := range s.SendAudioCalls {
		n += len(c)
	}
	return n
}

// Ensure Session implements live.SessionHandle at compile time.
var _ live.SessionHandle = (*Session)(nil)
