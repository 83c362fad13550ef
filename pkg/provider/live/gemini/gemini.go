// Package gemini implements the live.Provider interface for Google's Gemini
// Live API.
//
// It establishes a bidirectional WebSocket connection to the Gemini Live
// endpoint and exchanges JSON messages according to the BidiGenerateContent
// protocol. Candidate audio is transmitted as base64-encoded PCM chunks;
// interviewer audio, input/output transcription, and turn-complete markers
// arrive on a single server stream and are surfaced in order as live.Events.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/rehearsal-dev/voicescreen/pkg/provider/live"
)

// Compile-time assertions that Provider and session satisfy the live interfaces.
var _ live.Provider = (*Provider)(nil)
var _ live.SessionHandle = (*session)(nil)

const (
	defaultModel   = "gemini-2.0-flash-live-001"
	defaultBaseURL = "wss://generativelanguage.googleapis.com/ws"

	// defaultOutputRate is assumed when the engine omits a rate in the
	// inline-data MIME type.
	defaultOutputRate = 24000

	keepaliveInterval = 20 * time.Second
	keepaliveTimeout  = 5 * time.Second
)

// rateRe extracts the sample rate from a MIME type like "audio/pcm;rate=24000".
var rateRe = regexp.MustCompile(`rate=(\d+)`)

// ── Options ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the Gemini model used for sessions.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// ── Provider ───────────────────────────────────────────────────────────────────

// Provider implements live.Provider for Google's Gemini Live API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
}

// New creates a new Gemini Live Provider with the given API key and options.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Connect establishes a new Gemini Live session with the given configuration.
// The returned SessionHandle is ready to accept audio and instructions
// immediately after the setup message is sent.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.SessionHandle, error) {
	wsURL := fmt.Sprintf(
		"%s/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent?key=%s",
		p.baseURL, p.apiKey,
	)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Content-Type": []string{"application/json"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: dial: %w", err)
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	sess := &session{
		conn:   conn,
		events: make(chan live.Event, 64),
		done:   make(chan struct{}),
		ctx:    sessCtx,
		cancel: sessCancel,
	}

	if err := sess.sendSetup(p.model, cfg); err != nil {
		sessCancel()
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("gemini: setup: %w", err)
	}

	go sess.receiveLoop()
	go sess.keepaliveLoop()

	return sess, nil
}

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model                    string             `json:"model"`
	GenerationConfig         generationConfig   `json:"generationConfig"`
	SystemInstruction        *systemInstruction `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}          `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}          `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks    []mediaChunk `json:"mediaChunks,omitempty"`
	Text           string       `json:"text,omitempty"`
	AudioStreamEnd bool         `json:"audioStreamEnd,omitempty"`
}

type mediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	Error         *geminiError     `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type modelTurn struct {
	Parts []part `json:"parts"`
}

type transcription struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished,omitempty"`
}

// ── session ────────────────────────────────────────────────────────────────────

type session struct {
	conn   *websocket.Conn
	events chan live.Event

	mu     sync.Mutex
	errVal error
	done   chan struct{}
	closed bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// sendSetup sends the initial BidiGenerateContent setup message. Input and
// output transcription are always requested so the server can assemble the
// candidate's answer text without a separate recogniser.
func (s *session) sendSetup(model string, cfg live.SessionConfig) error {
	msg := setupMessage{
		Setup: setupConfig{
			Model: fmt.Sprintf("models/%s", model),
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
			InputAudioTranscription:  &struct{}{},
			OutputAudioTranscription: &struct{}{},
		},
	}

	if cfg.Instructions != "" {
		msg.Setup.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: cfg.Instructions}},
		}
	}

	if cfg.Voice != "" {
		msg.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}

	return s.writeJSON(msg)
}

// writeJSON marshals v and writes it as a text WebSocket message.
func (s *session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gemini: marshal: %w", err)
	}
	return s.conn.Write(s.ctx, websocket.MessageText, data)
}

// receiveLoop reads messages from the WebSocket and dispatches them. It owns
// the events channel: it closes it when it exits.
func (s *session) receiveLoop() {
	defer s.closeEvents()

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.setErr(err)
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // skip malformed frames
		}

		s.handleServerMessage(&msg)
	}
}

func (s *session) handleServerMessage(msg *serverMessage) {
	if msg.Error != nil {
		text := "unknown error"
		if msg.Error.Message != "" {
			text = msg.Error.Message
		}
		s.setErr(fmt.Errorf("gemini: %s", text))
		return
	}
	if msg.ServerContent != nil {
		s.handleServerContent(msg.ServerContent)
	}
}

// handleServerContent converts one serverContent message into live.Events,
// preserving the order in which the engine produced them: audio and text
// parts first, transcripts next, the turn-complete marker last.
func (s *session) handleServerContent(sc *serverContent) {
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil {
				pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil || len(pcm) == 0 {
					continue
				}
				if !s.emit(live.Event{Audio: &live.AudioChunk{
					PCM:        pcm,
					SampleRate: sampleRateFromMIME(p.InlineData.MIMEType),
				}}) {
					return
				}
			}
			if p.Text != "" {
				if !s.emit(live.Event{Transcript: &live.Fragment{
					Speaker:   live.SpeakerInterviewer,
					Text:      p.Text,
					Final:     true,
					Timestamp: time.Now(),
				}}) {
					return
				}
			}
		}
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		if !s.emit(live.Event{Transcript: &live.Fragment{
			Speaker:   live.SpeakerCandidate,
			Text:      sc.InputTranscription.Text,
			Final:     sc.InputTranscription.Finished,
			Timestamp: time.Now(),
		}}) {
			return
		}
	}

	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		if !s.emit(live.Event{Transcript: &live.Fragment{
			Speaker:   live.SpeakerInterviewer,
			Text:      sc.OutputTranscription.Text,
			Final:     sc.OutputTranscription.Finished,
			Timestamp: time.Now(),
		}}) {
			return
		}
	}

	if sc.Interrupted {
		if !s.emit(live.Event{Interrupted: true}) {
			return
		}
	}
	if sc.TurnComplete {
		s.emit(live.Event{TurnComplete: true})
	}
}

// emit delivers evt to the events channel. Returns false when the session
// context is cancelled.
func (s *session) emit(evt live.Event) bool {
	select {
	case s.events <- evt:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// keepaliveLoop sends WebSocket pings to keep the Gemini Live connection alive.
func (s *session) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(s.ctx, keepaliveTimeout)
			_ = s.conn.Ping(pingCtx)
			cancel()
		}
	}
}

func (s *session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errVal == nil {
		s.errVal = err
	}
}

func (s *session) closeEvents() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}

// sampleRateFromMIME parses the rate parameter out of an audio MIME type,
// e.g. "audio/pcm;rate=24000". Falls back to the documented default.
func sampleRateFromMIME(mime string) int {
	m := rateRe.FindStringSubmatch(mime)
	if len(m) == 2 {
		if rate, err := strconv.Atoi(m[1]); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultOutputRate
}

// ── SessionHandle methods ──────────────────────────────────────────────────────

// SendAudio delivers a raw PCM audio chunk (16 kHz, s16le, mono) to the model.
func (s *session) SendAudio(pcm []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(pcm)
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{
				{MIMEType: "audio/pcm;rate=16000", Data: encoded},
			},
		},
	}
	return s.writeJSON(msg)
}

// SendText delivers a realtime text instruction to the model.
func (s *session) SendText(instruction string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.writeJSON(realtimeInputMessage{
		RealtimeInput: realtimeInput{Text: instruction},
	})
}

// EndAudio signals that the candidate's audio stream is complete. Without
// it the model may wait indefinitely for more input before responding.
func (s *session) EndAudio() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.writeJSON(realtimeInputMessage{
		RealtimeInput: realtimeInput{AudioStreamEnd: true},
	})
}

// Events returns the session's ordered event stream.
func (s *session) Events() <-chan live.Event { return s.events }

// Err returns the first non-nil error that caused the session to terminate.
func (s *session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errVal
}

// checkOpen returns an error when the session has been closed.
func (s *session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("gemini: session closed")
	}
	return nil
}

// Close terminates the session and releases all resources. Idempotent.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()    // unblocks receiveLoop and keepaliveLoop
	close(s.done) // signals keepaliveLoop via done channel
	s.conn.Close(websocket.StatusNormalClosure, "session closed")
	return nil
}
