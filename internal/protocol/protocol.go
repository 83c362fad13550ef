// Package protocol defines the duplex wire messages exchanged between the
// interview client and server.
//
// Each message is a tagged JSON object carried as a WebSocket text frame.
// The client→server and server→client vocabularies are disjoint; a message
// type valid in one direction is malformed in the other. Audio payloads are
// base64-encoded PCM16LE; candidate audio is implicitly 16 kHz, interviewer
// audio carries its sample rate per message.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Client→server message types.
const (
	TypeHandshake       = "handshake"
	TypeAudio           = "audio"
	TypeEndOfTurn       = "end_of_turn"
	TypeTranscriptFinal = "transcript_final"
)

// Server→client message types.
const (
	TypeQuestion          = "question"
	TypeServerAudio       = "audio"
	TypeTurnComplete      = "turn_complete"
	TypeResumeListening   = "resume_listening"
	TypeReviewing         = "reviewing"
	TypeInterviewComplete = "interview_complete"
	TypeError             = "error"
)

// Resume reasons for [ResumeListening].
const (
	ReasonNoSpeech = "no_speech"
	ReasonTooShort = "too_short"
)

// CaptureSampleRate is the fixed sample rate of candidate audio on the wire.
const CaptureSampleRate = 16000

// ClientMessage is the decoded union of all client→server messages. Type
// discriminates which fields are meaningful.
type ClientMessage struct {
	Type string `json:"type"`

	// handshake
	Company string `json:"company,omitempty"`
	Role    string `json:"role,omitempty"`

	// audio
	Data string `json:"data,omitempty"` // base64 PCM16LE @16kHz

	// end_of_turn
	HadSpeech *bool `json:"had_speech,omitempty"`

	// transcript_final
	QuestionIndex int    `json:"question_index,omitempty"`
	Text          string `json:"text,omitempty"`
}

// PCM decodes the base64 audio payload of an audio message.
func (m *ClientMessage) PCM() ([]byte, error) {
	if m.Type != TypeAudio {
		return nil, fmt.Errorf("protocol: message type %q carries no audio", m.Type)
	}
	data, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return nil, fmt.Errorf("protocol: decode audio payload: %w", err)
	}
	return data, nil
}

// DecodeClient parses one client→server wire frame. Unknown or missing types
// are rejected so the caller can drop and log the frame.
func DecodeClient(data []byte) (*ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("protocol: decode client message: %w", err)
	}
	switch m.Type {
	case TypeHandshake, TypeAudio, TypeEndOfTurn, TypeTranscriptFinal:
		return &m, nil
	default:
		return nil, fmt.Errorf("protocol: unknown client message type %q", m.Type)
	}
}

// ServerMessage is the union of all server→client messages.
type ServerMessage struct {
	Type string `json:"type"`

	// question
	Content        string `json:"content,omitempty"`
	QuestionNumber int    `json:"question_number,omitempty"`
	TotalQuestions int    `json:"total_questions,omitempty"`

	// audio
	Data       string `json:"data,omitempty"` // base64 PCM16LE
	SampleRate int    `json:"sample_rate,omitempty"`
	Format     string `json:"format,omitempty"` // always "pcm_s16le"

	// resume_listening
	Reason     string `json:"reason,omitempty"`
	MinAudioMs int    `json:"min_audio_ms,omitempty"`
	MinChunks  int    `json:"min_chunks,omitempty"`

	// interview_complete
	Score          *int            `json:"score,omitempty"`
	Disqualified   *bool           `json:"disqualified,omitempty"`
	Flags          map[string]bool `json:"flags,omitempty"`
	ScoringVersion string          `json:"scoring_version,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// DecodeServer parses one server→client wire frame.
func DecodeServer(data []byte) (*ServerMessage, error) {
	var m ServerMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("protocol: decode server message: %w", err)
	}
	switch m.Type {
	case TypeQuestion, TypeServerAudio, TypeTurnComplete, TypeResumeListening,
		TypeReviewing, TypeInterviewComplete, TypeError:
		return &m, nil
	default:
		return nil, fmt.Errorf("protocol: unknown server message type %q", m.Type)
	}
}

// PCM decodes the base64 audio payload of a server audio message.
func (m *ServerMessage) PCM() ([]byte, error) {
	if m.Type != TypeServerAudio {
		return nil, fmt.Errorf("protocol: message type %q carries no audio", m.Type)
	}
	data, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return nil, fmt.Errorf("protocol: decode audio payload: %w", err)
	}
	return data, nil
}

// ── Constructors ───────────────────────────────────────────────────────────────

// Handshake builds the session-opening client message.
func Handshake(company, role string) ClientMessage {
	return ClientMessage{Type: TypeHandshake, Company: company, Role: role}
}

// ClientAudio builds an outbound candidate audio message from raw PCM16LE.
func ClientAudio(pcm []byte) ClientMessage {
	return ClientMessage{Type: TypeAudio, Data: base64.StdEncoding.EncodeToString(pcm)}
}

// EndOfTurn builds the candidate's end-of-turn signal.
func EndOfTurn(hadSpeech bool) ClientMessage {
	return ClientMessage{Type: TypeEndOfTurn, HadSpeech: &hadSpeech}
}

// TranscriptFinal builds the optional client-computed transcript fallback.
func TranscriptFinal(questionIndex int, text string) ClientMessage {
	return ClientMessage{Type: TypeTranscriptFinal, QuestionIndex: questionIndex, Text: text}
}

// Question builds the canonical question message. Receiving it also tells
// the client to stop any in-progress recording.
func Question(content string, number, total int) ServerMessage {
	return ServerMessage{
		Type:           TypeQuestion,
		Content:        content,
		QuestionNumber: number,
		TotalQuestions: total,
	}
}

// ServerAudio builds an interviewer audio message from raw PCM16LE at the
// given sample rate.
func ServerAudio(pcm []byte, sampleRate int) ServerMessage {
	return ServerMessage{
		Type:       TypeServerAudio,
		Data:       base64.StdEncoding.EncodeToString(pcm),
		SampleRate: sampleRate,
		Format:     "pcm_s16le",
	}
}

// TurnComplete builds the interviewer-finished-speaking signal.
func TurnComplete(number, total int) ServerMessage {
	return ServerMessage{Type: TypeTurnComplete, QuestionNumber: number, TotalQuestions: total}
}

// ResumeListening tells the client to re-open the microphone for the same
// question. reason is one of [ReasonNoSpeech] or [ReasonTooShort].
func ResumeListening(reason string, minAudioMs, minChunks int) ServerMessage {
	return ServerMessage{
		Type:       TypeResumeListening,
		Reason:     reason,
		MinAudioMs: minAudioMs,
		MinChunks:  minChunks,
	}
}

// Reviewing signals that all questions are answered and finalization is in
// progress.
func Reviewing() ServerMessage {
	return ServerMessage{Type: TypeReviewing}
}

// InterviewComplete builds the terminal success message.
func InterviewComplete(score int, disqualified bool, flags map[string]bool, version string) ServerMessage {
	return ServerMessage{
		Type:           TypeInterviewComplete,
		Score:          &score,
		Disqualified:   &disqualified,
		Flags:          flags,
		ScoringVersion: version,
	}
}

// Error builds a failure notice.
func Error(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: message}
}

// Encode marshals a message for the wire.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode: %w", err)
	}
	return data, nil
}
