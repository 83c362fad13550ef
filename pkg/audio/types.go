package audio

import "time"

// Direction tags which way an [AudioFrame] is travelling through a session.
type Direction int

const (
	// Inbound frames carry interviewer speech from the server to the client.
	Inbound Direction = iota

	// Outbound frames carry candidate speech from the client to the server.
	Outbound
)

// String returns the human-readable name of the direction.
func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// AudioFrame is a fixed-duration slice of PCM audio flowing through the
// interview pipeline — captured by the client, classified by VAD, forwarded
// to the upstream engine, or played back to the candidate. Frames are
// value-like: once constructed they must not be mutated.
type AudioFrame struct {
	// PCM is signed 16-bit little-endian mono sample data.
	PCM []byte

	// SampleRate in Hz. Candidate capture is 16000; interviewer output is
	// typically 24000 but is carried per frame, never assumed.
	SampleRate int

	// Direction tags the frame as interviewer (Inbound) or candidate
	// (Outbound) audio.
	Direction Direction

	// Timestamp marks when this frame was captured or received, relative to
	// the start of its stream.
	Timestamp time.Duration
}

// Duration returns the play time of the frame's PCM payload at its sample
// rate, or zero when the frame is malformed.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 || len(f.PCM) < bytesPerSample {
		return 0
	}
	samples := len(f.PCM) / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}
