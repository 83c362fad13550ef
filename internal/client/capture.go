// Package client implements the candidate side of an interview session:
// the microphone capture pipeline with voice-activity gating, the ordered
// playback queue for interviewer audio, and the WebSocket client that ties
// them to the server.
package client

import (
	"sync"

	"github.com/rehearsal-dev/voicescreen/internal/protocol"
	"github.com/rehearsal-dev/voicescreen/pkg/audio"
	"github.com/rehearsal-dev/voicescreen/pkg/vad"
)

// captureBuffer bounds the outbound message queue. The frame callback
// never blocks on it: when full, the oldest message is dropped.
const captureBuffer = 256

// Capture gates microphone frames through a voice-activity detector.
//
// Frames flow in via [Capture.ProcessFrame] from the audio callback; the
// work per frame is O(frame size) and never blocks. Messages ready for the
// transport come out of [Capture.Messages].
//
// Capture starts disabled. The server's control messages open and close
// it via [Capture.Open] and [Capture.Close]; a local flag alone never
// decides whether the microphone is live, so interviewer audio is never
// fed back upstream.
type Capture struct {
	vcfg vad.Config
	out  chan protocol.ClientMessage

	mu      sync.Mutex
	det     *vad.Detector
	enabled bool
}

// NewCapture creates a disabled capture pipeline using the given detector
// configuration.
func NewCapture(vcfg vad.Config) *Capture {
	return &Capture{
		vcfg: vcfg,
		out:  make(chan protocol.ClientMessage, captureBuffer),
	}
}

// Messages returns the queue of audio and end-of-turn messages to send.
func (c *Capture) Messages() <-chan protocol.ClientMessage {
	return c.out
}

// Open starts a new candidate turn: a fresh detector, everything gated
// until speech is confirmed.
func (c *Capture) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.det = vad.New(c.vcfg)
	c.enabled = true
}

// Close disables capture until the next Open. Pending messages already
// queued are still delivered.
func (c *Capture) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// Enabled reports whether the pipeline is accepting frames.
func (c *Capture) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// ProcessFrame feeds one microphone frame through the detector. Frames
// before speech confirmation are buffered, not transmitted; on
// confirmation the pre-roll flushes first so the first syllables are not
// lost. When the detector ends the turn, an end_of_turn message is queued
// and the pipeline disables itself until the next Open.
func (c *Capture) ProcessFrame(frame audio.AudioFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil
	}

	ev, err := c.det.ProcessFrame(frame)
	if err != nil {
		// A malformed frame is dropped; the turn continues.
		return err
	}

	switch {
	case ev.SpeechConfirmed:
		for _, pf := range ev.PreRoll {
			c.enqueue(protocol.ClientAudio(pf.PCM))
		}
		c.enqueue(protocol.ClientAudio(frame.PCM))
	case c.det.HasSpeech() && !ev.TurnEnded:
		c.enqueue(protocol.ClientAudio(frame.PCM))
	}

	if ev.TurnEnded {
		c.enabled = false
		c.enqueue(protocol.EndOfTurn(ev.HasSpeech))
	}
	return nil
}

// enqueue adds a message without ever blocking: when the queue is full
// the oldest entry is dropped to make room.
func (c *Capture) enqueue(msg protocol.ClientMessage) {
	for {
		select {
		case c.out <- msg:
			return
		default:
		}
		select {
		case <-c.out:
		default:
		}
	}
}
