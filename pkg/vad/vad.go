// Package vad implements frame-level voice-activity detection for candidate
// turns.
//
// The detector is a stateful, per-turn session: it classifies each incoming
// frame as silence or speech using an exponentially-smoothed RMS amplitude
// against an adaptive noise floor, buffers pre-roll audio until speech is
// confirmed, and decides when the turn has ended. One Detector is created per
// turn and discarded afterwards; create a fresh one with [New] when the next
// question opens.
//
// VAD is synchronous by design: ProcessFrame returns immediately with a
// detection result and never blocks, making it safe to call from a real-time
// audio callback. All work per frame is O(frame size). A Detector must not be
// shared across goroutines.
//
// Time is derived from the audio stream itself (cumulative frame durations),
// not the wall clock, so detection is deterministic for a given input stream.
package vad

import (
	"fmt"
	"time"

	"github.com/rehearsal-dev/voicescreen/pkg/audio"
)

// Config holds the tuning knobs for a [Detector]. The numeric values were
// tuned empirically and vary per microphone and acoustic environment — treat
// them as deployment configuration. The turn-taking protocol does not depend
// on their exact values, only on well-formed end-of-turn and has-speech
// signals.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Frames passed to
	// ProcessFrame must match it. Default: 16000.
	SampleRate int

	// Smoothing is the EMA weight given to the current frame's RMS:
	// ema = (1-Smoothing)*ema + Smoothing*rms. Default: 0.2.
	Smoothing float64

	// BaseThreshold is the absolute amplitude floor below which a frame is
	// never speech, regardless of how quiet the room is. Default: 0.025.
	BaseThreshold float64

	// NoiseFloorMultiplier scales the measured noise floor to form the
	// speech threshold: a frame is speech when
	// ema >= max(BaseThreshold, noiseFloor*NoiseFloorMultiplier).
	// Default: 4.0.
	NoiseFloorMultiplier float64

	// NoiseFloorWindow is how long, from the start of the turn, the running
	// mean of the smoothed amplitude is accumulated as the turn's noise
	// floor. Accumulation also stops once speech is confirmed. Default: 700ms.
	NoiseFloorWindow time.Duration

	// SpeechConfirm is the accumulated duration of consecutive speech frames
	// required before speech is confirmed. Rejects coughs and clicks.
	// Default: 450ms.
	SpeechConfirm time.Duration

	// PreRollFrames is the capacity of the pre-roll ring buffer holding
	// frames observed before speech is confirmed. Default: 8.
	PreRollFrames int

	// SpeechHold extends the last-speech timestamp so brief dips in
	// amplitude are not treated as silence. Default: 250ms.
	SpeechHold time.Duration

	// MinTurn is the minimum elapsed turn time before the turn may end.
	// Default: 1.6s.
	MinTurn time.Duration

	// SilenceTimeout is the silence duration after the last speech frame
	// that ends the turn. Default: 3s.
	SilenceTimeout time.Duration
}

// withDefaults returns cfg with zero fields replaced by default values.
func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		c.Smoothing = 0.2
	}
	if c.BaseThreshold <= 0 {
		c.BaseThreshold = 0.025
	}
	if c.NoiseFloorMultiplier <= 0 {
		c.NoiseFloorMultiplier = 4.0
	}
	if c.NoiseFloorWindow <= 0 {
		c.NoiseFloorWindow = 700 * time.Millisecond
	}
	if c.SpeechConfirm <= 0 {
		c.SpeechConfirm = 450 * time.Millisecond
	}
	if c.PreRollFrames <= 0 {
		c.PreRollFrames = 8
	}
	if c.SpeechHold <= 0 {
		c.SpeechHold = 250 * time.Millisecond
	}
	if c.MinTurn <= 0 {
		c.MinTurn = 1600 * time.Millisecond
	}
	if c.SilenceTimeout <= 0 {
		c.SilenceTimeout = 3 * time.Second
	}
	return c
}

// Event is the detection result for a single frame.
type Event struct {
	// SpeechFrame reports whether this frame's smoothed amplitude cleared
	// the speech threshold.
	SpeechFrame bool

	// SpeechConfirmed is true on exactly the frame where accumulated speech
	// crossed the confirmation duration. When set, PreRoll holds the buffered
	// frames that must be transmitted before the current frame.
	SpeechConfirmed bool

	// PreRoll is the ordered pre-roll buffer, populated only on the
	// confirming frame. The caller flushes these first, then the current
	// frame, so the first syllables are not lost.
	PreRoll []audio.AudioFrame

	// TurnEnded is true on exactly one frame per turn: the frame on which
	// the end-of-turn condition was met. Further frames never re-fire it.
	TurnEnded bool

	// HasSpeech reports whether speech was confirmed at any point during the
	// turn. Meaningful on the TurnEnded event: a turn ending without speech
	// must be retried, not advanced.
	HasSpeech bool
}

// Detector classifies one candidate turn's audio stream. Create with [New].
type Detector struct {
	cfg Config

	elapsed time.Duration // cumulative stream time
	ema     float64

	noiseSum   float64
	noiseCount int

	speechRun   time.Duration // accumulated consecutive speech-frame time
	confirmed   bool
	speechStart time.Duration
	lastSpeech  time.Duration

	preRoll []audio.AudioFrame // ring, oldest first
	ended   bool
}

// New creates a Detector for a single turn with the given configuration.
// Zero-value config fields take the documented defaults.
func New(cfg Config) *Detector {
	cfg = cfg.withDefaults()
	return &Detector{
		cfg:     cfg,
		preRoll: make([]audio.AudioFrame, 0, cfg.PreRollFrames),
	}
}

// ProcessFrame classifies one frame and advances the turn state. The frame
// must be PCM16 at the configured sample rate. Malformed frames are rejected
// with an error and do not advance stream time; the caller should drop them.
//
// ProcessFrame never blocks.
func (d *Detector) ProcessFrame(frame audio.AudioFrame) (Event, error) {
	if frame.SampleRate != d.cfg.SampleRate {
		return Event{}, fmt.Errorf("vad: frame sample rate %d, want %d", frame.SampleRate, d.cfg.SampleRate)
	}
	samples, err := audio.DecodePCM16(frame.PCM)
	if err != nil {
		return Event{}, fmt.Errorf("vad: %w", err)
	}
	if len(samples) == 0 {
		return Event{}, fmt.Errorf("vad: empty frame")
	}

	d.elapsed += frame.Duration()

	rms := audio.RMS(samples)
	d.ema = d.ema*(1-d.cfg.Smoothing) + rms*d.cfg.Smoothing

	// Accumulate the noise floor from early, pre-speech audio only.
	if !d.confirmed && d.elapsed <= d.cfg.NoiseFloorWindow {
		d.noiseSum += d.ema
		d.noiseCount++
	}

	evt := Event{
		SpeechFrame: d.isSpeech(),
		HasSpeech:   d.confirmed,
	}

	if !d.confirmed {
		if evt.SpeechFrame {
			d.speechRun += frame.Duration()
			if d.speechRun >= d.cfg.SpeechConfirm {
				d.confirmed = true
				d.speechStart = d.elapsed - d.speechRun
				d.lastSpeech = d.elapsed
				evt.SpeechConfirmed = true
				evt.HasSpeech = true
				evt.PreRoll = d.preRoll
				d.preRoll = nil
			}
		} else {
			d.speechRun = 0
		}
		if !d.confirmed {
			d.bufferPreRoll(frame)
		}
	} else if evt.SpeechFrame {
		d.lastSpeech = d.elapsed
	}

	if !d.ended && d.turnOver() {
		d.ended = true
		evt.TurnEnded = true
		evt.HasSpeech = d.confirmed
	}

	return evt, nil
}

// isSpeech applies the amplitude threshold to the current smoothed value.
// The threshold is monotone: a higher ema never flips the result from
// speech to silence.
func (d *Detector) isSpeech() bool {
	return d.ema >= d.threshold()
}

// threshold returns the effective speech threshold for the turn.
func (d *Detector) threshold() float64 {
	th := d.cfg.BaseThreshold
	if d.noiseCount > 0 {
		if nf := (d.noiseSum / float64(d.noiseCount)) * d.cfg.NoiseFloorMultiplier; nf > th {
			th = nf
		}
	}
	return th
}

// turnOver evaluates the end-of-turn rule. Before speech confirmation the
// turn's start acts as the last speech instant, so an all-silence turn still
// terminates and is surfaced with HasSpeech == false.
func (d *Detector) turnOver() bool {
	if d.elapsed < d.cfg.MinTurn {
		return false
	}
	silence := d.elapsed - d.lastSpeech - d.cfg.SpeechHold
	return silence >= d.cfg.SilenceTimeout
}

// bufferPreRoll appends frame to the bounded pre-roll ring, discarding the
// oldest frame when full.
func (d *Detector) bufferPreRoll(frame audio.AudioFrame) {
	if len(d.preRoll) >= d.cfg.PreRollFrames {
		copy(d.preRoll, d.preRoll[1:])
		d.preRoll = d.preRoll[:len(d.preRoll)-1]
	}
	d.preRoll = append(d.preRoll, frame)
}

// HasSpeech reports whether speech has been confirmed this turn.
func (d *Detector) HasSpeech() bool { return d.confirmed }

// Ended reports whether the turn-end signal has fired.
func (d *Detector) Ended() bool { return d.ended }

// SpeechStart returns the stream time at which confirmed speech began, or
// zero if speech has not been confirmed.
func (d *Detector) SpeechStart() time.Duration { return d.speechStart }

// Reset clears all accumulated state so the Detector can classify a new
// turn. Equivalent to constructing a fresh Detector with the same Config.
func (d *Detector) Reset() {
	cfg := d.cfg
	*d = Detector{
		cfg:     cfg,
		preRoll: make([]audio.AudioFrame, 0, cfg.PreRollFrames),
	}
}
