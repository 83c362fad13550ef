package vad

import (
	"testing"
	"time"

	"github.com/rehearsal-dev/voicescreen/pkg/audio"
)

const (
	testRate     = 16000
	frameSamples = 480 // 30ms at 16kHz
)

// frame builds a 30ms constant-amplitude frame; its RMS equals amplitude.
func frame(amplitude float64, ts time.Duration) audio.AudioFrame {
	samples := make([]float64, frameSamples)
	for i := range samples {
		samples[i] = amplitude
	}
	return audio.AudioFrame{
		PCM:        audio.EncodePCM16(samples),
		SampleRate: testRate,
		Direction:  audio.Outbound,
		Timestamp:  ts,
	}
}

// feed pushes n frames of the given amplitude and returns the last event
// with TurnEnded or SpeechConfirmed set, if any.
func feed(t *testing.T, d *Detector, n int, amplitude float64) (confirmed, ended Event, sawConfirm, sawEnd bool) {
	t.Helper()
	for i := 0; i < n; i++ {
		ev, err := d.ProcessFrame(frame(amplitude, 0))
		if err != nil {
			t.Fatalf("ProcessFrame: %v", err)
		}
		if ev.SpeechConfirmed {
			confirmed = ev
			sawConfirm = true
		}
		if ev.TurnEnded {
			if sawEnd {
				t.Fatal("TurnEnded fired twice in one turn")
			}
			ended = ev
			sawEnd = true
		}
	}
	return confirmed, ended, sawConfirm, sawEnd
}

// quietLead feeds enough near-silence to settle the noise floor: 25 frames
// is 750ms of stream time, past the default noise-floor window.
func quietLead(t *testing.T, d *Detector) {
	t.Helper()
	feed(t, d, 25, 0.0001)
}

func TestSpeechThresholdMonotone(t *testing.T) {
	t.Parallel()

	// For identical prior detector state, a louder frame is never
	// classified as less speech-like than a quieter one.
	amplitudes := []float64{0.001, 0.01, 0.05, 0.1, 0.3, 0.6, 0.9}
	prevSpeech := false
	for _, a := range amplitudes {
		d := New(Config{SampleRate: testRate})
		quietLead(t, d)
		ev, err := d.ProcessFrame(frame(a, 0))
		if err != nil {
			t.Fatalf("ProcessFrame(%v): %v", a, err)
		}
		if prevSpeech && !ev.SpeechFrame {
			t.Errorf("amplitude %v not speech although a quieter frame was", a)
		}
		prevSpeech = prevSpeech || ev.SpeechFrame
	}
	if !prevSpeech {
		t.Error("no amplitude classified as speech")
	}
}

func TestSpeechConfirmRejectsShortBurst(t *testing.T) {
	t.Parallel()

	d := New(Config{SampleRate: testRate, SpeechConfirm: 450 * time.Millisecond})
	quietLead(t, d)

	// A 150ms burst, counting the smoothed decay tail that follows it,
	// stays under the 450ms confirmation threshold.
	_, _, sawConfirm, _ := feed(t, d, 5, 0.15)
	if sawConfirm {
		t.Fatal("speech confirmed by a 150ms burst")
	}
	if d.HasSpeech() {
		t.Fatal("HasSpeech true before confirmation")
	}

	// Silence resets the run; another short burst must not confirm either.
	_, _, sawConfirm, _ = feed(t, d, 20, 0.0001)
	if sawConfirm {
		t.Fatal("speech confirmed during decay silence")
	}
	_, _, sawConfirm, _ = feed(t, d, 5, 0.15)
	if sawConfirm {
		t.Fatal("speech confirmed across a silence gap")
	}
}

func TestPreRollCompleteness(t *testing.T) {
	t.Parallel()

	d := New(Config{SampleRate: testRate, PreRollFrames: 8})

	// Quiet lead-in, each frame tagged with its index via Timestamp.
	const lead = 20
	for i := 0; i < lead; i++ {
		if _, err := d.ProcessFrame(frame(0.0001, time.Duration(i))); err != nil {
			t.Fatalf("ProcessFrame: %v", err)
		}
	}

	// Speech until the confirmation event fires.
	var confirm Event
	idx := lead
	for !d.HasSpeech() {
		ev, err := d.ProcessFrame(frame(0.5, time.Duration(idx)))
		if err != nil {
			t.Fatalf("ProcessFrame: %v", err)
		}
		if ev.SpeechConfirmed {
			confirm = ev
		}
		idx++
	}
	if confirm.PreRoll == nil {
		t.Fatal("confirmation event carried no pre-roll")
	}
	if len(confirm.PreRoll) != 8 {
		t.Fatalf("pre-roll holds %d frames, want 8", len(confirm.PreRoll))
	}

	// The buffered frames must be exactly the 8 frames preceding the
	// confirming frame, in order: no gap between pre-roll and the live
	// stream.
	confirmingIdx := idx - 1
	for i, f := range confirm.PreRoll {
		want := time.Duration(confirmingIdx - 8 + i)
		if f.Timestamp != want {
			t.Errorf("pre-roll[%d] is frame %d, want %d", i, f.Timestamp, want)
		}
	}
}

func TestTurnEndAfterSpeech(t *testing.T) {
	t.Parallel()

	d := New(Config{SampleRate: testRate})
	quietLead(t, d)

	// One second of speech, then sustained silence.
	_, _, sawConfirm, _ := feed(t, d, 33, 0.5)
	if !sawConfirm {
		t.Fatal("speech never confirmed")
	}
	_, ended, _, sawEnd := feed(t, d, 200, 0.0001)
	if !sawEnd {
		t.Fatal("turn never ended after sustained silence")
	}
	if !ended.HasSpeech {
		t.Error("turn ended with HasSpeech=false despite confirmed speech")
	}
	if !d.Ended() {
		t.Error("Ended() false after turn end")
	}
}

func TestTurnEndIdempotent(t *testing.T) {
	t.Parallel()

	d := New(Config{SampleRate: testRate})
	quietLead(t, d)
	feed(t, d, 33, 0.5)
	_, _, _, sawEnd := feed(t, d, 200, 0.0001)
	if !sawEnd {
		t.Fatal("turn never ended")
	}

	// feed fails the test itself if TurnEnded fires again.
	_, _, _, sawEnd = feed(t, d, 200, 0.0001)
	if sawEnd {
		t.Fatal("TurnEnded re-fired on a finished turn")
	}
}

func TestSilentTurnEndsWithoutSpeech(t *testing.T) {
	t.Parallel()

	d := New(Config{SampleRate: testRate})
	_, ended, sawConfirm, sawEnd := feed(t, d, 300, 0.0001)
	if sawConfirm {
		t.Fatal("silence confirmed as speech")
	}
	if !sawEnd {
		t.Fatal("all-silence turn never ended")
	}
	if ended.HasSpeech {
		t.Error("all-silence turn reported HasSpeech=true")
	}
}

func TestMalformedFramesRejected(t *testing.T) {
	t.Parallel()

	d := New(Config{SampleRate: testRate})

	if _, err := d.ProcessFrame(audio.AudioFrame{PCM: []byte{1, 2, 3}, SampleRate: testRate}); err == nil {
		t.Error("odd-length payload accepted")
	}
	if _, err := d.ProcessFrame(audio.AudioFrame{PCM: nil, SampleRate: testRate}); err == nil {
		t.Error("empty payload accepted")
	}
	if _, err := d.ProcessFrame(frame(0.5, 0)); err != nil {
		t.Errorf("valid frame rejected after malformed ones: %v", err)
	}

	wrong := frame(0.5, 0)
	wrong.SampleRate = 44100
	if _, err := d.ProcessFrame(wrong); err == nil {
		t.Error("wrong sample rate accepted")
	}
}

func TestResetStartsFreshTurn(t *testing.T) {
	t.Parallel()

	d := New(Config{SampleRate: testRate})
	quietLead(t, d)
	feed(t, d, 33, 0.5)
	feed(t, d, 200, 0.0001)
	if !d.Ended() {
		t.Fatal("turn never ended")
	}

	d.Reset()
	if d.Ended() || d.HasSpeech() {
		t.Fatal("Reset left turn state behind")
	}
	quietLead(t, d)
	_, _, sawConfirm, _ := feed(t, d, 33, 0.5)
	if !sawConfirm {
		t.Error("speech not confirmed on the fresh turn")
	}
}
