package audio

import (
	"math"
	"testing"
	"time"
)

func TestDecodePCM16(t *testing.T) {
	t.Parallel()

	// 0x7FFF is full scale positive, 0x8000 is full scale negative.
	pcm := []byte{0xFF, 0x7F, 0x00, 0x80, 0x00, 0x00}
	samples, err := DecodePCM16(pcm)
	if err != nil {
		t.Fatalf("DecodePCM16: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	if samples[0] < 0.999 || samples[0] > 1 {
		t.Errorf("full-scale positive decoded to %v", samples[0])
	}
	if samples[1] != -1 {
		t.Errorf("full-scale negative decoded to %v, want -1", samples[1])
	}
	if samples[2] != 0 {
		t.Errorf("zero decoded to %v", samples[2])
	}
}

func TestDecodePCM16OddPayload(t *testing.T) {
	t.Parallel()

	if _, err := DecodePCM16([]byte{1, 2, 3}); err == nil {
		t.Fatal("odd-length payload accepted")
	}
	// An empty payload contains zero whole samples and is well-formed.
	samples, err := DecodePCM16(nil)
	if err != nil {
		t.Fatalf("empty payload rejected: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("empty payload decoded to %d samples", len(samples))
	}
}

func TestEncodePCM16Roundtrip(t *testing.T) {
	t.Parallel()

	in := []float64{0, 0.25, -0.25, 0.5, -0.5, 0.99}
	out, err := DecodePCM16(EncodePCM16(in))
	if err != nil {
		t.Fatalf("DecodePCM16: %v", err)
	}
	for i := range in {
		if diff := math.Abs(out[i] - in[i]); diff > 1.0/32768.0 {
			t.Errorf("sample %d: %v -> %v, error %v", i, in[i], out[i], diff)
		}
	}
}

func TestEncodePCM16Saturates(t *testing.T) {
	t.Parallel()

	out, err := DecodePCM16(EncodePCM16([]float64{2.0, -2.0}))
	if err != nil {
		t.Fatalf("DecodePCM16: %v", err)
	}
	if out[0] < 0.999 {
		t.Errorf("over-range sample saturated to %v, want ~1", out[0])
	}
	if out[1] != -1 {
		t.Errorf("under-range sample saturated to %v, want -1", out[1])
	}
}

func TestRMS(t *testing.T) {
	t.Parallel()

	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}
	if got := RMS([]float64{0.5, 0.5, 0.5}); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("RMS of constant 0.5 = %v", got)
	}
	// RMS is sign-invariant.
	if got := RMS([]float64{-0.5, 0.5}); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("RMS of alternating signs = %v, want 0.5", got)
	}
}

func TestResampleMono16(t *testing.T) {
	t.Parallel()

	samples := make([]float64, 160)
	for i := range samples {
		samples[i] = 0.5
	}
	pcm := EncodePCM16(samples)

	up := ResampleMono16(pcm, 16000, 24000)
	if got, want := len(up)/2, 240; got != want {
		t.Errorf("upsampled to %d samples, want %d", got, want)
	}
	down := ResampleMono16(pcm, 16000, 8000)
	if got, want := len(down)/2, 80; got != want {
		t.Errorf("downsampled to %d samples, want %d", got, want)
	}

	// A constant signal stays constant through interpolation.
	decoded, err := DecodePCM16(up)
	if err != nil {
		t.Fatalf("DecodePCM16: %v", err)
	}
	for i, v := range decoded {
		if math.Abs(v-0.5) > 0.001 {
			t.Fatalf("upsampled sample %d = %v, want ~0.5", i, v)
		}
	}

	if got := ResampleMono16(pcm, 16000, 16000); len(got) != len(pcm) {
		t.Errorf("same-rate resample changed length %d -> %d", len(pcm), len(got))
	}
}

func TestFrameDuration(t *testing.T) {
	t.Parallel()

	f := AudioFrame{PCM: make([]byte, 960), SampleRate: 16000}
	if got := f.Duration(); got != 30*time.Millisecond {
		t.Errorf("Duration() = %v, want 30ms", got)
	}
	if got := (AudioFrame{PCM: []byte{1}, SampleRate: 16000}).Duration(); got != 0 {
		t.Errorf("malformed frame Duration() = %v, want 0", got)
	}
	if got := (AudioFrame{PCM: make([]byte, 100)}).Duration(); got != 0 {
		t.Errorf("zero-rate frame Duration() = %v, want 0", got)
	}
}
