// Package audio defines the AudioFrame type and the PCM16 codec used on the
// interview wire format.
//
// All audio in VoiceScreen is signed 16-bit little-endian mono PCM. The codec
// converts between that byte encoding and normalized float64 samples in
// [-1, 1], which is the representation the VAD operates on. Sample rates are
// carried alongside payloads, never assumed.
package audio

import (
	"errors"
	"fmt"
	"math"
)

// bytesPerSample is the width of one PCM16 sample on the wire.
const bytesPerSample = 2

// ErrOddPayload is returned when a PCM payload has an odd byte count and
// therefore cannot contain whole int16 samples. Callers should drop the
// frame rather than fail the stream.
var ErrOddPayload = errors.New("audio: odd byte count in PCM16 payload")

// DecodePCM16 converts little-endian int16 PCM bytes to normalized float64
// samples in [-1, 1]. Malformed (odd-length) payloads are rejected with
// [ErrOddPayload].
func DecodePCM16(pcm []byte) ([]float64, error) {
	if len(pcm)%bytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrOddPayload, len(pcm))
	}
	out := make([]float64, len(pcm)/bytesPerSample)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float64(s) / 32768.0
	}
	return out, nil
}

// EncodePCM16 converts normalized float64 samples to little-endian int16 PCM
// bytes. Samples outside [-1, 1] are saturated to the int16 range rather
// than wrapped.
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, v := range samples {
		scaled := v * 32768.0
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		s := int16(scaled)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// RMS computes the root-mean-square amplitude of normalized samples.
// An empty slice has zero amplitude.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
