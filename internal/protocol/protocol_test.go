package protocol

import (
	"bytes"
	"testing"
)

func TestDecodeClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"handshake", `{"type":"handshake","company":"Acme","role":"engineer"}`, false},
		{"audio", `{"type":"audio","data":"AAAA"}`, false},
		{"end of turn", `{"type":"end_of_turn","had_speech":true}`, false},
		{"transcript final", `{"type":"transcript_final","question_index":2,"text":"my answer"}`, false},
		{"server type rejected", `{"type":"turn_complete"}`, true},
		{"unknown type rejected", `{"type":"bogus"}`, true},
		{"missing type rejected", `{"company":"Acme"}`, true},
		{"not json", `type=handshake`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeClient([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeClient(%s) error = %v, wantErr %v", tt.data, err, tt.wantErr)
			}
		})
	}
}

func TestDecodeServerRejectsClientTypes(t *testing.T) {
	t.Parallel()

	// The vocabularies are disjoint except for "audio".
	if _, err := DecodeServer([]byte(`{"type":"end_of_turn"}`)); err == nil {
		t.Error("client end_of_turn accepted as server message")
	}
	if _, err := DecodeServer([]byte(`{"type":"audio","data":"AAAA","sample_rate":24000}`)); err != nil {
		t.Errorf("server audio rejected: %v", err)
	}
}

func TestClientAudioRoundtrip(t *testing.T) {
	t.Parallel()

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	data, err := Encode(ClientAudio(pcm))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg, err := DecodeClient(data)
	if err != nil {
		t.Fatalf("DecodeClient: %v", err)
	}
	got, err := msg.PCM()
	if err != nil {
		t.Fatalf("PCM: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("PCM roundtrip = %v, want %v", got, pcm)
	}
}

func TestPCMOnNonAudioMessage(t *testing.T) {
	t.Parallel()

	m := Handshake("Acme", "engineer")
	if _, err := m.PCM(); err == nil {
		t.Error("PCM() on a handshake did not error")
	}
}

func TestEndOfTurnCarriesHadSpeech(t *testing.T) {
	t.Parallel()

	for _, hadSpeech := range []bool{true, false} {
		data, err := Encode(EndOfTurn(hadSpeech))
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		msg, err := DecodeClient(data)
		if err != nil {
			t.Fatalf("DecodeClient: %v", err)
		}
		if msg.HadSpeech == nil || *msg.HadSpeech != hadSpeech {
			t.Errorf("had_speech = %v, want %v", msg.HadSpeech, hadSpeech)
		}
	}
}

func TestInterviewCompleteEncodesZeroScore(t *testing.T) {
	t.Parallel()

	// A zero score is a legitimate verdict and must survive encoding.
	data, err := Encode(InterviewComplete(0, true, map[string]bool{"violence_threat": true}, "star-v2"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg, err := DecodeServer(data)
	if err != nil {
		t.Fatalf("DecodeServer: %v", err)
	}
	if msg.Score == nil || *msg.Score != 0 {
		t.Errorf("score = %v, want explicit 0", msg.Score)
	}
	if msg.Disqualified == nil || !*msg.Disqualified {
		t.Errorf("disqualified = %v, want true", msg.Disqualified)
	}
	if !msg.Flags["violence_threat"] {
		t.Error("flags lost in roundtrip")
	}
	if msg.ScoringVersion != "star-v2" {
		t.Errorf("scoring_version = %q", msg.ScoringVersion)
	}
}

func TestServerAudioCarriesRateAndFormat(t *testing.T) {
	t.Parallel()

	data, err := Encode(ServerAudio([]byte{0, 0}, 24000))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg, err := DecodeServer(data)
	if err != nil {
		t.Fatalf("DecodeServer: %v", err)
	}
	if msg.SampleRate != 24000 {
		t.Errorf("sample_rate = %d, want 24000", msg.SampleRate)
	}
	if msg.Format != "pcm_s16le" {
		t.Errorf("format = %q, want pcm_s16le", msg.Format)
	}
}
