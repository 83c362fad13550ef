package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rehearsal-dev/voicescreen/pkg/provider/questions"
)

func questionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  defaultModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	srv := questionServer(t, `{"questions": ["Q one?", "Q two?", "Q three?"]}`)
	p := New("test-key", WithBaseURL(srv.URL))

	qs, err := p.Generate(context.Background(), questions.Request{
		Company: "Acme", Role: "backend engineer", Count: 3,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(qs) != 3 || qs[0] != "Q one?" || qs[2] != "Q three?" {
		t.Errorf("questions = %v", qs)
	}
}

func TestGenerateWrongCount(t *testing.T) {
	t.Parallel()

	srv := questionServer(t, `{"questions": ["only one"]}`)
	p := New("test-key", WithBaseURL(srv.URL))

	if _, err := p.Generate(context.Background(), questions.Request{Count: 3}); err == nil {
		t.Fatal("Generate accepted a short question set")
	}
}

func TestParseReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"bare object", `{"questions": ["a", "b", "c"]}`, 3, false},
		{"markdown fenced", "```json\n{\"questions\": [\"a\", \"b\", \"c\"]}\n```", 3, false},
		{"blank entries dropped", `{"questions": ["a", "  ", "b", "c"]}`, 3, false},
		{"no object", "three questions, coming right up", 0, true},
		{"count mismatch", `{"questions": ["a"]}`, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			qs, err := parseReply(tt.content, 3)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseReply succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseReply: %v", err)
			}
			if len(qs) != tt.want {
				t.Errorf("got %d questions, want %d", len(qs), tt.want)
			}
		})
	}
}
