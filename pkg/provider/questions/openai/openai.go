// Package openai implements questions.Provider using the OpenAI chat
// completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/rehearsal-dev/voicescreen/pkg/provider/questions"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultCount   = 3
	defaultTimeout = 30 * time.Second
)

var jsonObjRe = regexp.MustCompile(`(?s)\{.*\}`)

// Provider generates questions via OpenAI chat completions.
type Provider struct {
	client  oai.Client
	model   string
	timeout time.Duration
}

var _ questions.Provider = (*Provider)(nil)

// Option customizes the provider.
type Option func(*Provider) []option.RequestOption

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) []option.RequestOption {
		return []option.RequestOption{option.WithBaseURL(url)}
	}
}

// WithModel overrides the default chat model.
func WithModel(model string) Option {
	return func(p *Provider) []option.RequestOption {
		p.model = model
		return nil
	}
}

// WithTimeout bounds each generation request.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) []option.RequestOption {
		p.timeout = d
		return nil
	}
}

// WithHTTPClient substitutes the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) []option.RequestOption {
		return []option.RequestOption{option.WithHTTPClient(hc)}
	}
}

// New creates a question generator backed by the OpenAI API.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		model:   defaultModel,
		timeout: defaultTimeout,
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, opt := range opts {
		reqOpts = append(reqOpts, opt(p)...)
	}
	p.client = oai.NewClient(reqOpts...)
	return p
}

// Generate implements questions.Provider.
func (p *Provider) Generate(ctx context.Context, req questions.Request) ([]string, error) {
	n := req.Count
	if n <= 0 {
		n = defaultCount
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Generate exactly %d distinct behavioral interview questions for a %s role at %s.
Each question must be 1-2 concise sentences, professional, and relevant to the role.
Return STRICT JSON only, with this exact shape and no extra keys:
{"questions": ["...", "..."]}`, n, req.Role, req.Company)

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai questions: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai questions: empty completion")
	}

	qs, err := parseReply(resp.Choices[0].Message.Content, n)
	if err != nil {
		return nil, fmt.Errorf("openai questions: %w", err)
	}
	return qs, nil
}

func parseReply(content string, want int) ([]string, error) {
	raw := jsonObjRe.FindString(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	var payload struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	var qs []string
	for _, q := range payload.Questions {
		if q = strings.TrimSpace(q); q != "" {
			qs = append(qs, q)
		}
	}
	if len(qs) != want {
		return nil, fmt.Errorf("expected %d questions, got %d", want, len(qs))
	}
	return qs, nil
}
