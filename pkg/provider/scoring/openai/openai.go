// Package openai implements scoring.Scorer using the OpenAI chat
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

	"github.com/rehearsal-dev/voicescreen/pkg/provider/scoring"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
)

// jsonObjRe salvages the first JSON object from a reply that wraps it in
// prose or markdown fences despite instructions.
var jsonObjRe = regexp.MustCompile(`(?s)\{.*\}`)

// Provider scores answers via OpenAI chat completions.
type Provider struct {
	client  oai.Client
	model   string
	version string
	timeout time.Duration
}

var _ scoring.Scorer = (*Provider)(nil)

// Option customizes the provider.
type Option func(*Provider) []option.RequestOption

// WithBaseURL points the client at a different API endpoint, e.g. a proxy
// or a test server.
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

// WithTimeout bounds each scoring request.
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

// New creates a scorer backed by the OpenAI API.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		model:   defaultModel,
		version: scoring.DefaultVersion,
		timeout: defaultTimeout,
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, opt := range opts {
		reqOpts = append(reqOpts, opt(p)...)
	}
	p.client = oai.NewClient(reqOpts...)
	return p
}

// Version implements scoring.Scorer.
func (p *Provider) Version() string { return p.version }

// scorePayload is the JSON shape the model is instructed to reply with.
type scorePayload struct {
	Score int           `json:"score"`
	Flags scoring.Flags `json:"flags"`
}

// ScoreAnswer implements scoring.Scorer.
func (p *Provider) ScoreAnswer(ctx context.Context, ic scoring.Context, ans scoring.Answer) (scoring.TurnScore, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	answer := strings.TrimSpace(ans.Text)
	if answer == "" {
		answer = "(no answer given)"
	}

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt(ic)),
			oai.UserMessage(userPrompt(ans, answer)),
		},
	})
	if err != nil {
		return scoring.TurnScore{}, fmt.Errorf("openai scorer: chat completion: %w: %w", scoring.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return scoring.TurnScore{}, fmt.Errorf("openai scorer: empty completion: %w", scoring.ErrUnavailable)
	}

	payload, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return scoring.TurnScore{}, fmt.Errorf("openai scorer: %w: %w", scoring.ErrUnavailable, err)
	}

	score := scoring.TurnScore{
		Score: payload.Score,
		Flags: payload.Flags,
	}
	return score.Normalize(), nil
}

func parseReply(content string) (scorePayload, error) {
	raw := jsonObjRe.FindString(content)
	if raw == "" {
		return scorePayload{}, fmt.Errorf("no JSON object in reply %q", truncate(content, 200))
	}
	var payload scorePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return scorePayload{}, fmt.Errorf("decode reply: %w", err)
	}
	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func systemPrompt(ic scoring.Context) string {
	return fmt.Sprintf(`You are a strict but fair interview evaluator for a %s position at %s.

Score the candidate's answer from 0 to 100 using the STAR method as the rubric:
- Situation: did they set concrete context?
- Task: did they state what they were responsible for?
- Action: did they describe specific steps THEY took?
- Result: did they give a measurable or observable outcome?

Scoring guidance:
- 85-100: complete STAR answer with specifics and a clear result.
- 60-84: solid answer missing one STAR element or lacking specifics.
- 35-59: vague or generic answer with little structure.
- 1-34: barely responsive to the question.
- 0: no answer at all.

Also flag inappropriate content:
- harassment_hate: slurs, harassment, or hateful remarks.
- sexual: sexual content.
- violence_threat: threats or glorification of violence.
- unprofessional: profanity or clearly unprofessional conduct short of the above.

Reply with ONLY a JSON object, no markdown, exactly this shape:
{"score": <int>, "flags": {"harassment_hate": <bool>, "sexual": <bool>, "violence_threat": <bool>, "unprofessional": <bool>}}`, ic.Role, ic.Company)
}

func userPrompt(ans scoring.Answer, answer string) string {
	return fmt.Sprintf("Question %d: %s\n\nCandidate's answer:\n%s", ans.QuestionIndex, ans.Question, answer)
}
