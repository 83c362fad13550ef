// Package static provides a fixed bank of behavioral questions, used when
// no generation backend is configured or as a fallback when one fails.
package static

import (
	"context"
	"fmt"

	"github.com/rehearsal-dev/voicescreen/pkg/provider/questions"
)

// bank holds general-purpose behavioral questions that work for any role.
var bank = []string{
	"Tell me about a time you faced a challenging problem at work or school. What did you do and what was the outcome?",
	"Describe a time you had to work with a difficult teammate or resolve a conflict. How did you handle it?",
	"Tell me about a time you took initiative or led a project. What actions did you take and what did you learn?",
	"Describe a situation where you had to learn something new quickly. How did you approach it?",
	"Tell me about a time you missed a deadline or made a mistake. What happened and what did you change afterwards?",
}

// Provider serves questions from the built-in bank.
type Provider struct{}

var _ questions.Provider = (*Provider)(nil)

// New creates a static question provider.
func New() *Provider { return &Provider{} }

// Generate implements questions.Provider. The role and company in the
// request are ignored; the bank is generic by design of its phrasing.
func (p *Provider) Generate(_ context.Context, req questions.Request) ([]string, error) {
	n := req.Count
	if n <= 0 {
		n = 3
	}
	if n > len(bank) {
		return nil, fmt.Errorf("static questions: %d requested, bank holds %d", n, len(bank))
	}
	out := make([]string, n)
	copy(out, bank[:n])
	return out, nil
}
