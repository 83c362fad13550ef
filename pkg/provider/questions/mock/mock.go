// Package mock provides a scripted questions.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/rehearsal-dev/voicescreen/pkg/provider/questions"
)

// Provider returns a scripted question set and records every call.
type Provider struct {
	mu sync.Mutex

	// Questions is returned by every Generate call.
	Questions []string

	// Err, when set, is returned instead of Questions.
	Err error

	// Calls records the requests made.
	Calls []questions.Request
}

var _ questions.Provider = (*Provider)(nil)

// Generate implements questions.Provider.
func (p *Provider) Generate(_ context.Context, req questions.Request) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]string, len(p.Questions))
	copy(out, p.Questions)
	return out, nil
}

// CallCount returns the number of Generate calls made so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
