// Package questions defines the Provider interface for interview-question
// generation backends.
//
// Questions for a session are generated once, up front, and then spoken
// verbatim by the interviewer; the generator is never consulted again
// mid-session.
package questions

import "context"

// Request describes the interview a question set is generated for.
type Request struct {
	Company string
	Role    string

	// Count is the number of questions to generate. Zero means the
	// backend's default.
	Count int
}

// Provider is the abstraction over any question-generation backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Generate returns exactly Count behavioral questions for the given
	// role, in the order they will be asked.
	Generate(ctx context.Context, req Request) ([]string, error)
}
