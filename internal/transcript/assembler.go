// Package transcript assembles overlapping partial and final recognition
// fragments into a stable per-turn answer string.
//
// The upstream engine streams transcription incrementally and sometimes
// re-sends text it has already produced — as a superstring, a pure repeat,
// or a chunk whose prefix overlaps the tail of what we have. The assembler
// absorbs all of these without duplication or flicker: final fragments merge
// into a stable string that only ever grows, partial fragments replace a
// provisional string that auto-promotes to stable after a quiet period so
// the last utterance survives even when no explicit final fragment arrives.
//
// An Assembler owns the merge state for exactly one turn and is not safe
// for concurrent use; the session orchestrator is its sole caller.
package transcript

import (
	"strings"
	"time"
)

// maxOverlap bounds the suffix/prefix overlap search, in bytes.
const maxOverlap = 80

// DefaultPromotionQuiet is the default quiet period after which a
// provisional fragment is promoted to stable.
const DefaultPromotionQuiet = 900 * time.Millisecond

// Assembler merges transcript fragments for a single open turn.
type Assembler struct {
	quiet time.Duration
	now   func() time.Time

	stable        string
	provisional   string
	provisionalAt time.Time
}

// Option configures an [Assembler].
type Option func(*Assembler)

// WithPromotionQuiet overrides the provisional promotion quiet period.
func WithPromotionQuiet(d time.Duration) Option {
	return func(a *Assembler) { a.quiet = d }
}

// withClock substitutes the time source. Used by tests.
func withClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler creates an empty Assembler for one turn.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		quiet: DefaultPromotionQuiet,
		now:   time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// AddFinal merges a final fragment into the stable text. Merging the same
// fragment twice yields the same stable text as merging it once, and a
// fragment already contained in the stable text never shortens it.
func (a *Assembler) AddFinal(text string) {
	a.promoteIfQuiet()
	a.stable = merge(a.stable, text)
}

// AddPartial replaces the provisional text. Partials never mutate the
// stable text directly; they reach it only through promotion or [Finalize].
func (a *Assembler) AddPartial(text string) {
	a.promoteIfQuiet()
	if text == "" {
		return
	}
	a.provisional = text
	a.provisionalAt = a.now()
}

// Stable returns the stable (merged final) text accumulated so far.
func (a *Assembler) Stable() string { return a.stable }

// Provisional returns the current provisional text, possibly empty.
func (a *Assembler) Provisional() string { return a.provisional }

// Finalize force-merges any provisional text into stable and returns the
// turn's final answer text. The assembler may be reused afterwards only via
// [Assembler.Reset].
func (a *Assembler) Finalize() string {
	if a.provisional != "" {
		a.stable = merge(a.stable, a.provisional)
		a.provisional = ""
	}
	return a.stable
}

// Reset discards all fragment state, for a retried turn.
func (a *Assembler) Reset() {
	a.stable = ""
	a.provisional = ""
	a.provisionalAt = time.Time{}
}

// promoteIfQuiet merges the provisional text into stable once it has sat
// unreplaced for the quiet period.
func (a *Assembler) promoteIfQuiet() {
	if a.provisional == "" {
		return
	}
	if a.now().Sub(a.provisionalAt) < a.quiet {
		return
	}
	a.stable = merge(a.stable, a.provisional)
	a.provisional = ""
}

// merge combines an incremental chunk with previously accumulated text.
// Containment keeps the longer of the two; a shared suffix/prefix overlap is
// collapsed; otherwise the chunk is appended with a separating space.
func merge(prev, chunk string) string {
	if chunk == "" {
		return prev
	}
	if prev == "" {
		return chunk
	}
	if strings.Contains(prev, chunk) {
		return prev
	}
	if len(chunk) > len(prev) && strings.Contains(chunk, prev) {
		return chunk
	}
	if strings.HasPrefix(chunk, prev) {
		return chunk
	}

	limit := min(maxOverlap, len(prev), len(chunk))
	for k := limit; k > 0; k-- {
		if prev[len(prev)-k:] == chunk[:k] {
			return prev + chunk[k:]
		}
	}
	return prev + " " + chunk
}
