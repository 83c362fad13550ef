package transcript

import (
	"testing"
	"time"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		prev  string
		chunk string
		want  string
	}{
		{"empty chunk", "I led the project", "", "I led the project"},
		{"empty prev", "", "I led the project", "I led the project"},
		{"chunk contained in prev", "I led the project to completion", "led the project", "I led the project to completion"},
		{"prev contained in chunk", "led the project", "I led the project to completion", "I led the project to completion"},
		{"chunk extends prev", "I led the", "I led the project", "I led the project"},
		{"suffix prefix overlap", "we shipped the new", "the new billing system", "we shipped the new billing system"},
		{"no overlap appends with space", "first part", "second part", "first part second part"},
		{"identical", "same text", "same text", "same text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := merge(tt.prev, tt.chunk); got != tt.want {
				t.Errorf("merge(%q, %q) = %q, want %q", tt.prev, tt.chunk, got, tt.want)
			}
		})
	}
}

func TestAddFinalIdempotent(t *testing.T) {
	t.Parallel()

	a := NewAssembler()
	a.AddFinal("I resolved the conflict by talking to both sides")
	once := a.Stable()
	a.AddFinal("I resolved the conflict by talking to both sides")
	if a.Stable() != once {
		t.Errorf("merging the same fragment twice changed stable text: %q vs %q", a.Stable(), once)
	}
}

func TestAddFinalNeverShortens(t *testing.T) {
	t.Parallel()

	a := NewAssembler()
	a.AddFinal("I took ownership of the migration and finished it early")
	before := len(a.Stable())
	a.AddFinal("ownership of the migration")
	if len(a.Stable()) < before {
		t.Errorf("stable text shortened from %d to %d bytes on contained fragment", before, len(a.Stable()))
	}
}

func TestPartialNeverMutatesStable(t *testing.T) {
	t.Parallel()

	a := NewAssembler()
	a.AddFinal("the outcome was positive")
	a.AddPartial("and we also")
	if a.Stable() != "the outcome was positive" {
		t.Errorf("partial fragment mutated stable text: %q", a.Stable())
	}
	if a.Provisional() != "and we also" {
		t.Errorf("provisional = %q, want %q", a.Provisional(), "and we also")
	}
}

func TestPartialReplacesProvisional(t *testing.T) {
	t.Parallel()

	a := NewAssembler()
	a.AddPartial("and we")
	a.AddPartial("and we also improved")
	if a.Provisional() != "and we also improved" {
		t.Errorf("provisional = %q, want latest partial", a.Provisional())
	}
}

func TestProvisionalPromotesAfterQuiet(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := func() time.Time { return now }
	a := NewAssembler(WithPromotionQuiet(900*time.Millisecond), withClock(clock))

	a.AddPartial("we cut the latency in half")
	now = now.Add(time.Second)

	// The next fragment of any kind triggers promotion first.
	a.AddFinal("and kept error rates flat")
	if want := "we cut the latency in half and kept error rates flat"; a.Stable() != want {
		t.Errorf("stable = %q, want %q", a.Stable(), want)
	}
	if a.Provisional() != "" {
		t.Errorf("provisional not cleared after promotion: %q", a.Provisional())
	}
}

func TestProvisionalNotPromotedEarly(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := func() time.Time { return now }
	a := NewAssembler(WithPromotionQuiet(900*time.Millisecond), withClock(clock))

	a.AddPartial("half an answer")
	now = now.Add(100 * time.Millisecond)
	a.AddPartial("half an answer plus more")

	if a.Stable() != "" {
		t.Errorf("provisional promoted before the quiet period: %q", a.Stable())
	}
}

func TestFinalizeForceMergesProvisional(t *testing.T) {
	t.Parallel()

	a := NewAssembler()
	a.AddFinal("I set up the on-call rotation")
	a.AddPartial("which cut pages by a third")

	got := a.Finalize()
	want := "I set up the on-call rotation which cut pages by a third"
	if got != want {
		t.Errorf("Finalize() = %q, want %q", got, want)
	}
	if a.Provisional() != "" {
		t.Errorf("provisional not cleared by Finalize: %q", a.Provisional())
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	a := NewAssembler()
	a.AddFinal("something")
	a.AddPartial("something else")
	a.Reset()

	if a.Stable() != "" || a.Provisional() != "" {
		t.Errorf("Reset left state behind: stable=%q provisional=%q", a.Stable(), a.Provisional())
	}
}
