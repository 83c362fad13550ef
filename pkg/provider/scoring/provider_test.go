package scoring

import "testing"

func TestNormalizeClampsRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"negative", -20, 0},
		{"zero", 0, 0},
		{"in range", 72, 72},
		{"over", 140, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TurnScore{Score: tt.in}.Normalize()
			if got.Score != tt.want {
				t.Errorf("Normalize(%d).Score = %d, want %d", tt.in, got.Score, tt.want)
			}
			if got.Disqualified {
				t.Error("unflagged score marked disqualified")
			}
		})
	}
}

func TestNormalizeDisqualifyingCap(t *testing.T) {
	t.Parallel()

	for _, flags := range []Flags{
		{HarassmentHate: true},
		{Sexual: true},
		{ViolenceThreat: true},
	} {
		got := TurnScore{Score: 95, Flags: flags}.Normalize()
		if got.Score != 15 {
			t.Errorf("flags %+v: score = %d, want capped 15", flags, got.Score)
		}
		if !got.Disqualified {
			t.Errorf("flags %+v: not marked disqualified", flags)
		}
	}

	// A score already under the cap is left alone.
	got := TurnScore{Score: 5, Flags: Flags{Sexual: true}}.Normalize()
	if got.Score != 5 {
		t.Errorf("score under cap changed to %d", got.Score)
	}
}

func TestNormalizeUnprofessionalCap(t *testing.T) {
	t.Parallel()

	got := TurnScore{Score: 80, Flags: Flags{Unprofessional: true}}.Normalize()
	if got.Score != 35 {
		t.Errorf("score = %d, want capped 35", got.Score)
	}
	if got.Disqualified {
		t.Error("unprofessional alone marked disqualified")
	}
}

func TestFlagsPredicates(t *testing.T) {
	t.Parallel()

	if (Flags{}).Any() || (Flags{}).Disqualifying() {
		t.Error("empty flags report set categories")
	}
	if !(Flags{Unprofessional: true}).Any() {
		t.Error("unprofessional not reported by Any")
	}
	if (Flags{Unprofessional: true}).Disqualifying() {
		t.Error("unprofessional reported as disqualifying")
	}
	if !(Flags{ViolenceThreat: true}).Disqualifying() {
		t.Error("violence_threat not reported as disqualifying")
	}
}

func TestFlagsMap(t *testing.T) {
	t.Parallel()

	m := Flags{HarassmentHate: true, Unprofessional: true}.Map()
	want := map[string]bool{
		"harassment_hate": true,
		"sexual":          false,
		"violence_threat": false,
		"unprofessional":  true,
	}
	if len(m) != len(want) {
		t.Fatalf("map has %d keys, want %d", len(m), len(want))
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("flag %q = %v, want %v", k, m[k], v)
		}
	}
}
