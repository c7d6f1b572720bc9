package transcript

import (
	"strings"
	"testing"
)

func candidates(labels ...string) []Candidate {
	out := make([]Candidate, len(labels))
	for i, l := range labels {
		out[i] = Candidate{ID: string(rune('a' + i)), Label: l}
	}
	return out
}

func TestNewResolver_Threshold(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.85, 0.85},
		{0.9, 0.9},
		{0, DefaultThreshold},
		{-1, DefaultThreshold},
		{1, DefaultThreshold},
	}
	for _, tt := range tests {
		if got := NewResolver(tt.in).Threshold(); got != tt.want {
			t.Errorf("NewResolver(%v).Threshold() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolve_ExactMatch(t *testing.T) {
	r := NewResolver(DefaultThreshold)
	cands := candidates("Some Other Video", "minnesota-ghost-daycares-exposed")

	m, ok := r.Resolve("Minnesota Ghost Daycares EXPOSED!!", cands)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Phase != PhaseExact {
		t.Errorf("Phase = %q, want %q", m.Phase, PhaseExact)
	}
	if m.Index != 1 || m.Candidate.ID != "b" {
		t.Errorf("matched index %d (%q), want 1 (b)", m.Index, m.Candidate.ID)
	}
	if m.Similarity != 1 {
		t.Errorf("Similarity = %v, want 1", m.Similarity)
	}
}

func TestResolve_ExactBeatsEarlierFuzzy(t *testing.T) {
	r := NewResolver(DefaultThreshold)
	cands := candidates(
		"Minnesota Ghost Daycare EXPOSED",  // one character off
		"Minnesota Ghost Daycares EXPOSED", // exact
	)

	m, ok := r.Resolve("minnesota ghost daycares exposed", cands)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Phase != PhaseExact || m.Index != 1 {
		t.Errorf("got phase %q index %d, want exact index 1", m.Phase, m.Index)
	}
}

func TestResolve_ExactSkipsScoring(t *testing.T) {
	calls := 0
	r := NewResolver(DefaultThreshold)
	r.distance = func(a, b string) int {
		calls++
		return Levenshtein(a, b)
	}

	cands := candidates("alpha", "beta", "gamma", "Target Title")
	if _, ok := r.Resolve("target title", cands); !ok {
		t.Fatal("expected a match")
	}
	if calls != 0 {
		t.Errorf("distance called %d times, want 0", calls)
	}
}

func TestResolve_Fuzzy(t *testing.T) {
	r := NewResolver(DefaultThreshold)
	cands := candidates("Unrelated Upload", "minnesota ghost daycare exposed")

	m, ok := r.Resolve("Minnesota Ghost Daycares EXPOSED", cands)
	if !ok {
		t.Fatal("expected a fuzzy match")
	}
	if m.Phase != PhaseFuzzy || m.Index != 1 {
		t.Errorf("got phase %q index %d, want fuzzy index 1", m.Phase, m.Index)
	}
	if m.Similarity <= DefaultThreshold {
		t.Errorf("Similarity = %v, want > %v", m.Similarity, DefaultThreshold)
	}
}

func TestResolve_AbbreviationBelowThreshold(t *testing.T) {
	// "planotexasprotest" vs "planotxprotest": distance 3 over 17 characters.
	r := NewResolver(DefaultThreshold)
	if _, ok := r.Resolve("Plano Texas Protest", candidates("planotxprotest")); ok {
		t.Error("expected no match at similarity 14/17")
	}

	loose := NewResolver(0.8)
	m, ok := loose.Resolve("Plano Texas Protest", candidates("planotxprotest"))
	if !ok {
		t.Fatal("expected a match with threshold 0.8")
	}
	if m.Phase != PhaseFuzzy {
		t.Errorf("Phase = %q, want fuzzy", m.Phase)
	}
}

func TestResolve_ThresholdIsStrict(t *testing.T) {
	r := NewResolver(DefaultThreshold)

	// 17/20 == 0.85 exactly: rejected.
	title := strings.Repeat("a", 20)
	if _, ok := r.Resolve(title, candidates(strings.Repeat("a", 17)+"bbb")); ok {
		t.Error("similarity equal to threshold must not match")
	}

	// 851/1000 > 0.85: accepted.
	long := strings.Repeat("x", 1000)
	near := strings.Repeat("x", 851) + strings.Repeat("y", 149)
	m, ok := r.Resolve(long, candidates(near))
	if !ok {
		t.Fatal("similarity 0.851 should match")
	}
	if m.Similarity != 0.851 {
		t.Errorf("Similarity = %v, want 0.851", m.Similarity)
	}

	// 850/1000 == 0.85: rejected.
	edge := strings.Repeat("x", 850) + strings.Repeat("y", 150)
	if _, ok := r.Resolve(long, candidates(edge)); ok {
		t.Error("similarity 0.85 must not match")
	}
}

func TestResolve_TieKeepsFirst(t *testing.T) {
	r := NewResolver(DefaultThreshold)
	title := "abcdefghijklmnopqrst"
	cands := candidates(
		"completely different",
		"abcdefghijklmnopqrsX",
		"abcdefghijklmnopqrsY",
	)

	m, ok := r.Resolve(title, cands)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Index != 1 {
		t.Errorf("Index = %d, want 1 (first of tied candidates)", m.Index)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	r := NewResolver(DefaultThreshold)

	tests := []struct {
		name  string
		title string
		cands []Candidate
	}{
		{"no candidates", "anything", nil},
		{"title normalizes to empty", "!!!", candidates("!!!", "abc")},
		{"nothing close", "Weekly Roundup", candidates("Breaking News", "Interview")},
		{"empty label", "abc", candidates("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if m, ok := r.Resolve(tt.title, tt.cands); ok {
				t.Errorf("unexpected match: %+v", m)
			}
		})
	}
}
