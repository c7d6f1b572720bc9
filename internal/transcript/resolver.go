package transcript

// DefaultThreshold is the minimum similarity a fuzzy match must strictly exceed.
const DefaultThreshold = 0.85

// Phase identifies which strategy produced a Match.
type Phase string

const (
	PhaseExact Phase = "exact"
	PhaseFuzzy Phase = "fuzzy"
)

// Candidate is one transcript source (or video record) the resolver may pick.
// ID is opaque to the resolver; only Label is compared.
type Candidate struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Match is the resolver's answer for a query title.
type Match struct {
	Candidate  Candidate `json:"candidate"`
	Index      int       `json:"index"`
	Similarity float64   `json:"similarity"`
	Phase      Phase     `json:"phase"`
}

// Resolver picks the candidate whose normalized label best matches a title.
// The zero value is not usable; construct with NewResolver.
type Resolver struct {
	threshold float64
	distance  func(a, b string) int
}

// NewResolver creates a resolver. A threshold outside (0, 1) falls back to DefaultThreshold.
func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Resolver{threshold: threshold, distance: Levenshtein}
}

// Threshold returns the fuzzy acceptance threshold in use.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve returns the best candidate for title, or false when nothing qualifies.
//
// An exact normalized match always wins and stops the search. Otherwise every candidate
// is scored and the highest similarity (earliest on ties) is accepted only when it is
// strictly greater than the threshold.
func (r *Resolver) Resolve(title string, candidates []Candidate) (Match, bool) {
	key := Normalize(title)
	if key == "" || len(candidates) == 0 {
		return Match{}, false
	}

	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = Normalize(c.Label)
		if labels[i] == key {
			return Match{Candidate: c, Index: i, Similarity: 1, Phase: PhaseExact}, true
		}
	}

	best := -1
	bestScore := 0.0
	for i, label := range labels {
		score := similarityWith(r.distance, key, label)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best < 0 || bestScore <= r.threshold {
		return Match{}, false
	}
	return Match{Candidate: candidates[best], Index: best, Similarity: bestScore, Phase: PhaseFuzzy}, true
}
