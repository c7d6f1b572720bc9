package transcript

// Levenshtein returns the edit distance between a and b, counting insertions,
// deletions and substitutions at cost 1. Comparison is rune by rune.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Two rolling rows of the DP matrix; prev[j] is the distance between ra[:i-1] and rb[:j].
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			curr[j] = 1 + min(prev[j-1], prev[j], curr[j-1])
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity scores two already-normalized keys in [0, 1] as
// 1 - distance/max(len(a), len(b)). Two empty keys score 0.
func Similarity(a, b string) float64 {
	return similarityWith(Levenshtein, a, b)
}

func similarityWith(distance func(a, b string) int, a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 0
	}
	d := distance(a, b)
	// (max-d)/max is the same ratio as 1-d/max but divides exact integers,
	// so boundary values such as 17/20 land exactly on the float literal 0.85.
	return float64(maxLen-d) / float64(maxLen)
}
