package selector

import (
	"math"
	"strings"

	"github.com/CalmingAgent/movieNight/internal/model"
)

// Similarity scores how alike two movies are on a 0-1 scale: 60% cosine
// similarity over the numeric attributes both movies carry, 40% Jaccard
// overlap of their genre sets.
func Similarity(a, b model.Movie) float64 {
	return 0.6*numericSimilarity(a, b) + 0.4*genreOverlap(a.Genres, b.Genres)
}

// GroupSimilarity averages pairwise similarity over a drawn slate. One movie
// (or none) has nothing to compare, which scores zero.
func GroupSimilarity(ms []model.Movie) float64 {
	if len(ms) < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(ms); i++ {
		for j := i + 1; j < len(ms); j++ {
			sum += Similarity(ms[i], ms[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func numericSimilarity(a, b model.Movie) float64 {
	var va, vb []float64
	push := func(x, y *float64) {
		if x != nil && y != nil {
			va = append(va, *x)
			vb = append(vb, *y)
		}
	}
	pushInt := func(x, y *int) {
		if x != nil && y != nil {
			va = append(va, float64(*x))
			vb = append(vb, float64(*y))
		}
	}
	pushInt(a.Year, b.Year)
	pushInt(a.RuntimeSeconds, b.RuntimeSeconds)
	push(a.CombinedScore, b.CombinedScore)
	push(a.BoxOfficeExpected, b.BoxOfficeExpected)
	push(a.BoxOfficeActual, b.BoxOfficeActual)
	if len(va) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range va {
		dot += va[i] * vb[i]
		na += va[i] * va[i]
		nb += vb[i] * vb[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func genreOverlap(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := map[string]bool{}
	for _, g := range a {
		set[strings.ToLower(g)] = true
	}
	inter := 0
	union := len(set)
	seen := map[string]bool{}
	for _, g := range b {
		k := strings.ToLower(g)
		if seen[k] {
			continue
		}
		seen[k] = true
		if set[k] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
