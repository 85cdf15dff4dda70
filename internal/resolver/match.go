package resolver

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/pkg/provider"
)

// Candidates below this title similarity are never auto-accepted unless the
// provider located the video through the movie's own external id.
const minConfidence = 0.8

func normalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func similarity(a, b string) float64 {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	if na == nb {
		return 1
	}
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(d)/float64(longest)
}

// score rates a candidate against the movie's known titles. Video titles
// usually carry an "Official Trailer" suffix, so each known title is tried
// both bare and with the suffix appended.
func score(titles []string, c provider.Candidate) float64 {
	best := 0.0
	for _, t := range titles {
		for _, probe := range []string{t, t + " official trailer", t + " trailer"} {
			if s := similarity(probe, c.Title); s > best {
				best = s
			}
		}
	}
	return best
}

func yearMatches(movie model.Movie, c provider.Candidate) bool {
	if movie.Year == nil || c.Year == 0 {
		return true
	}
	d := *movie.Year - c.Year
	return d >= -1 && d <= 1
}

type scored struct {
	cand provider.Candidate
	sim  float64
}

// pickBest filters candidates down to confident matches and ranks them:
// official channel first, then similarity, then recency, with the video id
// as a deterministic final tiebreak.
func pickBest(movie model.Movie, titles []string, cands []provider.Candidate, excludeVideoID string) (provider.Candidate, float64, bool) {
	var keep []scored
	for _, c := range cands {
		if c.VideoID == "" || c.VideoID == excludeVideoID {
			continue
		}
		sim := score(titles, c)
		switch {
		case c.Exact:
			if sim < 1 {
				sim = 1
			}
		case sim < minConfidence || !yearMatches(movie, c):
			continue
		}
		keep = append(keep, scored{cand: c, sim: sim})
	}
	if len(keep) == 0 {
		return provider.Candidate{}, 0, false
	}
	sort.Slice(keep, func(i, j int) bool {
		a, b := keep[i], keep[j]
		if a.cand.Official != b.cand.Official {
			return a.cand.Official
		}
		if a.sim != b.sim {
			return a.sim > b.sim
		}
		if !a.cand.PublishedAt.Equal(b.cand.PublishedAt) {
			return a.cand.PublishedAt.After(b.cand.PublishedAt)
		}
		return a.cand.VideoID < b.cand.VideoID
	})
	return keep[0].cand, keep[0].sim, true
}

// videoIDFromURL extracts the YouTube video id from a watch URL. Returns the
// input unchanged when it does not look like a URL.
func videoIDFromURL(raw string) string {
	if !strings.Contains(raw, "/") {
		return raw
	}
	if i := strings.Index(raw, "v="); i >= 0 {
		id := raw[i+2:]
		if j := strings.IndexByte(id, '&'); j >= 0 {
			id = id[:j]
		}
		return id
	}
	if i := strings.LastIndexByte(raw, '/'); i >= 0 {
		return raw[i+1:]
	}
	return raw
}
