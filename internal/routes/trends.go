package routes

import (
	"errors"
	"net/http"

	"github.com/CalmingAgent/movieNight/internal/trends"
	pkghttpx "github.com/CalmingAgent/movieNight/pkg/httpx"
)

// Trend handles GET /trends. Serves today's cached score for a term,
// fetching it on a miss.
func Trend(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("term")
		if term == "" {
			writeError(w, r, pkghttpx.BadRequest("term required", nil))
			return
		}
		score, err := d.Trends.Score(r.Context(), term)
		if err != nil {
			if errors.Is(err, trends.ErrTrendUnavailable) {
				writeError(w, r, pkghttpx.Conflict("trend provider unavailable", err))
				return
			}
			writeError(w, r, pkghttpx.Internal("failed to score term", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"term": term, "score": score})
	}
}
