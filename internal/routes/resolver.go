package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/CalmingAgent/movieNight/internal/repos"
	"github.com/CalmingAgent/movieNight/internal/resolver"
	pkghttpx "github.com/CalmingAgent/movieNight/pkg/httpx"
)

// ResolveTrailer handles POST /movies/{id}/resolve
func ResolveTrailer(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid movie id", nil))
			return
		}
		res, err := d.Resolver.Resolve(r.Context(), id)
		writeResolution(w, r, d, res.MovieID, res.VideoURL, res.Outcome, err)
	}
}

// RefreshTrailer handles POST /movies/{id}/refresh
func RefreshTrailer(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid movie id", nil))
			return
		}
		res, err := d.Resolver.ForceRefresh(r.Context(), id)
		writeResolution(w, r, d, res.MovieID, res.VideoURL, res.Outcome, err)
	}
}

// DisputeTrailer handles POST /movies/{id}/dispute. Re-resolution runs in the
// background; the disputed movie stays out of draws until it lands.
func DisputeTrailer(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type disputeReq struct {
			Reason string `json:"reason"`
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid movie id", nil))
			return
		}
		var req disputeReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, pkghttpx.BadRequest("invalid json", err))
			return
		}
		if req.Reason == "" {
			writeError(w, r, pkghttpx.BadRequest("reason required", nil))
			return
		}
		if err := d.Resolver.Dispute(r.Context(), id, req.Reason); err != nil {
			switch {
			case errors.Is(err, resolver.ErrNotResolved):
				writeError(w, r, pkghttpx.Conflict("movie has no resolved trailer to dispute", err))
			default:
				writeError(w, r, pkghttpx.Internal("failed to dispute trailer", err))
			}
			return
		}
		_ = d.Cache.DeletePrefix(r.Context(), "movies:")

		bg := context.WithoutCancel(r.Context())
		go func() {
			if _, err := d.Resolver.ReResolve(bg, id); err != nil {
				log.Warn().Err(err).Int64("movie_id", id).Msg("re-resolution after dispute failed")
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{"disputed": true})
	}
}

// ReviewQueue handles GET /reviews
func ReviewQueue(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flags, err := d.Repo.Reviews.ListFlags(r.Context())
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to list review queue", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": flags, "count": len(flags)})
	}
}

func writeResolution(w http.ResponseWriter, r *http.Request, d Deps, movieID int64, videoURL, outcome string, err error) {
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrResolutionFailed):
			writeJSON(w, http.StatusOK, map[string]any{
				"movie_id": movieID,
				"outcome":  outcome,
			})
		case errors.Is(err, repos.ErrNotFound):
			writeError(w, r, pkghttpx.NotFound("movie not found", err))
		default:
			writeError(w, r, pkghttpx.Internal("trailer resolution failed", err))
		}
		return
	}
	_ = d.Cache.DeletePrefix(r.Context(), "movies:")
	writeJSON(w, http.StatusOK, map[string]any{
		"movie_id":    movieID,
		"outcome":     outcome,
		"trailer_url": videoURL,
	})
}
