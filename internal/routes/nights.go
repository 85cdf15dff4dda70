package routes

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/internal/repos"
	"github.com/CalmingAgent/movieNight/internal/selector"
	pkghttpx "github.com/CalmingAgent/movieNight/pkg/httpx"
)

type candidateView struct {
	Movie      model.Movie `json:"movie"`
	Weight     float64     `json:"weight"`
	Playable   bool        `json:"playable"`
	TrailerURL string      `json:"trailer_url,omitempty"`
}

// CreateNight handles POST /nights
func CreateNight(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type nightReq struct {
			SessionAt     *time.Time       `json:"session_at"`
			AttendeeCount int              `json:"attendee_count"`
			Filter        model.PoolFilter `json:"filter"`
			Seed          *int64           `json:"seed"`
		}
		ctx := r.Context()
		var req nightReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, pkghttpx.BadRequest("invalid json", err))
			return
		}
		sessionAt := time.Now().UTC()
		if req.SessionAt != nil {
			sessionAt = req.SessionAt.UTC()
		}
		seed := time.Now().UnixNano()
		if req.Seed != nil {
			seed = *req.Seed
		}
		rng := rand.New(rand.NewSource(seed))

		night, candidates, err := d.Selector.PickNight(ctx, rng, sessionAt, req.AttendeeCount, req.Filter)
		if err != nil {
			switch {
			case errors.Is(err, selector.ErrInvalidAttendees):
				writeError(w, r, pkghttpx.BadRequest("attendee_count must be at least 1", err))
			case errors.Is(err, selector.ErrEmptyPool):
				writeError(w, r, pkghttpx.Conflict("no movies match the filter", err))
			default:
				writeError(w, r, pkghttpx.Internal("failed to draw night", err))
			}
			return
		}

		views := make([]candidateView, 0, len(candidates))
		drawn := make([]model.Movie, 0, len(candidates))
		var videoIDs []string
		var weightSum float64
		for _, c := range candidates {
			m, err := d.Repo.Movies.Get(ctx, c.MovieID)
			if err != nil {
				writeError(w, r, pkghttpx.Internal("failed to load candidate", err))
				return
			}
			v := candidateView{Movie: m, Weight: c.Weight, Playable: c.Playable}
			if c.Playable && m.TrailerURL != nil {
				v.TrailerURL = *m.TrailerURL
				if id := youtubeVideoID(*m.TrailerURL); id != "" {
					videoIDs = append(videoIDs, id)
				}
			}
			views = append(views, v)
			drawn = append(drawn, m)
			weightSum += c.Weight
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"night":        night,
			"candidates":   views,
			"playlist_url": selector.PlaylistURL(videoIDs),
			"party":        selector.PartyProps(rng, req.AttendeeCount),
			"group": map[string]any{
				"similarity":     selector.GroupSimilarity(drawn),
				"average_weight": weightSum / float64(len(candidates)),
			},
		})
	}
}

// Night handles GET /nights/{id}
func Night(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid night id", nil))
			return
		}
		night, candidates, err := d.Repo.Nights.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				writeError(w, r, pkghttpx.NotFound("night not found", err))
				return
			}
			writeError(w, r, pkghttpx.Internal("failed to load night", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"night":      night,
			"candidates": candidates,
		})
	}
}

// SetWinner handles POST /nights/{id}/winner
func SetWinner(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type winnerReq struct {
			MovieID int64 `json:"movie_id"`
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid night id", nil))
			return
		}
		var req winnerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, pkghttpx.BadRequest("invalid json", err))
			return
		}
		if req.MovieID == 0 {
			writeError(w, r, pkghttpx.BadRequest("movie_id required", nil))
			return
		}
		if err := d.Selector.SetWinner(r.Context(), id, req.MovieID); err != nil {
			switch {
			case errors.Is(err, repos.ErrInvalidNight):
				writeError(w, r, pkghttpx.Conflict("movie is not a candidate of this night", err))
			case errors.Is(err, repos.ErrNotFound):
				writeError(w, r, pkghttpx.NotFound("night not found", err))
			default:
				writeError(w, r, pkghttpx.Internal("failed to record winner", err))
			}
			return
		}
		// The winner changes draw eligibility, drop cached listings.
		_ = d.Cache.DeletePrefix(r.Context(), "movies:")
		writeJSON(w, http.StatusOK, map[string]any{"recorded": true})
	}
}
