package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/internal/repos"
	"github.com/CalmingAgent/movieNight/internal/selector"
	pkghttpx "github.com/CalmingAgent/movieNight/pkg/httpx"
)

// Movies handles GET /movies
func Movies(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cursor := r.URL.Query().Get("cursor")
		limitStr := r.URL.Query().Get("limit")
		if limitStr == "" {
			limitStr = "20"
		}
		lim64, err := strconv.ParseInt(limitStr, 10, 32)
		if err != nil || lim64 <= 0 || lim64 > 100 {
			writeError(w, r, pkghttpx.BadRequest("invalid limit", err))
			return
		}
		var afterID int64
		if cursor != "" {
			afterID, err = d.Signer.DecodeIDCursor(cursor)
			if err != nil {
				writeError(w, r, pkghttpx.BadRequest("invalid cursor", err))
				return
			}
		}
		cacheKey := "movies:cursor:" + cursor + ":limit:" + limitStr
		if cached, ok := d.Cache.Get(ctx, cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(cached))
			return
		}
		items, err := d.Repo.Movies.ListPage(ctx, afterID, int(lim64))
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to list movies", err))
			return
		}
		resp := map[string]any{
			"items": items,
			"count": len(items),
		}
		if len(items) == int(lim64) {
			resp["next_cursor"] = d.Signer.EncodeIDCursor(items[len(items)-1].ID)
		}
		b, _ := json.Marshal(resp)
		_ = d.Cache.Set(ctx, cacheKey, string(b), 2*time.Minute)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

// Movie handles GET /movies/{id}
func Movie(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid movie id", nil))
			return
		}
		m, err := d.Repo.Movies.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				writeError(w, r, pkghttpx.NotFound("movie not found", err))
				return
			}
			writeError(w, r, pkghttpx.Internal("failed to load movie", err))
			return
		}
		ratings, err := d.Repo.Ratings.List(r.Context(), id)
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to load ratings", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"movie":   m,
			"ratings": ratings,
		})
	}
}

// SimilarMovies handles GET /movies/{id}/similar
func SimilarMovies(d Deps) http.HandlerFunc {
	type entry struct {
		Movie      model.Movie `json:"movie"`
		Similarity float64     `json:"similarity"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid movie id", nil))
			return
		}
		base, err := d.Repo.Movies.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				writeError(w, r, pkghttpx.NotFound("movie not found", err))
				return
			}
			writeError(w, r, pkghttpx.Internal("failed to load movie", err))
			return
		}
		pool, err := d.Repo.Movies.ListCandidates(ctx, model.PoolFilter{})
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to list pool", err))
			return
		}
		var out []entry
		for _, m := range pool {
			if m.ID == base.ID {
				continue
			}
			out = append(out, entry{Movie: m, Similarity: selector.Similarity(base, m)})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
		if len(out) > 10 {
			out = out[:10]
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
	}
}

// UpsertMovie handles PUT /movies. The operator correction path: merges
// attrs by external id (or exact title) and replaces genres and aliases
// when given.
func UpsertMovie(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type movieReq struct {
			model.MovieAttrs
			Genres  []string `json:"genres"`
			Aliases []string `json:"aliases"`
		}
		ctx := r.Context()
		var req movieReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, pkghttpx.BadRequest("invalid json", err))
			return
		}
		if req.Title == "" {
			writeError(w, r, pkghttpx.BadRequest("title required", nil))
			return
		}
		id, err := d.Repo.Movies.Upsert(ctx, req.MovieAttrs)
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to upsert movie", err))
			return
		}
		if req.Genres != nil {
			if err := d.Repo.Movies.SetGenres(ctx, id, req.Genres); err != nil {
				writeError(w, r, pkghttpx.Internal("failed to set genres", err))
				return
			}
		}
		if req.Aliases != nil {
			if err := d.Repo.Movies.ReplaceAliases(ctx, id, req.Aliases); err != nil {
				writeError(w, r, pkghttpx.Internal("failed to set aliases", err))
				return
			}
		}
		_ = d.Cache.DeletePrefix(ctx, "movies:")
		m, err := d.Repo.Movies.Get(ctx, id)
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to load movie", err))
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// DeleteMovie handles DELETE /movies/{id}. Cascades to ratings, aliases,
// candidacies, flags, and cached decisions.
func DeleteMovie(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid movie id", nil))
			return
		}
		if err := d.Repo.Movies.Delete(r.Context(), id); err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				writeError(w, r, pkghttpx.NotFound("movie not found", err))
				return
			}
			writeError(w, r, pkghttpx.Internal("failed to delete movie", err))
			return
		}
		_ = d.Cache.DeletePrefix(r.Context(), "movies:")
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

// UpsertRating handles PUT /movies/{id}/ratings
func UpsertRating(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type ratingReq struct {
			Source      string  `json:"source"`
			Type        string  `json:"type"`
			Score       float64 `json:"score"`
			ReviewCount int64   `json:"review_count"`
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid movie id", nil))
			return
		}
		var req ratingReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, pkghttpx.BadRequest("invalid json", err))
			return
		}
		if req.Source == "" || req.Score < 0 || req.Score > 100 {
			writeError(w, r, pkghttpx.BadRequest("source required and score must be 0-100", nil))
			return
		}
		if req.Type == "" {
			req.Type = model.RatingAggregated
		}
		err := d.Repo.Ratings.Upsert(r.Context(), model.Rating{
			MovieID:     id,
			Source:      req.Source,
			Type:        req.Type,
			Score:       req.Score,
			ReviewCount: req.ReviewCount,
		})
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to store rating", err))
			return
		}
		_ = d.Cache.DeletePrefix(r.Context(), "movies:")
		writeJSON(w, http.StatusOK, map[string]any{"stored": true})
	}
}
