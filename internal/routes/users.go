package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/internal/repos"
	pkghttpx "github.com/CalmingAgent/movieNight/pkg/httpx"
)

// Users handles GET /users
func Users(d Deps) http.HandlerFunc {
	type userView struct {
		User       model.User `json:"user"`
		Attendance int64      `json:"attendance"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		users, err := d.Repo.Users.List(ctx)
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to list users", err))
			return
		}
		out := make([]userView, 0, len(users))
		for _, u := range users {
			n, err := d.Fairness.AttendanceFor(ctx, u.ID)
			if err != nil {
				writeError(w, r, pkghttpx.Internal("failed to count attendance", err))
				return
			}
			out = append(out, userView{User: u, Attendance: n})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
	}
}

// EnsureUser handles POST /users
func EnsureUser(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type userReq struct {
			Name string `json:"name"`
		}
		var req userReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, pkghttpx.BadRequest("invalid json", err))
			return
		}
		if req.Name == "" {
			writeError(w, r, pkghttpx.BadRequest("name required", nil))
			return
		}
		u, err := d.Repo.Users.Ensure(r.Context(), req.Name)
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to store user", err))
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// AddAttendees handles POST /nights/{id}/attendees
func AddAttendees(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type attendeesReq struct {
			UserIDs []int64 `json:"user_ids"`
		}
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, r, pkghttpx.BadRequest("invalid night id", nil))
			return
		}
		var req attendeesReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, pkghttpx.BadRequest("invalid json", err))
			return
		}
		if len(req.UserIDs) == 0 {
			writeError(w, r, pkghttpx.BadRequest("user_ids required", nil))
			return
		}
		if _, _, err := d.Repo.Nights.Get(r.Context(), id); err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				writeError(w, r, pkghttpx.NotFound("night not found", err))
				return
			}
			writeError(w, r, pkghttpx.Internal("failed to load night", err))
			return
		}
		if err := d.Repo.Nights.AddAttendees(r.Context(), id, req.UserIDs); err != nil {
			writeError(w, r, pkghttpx.Internal("failed to record attendees", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"recorded": len(req.UserIDs)})
	}
}
