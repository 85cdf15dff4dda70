package routes

import (
	"net/http"
	"time"

	pkghttpx "github.com/CalmingAgent/movieNight/pkg/httpx"
)

// FairnessAudits handles GET /fairness/audits
func FairnessAudits(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := time.Now().UTC().AddDate(0, -6, 0)
		if s := r.URL.Query().Get("since"); s != "" {
			parsed, err := time.Parse(time.RFC3339, s)
			if err != nil {
				writeError(w, r, pkghttpx.BadRequest("since must be RFC3339", err))
				return
			}
			since = parsed
		}
		audits, err := d.Repo.Audits.List(r.Context(), since)
		if err != nil {
			writeError(w, r, pkghttpx.Internal("failed to list audits", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": audits, "count": len(audits)})
	}
}

// RunFairnessAudit handles POST /fairness/audits
func RunFairnessAudit(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asOf := time.Now().UTC()
		audits, err := d.Fairness.Audit(r.Context(), asOf.AddDate(0, -6, 0), asOf)
		if err != nil {
			writeError(w, r, pkghttpx.Internal("fairness audit failed", err))
			return
		}
		if err := d.Repo.Audits.Append(r.Context(), audits); err != nil {
			writeError(w, r, pkghttpx.Internal("failed to persist audit", err))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"items": audits, "count": len(audits)})
	}
}
