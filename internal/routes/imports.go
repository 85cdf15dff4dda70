package routes

import (
	"net/http"

	"github.com/CalmingAgent/movieNight/internal/jobs"
	pkghttpx "github.com/CalmingAgent/movieNight/pkg/httpx"
)

// ImportSheets handles POST /import/sheets
func ImportSheets(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Sheets == nil {
			writeError(w, r, pkghttpx.Conflict("spreadsheet source not configured", nil))
			return
		}
		n, err := jobs.RunSheetSync(r.Context(), d.Sheets, d.Repo)
		if err != nil {
			writeError(w, r, pkghttpx.Internal("sheet import failed", err))
			return
		}
		_ = d.Cache.DeletePrefix(r.Context(), "movies:")
		writeJSON(w, http.StatusOK, map[string]any{"imported": n})
	}
}
