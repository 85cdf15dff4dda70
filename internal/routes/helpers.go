package routes

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	pkghttpx "github.com/CalmingAgent/movieNight/pkg/httpx"
	pkgrequestctx "github.com/CalmingAgent/movieNight/pkg/requestctx"
)

// writeJSON is a tiny helper for handlers in this package.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError standardizes error responses and logs with correlation id.
func writeError(w http.ResponseWriter, r *http.Request, he *pkghttpx.HTTPError) {
	cid := pkgrequestctx.CorrelationID(r.Context())
	if cid != "" {
		w.Header().Set("X-Correlation-Id", cid)
	}
	payload := map[string]any{
		"error": map[string]any{
			"code":           he.Code,
			"message":        he.Message,
			"correlation_id": cid,
		},
	}
	if he.Details != nil {
		payload["error"].(map[string]any)["details"] = he.Details
	}
	status := he.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	log.Error().Str("correlation_id", cid).Str("code", he.Code).Err(he.Err).Msg(he.Message)
	writeJSON(w, status, payload)
}

// pathID parses a path value as an int64 id.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// youtubeVideoID extracts the video id from a stored trailer URL.
func youtubeVideoID(rawURL string) string {
	if i := strings.Index(rawURL, "v="); i >= 0 {
		id := rawURL[i+2:]
		if j := strings.IndexByte(id, '&'); j >= 0 {
			id = id[:j]
		}
		return id
	}
	if i := strings.LastIndexByte(rawURL, '/'); i >= 0 {
		return rawURL[i+1:]
	}
	return ""
}
