package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CalmingAgent/movieNight/internal/model"
	"github.com/CalmingAgent/movieNight/internal/routes"
	"github.com/CalmingAgent/movieNight/internal/selector"
	"github.com/CalmingAgent/movieNight/internal/server"
	"github.com/CalmingAgent/movieNight/pkg/cache"
	"github.com/CalmingAgent/movieNight/pkg/signer"
)

func testServer() *server.Server {
	return server.New(routes.Deps{
		Name:      "movienight",
		StartedAt: time.Now(),
		Cache:     cache.NewInMemory(),
		Signer:    signer.NewHMAC([]byte("test-secret")),
	})
}

func TestHealth(t *testing.T) {
	r := testServer().Router()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %s", ct)
	}
}

func TestCorrelationIDIsEchoed(t *testing.T) {
	r := testServer().Router()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-Id", "cid-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Correlation-Id"); got != "cid-123" {
		t.Fatalf("expected correlation id echoed, got %q", got)
	}
}

type emptyPool struct{}

func (emptyPool) ListCandidates(context.Context, model.PoolFilter) ([]model.Movie, error) {
	return nil, nil
}

func TestCreateNightEmptyPoolConflicts(t *testing.T) {
	srv := server.New(routes.Deps{
		Name:      "movienight",
		StartedAt: time.Now(),
		Cache:     cache.NewInMemory(),
		Signer:    signer.NewHMAC([]byte("test-secret")),
		Selector:  selector.New(emptyPool{}, nil, nil, nil),
	})
	req := httptest.NewRequest(http.MethodPost, "/nights", strings.NewReader(`{"attendee_count":3}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for an empty pool, got %d", w.Code)
	}
}

func TestInvalidCursorRejected(t *testing.T) {
	r := testServer().Router()
	req := httptest.NewRequest(http.MethodGet, "/movies?cursor=garbage", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for tampered cursor, got %d", w.Code)
	}
}
