package server

import (
	"net/http"

	"github.com/CalmingAgent/movieNight/internal/routes"
)

type Server struct {
	routes.Deps
}

func New(d routes.Deps) *Server {
	return &Server{Deps: d}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	sd := s.Deps

	// Endpoints declared here for easy scanning
	mux.HandleFunc("GET /health", routes.Health(sd))
	mux.HandleFunc("GET /movies", routes.Movies(sd))
	mux.HandleFunc("PUT /movies", routes.UpsertMovie(sd))
	mux.HandleFunc("GET /movies/{id}", routes.Movie(sd))
	mux.HandleFunc("DELETE /movies/{id}", routes.DeleteMovie(sd))
	mux.HandleFunc("GET /movies/{id}/similar", routes.SimilarMovies(sd))
	mux.HandleFunc("PUT /movies/{id}/ratings", routes.UpsertRating(sd))
	mux.HandleFunc("POST /movies/{id}/resolve", routes.ResolveTrailer(sd))
	mux.HandleFunc("POST /movies/{id}/refresh", routes.RefreshTrailer(sd))
	mux.HandleFunc("POST /movies/{id}/dispute", routes.DisputeTrailer(sd))
	mux.HandleFunc("GET /reviews", routes.ReviewQueue(sd))
	mux.HandleFunc("POST /nights", routes.CreateNight(sd))
	mux.HandleFunc("GET /nights/{id}", routes.Night(sd))
	mux.HandleFunc("POST /nights/{id}/winner", routes.SetWinner(sd))
	mux.HandleFunc("POST /nights/{id}/attendees", routes.AddAttendees(sd))
	mux.HandleFunc("GET /users", routes.Users(sd))
	mux.HandleFunc("POST /users", routes.EnsureUser(sd))
	mux.HandleFunc("GET /trends", routes.Trend(sd))
	mux.HandleFunc("GET /fairness/audits", routes.FairnessAudits(sd))
	mux.HandleFunc("POST /fairness/audits", routes.RunFairnessAudit(sd))
	mux.HandleFunc("POST /import/sheets", routes.ImportSheets(sd))

	return withSecurityHeaders(withCORS(nil)(withCorrelationID(withLogging(mux))))
}
