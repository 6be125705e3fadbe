// Package servemux wraps the HTTP router the relay mounts its endpoints
// on, with permissive CORS so browser clients can fetch the information
// document.
package servemux

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

// S is the relay's HTTP router.
type S struct {
	mux *chi.Mux
}

// New creates the router with CORS applied to every route.
func New() (s *S) {
	m := chi.NewRouter()
	m.Use(
		cors.New(
			cors.Options{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{
					http.MethodGet, http.MethodPost, http.MethodOptions,
				},
				AllowedHeaders: []string{"Content-Type", "Accept"},
			},
		).Handler,
	)
	return &S{mux: m}
}

// Handle mounts a handler on a pattern.
func (s *S) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// HandleFunc mounts a handler function on a pattern.
func (s *S) HandleFunc(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, h)
}

func (s *S) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
