// Package api is the HTTP surface of the service: health, metrics, user
// settings, submissions and entry edits.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ykvlv/dailyping/internal/metrics"
)

// NewRouter wires all routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/users/{userID}", func(ur chi.Router) {
		ur.Get("/", h.GetUser)
		ur.Put("/", h.PutUser)
		ur.Post("/submissions", h.Submit)
		ur.Get("/deliveries", h.ListDeliveries)

		ur.Route("/entries/{day}", func(er chi.Router) {
			er.Get("/", h.GetEntry)
			er.Patch("/", h.PatchEntry)
		})
	})
	return r
}

// NewServer returns the HTTP server for handler.
func NewServer(addr string, handler http.Handler, log *zap.Logger) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorLog:     zap.NewStdLog(log),
	}
}
