package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cataloghandler "biblio/internal/catalog/handler"
	circulationhandler "biblio/internal/circulation/handler"
	patronhandler "biblio/internal/patron/handler"
	"biblio/internal/platform/middleware"
)

// Registrar is anything that can attach its routes to the router. Each
// domain handler implements it.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires the shared middleware chain, operational endpoints, and
// the domain handlers. Transport concerns stay here so handlers remain thin.
func NewRouter(logger *slog.Logger, metrics middleware.Observer,
	circulation *circulationhandler.Handler,
	catalog *cataloghandler.Handler,
	patrons *patronhandler.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range []Registrar{circulation, catalog, patrons} {
		h.Register(r)
	}
	return r
}
