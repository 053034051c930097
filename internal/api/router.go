// Package api exposes the status of a run over HTTP: the live job view,
// the ledger history, Prometheus metrics and the Swagger UI.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-pgcopy-export/internal/api/docs"
	"go-pgcopy-export/internal/api/handler"
	"go-pgcopy-export/pkg/router"
)

// Options select what the status server exposes. Registry and History
// may be nil.
type Options struct {
	RunID    string
	Tracker  handler.Tracker
	History  handler.History
	Registry *prometheus.Registry
	Log      logrus.FieldLogger
}

// NewRouter builds the status server routes.
func NewRouter(opts Options) *router.Router {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	r := router.New(opts.Log)
	RegisterRoutes(r, &handler.StatusHandler{
		RunID:   opts.RunID,
		Tracker: opts.Tracker,
		History: opts.History,
		Log:     opts.Log,
	})

	var metrics http.Handler = promhttp.Handler()
	if opts.Registry != nil {
		metrics = promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})
	}
	r.Mount("/metrics", metrics)
	r.Mount("/swagger/*", httpSwagger.WrapHandler)
	return r
}

func RegisterRoutes(r *router.Router, h *handler.StatusHandler) {
	r.GET("/api/v1/jobs", h.ListJobs)
	// More specific routes first
	r.GET("/api/v1/jobs/*/errors", h.GetJobErrors)
	r.GET("/api/v1/jobs/*", h.GetJob)
	r.GET("/api/v1/history", h.ListHistory)
	r.GET("/api/v1/history/*", h.GetHistoryJob)
}
