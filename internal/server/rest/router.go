package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"submission_service/internal/metrics"
	"submission_service/pkg/logging"
)

type RouterConfig struct {
	Logger        *logging.Logger
	Metrics       *metrics.Collector
	Gatherer      prometheus.Gatherer
	MaxUploadSize int64
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}
	if cfg.MaxUploadSize > 0 {
		r.Use(func(next http.Handler) http.Handler {
			return http.MaxBytesHandler(next, cfg.MaxUploadSize)
		})
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	h.RegisterRoutes(r)
	return r
}
