package main

import (
	"log/slog"
	"net/http"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/metrics"
)

// handlers is every route the server mounts.
type handlers struct {
	UploadURL httpx.LambdaHandler
	Auth      httpx.LambdaHandler
	History   httpx.LambdaHandler
	Claim     httpx.LambdaHandler
	Process   httpx.LambdaHandler
}

func newRouter(h handlers, m *metrics.Server, limiter *httpx.RateLimiter, log *slog.Logger) http.Handler {
	api := http.NewServeMux()
	api.Handle("POST /upload-url", httpx.Adapt(h.UploadURL))
	api.Handle("POST /api/auth/{action}", httpx.Adapt(h.Auth))
	api.Handle("GET /api/claims/history", httpx.Adapt(h.History))
	api.Handle("GET /api/claims/{claimId}", httpx.Adapt(h.Claim, "claimId"))
	api.Handle("POST /api/process-claim", httpx.Adapt(h.Process))

	routed := limiter.Middleware(api)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	root.Handle("GET /metrics", m.Handler())
	root.Handle("/", routed)

	return httpx.RequestID(httpx.AccessLog(log, m.Middleware(root)))
}
