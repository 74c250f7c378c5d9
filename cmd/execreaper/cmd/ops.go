package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/psantana5/execreaper/internal/config"
	"github.com/psantana5/execreaper/pkg/auth"
	"github.com/psantana5/execreaper/pkg/ratelimit"
	"github.com/psantana5/execreaper/pkg/reconcile"
	"github.com/psantana5/execreaper/pkg/tracing"
)

type healthChecker interface {
	HealthCheck() error
}

type passRunner interface {
	RunOnePass(ctx context.Context) (*reconcile.PassResult, error)
}

// newOpsRouter builds the daemon's operations endpoint. A nil verifier leaves
// POST /reconcile unauthenticated.
func newOpsRouter(tracer *tracing.Provider, health healthChecker, metricsHandler http.Handler, runner passRunner, sc config.ServerConfig, verifier *auth.TokenVerifier) *mux.Router {
	r := mux.NewRouter()
	r.Use(tracing.HTTPMiddleware(tracer))

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := health.HealthCheck(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	if sc.EnableTrigger {
		limiter := ratelimit.NewLimiter(sc.TriggerRPS, 1)
		trigger := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Detached from the request so a client disconnect cannot cut a pass short.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			result, err := runner.RunOnePass(ctx)
			if err != nil {
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, result)
		})
		var h http.Handler = limiter.Middleware(ratelimit.IPKeyFunc)(trigger)
		if verifier != nil {
			h = verifier.Middleware(h)
		}
		r.Handle("/reconcile", h).Methods(http.MethodPost)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
