// Package metrics provides Prometheus instrumentation for the bot.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BetsCreated counts bets created, partitioned by kind.
	BetsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookiebot_bets_created_total",
		Help: "Total number of bets created",
	}, []string{"kind"})

	// BetsAccepted counts accepted bets.
	BetsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookiebot_bets_accepted_total",
		Help: "Total number of bets accepted",
	})

	// BetsResolved counts resolved bets, partitioned by outcome
	// ("paid" or "refunded").
	BetsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookiebot_bets_resolved_total",
		Help: "Total number of bets resolved",
	}, []string{"outcome"})

	// SweepErrors counts per-bet failures during the expiry sweep.
	SweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookiebot_sweep_errors_total",
		Help: "Errors encountered during expiry sweeps",
	})

	// CommandsTotal counts chat commands handled, by command name.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookiebot_commands_total",
		Help: "Chat commands handled",
	}, []string{"command"})
)

// HealthFunc reports backend health for /healthz.
type HealthFunc func(ctx context.Context) error

// StartServer runs a small HTTP server exposing /metrics and /healthz.
// Meant to be called from main; the server runs in its own goroutine.
func StartServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
