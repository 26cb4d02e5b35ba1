// Package metrics exposes acquisition counters. A one-shot run logs them at
// the end; long-lived automation can scrape them via --metrics-addr.
package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// RequestsTotal counts acquisition attempts per venue.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperhands_venue_requests_total",
		Help: "Acquisition attempts per venue",
	}, []string{"venue"})

	// FailuresTotal counts failed acquisition attempts per venue.
	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperhands_venue_failures_total",
		Help: "Failed acquisition attempts per venue",
	}, []string{"venue"})

	// RateLimitedTotal counts throttled responses per venue.
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperhands_venue_rate_limited_total",
		Help: "Rate-limited responses per venue",
	}, []string{"venue"})

	// FallbackTierTotal counts which strategy tier produced each series.
	FallbackTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperhands_fallback_tier_total",
		Help: "Successful acquisitions per strategy tier",
	}, []string{"tier"})
)

// Serve exposes /metrics and /health on addr in the background. Errors are
// logged, not fatal: metrics are best-effort in a one-shot CLI.
func Serve(addr string) {
	if addr == "" {
		return
	}
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("Metrics server stopped")
		}
	}()
}
