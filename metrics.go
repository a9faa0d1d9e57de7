package main

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flappybird_http_requests_total",
		Help: "HTTP requests by path and status code.",
	}, []string{"path", "status"})

	gamesSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flappybird_games_saved_total",
		Help: "Game records persisted for authenticated players.",
	})

	coinsAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flappybird_coins_awarded_total",
		Help: "Coins credited from score submissions.",
	})
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

// withMetrics wraps a handler and records the request counter once the
// response status is known.
func withMetrics(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		httpRequestsTotal.WithLabelValues(path, strconv.Itoa(wrapped.statusCode)).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
		sw.ResponseWriter.WriteHeader(code)
	}
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.WriteHeader(http.StatusOK)
	}
	return sw.ResponseWriter.Write(b)
}
