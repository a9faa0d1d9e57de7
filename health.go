package main

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
	Database  string `json:"database"`
	Platform  string `json:"platform"`
	Error     string `json:"error,omitempty"`
}

const serviceVersion = "1.0.0"

// healthHandler answers fast and never fails hard: if the store is not
// connected yet it attempts a lazy init and reports "degraded" on failure.
func healthHandler(store *Store, env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := HealthResponse{
			Status:    "ok",
			Service:   "flappy-bird",
			Timestamp: time.Now().Unix(),
			Version:   serviceVersion,
			Platform:  env + "/" + runtime.GOOS,
		}

		if store.Connected() {
			health.Database = "connected"
		} else {
			health.Database = "initializing"
			if _, err := store.Ensure(); err != nil {
				health.Database = "error"
				health.Status = "degraded"
				health.Error = truncate(err.Error(), 100)
			} else {
				health.Database = "connected"
			}
		}

		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(health)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
