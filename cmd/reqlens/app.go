package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/reqlens/reqlens/internal/engine"
	"github.com/reqlens/reqlens/internal/middleware"
)

// registerDemoRoutes installs a small sample application so the profiler has
// something to observe out of the box. Route patterns use path parameters so
// the registry aggregates by template, not by concrete URL.
func registerDemoRoutes(mux *http.ServeMux, eng *engine.Engine, queryMetrics bool) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"message": "reqlens demo application"})
	})

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, _ *http.Request) {
		if queryMetrics {
			_ = middleware.TimeQuery(eng, "SELECT id, name FROM users ORDER BY name", func() error {
				time.Sleep(randomDelay(2, 8))
				return nil
			})
		}
		writeJSON(w, []map[string]any{
			{"id": 1, "name": "ada"},
			{"id": 2, "name": "grace"},
		})
	})

	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if queryMetrics {
			_ = middleware.TimeQuery(eng, "SELECT id, name FROM users WHERE id = ?", func() error {
				time.Sleep(randomDelay(1, 5))
				return nil
			})
		}
		writeJSON(w, map[string]string{"id": id, "name": "user-" + id})
	})

	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(randomDelay(5, 20))
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]string{"status": "created"})
	})

	mux.HandleFunc("GET /slow", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(randomDelay(150, 400))
		writeJSON(w, map[string]string{"status": "finally"})
	})

	mux.HandleFunc("GET /flaky", func(w http.ResponseWriter, _ *http.Request) {
		if rand.Intn(4) == 0 {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /error", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "intentional failure", http.StatusInternalServerError)
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Println("encode demo response:", err)
	}
}

func randomDelay(minMs, maxMs int) time.Duration {
	return time.Duration(minMs+rand.Intn(maxMs-minMs+1)) * time.Millisecond
}
