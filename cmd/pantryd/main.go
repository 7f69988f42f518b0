package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pantrybook/pantrybook/internal/metrics"
	"github.com/pantrybook/pantrybook/internal/service"
	"github.com/pantrybook/pantrybook/internal/storage/sqlite"
	"github.com/pantrybook/pantrybook/pkg/logging"
)

const port = 8080

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/pantry.db")

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	app := service.NewDefault(store)
	status, err := app.Load(context.Background())
	if err != nil {
		slog.Error("Failed to load state", "error", err)
		os.Exit(1)
	}
	slog.Info("Pantry state ready", "status", status)

	// Read-only diagnostics surface. App mutations happen through the
	// embedded client, not over HTTP.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(app.Diagnostics(r.Context())); err != nil {
			slog.Error("Failed to encode diagnostics", "error", err)
		}
	})
	mux.HandleFunc("/api/export", func(w http.ResponseWriter, r *http.Request) {
		raw, err := app.Export(r.Context())
		if err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="pantrybook-export.json"`)
		w.Write(raw)
	})

	addr := fmt.Sprintf(":%d", port)
	slog.Info("Diagnostics server starting", "address", addr)
	if err := http.ListenAndServe(addr, loggingMiddleware(mux)); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
