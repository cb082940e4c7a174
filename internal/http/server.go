// Package http serves the simulation dashboard and its JSON API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strconv"
	"time"

	"go-pbpk-popsim/internal/config"
	"go-pbpk-popsim/internal/connectors/pubchem"
	"go-pbpk-popsim/internal/connectors/runstore"
	"go-pbpk-popsim/internal/connectors/studyarchive"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer   *nethttp.Server
	runStore     *runstore.Store
	archiveStore *studyarchive.Store
}

// NewServer creates a configured HTTP server with all endpoints.
func NewServer(cfg config.Config) (*Server, error) {
	var runs *runstore.Store
	if cfg.RunStorePath != "" {
		createdStore, err := runstore.NewSQLiteStore(cfg.RunStorePath)
		if err != nil {
			return nil, err
		}
		runs = createdStore
	}
	var archive *studyarchive.Store
	if cfg.ArchiveEnabled {
		createdStore, err := studyarchive.NewStore(cfg)
		if err != nil {
			return nil, err
		}
		archive = createdStore
	}
	var pubchemClient *pubchem.Client
	if cfg.PubChemEnabled {
		pubchemClient = pubchem.NewClient(cfg.PubChemEndpoint, cfg.PubChemTimeout)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", dashboardHandler)
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/api/v1/metrics/app", appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/api/generate-population", generatePopulationHandler(cfg))
	mux.HandleFunc("/api/run-simulation", runSimulationHandler(cfg, runs, archive))
	mux.HandleFunc("/api/fetch-pubchem", fetchPubChemHandler(pubchemClient, runs, cfg.PubChemCacheTTL))
	mux.HandleFunc("/api/safety-analysis", safetyAnalysisHandler(cfg.DefaultToxicThreshold))
	mux.HandleFunc("/api/v1/scenarios", scenariosHandler())
	mux.HandleFunc("/api/v1/runs", runListHandler(runs))
	mux.HandleFunc("/api/v1/runs/", runDetailHandler(runs))
	mux.HandleFunc("/api/v1/archive/summary", archiveSummaryHandler(archive))
	mux.HandleFunc("/api/v1/archive/recent", archiveRecentHandler(archive))
	mux.HandleFunc("/api/v1/status/services", servicesStatusHandler(runs, archive, pubchemClient))
	mux.HandleFunc("/api/v1/reports/simulation.pdf", simulationPDFHandler(cfg))

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(observabilityMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{httpServer: httpServer, runStore: runs, archiveStore: archive}, nil
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.runStore != nil {
		_ = s.runStore.Close()
	}
	if s.archiveStore != nil {
		_ = s.archiveStore.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ready",
	})
}

func loggingMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		fmt.Printf("%s %s %s %s\n", r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
