package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/CTAG07/catdex/pkg/templating"
)

const (
	actionShutdown = "shutdown"
	actionRestart  = "restart"
)

// ServerAPI holds the dependencies for the operational API handlers.
type ServerAPI struct {
	tm     *templating.TemplateManager
	logger *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// HealthInfo is returned by the health check.
type HealthInfo struct {
	Status    string `json:"status"`
	Templates int    `json:"templates"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(tm *templating.TemplateManager, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		tm:     tm,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api endpoints.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealthCheck)
	mux.HandleFunc("GET /api/version", a.handleVersion)
}

// handleHealthCheck reports liveness and the size of the template registry.
func (a *ServerAPI) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthInfo{Status: "ok", Templates: a.tm.Count()})
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}
