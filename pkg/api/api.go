// Package api is the operator's JSON surface: provider CRUD, settings,
// request/system logs, and usage statistics. The operator UI talks to
// these endpoints; CLI traffic never reaches them.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ccg-hq/gateway/pkg/store"
	"ccg-hq/gateway/pkg/telemetry"
)

// API serves the operator endpoints.
type API struct {
	store     *store.Store
	telemetry *telemetry.Telemetry
	logger    *slog.Logger
	started   time.Time
}

// New creates the operator API.
func New(st *store.Store, tel *telemetry.Telemetry) *API {
	return &API{
		store:     st,
		telemetry: tel,
		logger:    slog.Default().With("component", "api"),
		started:   time.Now(),
	}
}

// Register mounts every operator route on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/providers", a.listProviders)
	mux.HandleFunc("POST /api/providers", a.createProvider)
	mux.HandleFunc("POST /api/providers/reorder", a.reorderProviders)
	mux.HandleFunc("GET /api/providers/{id}", a.getProvider)
	mux.HandleFunc("PUT /api/providers/{id}", a.updateProvider)
	mux.HandleFunc("DELETE /api/providers/{id}", a.deleteProvider)
	mux.HandleFunc("POST /api/providers/{id}/reset", a.resetProvider)

	mux.HandleFunc("GET /api/settings/timeouts", a.getTimeouts)
	mux.HandleFunc("PUT /api/settings/timeouts", a.updateTimeouts)
	mux.HandleFunc("GET /api/settings/gateway", a.getGatewaySettings)
	mux.HandleFunc("PUT /api/settings/gateway", a.updateGatewaySettings)

	mux.HandleFunc("GET /api/logs/requests", a.listRequestLogs)
	mux.HandleFunc("DELETE /api/logs/requests", a.clearRequestLogs)
	mux.HandleFunc("GET /api/logs/requests/{id}", a.getRequestLog)
	mux.HandleFunc("GET /api/logs/system", a.listSystemLogs)
	mux.HandleFunc("DELETE /api/logs/system", a.clearSystemLogs)

	mux.HandleFunc("GET /api/stats/daily", a.dailyStats)
	mux.HandleFunc("GET /api/stats/providers", a.providerStats)
	mux.HandleFunc("GET /api/status", a.systemStatus)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

// storeError maps store errors onto HTTP statuses.
func (a *API) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, telemetry.ErrNotFound):
		a.writeError(w, http.StatusNotFound, "not found")
	default:
		a.logger.Error("store operation failed", "error", err)
		a.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int64) int64 {
	val := r.URL.Query().Get(name)
	if val == "" {
		return def
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return n
}
