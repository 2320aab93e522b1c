package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ccg-hq/gateway/pkg/store"
	"ccg-hq/gateway/pkg/telemetry"
)

// maskedKey replaces stored credentials on the read path. Keys are
// write-only through the API.
const maskedKey = "******"

func maskProvider(p store.Provider) store.Provider {
	if p.APIKey != "" {
		p.APIKey = maskedKey
	}
	return p
}

func (a *API) listProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := a.store.ListProviders(r.Context(), r.URL.Query().Get("cli_type"))
	if err != nil {
		a.storeError(w, err)
		return
	}

	masked := make([]store.Provider, len(providers))
	for i, p := range providers {
		masked[i] = maskProvider(p)
	}
	a.writeJSON(w, http.StatusOK, masked)
}

func (a *API) getProvider(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	p, err := a.store.GetProvider(r.Context(), id)
	if err != nil {
		a.storeError(w, err)
		return
	}

	p.Provider = maskProvider(p.Provider)
	a.writeJSON(w, http.StatusOK, p)
}

func (a *API) createProvider(w http.ResponseWriter, r *http.Request) {
	var create store.ProviderCreate
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if create.Name == "" || create.BaseURL == "" || create.CliType == "" {
		a.writeError(w, http.StatusBadRequest, "cli_type, name, and base_url are required")
		return
	}
	if create.FailureThreshold <= 0 {
		create.FailureThreshold = 3
	}
	if create.BlacklistMinutes <= 0 {
		create.BlacklistMinutes = 10
	}

	id, err := a.store.CreateProvider(r.Context(), create)
	if err != nil {
		a.storeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (a *API) updateProvider(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	var update store.ProviderUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// A masked key echoed back from the UI means "leave unchanged".
	if update.APIKey != nil && *update.APIKey == maskedKey {
		update.APIKey = nil
	}

	if err := a.store.UpdateProvider(r.Context(), id, update); err != nil {
		a.storeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) deleteProvider(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	if err := a.store.DeleteProvider(r.Context(), id); err != nil {
		a.storeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) reorderProviders(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := a.store.ReorderProviders(r.Context(), payload.IDs); err != nil {
		a.storeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) resetProvider(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	p, err := a.store.GetProvider(r.Context(), id)
	if err != nil {
		a.storeError(w, err)
		return
	}

	if err := a.store.ResetFailures(r.Context(), id); err != nil {
		a.storeError(w, err)
		return
	}

	if err := a.telemetry.RecordEvent(r.Context(), "info", telemetry.EventProviderReset,
		fmt.Sprintf("Provider %s failures reset by operator", p.Name), p.Name, ""); err != nil {
		a.logger.Error("failed to record reset event", "provider", p.Name, "error", err)
	}

	a.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
