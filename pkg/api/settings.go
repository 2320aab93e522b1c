package api

import (
	"encoding/json"
	"net/http"

	"ccg-hq/gateway/pkg/store"
)

func (a *API) getTimeouts(w http.ResponseWriter, r *http.Request) {
	ts, err := a.store.GetTimeouts(r.Context())
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, ts)
}

func (a *API) updateTimeouts(w http.ResponseWriter, r *http.Request) {
	var ts store.TimeoutSettings
	if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if ts.StreamFirstByteTimeout <= 0 || ts.StreamIdleTimeout <= 0 || ts.NonStreamTimeout <= 0 {
		a.writeError(w, http.StatusBadRequest, "timeouts must be positive seconds")
		return
	}

	if err := a.store.UpdateTimeouts(r.Context(), ts); err != nil {
		a.storeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) getGatewaySettings(w http.ResponseWriter, r *http.Request) {
	gs, err := a.store.GetGatewaySettings(r.Context())
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, gs)
}

func (a *API) updateGatewaySettings(w http.ResponseWriter, r *http.Request) {
	var gs store.GatewaySettings
	if err := json.NewDecoder(r.Body).Decode(&gs); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := a.store.UpdateGatewaySettings(r.Context(), gs); err != nil {
		a.storeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
