package api

import "net/http"

func (a *API) listRequestLogs(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	logs, err := a.telemetry.ListRequestLogs(r.Context(), page, pageSize)
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, logs)
}

func (a *API) getRequestLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid log id")
		return
	}

	detail, err := a.telemetry.GetRequestLog(r.Context(), id)
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, detail)
}

func (a *API) clearRequestLogs(w http.ResponseWriter, r *http.Request) {
	n, err := a.telemetry.ClearRequestLogs(r.Context())
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (a *API) listSystemLogs(w http.ResponseWriter, r *http.Request) {
	events, err := a.telemetry.ListSystemEvents(r.Context(),
		r.URL.Query().Get("level"),
		r.URL.Query().Get("event_type"),
		queryInt(r, "limit", 100))
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, events)
}

func (a *API) clearSystemLogs(w http.ResponseWriter, r *http.Request) {
	n, err := a.telemetry.ClearSystemEvents(r.Context())
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
