package api

import (
	"net/http"
	"time"

	"ccg-hq/gateway/pkg/telemetry"
)

func (a *API) dailyStats(w http.ResponseWriter, r *http.Request) {
	days := int(queryInt(r, "days", 7))

	stats, err := a.telemetry.DailyStats(r.Context(), days)
	if err != nil {
		a.storeError(w, err)
		return
	}
	if stats == nil {
		stats = []telemetry.DailyStat{}
	}
	a.writeJSON(w, http.StatusOK, stats)
}

func (a *API) providerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.telemetry.ProviderStats(r.Context())
	if err != nil {
		a.storeError(w, err)
		return
	}
	if stats == nil {
		stats = []telemetry.ProviderStat{}
	}
	a.writeJSON(w, http.StatusOK, stats)
}

// systemStatus summarizes the gateway for the operator dashboard: uptime,
// provider counts per CLI type, and today's usage totals.
func (a *API) systemStatus(w http.ResponseWriter, r *http.Request) {
	providers, err := a.store.ListProviders(r.Context(), "")
	if err != nil {
		a.storeError(w, err)
		return
	}

	nowUnix := time.Now().Unix()
	counts := make(map[string]map[string]int)
	for _, p := range providers {
		byState := counts[p.CliType]
		if byState == nil {
			byState = map[string]int{}
			counts[p.CliType] = byState
		}
		byState["total"]++
		if !p.Enabled {
			continue
		}
		if p.BlacklistedUntil != nil && *p.BlacklistedUntil > nowUnix {
			byState["blacklisted"]++
		} else {
			byState["available"]++
		}
	}

	todayTotals, err := a.telemetry.TodayTotals(r.Context())
	if err != nil {
		a.storeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int64(time.Since(a.started).Seconds()),
		"providers":      counts,
		"today":          todayTotals,
	})
}
