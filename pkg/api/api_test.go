package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ccg-hq/gateway/pkg/store"
	"ccg-hq/gateway/pkg/telemetry"
)

type testAPI struct {
	api       *API
	store     *store.Store
	telemetry *telemetry.Telemetry
	server    *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "ccg_gateway.db"))
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tel, err := telemetry.Open(filepath.Join(dir, "ccg_logs.db"))
	if err != nil {
		t.Fatalf("telemetry.Open() error: %v", err)
	}
	t.Cleanup(func() { tel.Close() })

	a := New(st, tel)
	mux := http.NewServeMux()
	a.Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testAPI{api: a, store: st, telemetry: tel, server: server}
}

func (ta *testAPI) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ta.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestProviderEndpoints(t *testing.T) {
	ta := newTestAPI(t)

	// Create.
	resp := ta.do(t, "POST", "/api/providers", store.ProviderCreate{
		CliType: "claude_code", Name: "p1", BaseURL: "http://up/v1", APIKey: "secret",
		Enabled: true, FailureThreshold: 3, BlacklistMinutes: 10,
		ModelMaps: []store.ModelMapEntry{{SourceModel: "m*", TargetModel: "M", Enabled: true}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decode[map[string]int64](t, resp)
	id := created["id"]

	// List masks keys.
	resp = ta.do(t, "GET", "/api/providers?cli_type=claude_code", nil)
	providers := decode[[]store.Provider](t, resp)
	if len(providers) != 1 {
		t.Fatalf("list = %d providers, want 1", len(providers))
	}
	if providers[0].APIKey != maskedKey {
		t.Errorf("list leaked api key: %q", providers[0].APIKey)
	}

	// Get includes mappings, masked key.
	resp = ta.do(t, "GET", "/api/providers/1", nil)
	full := decode[store.ProviderWithMaps](t, resp)
	if full.APIKey != maskedKey || len(full.ModelMaps) != 1 {
		t.Errorf("get = %+v", full)
	}

	// Update with echoed masked key leaves the stored key intact.
	masked := maskedKey
	name := "p1-new"
	resp = ta.do(t, "PUT", "/api/providers/1", store.ProviderUpdate{Name: &name, APIKey: &masked})
	resp.Body.Close()

	stored, err := ta.store.GetProvider(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.APIKey != "secret" {
		t.Errorf("masked update overwrote key: %q", stored.APIKey)
	}
	if stored.Name != "p1-new" {
		t.Errorf("update not applied: %q", stored.Name)
	}

	// Delete.
	resp = ta.do(t, "DELETE", "/api/providers/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = ta.do(t, "GET", "/api/providers/1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestResetProviderEmitsEvent(t *testing.T) {
	ta := newTestAPI(t)
	ctx := context.Background()

	id, err := ta.store.CreateProvider(ctx, store.ProviderCreate{
		CliType: "codex", Name: "p", BaseURL: "http://up", APIKey: "k",
		Enabled: true, FailureThreshold: 1, BlacklistMinutes: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := ta.store.RecordFailure(ctx, id); err != nil {
		t.Fatal(err)
	}

	resp := ta.do(t, "POST", "/api/providers/1/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	p, err := ta.store.GetProvider(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.ConsecutiveFailures != 0 || p.BlacklistedUntil != nil {
		t.Errorf("reset left %+v", p.Provider)
	}

	events, err := ta.telemetry.ListSystemEvents(ctx, "", telemetry.EventProviderReset, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("reset events = %d, want 1", len(events))
	}
}

func TestTimeoutSettingsEndpoints(t *testing.T) {
	ta := newTestAPI(t)

	resp := ta.do(t, "GET", "/api/settings/timeouts", nil)
	ts := decode[store.TimeoutSettings](t, resp)
	if ts.StreamFirstByteTimeout != 30 {
		t.Errorf("default first byte = %d", ts.StreamFirstByteTimeout)
	}

	resp = ta.do(t, "PUT", "/api/settings/timeouts", store.TimeoutSettings{
		StreamFirstByteTimeout: 10, StreamIdleTimeout: 20, NonStreamTimeout: 40,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Non-positive values are rejected.
	resp = ta.do(t, "PUT", "/api/settings/timeouts", store.TimeoutSettings{
		StreamFirstByteTimeout: 0, StreamIdleTimeout: 20, NonStreamTimeout: 40,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid update status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogsAndStatsEndpoints(t *testing.T) {
	ta := newTestAPI(t)
	ctx := context.Background()

	status := 200
	if err := ta.telemetry.RecordRequest(ctx, telemetry.RequestRecord{
		CliType: "claude_code", ProviderName: "p1", StatusCode: &status,
		ClientMethod: "POST", ClientPath: "/v1/messages",
		InputTokens: 5, OutputTokens: 7,
	}); err != nil {
		t.Fatal(err)
	}

	resp := ta.do(t, "GET", "/api/logs/requests?page=1&page_size=10", nil)
	page := decode[telemetry.PaginatedLogs](t, resp)
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("logs page = %+v", page)
	}

	resp = ta.do(t, "GET", "/api/stats/daily?days=1", nil)
	stats := decode[[]telemetry.DailyStat](t, resp)
	if len(stats) != 1 || stats[0].InputTokens != 5 {
		t.Errorf("daily stats = %+v", stats)
	}

	resp = ta.do(t, "GET", "/api/status", nil)
	statusBody := decode[map[string]any](t, resp)
	if _, ok := statusBody["uptime_seconds"]; !ok {
		t.Errorf("status body = %v", statusBody)
	}

	resp = ta.do(t, "DELETE", "/api/logs/requests", nil)
	cleared := decode[map[string]int64](t, resp)
	if cleared["deleted"] != 1 {
		t.Errorf("cleared = %v", cleared)
	}
}
