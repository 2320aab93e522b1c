package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func createProvider(t *testing.T, s *Store, create ProviderCreate) int64 {
	t.Helper()
	id, err := s.CreateProvider(context.Background(), create)
	if err != nil {
		t.Fatalf("CreateProvider(%s) error: %v", create.Name, err)
	}
	return id
}

func TestProviderCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := createProvider(t, s, ProviderCreate{
		CliType: "claude_code", Name: "p1", BaseURL: "http://up/v1", APIKey: "K",
		Enabled: true, FailureThreshold: 3, BlacklistMinutes: 10,
		ModelMaps: []ModelMapEntry{
			{SourceModel: "m*", TargetModel: "M", Enabled: true},
			{SourceModel: "x", TargetModel: "y", Enabled: false},
		},
	})

	got, err := s.GetProvider(ctx, id)
	if err != nil {
		t.Fatalf("GetProvider() error: %v", err)
	}
	if got.Name != "p1" || got.BaseURL != "http://up/v1" || !got.Enabled {
		t.Errorf("provider = %+v", got.Provider)
	}
	if len(got.ModelMaps) != 2 {
		t.Fatalf("got %d model maps, want 2 (disabled included)", len(got.ModelMaps))
	}
	if got.ModelMaps[0].SourceModel != "m*" {
		t.Errorf("maps out of insertion order: %+v", got.ModelMaps)
	}

	newName := "p1-renamed"
	enabled := false
	if err := s.UpdateProvider(ctx, id, ProviderUpdate{Name: &newName, Enabled: &enabled}); err != nil {
		t.Fatalf("UpdateProvider() error: %v", err)
	}

	got, err = s.GetProvider(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "p1-renamed" || got.Enabled {
		t.Errorf("update not applied: %+v", got.Provider)
	}
	if len(got.ModelMaps) != 2 {
		t.Errorf("maps touched by field-only update: %d", len(got.ModelMaps))
	}

	replacement := []ModelMapEntry{{SourceModel: "a", TargetModel: "b", Enabled: true}}
	if err := s.UpdateProvider(ctx, id, ProviderUpdate{ModelMaps: &replacement}); err != nil {
		t.Fatalf("UpdateProvider(maps) error: %v", err)
	}
	got, _ = s.GetProvider(ctx, id)
	if len(got.ModelMaps) != 1 || got.ModelMaps[0].SourceModel != "a" {
		t.Errorf("mapping set not replaced: %+v", got.ModelMaps)
	}

	if err := s.DeleteProvider(ctx, id); err != nil {
		t.Fatalf("DeleteProvider() error: %v", err)
	}
	if _, err := s.GetProvider(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProvider() after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteProvider(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestSelectProviderOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := createProvider(t, s, ProviderCreate{
		CliType: "codex", Name: "first", BaseURL: "http://a", APIKey: "k",
		Enabled: true, FailureThreshold: 3, BlacklistMinutes: 10,
	})
	second := createProvider(t, s, ProviderCreate{
		CliType: "codex", Name: "second", BaseURL: "http://b", APIKey: "k",
		Enabled: true, FailureThreshold: 3, BlacklistMinutes: 10,
	})

	picked, err := s.SelectProvider(ctx, "codex")
	if err != nil {
		t.Fatalf("SelectProvider() error: %v", err)
	}
	if picked == nil || picked.ID != first {
		t.Fatalf("picked %+v, want id %d", picked, first)
	}

	// Promote the second provider; it must now win.
	if err := s.ReorderProviders(ctx, []int64{second, first}); err != nil {
		t.Fatalf("ReorderProviders() error: %v", err)
	}
	picked, err = s.SelectProvider(ctx, "codex")
	if err != nil {
		t.Fatal(err)
	}
	if picked.ID != second {
		t.Errorf("picked id %d after reorder, want %d", picked.ID, second)
	}

	// Wrong CLI type selects nothing.
	picked, err = s.SelectProvider(ctx, "gemini")
	if err != nil {
		t.Fatal(err)
	}
	if picked != nil {
		t.Errorf("SelectProvider(gemini) = %+v, want nil", picked)
	}
}

func TestSelectProviderSkipsIneligible(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	disabled := createProvider(t, s, ProviderCreate{
		CliType: "claude_code", Name: "disabled", BaseURL: "http://a", APIKey: "k",
		Enabled: false, FailureThreshold: 3, BlacklistMinutes: 10,
	})
	blacklisted := createProvider(t, s, ProviderCreate{
		CliType: "claude_code", Name: "blacklisted", BaseURL: "http://b", APIKey: "k",
		Enabled: true, FailureThreshold: 1, BlacklistMinutes: 10,
	})
	healthy := createProvider(t, s, ProviderCreate{
		CliType: "claude_code", Name: "healthy", BaseURL: "http://c", APIKey: "k",
		Enabled: true, FailureThreshold: 3, BlacklistMinutes: 10,
	})

	// Blacklist the middle provider (threshold 1, one failure crosses).
	if _, _, err := s.RecordFailure(ctx, blacklisted); err != nil {
		t.Fatal(err)
	}

	picked, err := s.SelectProvider(ctx, "claude_code")
	if err != nil {
		t.Fatal(err)
	}
	if picked == nil || picked.ID != healthy {
		t.Fatalf("picked %+v, want healthy id %d", picked, healthy)
	}
	_ = disabled

	// Selection loads only enabled mappings.
	entries := []ModelMapEntry{
		{SourceModel: "on", TargetModel: "t1", Enabled: true},
		{SourceModel: "off", TargetModel: "t2", Enabled: false},
	}
	if err := s.UpdateProvider(ctx, healthy, ProviderUpdate{ModelMaps: &entries}); err != nil {
		t.Fatal(err)
	}
	picked, err = s.SelectProvider(ctx, "claude_code")
	if err != nil {
		t.Fatal(err)
	}
	if len(picked.ModelMaps) != 1 || picked.ModelMaps[0].SourceModel != "on" {
		t.Errorf("selector returned disabled maps: %+v", picked.ModelMaps)
	}
}

func TestSelectProviderAfterBlacklistExpiry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := createProvider(t, s, ProviderCreate{
		CliType: "claude_code", Name: "p", BaseURL: "http://a", APIKey: "k",
		Enabled: true, FailureThreshold: 1, BlacklistMinutes: 10,
	})

	if _, _, err := s.RecordFailure(ctx, id); err != nil {
		t.Fatal(err)
	}

	picked, err := s.SelectProvider(ctx, "claude_code")
	if err != nil {
		t.Fatal(err)
	}
	if picked != nil {
		t.Fatalf("blacklisted provider selected: %+v", picked)
	}

	// Force the expiry into the past; the provider becomes eligible again.
	expired := time.Now().Add(-time.Minute).Unix()
	if _, err := s.db.ExecContext(ctx,
		"UPDATE providers SET blacklisted_until = ? WHERE id = ?", expired, id); err != nil {
		t.Fatal(err)
	}

	picked, err = s.SelectProvider(ctx, "claude_code")
	if err != nil {
		t.Fatal(err)
	}
	if picked == nil || picked.ID != id {
		t.Errorf("expired blacklist still excludes provider: %+v", picked)
	}
}

func TestListProvidersByCliType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	createProvider(t, s, ProviderCreate{CliType: "claude_code", Name: "a", BaseURL: "http://a", APIKey: "k", Enabled: true, FailureThreshold: 3, BlacklistMinutes: 10})
	createProvider(t, s, ProviderCreate{CliType: "gemini", Name: "b", BaseURL: "http://b", APIKey: "k", Enabled: true, FailureThreshold: 3, BlacklistMinutes: 10})

	all, err := s.ListProviders(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("ListProviders(all) = %d rows, want 2", len(all))
	}

	gemini, err := s.ListProviders(ctx, "gemini")
	if err != nil {
		t.Fatal(err)
	}
	if len(gemini) != 1 || gemini[0].Name != "b" {
		t.Errorf("ListProviders(gemini) = %+v", gemini)
	}
}
