package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRecordFailureThreshold(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := createProvider(t, s, ProviderCreate{
		CliType: "claude_code", Name: "p", BaseURL: "http://a", APIKey: "k",
		Enabled: true, FailureThreshold: 3, BlacklistMinutes: 10,
	})

	// The first two failures increment without blacklisting.
	for i := 1; i <= 2; i++ {
		blacklisted, name, err := s.RecordFailure(ctx, id)
		if err != nil {
			t.Fatalf("RecordFailure() #%d error: %v", i, err)
		}
		if blacklisted {
			t.Errorf("failure #%d reported blacklisted before threshold", i)
		}
		if name != "p" {
			t.Errorf("failure #%d name = %q", i, name)
		}
	}

	// The third crosses the threshold.
	blacklisted, _, err := s.RecordFailure(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !blacklisted {
		t.Error("threshold-crossing failure did not report blacklisted")
	}

	p, err := s.GetProvider(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.ConsecutiveFailures != 3 {
		t.Errorf("consecutive_failures = %d, want 3", p.ConsecutiveFailures)
	}
	if p.BlacklistedUntil == nil {
		t.Fatal("blacklisted_until not set")
	}
	until := time.Unix(*p.BlacklistedUntil, 0)
	if d := time.Until(until); d < 9*time.Minute || d > 11*time.Minute {
		t.Errorf("blacklist window = %v, want ~10m", d)
	}

	// A fourth failure past the threshold must not re-report the crossing.
	blacklisted, _, err = s.RecordFailure(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if blacklisted {
		t.Error("post-threshold failure re-reported blacklisted")
	}
}

func TestRecordSuccessResetsCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := createProvider(t, s, ProviderCreate{
		CliType: "claude_code", Name: "p", BaseURL: "http://a", APIKey: "k",
		Enabled: true, FailureThreshold: 5, BlacklistMinutes: 10,
	})

	// Success with a clean counter reports no recovery.
	had, err := s.RecordSuccess(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if had {
		t.Error("success on clean counter reported prior failures")
	}

	if _, _, err := s.RecordFailure(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.RecordFailure(ctx, id); err != nil {
		t.Fatal(err)
	}

	had, err = s.RecordSuccess(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !had {
		t.Error("success after failures did not report recovery")
	}

	p, err := s.GetProvider(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.ConsecutiveFailures != 0 {
		t.Errorf("consecutive_failures = %d after success, want 0", p.ConsecutiveFailures)
	}

	// A second success must not report recovery again.
	had, err = s.RecordSuccess(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if had {
		t.Error("repeat success re-reported recovery")
	}
}

func TestResetFailuresClearsBlacklist(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := createProvider(t, s, ProviderCreate{
		CliType: "claude_code", Name: "p", BaseURL: "http://a", APIKey: "k",
		Enabled: true, FailureThreshold: 1, BlacklistMinutes: 10,
	})

	if _, _, err := s.RecordFailure(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := s.ResetFailures(ctx, id); err != nil {
		t.Fatalf("ResetFailures() error: %v", err)
	}

	p, err := s.GetProvider(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.ConsecutiveFailures != 0 || p.BlacklistedUntil != nil {
		t.Errorf("reset left state %+v", p.Provider)
	}

	picked, err := s.SelectProvider(ctx, "claude_code")
	if err != nil {
		t.Fatal(err)
	}
	if picked == nil || picked.ID != id {
		t.Error("provider not selectable after reset")
	}
}

func TestRecordFailureMissingProvider(t *testing.T) {
	s := openTestStore(t)

	blacklisted, name, err := s.RecordFailure(context.Background(), 9999)
	if err != nil {
		t.Fatalf("RecordFailure(missing) error: %v", err)
	}
	if blacklisted || name != "" {
		t.Errorf("RecordFailure(missing) = (%v, %q)", blacklisted, name)
	}
}

// TestConcurrentFailuresSingleCrossing drives two parallel failures into a
// provider with threshold 2: both increments must land, and exactly one
// caller may observe the threshold crossing.
func TestConcurrentFailuresSingleCrossing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := createProvider(t, s, ProviderCreate{
		CliType: "claude_code", Name: "p", BaseURL: "http://a", APIKey: "k",
		Enabled: true, FailureThreshold: 2, BlacklistMinutes: 10,
	})

	var wg sync.WaitGroup
	crossings := make(chan bool, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blacklisted, _, err := s.RecordFailure(ctx, id)
			if err != nil {
				t.Errorf("concurrent RecordFailure() error: %v", err)
				return
			}
			crossings <- blacklisted
		}()
	}
	wg.Wait()
	close(crossings)

	crossed := 0
	for b := range crossings {
		if b {
			crossed++
		}
	}
	if crossed != 1 {
		t.Errorf("observed %d threshold crossings, want exactly 1", crossed)
	}

	p, err := s.GetProvider(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.ConsecutiveFailures != 2 {
		t.Errorf("consecutive_failures = %d, want 2 (no lost update)", p.ConsecutiveFailures)
	}
}
