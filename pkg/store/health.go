package store

import (
	"context"
	"database/sql"
	"fmt"
)

// RecordSuccess resets a provider's consecutive-failure counter. It
// reports whether the counter was previously above zero, so the caller can
// emit a recovery event exactly once: two concurrent successes race on the
// conditional update and only one observes the reset.
func (s *Store) RecordSuccess(ctx context.Context, providerID int64) (hadFailures bool, err error) {
	ts := now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE providers
		SET consecutive_failures = 0, updated_at = ?
		WHERE id = ? AND consecutive_failures > 0`,
		ts, providerID)
	if err != nil {
		return false, fmt.Errorf("failed to record success: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	// Counter already zero; still bump updated_at.
	if _, err := s.db.ExecContext(ctx,
		"UPDATE providers SET updated_at = ? WHERE id = ?", ts, providerID); err != nil {
		return false, fmt.Errorf("failed to record success: %w", err)
	}

	return false, nil
}

// RecordFailure increments a provider's consecutive-failure counter in a
// single statement and, when the new count reaches the threshold, sets the
// blacklist expiry to now plus the provider's blacklist window. It reports
// wasBlacklisted only on the exact threshold-crossing call: concurrent
// failures may both increment, but only one lands on the threshold, so the
// blacklist event is emitted at most once per crossing.
//
// A missing provider is not an error; the caller observes (false, "").
func (s *Store) RecordFailure(ctx context.Context, providerID int64) (wasBlacklisted bool, name string, err error) {
	ts := now()

	row := s.db.QueryRowContext(ctx, `
		UPDATE providers
		SET consecutive_failures = consecutive_failures + 1,
		    blacklisted_until = CASE
		        WHEN consecutive_failures + 1 >= failure_threshold
		        THEN ? + blacklist_minutes * 60
		        ELSE blacklisted_until
		    END,
		    updated_at = ?
		WHERE id = ?
		RETURNING consecutive_failures, failure_threshold, name`,
		ts, ts, providerID)

	var failures, threshold int64
	err = row.Scan(&failures, &threshold, &name)
	switch {
	case err == sql.ErrNoRows:
		return false, "", nil
	case err != nil:
		return false, "", fmt.Errorf("failed to record failure: %w", err)
	}

	return failures == threshold, name, nil
}

// ResetFailures clears a provider's counter and blacklist expiry. This is
// the explicit operator action; blacklists otherwise end only by expiry.
func (s *Store) ResetFailures(ctx context.Context, providerID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE providers
		SET consecutive_failures = 0, blacklisted_until = NULL, updated_at = ?
		WHERE id = ?`,
		now(), providerID)
	if err != nil {
		return fmt.Errorf("failed to reset failures: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
