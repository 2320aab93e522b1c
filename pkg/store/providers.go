package store

import (
	"context"
	"database/sql"
	"fmt"
)

const providerColumns = `id, cli_type, name, base_url, api_key, enabled,
	failure_threshold, blacklist_minutes, consecutive_failures,
	blacklisted_until, sort_order, created_at, updated_at`

func scanProvider(row interface{ Scan(...any) error }) (Provider, error) {
	var p Provider
	var enabled int64
	err := row.Scan(&p.ID, &p.CliType, &p.Name, &p.BaseURL, &p.APIKey, &enabled,
		&p.FailureThreshold, &p.BlacklistMinutes, &p.ConsecutiveFailures,
		&p.BlacklistedUntil, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
	p.Enabled = enabled != 0
	return p, err
}

// SelectProvider returns the highest-priority eligible provider for a CLI
// type: enabled, not blacklisted (or blacklist expired), ordered by
// sort_order then id, with its enabled model mappings in insertion order.
// Returns nil when no provider qualifies.
func (s *Store) SelectProvider(ctx context.Context, cliType string) (*ProviderWithMaps, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM providers
		WHERE cli_type = ?
		  AND enabled = 1
		  AND (blacklisted_until IS NULL OR blacklisted_until <= ?)
		ORDER BY sort_order, id
		LIMIT 1`, providerColumns),
		cliType, now())

	p, err := scanProvider(row)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to select provider: %w", err)
	}

	maps, err := s.providerMaps(ctx, p.ID, true)
	if err != nil {
		return nil, err
	}

	return &ProviderWithMaps{Provider: p, ModelMaps: maps}, nil
}

// ListProviders enumerates providers, optionally restricted to one CLI
// type, ordered by CLI type, sort order, then id.
func (s *Store) ListProviders(ctx context.Context, cliType string) ([]Provider, error) {
	query := fmt.Sprintf("SELECT %s FROM providers", providerColumns)
	var args []any
	if cliType != "" {
		query += " WHERE cli_type = ?"
		args = append(args, cliType)
	}
	query += " ORDER BY cli_type, sort_order, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}

	return providers, rows.Err()
}

// GetProvider fetches one provider with its full mapping set (enabled and
// disabled), or ErrNotFound.
func (s *Store) GetProvider(ctx context.Context, id int64) (*ProviderWithMaps, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM providers WHERE id = ?", providerColumns), id)

	p, err := scanProvider(row)
	switch {
	case err == sql.ErrNoRows:
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get provider %d: %w", id, err)
	}

	maps, err := s.providerMaps(ctx, p.ID, false)
	if err != nil {
		return nil, err
	}

	return &ProviderWithMaps{Provider: p, ModelMaps: maps}, nil
}

// providerMaps loads a provider's mappings in insertion order.
func (s *Store) providerMaps(ctx context.Context, providerID int64, enabledOnly bool) ([]ModelMap, error) {
	query := "SELECT id, provider_id, source_model, target_model, enabled FROM provider_model_map WHERE provider_id = ?"
	if enabledOnly {
		query += " AND enabled = 1"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load model maps: %w", err)
	}
	defer rows.Close()

	var maps []ModelMap
	for rows.Next() {
		var m ModelMap
		var enabled int64
		if err := rows.Scan(&m.ID, &m.ProviderID, &m.SourceModel, &m.TargetModel, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan model map: %w", err)
		}
		m.Enabled = enabled != 0
		maps = append(maps, m)
	}

	return maps, rows.Err()
}

// CreateProvider inserts a provider and its mapping set in one
// transaction, returning the new id. New providers sort after existing
// ones of the same CLI type.
func (s *Store) CreateProvider(ctx context.Context, create ProviderCreate) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ts := now()

	var maxOrder sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		"SELECT MAX(sort_order) FROM providers WHERE cli_type = ?", create.CliType).Scan(&maxOrder); err != nil {
		return 0, fmt.Errorf("failed to determine sort order: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO providers (cli_type, name, base_url, api_key, enabled,
			failure_threshold, blacklist_minutes, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		create.CliType, create.Name, create.BaseURL, create.APIKey, boolToInt(create.Enabled),
		create.FailureThreshold, create.BlacklistMinutes, maxOrder.Int64+1, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("failed to create provider: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := insertMaps(ctx, tx, id, create.ModelMaps); err != nil {
		return 0, err
	}

	return id, tx.Commit()
}

// UpdateProvider applies a partial update. A non-nil mapping set deletes
// and reinserts the provider's mappings in the same transaction.
func (s *Store) UpdateProvider(ctx context.Context, id int64, update ProviderUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	set := "updated_at = ?"
	args := []any{now()}

	if update.Name != nil {
		set += ", name = ?"
		args = append(args, *update.Name)
	}
	if update.BaseURL != nil {
		set += ", base_url = ?"
		args = append(args, *update.BaseURL)
	}
	if update.APIKey != nil {
		set += ", api_key = ?"
		args = append(args, *update.APIKey)
	}
	if update.Enabled != nil {
		set += ", enabled = ?"
		args = append(args, boolToInt(*update.Enabled))
	}
	if update.FailureThreshold != nil {
		set += ", failure_threshold = ?"
		args = append(args, *update.FailureThreshold)
	}
	if update.BlacklistMinutes != nil {
		set += ", blacklist_minutes = ?"
		args = append(args, *update.BlacklistMinutes)
	}

	args = append(args, id)
	res, err := tx.ExecContext(ctx, "UPDATE providers SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update provider %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if update.ModelMaps != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM provider_model_map WHERE provider_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear model maps: %w", err)
		}
		if err := insertMaps(ctx, tx, id, *update.ModelMaps); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteProvider removes a provider and cascades its mapping set.
func (s *Store) DeleteProvider(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM provider_model_map WHERE provider_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete model maps: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM providers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete provider %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ReorderProviders assigns sort_order by list index. Unknown ids are
// skipped silently.
func (s *Store) ReorderProviders(ctx context.Context, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ts := now()
	for index, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE providers SET sort_order = ?, updated_at = ? WHERE id = ?",
			index, ts, id); err != nil {
			return fmt.Errorf("failed to reorder provider %d: %w", id, err)
		}
	}

	return tx.Commit()
}

func insertMaps(ctx context.Context, tx *sql.Tx, providerID int64, maps []ModelMapEntry) error {
	for _, m := range maps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO provider_model_map (provider_id, source_model, target_model, enabled)
			VALUES (?, ?, ?, ?)`,
			providerID, m.SourceModel, m.TargetModel, boolToInt(m.Enabled)); err != nil {
			return fmt.Errorf("failed to insert model map %q: %w", m.SourceModel, err)
		}
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
