package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionPolicy bounds the log store by age and row count. Zero values
// disable the corresponding bound.
type RetentionPolicy struct {
	// Days is the maximum age of request and system log rows.
	Days int

	// MaxRequestLogs caps the request_logs table; the oldest rows beyond
	// the cap are pruned.
	MaxRequestLogs int64

	// Schedule is the cron expression driving pruning runs.
	Schedule string
}

// Pruner runs retention pruning on a cron schedule.
type Pruner struct {
	telemetry *Telemetry
	policy    RetentionPolicy
	cron      *cron.Cron
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewPruner creates a pruner over the given telemetry store.
func NewPruner(t *Telemetry, policy RetentionPolicy) *Pruner {
	return &Pruner{
		telemetry: t,
		policy:    policy,
		cron:      cron.New(),
		logger:    slog.Default().With("component", "telemetry.pruner"),
	}
}

// Start schedules pruning runs. An empty schedule disables the pruner.
// The cron stops when ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.policy.Schedule == "" {
		p.logger.Info("prune schedule not configured, skipping pruner")
		return nil
	}

	if _, err := cron.ParseStandard(p.policy.Schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.policy.Schedule, err)
	}

	if _, err := p.cron.AddFunc(p.policy.Schedule, func() {
		p.runPruning(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("retention pruner started",
		"schedule", p.policy.Schedule,
		"retention_days", p.policy.Days,
		"max_request_logs", p.policy.MaxRequestLogs,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop halts the cron scheduler.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.cron.Stop()
	p.running = false
	p.logger.Info("retention pruner stopped")
}

func (p *Pruner) runPruning(ctx context.Context) {
	deleted, err := p.Prune(ctx)
	if err != nil {
		p.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	p.logger.Info("scheduled pruning complete", "deleted_rows", deleted)
}

// Prune applies the retention policy once, returning the number of rows
// deleted across both log tables.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var deleted int64

	if p.policy.Days > 0 {
		cutoff := time.Now().AddDate(0, 0, -p.policy.Days).Unix()

		res, err := p.telemetry.db.ExecContext(ctx,
			"DELETE FROM request_logs WHERE created_at < ?", cutoff)
		if err != nil {
			return deleted, fmt.Errorf("failed to prune request logs: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n

		res, err = p.telemetry.db.ExecContext(ctx,
			"DELETE FROM system_logs WHERE created_at < ?", cutoff)
		if err != nil {
			return deleted, fmt.Errorf("failed to prune system logs: %w", err)
		}
		n, _ = res.RowsAffected()
		deleted += n
	}

	if p.policy.MaxRequestLogs > 0 {
		res, err := p.telemetry.db.ExecContext(ctx, `
			DELETE FROM request_logs WHERE id NOT IN (
				SELECT id FROM request_logs ORDER BY id DESC LIMIT ?
			)`, p.policy.MaxRequestLogs)
		if err != nil {
			return deleted, fmt.Errorf("failed to enforce request log cap: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	return deleted, nil
}
