package core

// scheduler.go provides background job scheduling for maintenance tasks.
//
// The archive job runs periodically to:
//  1. Move old entries from audit_log to audit_log_archive (hot -> cold)
//  2. Purge very old entries from the archive based on retention policy
//
// Failures are logged and retried on the next tick; they never stop the server.

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/solarerp/internal/logging"
)

// ArchiveConfig holds configuration for the archive scheduler.
// Zero values fall back to the defaults noted per field.
type ArchiveConfig struct {
	HotRetentionDays      int           // Days to keep in audit_log (default: 90)
	ArchiveRetentionYears int           // Years to keep in archive (default: 7)
	BatchSize             int           // Rows per batch (default: 5000)
	CheckInterval         time.Duration // How often to run (default: 24h)
}

func (c ArchiveConfig) withDefaults() ArchiveConfig {
	if c.HotRetentionDays <= 0 {
		c.HotRetentionDays = 90
	}
	if c.ArchiveRetentionYears <= 0 {
		c.ArchiveRetentionYears = 7
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// ArchiveResult reports one archive + purge cycle.
type ArchiveResult struct {
	Archived int64 `json:"archived"`
	Purged   int64 `json:"purged"`
}

// StartArchiveScheduler archives old audit entries immediately and then every
// CheckInterval until ctx is cancelled.
func (s *Service) StartArchiveScheduler(ctx context.Context, cfg ArchiveConfig) {
	cfg = cfg.withDefaults()
	log := logging.Component("archive")
	log.Info("archive scheduler started",
		"hot_retention_days", cfg.HotRetentionDays,
		"archive_retention_years", cfg.ArchiveRetentionYears,
		"batch_size", cfg.BatchSize,
	)

	s.runArchiveJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("archive scheduler stopped")
			return
		case <-ticker.C:
			s.runArchiveJob(ctx, cfg)
		}
	}
}

func (s *Service) runArchiveJob(ctx context.Context, cfg ArchiveConfig) {
	start := time.Now()
	log := logging.Component("archive")

	res, err := s.ArchiveAuditLog(ctx, cfg)
	if err != nil {
		log.Error("archive job failed", "error", err)
		return
	}

	log.Info("archive job completed",
		"entries_archived", res.Archived,
		"entries_purged", res.Purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// ArchiveAuditLog runs one archive + purge cycle. The CLI calls it directly.
func (s *Service) ArchiveAuditLog(ctx context.Context, cfg ArchiveConfig) (ArchiveResult, error) {
	cfg = cfg.withDefaults()
	var res ArchiveResult

	for {
		n, err := s.archiveBatch(ctx, cfg.HotRetentionDays, cfg.BatchSize)
		if err != nil {
			return res, fmt.Errorf("archive audit log: %w", err)
		}
		res.Archived += n
		if n < int64(cfg.BatchSize) || ctx.Err() != nil {
			break
		}
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM audit_log_archive WHERE created_at < now() - make_interval(years => $1)`,
		cfg.ArchiveRetentionYears)
	if err != nil {
		return res, fmt.Errorf("purge audit archive: %w", err)
	}
	res.Purged = tag.RowsAffected()

	return res, nil
}

// archiveBatch moves up to batchSize entries older than daysToKeep to the archive.
func (s *Service) archiveBatch(ctx context.Context, daysToKeep, batchSize int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		WITH moved AS (
			DELETE FROM audit_log
			WHERE id IN (
				SELECT id FROM audit_log
				WHERE created_at < now() - make_interval(days => $1)
				ORDER BY created_at
				LIMIT $2
			)
			RETURNING `+auditColumns+`
		)
		INSERT INTO audit_log_archive (`+auditColumns+`)
		SELECT `+auditColumns+` FROM moved`,
		daysToKeep, batchSize)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
