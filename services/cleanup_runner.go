package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// CleanupConfig is built once per run from the environment and passed
// in explicitly; the runner holds no process-wide mutable state.
type CleanupConfig struct {
	Environment   string
	DryRun        bool
	RetentionDays int
	ScanLimit     int32
}

// ErrDryRunUnset signals the production safety gate: a production run
// must say dry-run true or false out loud, never by omission.
var ErrDryRunUnset = fmt.Errorf("dry-run must be explicitly set in production")

// ResolveDryRun turns the tri-state environment value (raw, set) into
// the run's dry-run flag. Outside production an unset value defaults to
// dry-run; in production it aborts the run fail-closed.
func ResolveDryRun(environment, raw string, set bool) (bool, error) {
	if !set {
		if environment == "production" {
			return false, ErrDryRunUnset
		}
		return true, nil
	}
	dryRun, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid dry-run value %q: %w", raw, err)
	}
	return dryRun, nil
}

// CleanupStats is the per-run report. Logged, never persisted.
type CleanupStats struct {
	Mode                 string
	Environment          string
	OrphanedPrefixes     int
	OrphanKeysDeleted    int
	ExpiredDeletedVideos int
	ReapedVideos         int
	Errors               []string
	Duration             time.Duration
}

// CleanupObjectStore is everything the cleanup run needs from storage.
type CleanupObjectStore interface {
	RenditionLister
	AssetDeleter
}

// CleanupVideoStore is everything the cleanup run needs from metadata.
type CleanupVideoStore interface {
	ScannerVideoStore
	ReaperVideoStore
}

// CleanupRunner drives one orphan-scan + retention-reap pass. Single
// threaded and batch-sequential; it can run next to live uploads because
// only rows with deleted_at set are reap candidates.
type CleanupRunner struct {
	cfg     CleanupConfig
	store   CleanupObjectStore
	scanner *OrphanScanner
	reaper  *RetentionReaper
	logger  *zap.Logger
}

func NewCleanupRunner(cfg CleanupConfig, store CleanupObjectStore, videos CleanupVideoStore, logger *zap.Logger) *CleanupRunner {
	return &CleanupRunner{
		cfg:     cfg,
		store:   store,
		scanner: NewOrphanScanner(store, videos, cfg.ScanLimit, logger),
		reaper:  NewRetentionReaper(store, videos, cfg.DryRun, logger),
		logger:  logger,
	}
}

// Run executes one full pass. Per-item failures land in stats.Errors and
// never abort the run; only discovery failures (listing, the expiry
// query) are returned as fatal.
func (r *CleanupRunner) Run(ctx context.Context) (*CleanupStats, error) {
	start := time.Now()
	stats := &CleanupStats{
		Mode:        "live",
		Environment: r.cfg.Environment,
	}
	if r.cfg.DryRun {
		stats.Mode = "dry-run"
	}

	orphaned, err := r.scanner.Scan(ctx)
	if err != nil {
		return stats, err
	}
	stats.OrphanedPrefixes = len(orphaned)

	for _, prefix := range orphaned {
		if r.cfg.DryRun {
			r.logger.Info("Dry run: would delete orphaned prefix", zap.String("prefix", prefix))
			continue
		}
		deleted, err := r.store.DeletePrefix(ctx, prefix)
		stats.OrphanKeysDeleted += deleted
		if err != nil {
			r.logger.Error("Failed to delete orphaned prefix",
				zap.String("prefix", prefix), zap.Error(err))
			stats.Errors = append(stats.Errors, fmt.Sprintf("prefix %s: %v", prefix, err))
		}
	}

	expired, err := r.reaper.FindExpiredDeletedVideos(ctx, r.cfg.RetentionDays)
	if err != nil {
		stats.Duration = time.Since(start)
		return stats, fmt.Errorf("expired video query failed: %w", err)
	}
	stats.ExpiredDeletedVideos = len(expired)

	reaped, errs := r.reaper.CleanupExpiredVideos(ctx, expired)
	stats.ReapedVideos = reaped
	stats.Errors = append(stats.Errors, errs...)

	stats.Duration = time.Since(start)
	r.logSummary(stats)
	return stats, nil
}

// logSummary emits the single-line structured record log-based alerting
// keys on.
func (r *CleanupRunner) logSummary(stats *CleanupStats) {
	r.logger.Info("Cleanup run finished",
		zap.String("mode", stats.Mode),
		zap.String("environment", stats.Environment),
		zap.Duration("duration", stats.Duration),
		zap.Int("orphaned_prefixes", stats.OrphanedPrefixes),
		zap.Int("orphan_keys_deleted", stats.OrphanKeysDeleted),
		zap.Int("expired_deleted_videos", stats.ExpiredDeletedVideos),
		zap.Int("reaped_videos", stats.ReapedVideos),
		zap.Int("error_count", len(stats.Errors)),
	)
}
