package services

import (
	"context"
	"fmt"
	"time"

	"swinglab-backend/models"

	"go.uber.org/zap"
)

const (
	// DefaultRetentionDays is the grace period after a soft delete.
	DefaultRetentionDays = 30
	// ReapBatchSize caps how many expired videos one run touches.
	ReapBatchSize = 100
)

// AssetDeleter is the slice of the object store the reaper needs.
type AssetDeleter interface {
	DeleteObject(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// ReaperVideoStore is the slice of the metadata store the reaper needs.
type ReaperVideoStore interface {
	FindExpiredDeletedVideos(ctx context.Context, cutoff time.Time, limit int) ([]*models.Video, error)
	DeleteVideoRow(ctx context.Context, videoID string) error
}

// RetentionReaper hard-deletes soft-deleted videos once their retention
// window has passed: assets first, row last.
type RetentionReaper struct {
	store  AssetDeleter
	videos ReaperVideoStore
	dryRun bool
	logger *zap.Logger
}

func NewRetentionReaper(store AssetDeleter, videos ReaperVideoStore, dryRun bool, logger *zap.Logger) *RetentionReaper {
	return &RetentionReaper{
		store:  store,
		videos: videos,
		dryRun: dryRun,
		logger: logger,
	}
}

// RetentionCutoff returns the deleted_at threshold for a retention
// window ending at now.
func RetentionCutoff(now time.Time, retentionDays int) time.Time {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
}

// FindExpiredDeletedVideos returns the next batch of reap candidates.
func (r *RetentionReaper) FindExpiredDeletedVideos(ctx context.Context, retentionDays int) ([]*models.Video, error) {
	cutoff := RetentionCutoff(time.Now(), retentionDays)
	return r.videos.FindExpiredDeletedVideos(ctx, cutoff, ReapBatchSize)
}

// CleanupExpiredVideos removes each video's assets and then its row. A
// failure on one video's assets is logged and recorded, the row is kept
// so no live asset is ever orphaned, and the loop moves on.
// Returns the number of rows removed and the accumulated errors.
func (r *RetentionReaper) CleanupExpiredVideos(ctx context.Context, videos []*models.Video) (int, []string) {
	removed := 0
	var errs []string

	for _, video := range videos {
		if err := r.deleteAssets(ctx, video); err != nil {
			r.logger.Error("Failed to delete video assets, keeping row",
				zap.String("video_id", video.ID), zap.Error(err))
			errs = append(errs, fmt.Sprintf("video %s: %v", video.ID, err))
			continue
		}

		if r.dryRun {
			r.logger.Info("Dry run: would delete video row", zap.String("video_id", video.ID))
			removed++
			continue
		}

		if err := r.videos.DeleteVideoRow(ctx, video.ID); err != nil {
			r.logger.Error("Failed to delete video row",
				zap.String("video_id", video.ID), zap.Error(err))
			errs = append(errs, fmt.Sprintf("video %s row: %v", video.ID, err))
			continue
		}
		removed++

		r.logger.Info("Reaped expired video",
			zap.String("video_id", video.ID),
			zap.String("key", video.S3Key),
			zap.Timep("deleted_at", video.DeletedAt),
		)
	}

	return removed, errs
}

// deleteAssets removes the primary object, the thumbnail when present,
// and the whole HLS rendition prefix.
func (r *RetentionReaper) deleteAssets(ctx context.Context, video *models.Video) error {
	if r.dryRun {
		r.logger.Info("Dry run: would delete video assets",
			zap.String("video_id", video.ID), zap.String("key", video.S3Key))
		return nil
	}

	if err := r.store.DeleteObject(ctx, video.S3Key); err != nil {
		return err
	}
	if video.ThumbnailKey != "" {
		if err := r.store.DeleteObject(ctx, video.ThumbnailKey); err != nil {
			return err
		}
	}
	if video.HLSManifestKey != "" {
		if _, err := r.store.DeletePrefix(ctx, PrefixFromManifestKey(video.HLSManifestKey)); err != nil {
			return err
		}
	}
	return nil
}
