package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"swinglab-backend/apperrors"
	"swinglab-backend/models"

	"go.uber.org/zap"
)

const (
	// PartSize is the fixed multipart chunk size (5 MiB, the S3 minimum).
	PartSize = 5 * 1024 * 1024
	// MaxParts is the S3 multipart part-count ceiling.
	MaxParts = 10000
	// PartURLExpiry bounds how long the client has to push each part.
	PartURLExpiry = time.Hour
)

// allowedMimeTypes is the explicit allow-list of video containers
// accepted at upload initiation.
var allowedMimeTypes = map[string]bool{
	"video/mp4":        true,
	"video/quicktime":  true,
	"video/webm":       true,
	"video/x-matroska": true,
	"video/x-msvideo":  true,
}

// MultipartStore is the slice of the object store the coordinator needs.
type MultipartStore interface {
	CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error)
	PresignUploadParts(ctx context.Context, key, uploadID string, partCount int, expires time.Duration) ([]string, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []models.CompletedPart) error
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

// UploadVideoStore is the slice of the metadata store the coordinator needs.
type UploadVideoStore interface {
	PlayerBelongsToTenant(ctx context.Context, tenantID, playerID string) (bool, error)
	CreateVideo(ctx context.Context, video *models.Video) error
	GetVideoByID(ctx context.Context, tenantID, videoID string) (*models.Video, error)
	MarkVideoReady(ctx context.Context, videoID string, meta models.VideoMetadata) (bool, error)
	MarkVideoFailed(ctx context.Context, videoID, errorCode, errorMessage string) error
}

// UploadCoordinator brackets multipart upload sessions. It stays off the
// data path: parts flow from the client straight to the object store and
// the store itself validates part coverage at completion.
type UploadCoordinator struct {
	store  MultipartStore
	videos UploadVideoStore
	logger *zap.Logger
}

func NewUploadCoordinator(store MultipartStore, videos UploadVideoStore, logger *zap.Logger) *UploadCoordinator {
	return &UploadCoordinator{
		store:  store,
		videos: videos,
		logger: logger,
	}
}

// PartCount returns ceil(fileSize / PartSize), at least 1. Divide
// before rounding; adding PartSize-1 first would wrap for sizes near
// the int64 ceiling.
func PartCount(fileSize int64) int {
	if fileSize <= 0 {
		return 1
	}
	count := fileSize / PartSize
	if fileSize%PartSize != 0 {
		count++
	}
	return int(count)
}

// InitiateUpload opens a multipart session, creates the processing Video
// row and returns the per-part signed URLs.
func (c *UploadCoordinator) InitiateUpload(ctx context.Context, tenantID, playerID, fileName, mimeType string, fileSize int64) (*models.InitiateUploadResult, error) {
	owned, err := c.videos.PlayerBelongsToTenant(ctx, tenantID, playerID)
	if err != nil {
		return nil, apperrors.Internal("failed to verify player", err)
	}
	if !owned {
		return nil, apperrors.NotFound("player not found")
	}

	if !allowedMimeTypes[mimeType] {
		return nil, apperrors.BadRequest(fmt.Sprintf("unsupported mime type %q", mimeType))
	}

	partCount := PartCount(fileSize)
	if partCount > MaxParts {
		return nil, apperrors.BadRequest(fmt.Sprintf("file too large: %d parts exceeds the %d part limit", partCount, MaxParts))
	}

	key := GenerateKey(tenantID, playerID, fileName)

	uploadID, err := c.store.CreateMultipartUpload(ctx, key, mimeType)
	if err != nil {
		return nil, apperrors.Internal("failed to open multipart upload", err)
	}

	signedURLs, err := c.store.PresignUploadParts(ctx, key, uploadID, partCount, PartURLExpiry)
	if err != nil {
		_ = c.store.AbortMultipartUpload(ctx, key, uploadID)
		return nil, apperrors.Internal("failed to sign part URLs", err)
	}

	video := &models.Video{
		TenantID: tenantID,
		PlayerID: playerID,
		S3Key:    key,
		UploadID: uploadID,
		Status:   models.StatusProcessing,
		FileSize: fileSize,
		MimeType: mimeType,
	}
	if err := c.videos.CreateVideo(ctx, video); err != nil {
		_ = c.store.AbortMultipartUpload(ctx, key, uploadID)
		return nil, apperrors.Internal("failed to create video record", err)
	}

	c.logger.Info("Initiated multipart upload",
		zap.String("video_id", video.ID),
		zap.String("tenant_id", tenantID),
		zap.String("player_id", playerID),
		zap.String("key", key),
		zap.Int("part_count", partCount),
		zap.Int64("file_size", fileSize),
	)

	return &models.InitiateUploadResult{
		VideoID:    video.ID,
		UploadID:   uploadID,
		Key:        key,
		SignedURLs: signedURLs,
	}, nil
}

// CompleteUpload finalizes a multipart session. The processing-only
// guard plus the conditional ready update make completion at-most-once:
// two racing callers get exactly one success.
func (c *UploadCoordinator) CompleteUpload(ctx context.Context, tenantID, videoID, uploadID string, parts []models.CompletedPart, meta models.VideoMetadata) (*models.Video, error) {
	video, err := c.videos.GetVideoByID(ctx, tenantID, videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("video not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load video", err)
	}

	if video.Status != models.StatusProcessing {
		return nil, apperrors.BadRequest(fmt.Sprintf("video is %s, not awaiting completion", video.Status))
	}

	if err := c.store.CompleteMultipartUpload(ctx, video.S3Key, uploadID, parts); err != nil {
		if dbErr := c.videos.MarkVideoFailed(ctx, videoID, "UPLOAD_COMPLETION_FAILED", err.Error()); dbErr != nil {
			c.logger.Error("Failed to record completion failure",
				zap.String("video_id", videoID), zap.Error(dbErr))
		}
		// No automatic retry; the caller decides.
		return nil, apperrors.Internal("object store rejected upload completion", err)
	}

	won, err := c.videos.MarkVideoReady(ctx, videoID, meta)
	if err != nil {
		return nil, apperrors.Internal("failed to mark video ready", err)
	}
	if !won {
		return nil, apperrors.BadRequest("video was completed concurrently")
	}

	c.logger.Info("Completed multipart upload",
		zap.String("video_id", videoID),
		zap.String("key", video.S3Key),
		zap.Int("parts", len(parts)),
	)

	return c.videos.GetVideoByID(ctx, tenantID, videoID)
}

// AbortUpload cancels the object-store session. Best effort; it does not
// touch the Video row, callers pair it with a row delete when the user
// cancels an upload.
func (c *UploadCoordinator) AbortUpload(ctx context.Context, key, uploadID string) error {
	if err := c.store.AbortMultipartUpload(ctx, key, uploadID); err != nil {
		c.logger.Warn("Failed to abort multipart upload",
			zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}
