package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"swinglab-backend/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// DB represents the database connection
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// InitDB opens the Postgres connection and makes sure the schema exists.
func InitDB(dbConnStr string, logger *zap.Logger) (*DB, error) {
	if dbConnStr == "" {
		return nil, fmt.Errorf("database connection string is required (set DATABASE_URL)")
	}

	parsedURL, err := url.Parse(dbConnStr)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	db, err := sql.Open("postgres", dbConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("Connected to database", zap.String("host", parsedURL.Host))
	return &DB{DB: db, logger: logger}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	// Players first, videos reference them
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			s3_key TEXT NOT NULL,
			thumbnail_key TEXT,
			hls_manifest_key TEXT,
			upload_id TEXT,
			status TEXT NOT NULL,
			file_size BIGINT NOT NULL DEFAULT 0,
			mime_type TEXT,
			duration DOUBLE PRECISION,
			width INTEGER,
			height INTEGER,
			fps DOUBLE PRECISION,
			error_code TEXT,
			error_message TEXT,
			deleted_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			processed_at TIMESTAMP WITH TIME ZONE,
			FOREIGN KEY (player_id) REFERENCES players(id)
		)
	`)
	if err != nil {
		return err
	}

	// Reap queries filter on deleted_at; tenant listings filter on player
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_videos_deleted_at ON videos (deleted_at) WHERE deleted_at IS NOT NULL`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_videos_tenant_player ON videos (tenant_id, player_id)`)
	return err
}

// PlayerBelongsToTenant reports whether the player row exists under the tenant.
func (db *DB) PlayerBelongsToTenant(ctx context.Context, tenantID, playerID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM players WHERE id = $1 AND tenant_id = $2`,
		playerID, tenantID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreatePlayer stores a new player row.
func (db *DB) CreatePlayer(ctx context.Context, player *models.Player) error {
	if player.ID == "" {
		player.ID = uuid.New().String()
	}
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO players (id, tenant_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, player.ID, player.TenantID, player.Name, player.CreatedAt)
	return err
}

// CreateVideo stores a new video row.
func (db *DB) CreateVideo(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.New().String()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO videos (id, tenant_id, player_id, s3_key, thumbnail_key, hls_manifest_key,
		                    upload_id, status, file_size, mime_type, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11)
	`, video.ID, video.TenantID, video.PlayerID, video.S3Key, video.ThumbnailKey,
		video.HLSManifestKey, video.UploadID, video.Status, video.FileSize,
		video.MimeType, video.CreatedAt)

	if err != nil {
		db.logger.Error("Error saving video", zap.String("video_id", video.ID), zap.Error(err))
	}
	return err
}

const videoColumns = `id, tenant_id, player_id, s3_key, thumbnail_key, hls_manifest_key,
	upload_id, status, file_size, mime_type, duration, width, height, fps,
	error_code, error_message, deleted_at, created_at, processed_at`

func scanVideo(row interface{ Scan(...any) error }) (*models.Video, error) {
	video := &models.Video{}
	var thumbnailKey, hlsManifestKey, uploadID, mimeType, errorCode, errorMessage sql.NullString
	var duration, fps sql.NullFloat64
	var width, height sql.NullInt64
	var deletedAt, processedAt sql.NullTime

	err := row.Scan(&video.ID, &video.TenantID, &video.PlayerID, &video.S3Key,
		&thumbnailKey, &hlsManifestKey, &uploadID, &video.Status, &video.FileSize,
		&mimeType, &duration, &width, &height, &fps, &errorCode, &errorMessage,
		&deletedAt, &video.CreatedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	video.ThumbnailKey = thumbnailKey.String
	video.HLSManifestKey = hlsManifestKey.String
	video.UploadID = uploadID.String
	video.MimeType = mimeType.String
	video.Duration = duration.Float64
	video.Width = int(width.Int64)
	video.Height = int(height.Int64)
	video.FPS = fps.Float64
	video.ErrorCode = errorCode.String
	video.ErrorMessage = errorMessage.String
	if deletedAt.Valid {
		t := deletedAt.Time
		video.DeletedAt = &t
	}
	if processedAt.Valid {
		t := processedAt.Time
		video.ProcessedAt = &t
	}
	return video, nil
}

// GetVideoByID retrieves one video scoped by tenant. Returns
// sql.ErrNoRows when the row is missing or belongs to another tenant.
func (db *DB) GetVideoByID(ctx context.Context, tenantID, videoID string) (*models.Video, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE id = $1 AND tenant_id = $2`,
		videoID, tenantID)
	return scanVideo(row)
}

// GetVideosByPlayer retrieves all non-deleted videos for a player, newest first.
func (db *DB) GetVideosByPlayer(ctx context.Context, tenantID, playerID string) ([]*models.Video, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos
		 WHERE tenant_id = $1 AND player_id = $2 AND deleted_at IS NULL
		 ORDER BY created_at DESC`,
		tenantID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// VideoExists reports whether any video row has the given id, in any
// tenant and any status. Used by the orphan scanner, which works on
// store-wide rendition keys.
func (db *DB) VideoExists(ctx context.Context, videoID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos WHERE id = $1`, videoID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkVideoReady flips a processing video to ready and persists the
// client-reported media properties. The WHERE clause on status makes
// completion at-most-once: the second of two racing completions sees
// zero affected rows.
func (db *DB) MarkVideoReady(ctx context.Context, videoID string, meta models.VideoMetadata) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE videos
		SET status = $1, duration = $2, width = $3, height = $4, fps = $5,
		    processed_at = $6, upload_id = NULL
		WHERE id = $7 AND status = $8
	`, models.StatusReady, meta.Duration, meta.Width, meta.Height, meta.FPS,
		time.Now(), videoID, models.StatusProcessing)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkVideoFailed records the completion failure on a still-processing
// row. The status guard keeps a raced late failure from clobbering a
// video another caller already marked ready.
func (db *DB) MarkVideoFailed(ctx context.Context, videoID, errorCode, errorMessage string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE videos
		SET status = $1, error_code = $2, error_message = $3
		WHERE id = $4 AND status = $5
	`, models.StatusFailed, errorCode, errorMessage, videoID, models.StatusProcessing)
	return err
}

// SoftDeleteVideo marks a ready or failed video deleted, starting the
// retention clock. Returns false when the row was not in a deletable state.
func (db *DB) SoftDeleteVideo(ctx context.Context, tenantID, videoID string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE videos
		SET status = $1, deleted_at = $2
		WHERE id = $3 AND tenant_id = $4 AND status IN ($5, $6)
	`, models.StatusDeleted, time.Now(), videoID, tenantID, models.StatusReady, models.StatusFailed)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeleteVideoRow removes the metadata row permanently.
func (db *DB) DeleteVideoRow(ctx context.Context, videoID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, videoID)
	return err
}

// FindExpiredDeletedVideos returns soft-deleted videos whose deleted_at
// is before cutoff, oldest first, capped at limit per run.
func (db *DB) FindExpiredDeletedVideos(ctx context.Context, cutoff time.Time, limit int) ([]*models.Video, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos
		 WHERE deleted_at IS NOT NULL AND deleted_at < $1
		 ORDER BY deleted_at ASC
		 LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}
