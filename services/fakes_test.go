package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"swinglab-backend/models"
)

// fakeMultipartStore records multipart calls and lets tests inject
// failures per operation.
type fakeMultipartStore struct {
	createCalls   int
	presignCalls  int
	completeCalls int
	abortCalls    int

	completeErr error
	createErr   error
}

func (f *fakeMultipartStore) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "upload-1", nil
}

func (f *fakeMultipartStore) PresignUploadParts(ctx context.Context, key, uploadID string, partCount int, expires time.Duration) ([]string, error) {
	f.presignCalls++
	urls := make([]string, partCount)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://store.example/%s?partNumber=%d", key, i+1)
	}
	return urls, nil
}

func (f *fakeMultipartStore) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []models.CompletedPart) error {
	f.completeCalls++
	return f.completeErr
}

func (f *fakeMultipartStore) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	f.abortCalls++
	return nil
}

// fakeVideoStore is an in-memory UploadVideoStore with the same
// conditional-update semantics as the SQL implementation.
type fakeVideoStore struct {
	players map[string]string // playerID -> tenantID
	videos  map[string]*models.Video
	nextID  int
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{
		players: make(map[string]string),
		videos:  make(map[string]*models.Video),
	}
}

func (f *fakeVideoStore) PlayerBelongsToTenant(ctx context.Context, tenantID, playerID string) (bool, error) {
	return f.players[playerID] == tenantID, nil
}

func (f *fakeVideoStore) CreateVideo(ctx context.Context, video *models.Video) error {
	f.nextID++
	video.ID = fmt.Sprintf("video-%d", f.nextID)
	video.CreatedAt = time.Now()
	copied := *video
	f.videos[video.ID] = &copied
	return nil
}

func (f *fakeVideoStore) GetVideoByID(ctx context.Context, tenantID, videoID string) (*models.Video, error) {
	video, ok := f.videos[videoID]
	if !ok || video.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	copied := *video
	return &copied, nil
}

func (f *fakeVideoStore) MarkVideoReady(ctx context.Context, videoID string, meta models.VideoMetadata) (bool, error) {
	video, ok := f.videos[videoID]
	if !ok || video.Status != models.StatusProcessing {
		return false, nil
	}
	now := time.Now()
	video.Status = models.StatusReady
	video.Duration = meta.Duration
	video.Width = meta.Width
	video.Height = meta.Height
	video.FPS = meta.FPS
	video.ProcessedAt = &now
	return true, nil
}

func (f *fakeVideoStore) MarkVideoFailed(ctx context.Context, videoID, errorCode, errorMessage string) error {
	if video, ok := f.videos[videoID]; ok && video.Status == models.StatusProcessing {
		video.Status = models.StatusFailed
		video.ErrorCode = errorCode
		video.ErrorMessage = errorMessage
	}
	return nil
}

// fakeCleanupStore backs the scanner, reaper and runner tests: a flat
// key set plus call recording.
type fakeCleanupStore struct {
	keys []string

	listErr        error
	deleteObjErr   map[string]error
	deletedObjects []string
	deletedPrefix  []string
}

func (f *fakeCleanupStore) ListKeys(ctx context.Context, prefix string, maxKeys int32) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []string
	for _, k := range f.keys {
		if int32(len(out)) >= maxKeys {
			break
		}
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeCleanupStore) DeleteObject(ctx context.Context, key string) error {
	if err := f.deleteObjErr[key]; err != nil {
		return err
	}
	f.deletedObjects = append(f.deletedObjects, key)
	return nil
}

func (f *fakeCleanupStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	f.deletedPrefix = append(f.deletedPrefix, prefix)
	count := 0
	for _, k := range f.keys {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			count++
		}
	}
	return count, nil
}

// fakeCleanupVideos is the metadata side of the cleanup tests.
type fakeCleanupVideos struct {
	existing map[string]bool
	expired  []*models.Video

	deletedRows []string
	findErr     error
}

func (f *fakeCleanupVideos) VideoExists(ctx context.Context, videoID string) (bool, error) {
	return f.existing[videoID], nil
}

func (f *fakeCleanupVideos) FindExpiredDeletedVideos(ctx context.Context, cutoff time.Time, limit int) ([]*models.Video, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []*models.Video
	for _, v := range f.expired {
		if v.DeletedAt != nil && v.DeletedAt.Before(cutoff) && len(out) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeCleanupVideos) DeleteVideoRow(ctx context.Context, videoID string) error {
	f.deletedRows = append(f.deletedRows, videoID)
	return nil
}
