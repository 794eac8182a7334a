package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swinglab-backend/models"
	"swinglab-backend/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct{}

func (fakeStore) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	return "upload-1", nil
}

func (fakeStore) PresignUploadParts(ctx context.Context, key, uploadID string, partCount int, expires time.Duration) ([]string, error) {
	urls := make([]string, partCount)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://store.example/%s?part=%d", key, i+1)
	}
	return urls, nil
}

func (fakeStore) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []models.CompletedPart) error {
	return nil
}

func (fakeStore) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	return nil
}

func (fakeStore) DeleteObject(ctx context.Context, key string) error { return nil }

func (fakeStore) DeletePrefix(ctx context.Context, prefix string) (int, error) { return 0, nil }

func (fakeStore) PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://store.example/" + key + "?sig=get", nil
}

func (fakeStore) PresignPutObject(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://store.example/" + key + "?sig=put", nil
}

type fakeDB struct {
	videos map[string]*models.Video
}

func (f *fakeDB) PlayerBelongsToTenant(ctx context.Context, tenantID, playerID string) (bool, error) {
	return playerID == "p1" && tenantID == "acme", nil
}

func (f *fakeDB) CreatePlayer(ctx context.Context, player *models.Player) error {
	player.ID = "player-1"
	return nil
}

func (f *fakeDB) CreateVideo(ctx context.Context, video *models.Video) error {
	video.ID = "video-1"
	f.videos[video.ID] = video
	return nil
}

func (f *fakeDB) GetVideoByID(ctx context.Context, tenantID, videoID string) (*models.Video, error) {
	video, ok := f.videos[videoID]
	if !ok || video.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return video, nil
}

func (f *fakeDB) GetVideosByPlayer(ctx context.Context, tenantID, playerID string) ([]*models.Video, error) {
	return nil, nil
}

func (f *fakeDB) MarkVideoReady(ctx context.Context, videoID string, meta models.VideoMetadata) (bool, error) {
	return true, nil
}

func (f *fakeDB) MarkVideoFailed(ctx context.Context, videoID, errorCode, errorMessage string) error {
	return nil
}

func (f *fakeDB) SoftDeleteVideo(ctx context.Context, tenantID, videoID string) (bool, error) {
	return true, nil
}

func (f *fakeDB) DeleteVideoRow(ctx context.Context, videoID string) error { return nil }

func newTestRouter() *mux.Router {
	store := fakeStore{}
	db := &fakeDB{videos: make(map[string]*models.Video)}
	log := zap.NewNop()

	handler := NewVideoHandler(db,
		services.NewUploadCoordinator(store, db, log),
		services.NewSignedURLIssuer(store),
		store, log)

	router := mux.NewRouter()
	SetupVideoRoutes(router, handler)
	SetupPlayerRoutes(router, NewPlayerHandler(db, log))
	return router
}

func postJSON(t *testing.T, router *mux.Router, path, tenant string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestInitiateUploadEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := postJSON(t, router, "/api/videos/upload/initiate", "acme", InitiateUploadRequest{
		PlayerID: "p1",
		FileName: "swing.mp4",
		MimeType: "video/mp4",
		FileSize: 12_000_000,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var result models.InitiateUploadResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "video-1", result.VideoID)
	assert.Len(t, result.SignedURLs, 3)
}

func TestInitiateUploadRequiresTenantHeader(t *testing.T) {
	router := newTestRouter()

	rec := postJSON(t, router, "/api/videos/upload/initiate", "", InitiateUploadRequest{
		PlayerID: "p1", FileName: "a.mp4", MimeType: "video/mp4", FileSize: 1000,
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInitiateUploadErrorCodeMapping(t *testing.T) {
	router := newTestRouter()

	rec := postJSON(t, router, "/api/videos/upload/initiate", "acme", InitiateUploadRequest{
		PlayerID: "p1", FileName: "a.gif", MimeType: "image/gif", FileSize: 1000,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)
}

func TestCreatePlayerEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := postJSON(t, router, "/api/players", "acme", CreatePlayerRequest{Name: "Jordan"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var player models.Player
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&player))
	assert.Equal(t, "player-1", player.ID)
	assert.Equal(t, "acme", player.TenantID)

	// tenant header is required here as everywhere else
	rec = postJSON(t, router, "/api/players", "", CreatePlayerRequest{Name: "Jordan"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postJSON(t, router, "/api/players", "acme", CreatePlayerRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaybackURLEndpoint(t *testing.T) {
	router := newTestRouter()

	// seed an upload first
	rec := postJSON(t, router, "/api/videos/upload/initiate", "acme", InitiateUploadRequest{
		PlayerID: "p1", FileName: "a.mp4", MimeType: "video/mp4", FileSize: 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/videos/video-1/playback-url", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)

	require.Equal(t, http.StatusOK, out.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(out.Body).Decode(&body))
	assert.Contains(t, body["url"], "sig=get")

	// another tenant cannot see the video at all
	req = httptest.NewRequest(http.MethodGet, "/api/videos/video-1/playback-url", nil)
	req.Header.Set("X-Tenant-ID", "rival")
	out = httptest.NewRecorder()
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusNotFound, out.Code)
}
