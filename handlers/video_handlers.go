package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"swinglab-backend/apperrors"
	"swinglab-backend/models"
	"swinglab-backend/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// InitiateUploadRequest is the request body for starting a video upload.
type InitiateUploadRequest struct {
	PlayerID string `json:"playerId"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// CompleteUploadRequest is the request body for finalizing an upload.
type CompleteUploadRequest struct {
	UploadID string                 `json:"uploadId"`
	Parts    []models.CompletedPart `json:"parts"`
	Metadata models.VideoMetadata   `json:"metadata"`
}

// VideoStore is the slice of the metadata store the handlers read and
// mutate directly. *database.DB satisfies it.
type VideoStore interface {
	GetVideoByID(ctx context.Context, tenantID, videoID string) (*models.Video, error)
	GetVideosByPlayer(ctx context.Context, tenantID, playerID string) ([]*models.Video, error)
	SoftDeleteVideo(ctx context.Context, tenantID, videoID string) (bool, error)
	DeleteVideoRow(ctx context.Context, videoID string) error
}

// AssetStore is the slice of the object store the hard-delete path uses.
// *services.ObjectStore satisfies it.
type AssetStore interface {
	DeleteObject(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// VideoHandler contains dependencies for the video API endpoints.
type VideoHandler struct {
	db          VideoStore
	coordinator *services.UploadCoordinator
	issuer      *services.SignedURLIssuer
	store       AssetStore
	logger      *zap.Logger
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(db VideoStore, coordinator *services.UploadCoordinator, issuer *services.SignedURLIssuer, store AssetStore, logger *zap.Logger) *VideoHandler {
	return &VideoHandler{
		db:          db,
		coordinator: coordinator,
		issuer:      issuer,
		store:       store,
		logger:      logger,
	}
}

// SetupVideoRoutes registers the video API endpoints.
func SetupVideoRoutes(router *mux.Router, h *VideoHandler) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/videos/upload/initiate", h.InitiateUploadHandler()).Methods("POST")
	api.HandleFunc("/videos/{videoID}/upload/complete", h.CompleteUploadHandler()).Methods("POST")
	api.HandleFunc("/videos/{videoID}/upload/abort", h.AbortUploadHandler()).Methods("POST")
	api.HandleFunc("/videos/{videoID}/playback-url", h.PlaybackURLHandler()).Methods("GET")
	api.HandleFunc("/videos/{videoID}/thumbnail-url", h.ThumbnailURLHandler()).Methods("GET")
	api.HandleFunc("/videos/{videoID}", h.DeleteVideoHandler()).Methods("DELETE")
	api.HandleFunc("/videos", h.ListVideosHandler()).Methods("GET")
}

// tenantID pulls the tenant set by the upstream auth layer. The header
// is this service's boundary contract with that layer.
func tenantID(r *http.Request) (string, error) {
	tenant := r.Header.Get("X-Tenant-ID")
	if tenant == "" {
		return "", apperrors.Forbidden("missing tenant context")
	}
	return tenant, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// InitiateUploadHandler opens a multipart upload session.
func (h *VideoHandler) InitiateUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantID(r)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}

		var req InitiateUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteError(w, apperrors.BadRequest("invalid request body"))
			return
		}
		if req.PlayerID == "" || req.FileName == "" || req.FileSize <= 0 {
			apperrors.WriteError(w, apperrors.BadRequest("playerId, fileName and fileSize are required"))
			return
		}

		result, err := h.coordinator.InitiateUpload(r.Context(), tenant, req.PlayerID, req.FileName, req.MimeType, req.FileSize)
		if err != nil {
			h.logger.Warn("Upload initiation rejected", zap.String("tenant_id", tenant), zap.Error(err))
			apperrors.WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

// CompleteUploadHandler finalizes a multipart upload session.
func (h *VideoHandler) CompleteUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantID(r)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}
		videoID := mux.Vars(r)["videoID"]

		var req CompleteUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteError(w, apperrors.BadRequest("invalid request body"))
			return
		}
		if req.UploadID == "" || len(req.Parts) == 0 {
			apperrors.WriteError(w, apperrors.BadRequest("uploadId and parts are required"))
			return
		}

		video, err := h.coordinator.CompleteUpload(r.Context(), tenant, videoID, req.UploadID, req.Parts, req.Metadata)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, video)
	}
}

// AbortUploadHandler cancels an upload the user gave up on: the store
// session is aborted and the processing row removed.
func (h *VideoHandler) AbortUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantID(r)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}
		videoID := mux.Vars(r)["videoID"]

		video, err := h.db.GetVideoByID(r.Context(), tenant, videoID)
		if err != nil {
			apperrors.WriteError(w, apperrors.NotFound("video not found"))
			return
		}
		if video.Status != models.StatusProcessing {
			apperrors.WriteError(w, apperrors.BadRequest("video is not uploading"))
			return
		}

		_ = h.coordinator.AbortUpload(r.Context(), video.S3Key, video.UploadID)
		if err := h.db.DeleteVideoRow(r.Context(), videoID); err != nil {
			apperrors.WriteError(w, apperrors.Internal("failed to remove video record", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// PlaybackURLHandler returns a short-lived signed GET URL for the video.
func (h *VideoHandler) PlaybackURLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantID(r)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}
		videoID := mux.Vars(r)["videoID"]
		expiresIn, _ := strconv.Atoi(r.URL.Query().Get("expiresIn"))

		video, err := h.db.GetVideoByID(r.Context(), tenant, videoID)
		if err != nil {
			apperrors.WriteError(w, apperrors.NotFound("video not found"))
			return
		}

		url, err := h.issuer.GetSignedPlaybackURL(r.Context(), video.S3Key, tenant, expiresIn)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

// ThumbnailURLHandler returns a signed GET URL for the video thumbnail.
func (h *VideoHandler) ThumbnailURLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantID(r)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}
		videoID := mux.Vars(r)["videoID"]
		expiresIn, _ := strconv.Atoi(r.URL.Query().Get("expiresIn"))

		video, err := h.db.GetVideoByID(r.Context(), tenant, videoID)
		if err != nil {
			apperrors.WriteError(w, apperrors.NotFound("video not found"))
			return
		}
		if video.ThumbnailKey == "" {
			apperrors.WriteError(w, apperrors.NotFound("video has no thumbnail"))
			return
		}

		url, err := h.issuer.GetSignedThumbnailURL(r.Context(), video.ThumbnailKey, tenant, expiresIn)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

// DeleteVideoHandler soft-deletes a video; ?hard=true removes the assets
// and the row immediately instead of waiting out the retention window.
func (h *VideoHandler) DeleteVideoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantID(r)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}
		videoID := mux.Vars(r)["videoID"]
		hard := r.URL.Query().Get("hard") == "true"

		video, err := h.db.GetVideoByID(r.Context(), tenant, videoID)
		if err != nil {
			apperrors.WriteError(w, apperrors.NotFound("video not found"))
			return
		}

		if !hard {
			ok, err := h.db.SoftDeleteVideo(r.Context(), tenant, videoID)
			if err != nil {
				apperrors.WriteError(w, apperrors.Internal("failed to delete video", err))
				return
			}
			if !ok {
				apperrors.WriteError(w, apperrors.BadRequest("video cannot be deleted in its current state"))
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "hard": false})
			return
		}

		// Hard delete: assets first, row last, tenant-checked per key.
		if err := services.ValidateTenantAccess(video.S3Key, tenant); err != nil {
			apperrors.WriteError(w, err)
			return
		}
		if err := h.store.DeleteObject(r.Context(), video.S3Key); err != nil {
			apperrors.WriteError(w, apperrors.Internal("failed to delete video asset", err))
			return
		}
		if video.ThumbnailKey != "" {
			if err := h.store.DeleteObject(r.Context(), video.ThumbnailKey); err != nil {
				h.logger.Warn("Failed to delete thumbnail",
					zap.String("video_id", videoID), zap.Error(err))
			}
		}
		if video.HLSManifestKey != "" {
			if _, err := h.store.DeletePrefix(r.Context(), services.PrefixFromManifestKey(video.HLSManifestKey)); err != nil {
				h.logger.Warn("Failed to delete HLS renditions",
					zap.String("video_id", videoID), zap.Error(err))
			}
		}
		if err := h.db.DeleteVideoRow(r.Context(), videoID); err != nil {
			apperrors.WriteError(w, apperrors.Internal("failed to remove video record", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true, "hard": true})
	}
}

// ListVideosHandler returns the non-deleted videos of one player.
func (h *VideoHandler) ListVideosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantID(r)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}
		playerID := r.URL.Query().Get("playerId")
		if playerID == "" {
			apperrors.WriteError(w, apperrors.BadRequest("playerId query parameter is required"))
			return
		}

		videos, err := h.db.GetVideosByPlayer(r.Context(), tenant, playerID)
		if err != nil {
			apperrors.WriteError(w, apperrors.Internal("failed to list videos", err))
			return
		}
		if videos == nil {
			videos = []*models.Video{}
		}

		writeJSON(w, http.StatusOK, videos)
	}
}
