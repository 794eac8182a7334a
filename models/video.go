package models

import (
	"time"
)

// VideoStatus represents the lifecycle state of a video asset.
type VideoStatus string

const (
	StatusProcessing VideoStatus = "processing"
	StatusReady      VideoStatus = "ready"
	StatusFailed     VideoStatus = "failed"
	StatusDeleted    VideoStatus = "deleted"
)

// Video is the authoritative metadata row for one uploaded video.
// S3Key always lives under tenants/{tenantID}/videos/{playerID}/ and
// DeletedAt is set exactly when Status is StatusDeleted.
type Video struct {
	ID             string      `json:"id"`
	TenantID       string      `json:"tenantId"`
	PlayerID       string      `json:"playerId"`
	S3Key          string      `json:"s3Key"`
	ThumbnailKey   string      `json:"thumbnailKey,omitempty"`
	HLSManifestKey string      `json:"hlsManifestKey,omitempty"`
	UploadID       string      `json:"-"`
	Status         VideoStatus `json:"status"`
	FileSize       int64       `json:"fileSize"`
	MimeType       string      `json:"mimeType"`
	Duration       float64     `json:"duration,omitempty"`
	Width          int         `json:"width,omitempty"`
	Height         int         `json:"height,omitempty"`
	FPS            float64     `json:"fps,omitempty"`
	ErrorCode      string      `json:"errorCode,omitempty"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`
	DeletedAt      *time.Time  `json:"deletedAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	ProcessedAt    *time.Time  `json:"processedAt,omitempty"`
}

// Player is a coached athlete inside a tenant. Videos hang off players,
// and the ownership check at upload time goes through this row.
type Player struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CompletedPart is one {ETag, PartNumber} pair reported by the client
// after uploading a part directly to the object store.
type CompletedPart struct {
	ETag       string `json:"eTag"`
	PartNumber int32  `json:"partNumber"`
}

// VideoMetadata carries the client-reported media properties persisted
// when an upload completes.
type VideoMetadata struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
}

// InitiateUploadResult is returned by the upload coordinator: everything
// the client needs to push parts straight to the object store.
type InitiateUploadResult struct {
	VideoID    string   `json:"videoId"`
	UploadID   string   `json:"uploadId"`
	Key        string   `json:"key"`
	SignedURLs []string `json:"signedUrls"`
}
