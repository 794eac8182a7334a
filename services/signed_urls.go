package services

import (
	"context"
	"time"

	"swinglab-backend/apperrors"
)

// Presigner is the slice of the object store the URL issuer needs.
type Presigner interface {
	PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignPutObject(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Expiry defaults and caller-facing caps, in seconds.
const (
	PlaybackURLDefaultExpiry  = 300
	PlaybackURLMaxExpiry      = 3600
	UploadURLDefaultExpiry    = 3600
	UploadURLMaxExpiry        = 3600
	ThumbnailURLDefaultExpiry = 3600
	ThumbnailURLMaxExpiry     = 86400
)

// SignedURLIssuer mints method-scoped presigned URLs. Stateless: tenant
// validation is a prefix check and signing is local.
type SignedURLIssuer struct {
	presigner Presigner
}

func NewSignedURLIssuer(presigner Presigner) *SignedURLIssuer {
	return &SignedURLIssuer{presigner: presigner}
}

func clampExpiry(expiresIn, def, max int) time.Duration {
	if expiresIn <= 0 {
		expiresIn = def
	}
	if expiresIn > max {
		expiresIn = max
	}
	return time.Duration(expiresIn) * time.Second
}

// GetSignedPlaybackURL returns a GET URL for the tenant's own key.
func (i *SignedURLIssuer) GetSignedPlaybackURL(ctx context.Context, key, tenantID string, expiresIn int) (string, error) {
	if err := ValidateTenantAccess(key, tenantID); err != nil {
		return "", err
	}
	url, err := i.presigner.PresignGetObject(ctx, key, clampExpiry(expiresIn, PlaybackURLDefaultExpiry, PlaybackURLMaxExpiry))
	if err != nil {
		return "", apperrors.Internal("failed to sign playback URL", err)
	}
	return url, nil
}

// GetSignedUploadURL returns a PUT URL for the tenant's own key.
func (i *SignedURLIssuer) GetSignedUploadURL(ctx context.Context, key, tenantID string, expiresIn int) (string, error) {
	if err := ValidateTenantAccess(key, tenantID); err != nil {
		return "", err
	}
	url, err := i.presigner.PresignPutObject(ctx, key, clampExpiry(expiresIn, UploadURLDefaultExpiry, UploadURLMaxExpiry))
	if err != nil {
		return "", apperrors.Internal("failed to sign upload URL", err)
	}
	return url, nil
}

// GetSignedThumbnailURL returns a GET URL with the longer thumbnail caps.
func (i *SignedURLIssuer) GetSignedThumbnailURL(ctx context.Context, key, tenantID string, expiresIn int) (string, error) {
	if err := ValidateTenantAccess(key, tenantID); err != nil {
		return "", err
	}
	url, err := i.presigner.PresignGetObject(ctx, key, clampExpiry(expiresIn, ThumbnailURLDefaultExpiry, ThumbnailURLMaxExpiry))
	if err != nil {
		return "", apperrors.Internal("failed to sign thumbnail URL", err)
	}
	return url, nil
}
