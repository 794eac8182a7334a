package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"swinglab-backend/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	lastExpiry time.Duration
	calls      int
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error) {
	f.calls++
	f.lastExpiry = expires
	return fmt.Sprintf("https://store.example/%s?sig=get", key), nil
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, key string, expires time.Duration) (string, error) {
	f.calls++
	f.lastExpiry = expires
	return fmt.Sprintf("https://store.example/%s?sig=put", key), nil
}

func TestPlaybackURLTenantGate(t *testing.T) {
	presigner := &fakePresigner{}
	issuer := NewSignedURLIssuer(presigner)

	_, err := issuer.GetSignedPlaybackURL(context.Background(), "tenants/acme/videos/p1/a.mp4", "rival", 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	// no signing on a rejected key
	assert.Zero(t, presigner.calls)
}

func TestPlaybackURLExpiryClamping(t *testing.T) {
	presigner := &fakePresigner{}
	issuer := NewSignedURLIssuer(presigner)
	key := "tenants/acme/videos/p1/a.mp4"

	_, err := issuer.GetSignedPlaybackURL(context.Background(), key, "acme", 0)
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, presigner.lastExpiry)

	_, err = issuer.GetSignedPlaybackURL(context.Background(), key, "acme", 9999)
	require.NoError(t, err)
	assert.Equal(t, 3600*time.Second, presigner.lastExpiry)

	_, err = issuer.GetSignedPlaybackURL(context.Background(), key, "acme", 60)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, presigner.lastExpiry)
}

func TestThumbnailURLExpiryClamping(t *testing.T) {
	presigner := &fakePresigner{}
	issuer := NewSignedURLIssuer(presigner)
	key := "tenants/acme/videos/p1/thumbnails/a.jpg"

	_, err := issuer.GetSignedThumbnailURL(context.Background(), key, "acme", 0)
	require.NoError(t, err)
	assert.Equal(t, 3600*time.Second, presigner.lastExpiry)

	_, err = issuer.GetSignedThumbnailURL(context.Background(), key, "acme", 100_000)
	require.NoError(t, err)
	assert.Equal(t, 86400*time.Second, presigner.lastExpiry)
}

func TestUploadURLTenantGate(t *testing.T) {
	presigner := &fakePresigner{}
	issuer := NewSignedURLIssuer(presigner)

	url, err := issuer.GetSignedUploadURL(context.Background(), "tenants/acme/videos/p1/a.mp4", "acme", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "sig=put")

	_, err = issuer.GetSignedUploadURL(context.Background(), "tenants/other/videos/p1/a.mp4", "acme", 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}
