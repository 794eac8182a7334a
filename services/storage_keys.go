package services

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"swinglab-backend/apperrors"
)

// Key layout:
//
//	tenants/{tenantID}/videos/{playerID}/{unixMillis}-{fileName}   originals
//	tenants/{tenantID}/videos/{playerID}/thumbnails/{name}.jpg     thumbnails
//	videos/{videoID}/hls/...                                       renditions
//
// The tenant prefix is the single isolation mechanism: every signed URL
// and every tenant-scoped delete goes through ValidateTenantAccess.

const hlsRenditionRoot = "videos/"

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// GenerateKey builds the storage key for a new upload. Uniqueness per
// player directory comes from the millisecond timestamp.
func GenerateKey(tenantID, playerID, fileName string) string {
	sanitized := unsafeKeyChars.ReplaceAllString(fileName, "_")
	return fmt.Sprintf("tenants/%s/videos/%s/%d-%s", tenantID, playerID, time.Now().UnixMilli(), sanitized)
}

// GenerateThumbnailKey derives the thumbnail key from a video key:
// a /thumbnails/ segment before the filename, extension forced to .jpg.
func GenerateThumbnailKey(videoKey string) string {
	dir := path.Dir(videoKey)
	base := path.Base(videoKey)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return fmt.Sprintf("%s/thumbnails/%s.jpg", dir, base)
}

// ValidateTenantAccess fails Forbidden unless key belongs to the
// tenant's namespace. A pure prefix test, independent of storage state.
func ValidateTenantAccess(key, tenantID string) error {
	if !strings.HasPrefix(key, "tenants/"+tenantID+"/") {
		return apperrors.Forbidden("storage key does not belong to tenant")
	}
	return nil
}

// HLSPrefix returns the rendition namespace for one video.
func HLSPrefix(videoID string) string {
	return hlsRenditionRoot + videoID + "/"
}

// PrefixFromManifestKey strips the manifest filename, yielding the
// prefix that covers every rendition asset of the video.
func PrefixFromManifestKey(manifestKey string) string {
	return path.Dir(manifestKey) + "/"
}
