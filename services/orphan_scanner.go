package services

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// DefaultScanLimit bounds how many rendition keys one scan inspects.
// This is a deliberate scaling cap, not full reconciliation.
const DefaultScanLimit = 10000

var hlsKeyPattern = regexp.MustCompile(`^videos/([^/]+)/hls/`)

// RenditionLister is the slice of the object store the scanner needs.
type RenditionLister interface {
	ListKeys(ctx context.Context, prefix string, maxKeys int32) ([]string, error)
}

// ScannerVideoStore is the metadata lookup the scanner diffs against.
type ScannerVideoStore interface {
	VideoExists(ctx context.Context, videoID string) (bool, error)
}

// OrphanScanner finds rendition prefixes whose video row is gone.
// It returns whole prefixes so the caller can issue one batch
// prefix-delete per orphan instead of a delete per key.
type OrphanScanner struct {
	lister    RenditionLister
	videos    ScannerVideoStore
	scanLimit int32
	logger    *zap.Logger
}

func NewOrphanScanner(lister RenditionLister, videos ScannerVideoStore, scanLimit int32, logger *zap.Logger) *OrphanScanner {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &OrphanScanner{
		lister:    lister,
		videos:    videos,
		scanLimit: scanLimit,
		logger:    logger,
	}
}

// Scan lists the HLS rendition namespace, extracts video IDs from keys
// shaped videos/{id}/hls/..., and returns videos/{id}/ for every ID with
// no metadata row. Keys outside that shape are ignored by this pass.
func (s *OrphanScanner) Scan(ctx context.Context) ([]string, error) {
	keys, err := s.lister.ListKeys(ctx, hlsRenditionRoot, s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("orphan scan listing failed: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, key := range keys {
		m := hlsKeyPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		if !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	}

	var orphaned []string
	for _, id := range ids {
		exists, err := s.videos.VideoExists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("orphan scan metadata check failed for %s: %w", id, err)
		}
		if !exists {
			orphaned = append(orphaned, HLSPrefix(id))
		}
	}

	s.logger.Info("Orphan scan finished",
		zap.Int("keys_listed", len(keys)),
		zap.Int("videos_seen", len(ids)),
		zap.Int("orphaned_prefixes", len(orphaned)),
	)

	return orphaned, nil
}
