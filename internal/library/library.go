package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/alttext/internal/models"
)

// Source lists the images in the media library
type Source interface {
	ListImages(ctx context.Context) ([]models.ImageRecord, error)
	GetImage(ctx context.Context, id string) (*models.ImageRecord, error)
}

// Store is a Source that can also persist changes
type Store interface {
	Source
	SaveImage(ctx context.Context, img models.ImageRecord) error
	SetAltText(ctx context.Context, id, altText string) error
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// IsImage reports whether a MIME type is one the scans consider.
// Records without a MIME type are assumed to be images.
func IsImage(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "" || imageTypes[mimeType]
}

// ScanAll returns every image in the library in source order
func ScanAll(ctx context.Context, src Source) ([]models.ImageRecord, error) {
	records, err := src.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	images := make([]models.ImageRecord, 0, len(records))
	for _, r := range records {
		if IsImage(r.MimeType) {
			images = append(images, r)
		}
	}
	return images, nil
}

// ScanMissing counts images with and without ALT text and returns the
// ones without, in source order.
func ScanMissing(ctx context.Context, src Source) (*models.ScanResult, error) {
	all, err := ScanAll(ctx, src)
	if err != nil {
		return nil, err
	}

	result := &models.ScanResult{
		Total:  len(all),
		Images: []models.ImageRecord{},
	}
	for _, img := range all {
		if img.HasAltText() {
			result.WithAlt++
			continue
		}
		result.WithoutAlt++
		result.Images = append(result.Images, img)
	}

	slog.Debug("Scan complete", "total", result.Total, "with_alt", result.WithAlt, "without_alt", result.WithoutAlt)
	return result, nil
}

// IDs returns the ids of images in order
func IDs(images []models.ImageRecord) []string {
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}
