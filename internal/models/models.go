package models

import "time"

// ImageRecord represents a managed image in the media library
type ImageRecord struct {
	ID           string    `json:"id" parquet:"id"`
	Title        string    `json:"title" parquet:"title"`
	URL          string    `json:"url" parquet:"url"`
	ThumbnailURL string    `json:"thumbnail" parquet:"thumbnail_url"`
	AltText      string    `json:"alt_text" parquet:"alt_text"`
	MimeType     string    `json:"mime_type,omitempty" parquet:"mime_type"`
	UpdatedAt    time.Time `json:"updated_at,omitempty" parquet:"updated_at"`
}

// HasAltText reports whether the image already carries ALT text
func (r ImageRecord) HasAltText() bool {
	return r.AltText != ""
}

// ScanResult is the outcome of a scan for images missing ALT text
type ScanResult struct {
	Total      int           `json:"total"`
	WithAlt    int           `json:"with_alt"`
	WithoutAlt int           `json:"without_alt"`
	Images     []ImageRecord `json:"images"`
}

// ItemStatus is the per-image state shown while a batch runs
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemProcessing ItemStatus = "processing"
	ItemComplete   ItemStatus = "complete"
	ItemError      ItemStatus = "error"
)
