package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
)

// maxImageSize caps downloads at 10MB
const maxImageSize = 10 * 1024 * 1024

// Fetcher retrieves library images over HTTP
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Image is a downloaded image with its decoded format
type Image struct {
	Data   []byte
	Format string // "jpeg", "png" or "gif"
	Width  int
	Height int
}

// CheckReachable verifies the image URL answers 200 OK. The remote vision
// service fetches the URL itself, so an image it cannot reach would only
// fail later with a less useful error.
func (f *Fetcher) CheckReachable(ctx context.Context, imageURL string) error {
	resp, err := f.get(ctx, imageURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxImageSize))

	return nil
}

// Download fetches the image and decodes its format and dimensions
func (f *Fetcher) Download(ctx context.Context, imageURL string) (*Image, error) {
	resp, err := f.get(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindImageUnreachable, "failed to read image data", err)
	}
	if len(data) > maxImageSize {
		return nil, apperr.New(apperr.KindImageUnreachable, "Image too large (max 10MB)")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindImageUnreachable, "failed to decode image", err)
	}

	slog.Debug("Image downloaded", "url", imageURL, "format", format, "width", cfg.Width, "height", cfg.Height, "bytes", len(data))
	return &Image{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

func (f *Fetcher) get(ctx context.Context, imageURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindImageUnreachable, "Could not get image URL", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindImageUnreachable, "Image not accessible", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, apperr.New(apperr.KindImageUnreachable,
			fmt.Sprintf("Image not accessible. Status code: %d", resp.StatusCode))
	}

	return resp, nil
}
