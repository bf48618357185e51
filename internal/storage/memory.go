package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/models"
)

// MemoryStore keeps the media library in memory, preserving insertion order
type MemoryStore struct {
	images map[string]*models.ImageRecord
	order  []string
	mu     sync.RWMutex
}

// NewMemoryStore returns a store seeded with images
func NewMemoryStore(images ...models.ImageRecord) *MemoryStore {
	s := &MemoryStore{
		images: make(map[string]*models.ImageRecord),
	}
	for _, img := range images {
		s.put(img)
	}
	return s
}

func (s *MemoryStore) ListImages(ctx context.Context) ([]models.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.ImageRecord, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.images[id])
	}
	return result, nil
}

func (s *MemoryStore) GetImage(ctx context.Context, id string) (*models.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, exists := s.images[id]
	if !exists {
		return nil, apperr.New(apperr.KindNotFound, fmt.Sprintf("image not found: %s", id))
	}
	clone := *img
	return &clone, nil
}

func (s *MemoryStore) SaveImage(ctx context.Context, img models.ImageRecord) error {
	if img.ID == "" {
		return fmt.Errorf("image id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if img.UpdatedAt.IsZero() {
		img.UpdatedAt = time.Now().UTC()
	}
	s.put(img)
	return nil
}

func (s *MemoryStore) SetAltText(ctx context.Context, id, altText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, exists := s.images[id]
	if !exists {
		return apperr.New(apperr.KindNotFound, fmt.Sprintf("image not found: %s", id))
	}
	img.AltText = altText
	img.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) put(img models.ImageRecord) {
	if _, exists := s.images[img.ID]; !exists {
		s.order = append(s.order, img.ID)
	}
	s.images[img.ID] = &img
}
