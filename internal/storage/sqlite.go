package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/apperr"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	_ "modernc.org/sqlite"
)

// DefaultPath is the default path for the SQLite database
const DefaultPath = "./alttext.db"

// SQLiteStore keeps the media library in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// Open connects to the database at path and applies pending migrations
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultPath
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" would otherwise get its own database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying *sql.DB instance
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const upsertImageQuery = `
	INSERT INTO images (id, title, url, thumbnail_url, alt_text, mime_type, position, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM images), ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		url = excluded.url,
		thumbnail_url = excluded.thumbnail_url,
		alt_text = excluded.alt_text,
		mime_type = excluded.mime_type,
		updated_at = excluded.updated_at
`

// SaveImage inserts or replaces an image. New images are appended to
// the end of the scan order.
func (s *SQLiteStore) SaveImage(ctx context.Context, img models.ImageRecord) error {
	if img.ID == "" {
		return fmt.Errorf("image id cannot be empty")
	}

	now := time.Now().UTC()
	updatedAt := img.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	return RunInTransaction(ctx, s.db, func(txCtx context.Context) error {
		_, err := GetExecutor(txCtx, s.db).ExecContext(txCtx, upsertImageQuery,
			img.ID,
			img.Title,
			img.URL,
			img.ThumbnailURL,
			img.AltText,
			img.MimeType,
			updatedAt,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert image record: %w", err)
		}
		return nil
	})
}

const selectImageColumns = `SELECT id, title, url, thumbnail_url, alt_text, mime_type, updated_at FROM images`

// ListImages returns every image in scan order
func (s *SQLiteStore) ListImages(ctx context.Context) ([]models.ImageRecord, error) {
	rows, err := GetExecutor(ctx, s.db).QueryContext(ctx, selectImageColumns+` ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var images []models.ImageRecord
	for rows.Next() {
		var row imageRow
		if err := row.scan(rows); err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		images = append(images, row.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image rows: %w", err)
	}

	return images, nil
}

// GetImage retrieves a single image by id
func (s *SQLiteStore) GetImage(ctx context.Context, id string) (*models.ImageRecord, error) {
	var row imageRow
	err := row.scan(GetExecutor(ctx, s.db).QueryRowContext(ctx, selectImageColumns+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, fmt.Sprintf("image not found: %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	img := row.toModel()
	return &img, nil
}

// SetAltText overwrites the ALT text of an existing image
func (s *SQLiteStore) SetAltText(ctx context.Context, id, altText string) error {
	result, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE images SET alt_text = ?, updated_at = ? WHERE id = ?`,
		altText, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update alt text: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, fmt.Sprintf("image not found: %s", id))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// imageRow is a private struct used to scan database rows
type imageRow struct {
	ID           string
	Title        string
	URL          string
	ThumbnailURL string
	AltText      string
	MimeType     string
	UpdatedAt    sql.NullTime
}

func (r *imageRow) scan(s scanner) error {
	return s.Scan(&r.ID, &r.Title, &r.URL, &r.ThumbnailURL, &r.AltText, &r.MimeType, &r.UpdatedAt)
}

func (r *imageRow) toModel() models.ImageRecord {
	img := models.ImageRecord{
		ID:           r.ID,
		Title:        r.Title,
		URL:          r.URL,
		ThumbnailURL: r.ThumbnailURL,
		AltText:      r.AltText,
		MimeType:     r.MimeType,
	}
	if r.UpdatedAt.Valid {
		img.UpdatedAt = r.UpdatedAt.Time
	}
	return img
}
