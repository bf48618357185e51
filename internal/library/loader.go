package library

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/parquet-go/parquet-go"
)

// LoadFile reads image records from a JSONL or Parquet snapshot
func LoadFile(path string) ([]models.ImageRecord, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".parquet":
		return loadParquet(path)
	case ".jsonl", ".json":
		return loadJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func loadJSONL(path string) ([]models.ImageRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library file: %w", err)
	}
	defer file.Close()

	var records []models.ImageRecord
	scanner := bufio.NewScanner(file)

	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record models.ImageRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading library file: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_records", len(records), "total_lines", lineNum)
	return records, nil
}

func loadParquet(path string) ([]models.ImageRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[models.ImageRecord](pf)
	defer reader.Close()

	var records []models.ImageRecord
	rows := make([]models.ImageRecord, 128)
	for {
		n, err := reader.Read(rows)
		if n > 0 {
			records = append(records, rows[:n]...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(records), "num_rows", pf.NumRows())
	return records, nil
}

// Import saves every record into the store and returns how many were saved
func Import(ctx context.Context, store Store, records []models.ImageRecord) (int, error) {
	saved := 0
	for _, r := range records {
		if r.ID == "" {
			slog.Warn("Skipping record without id", "title", r.Title, "url", r.URL)
			continue
		}
		if err := store.SaveImage(ctx, r); err != nil {
			return saved, fmt.Errorf("failed to save image %s: %w", r.ID, err)
		}
		saved++
	}
	return saved, nil
}

// ExportParquet writes every library image to a Parquet snapshot
func ExportParquet(ctx context.Context, src Source, path string) (int, error) {
	records, err := src.ListImages(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list images: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[models.ImageRecord](file)
	if _, err := writer.Write(records); err != nil {
		return 0, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close parquet writer: %w", err)
	}

	slog.Info("Exported library", "path", path, "records", len(records))
	return len(records), nil
}
