package service

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"polyarb/internal/domain"
)

// BlobWriter stores one object in the archive bucket.
type BlobWriter interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
}

// Archiver writes each scan result to object storage as gzipped JSON,
// keyed by scan date: <prefix>/YYYY/MM/DD/scan-<id>.json.gz.
type Archiver struct {
	writer BlobWriter
	prefix string
	logger *slog.Logger
}

// NewArchiver creates an archiver writing under prefix.
func NewArchiver(writer BlobWriter, prefix string, logger *slog.Logger) *Archiver {
	if prefix == "" {
		prefix = "scans"
	}
	return &Archiver{
		writer: writer,
		prefix: prefix,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// Archive uploads one scan result.
func (a *Archiver) Archive(ctx context.Context, result *domain.ScanResult) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(result); err != nil {
		gz.Close()
		return fmt.Errorf("service: encode scan archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("service: compress scan archive: %w", err)
	}

	key := a.key(result)
	if err := a.writer.Put(ctx, key, &buf, "application/gzip"); err != nil {
		return fmt.Errorf("service: upload scan archive %s: %w", key, err)
	}

	a.logger.DebugContext(ctx, "scan archived",
		slog.String("key", key),
		slog.Int("opportunities", len(result.Opportunities)),
	)
	return nil
}

func (a *Archiver) key(result *domain.ScanResult) string {
	t := result.StartedAt.UTC()
	name := fmt.Sprintf("scan-%s.json.gz", uuid.Must(uuid.NewRandom()).String())
	return path.Join(a.prefix, t.Format("2006/01/02"), name)
}
