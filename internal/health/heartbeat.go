// Package health maintains the scanner heartbeat file: a small JSON
// snapshot rewritten atomically after every scan cycle so external
// monitors (and the checkhealth subcommand) can tell a live scanner
// from a wedged one.
package health

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"polyarb/internal/domain"
)

// DefaultStaleThreshold is how old a heartbeat may be before the
// scanner is considered unhealthy.
const DefaultStaleThreshold = 5 * time.Minute

// Heartbeat is the on-disk snapshot of the last completed cycle.
type Heartbeat struct {
	Timestamp      float64 `json:"timestamp"` // unix seconds
	ISO            string  `json:"iso"`
	MarketsScanned int     `json:"markets_scanned"`
	Opportunities  int     `json:"opportunities"`
	Errors         int     `json:"errors"`
	Status         string  `json:"status"`
}

// Writer writes heartbeats to a fixed path. A disabled writer ignores
// every call, so callers never need to branch on configuration.
type Writer struct {
	path    string
	enabled bool
}

// NewWriter creates a heartbeat writer for path. An empty path or
// enabled=false yields a writer that does nothing.
func NewWriter(path string, enabled bool) *Writer {
	return &Writer{path: path, enabled: enabled && path != ""}
}

// Write records one completed scan cycle. The file is written to a
// temp file in the same directory and renamed into place so a reader
// never observes a partial heartbeat.
func (w *Writer) Write(result *domain.ScanResult) error {
	if !w.enabled {
		return nil
	}

	now := time.Now().UTC()
	hb := Heartbeat{
		Timestamp:      float64(now.UnixNano()) / float64(time.Second),
		ISO:            now.Format(time.RFC3339),
		MarketsScanned: result.MarketsScanned,
		Opportunities:  len(result.Opportunities),
		Errors:         len(result.Errors),
		Status:         "ok",
	}

	data, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("health: marshal heartbeat: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("health: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".heartbeat-*.tmp")
	if err != nil {
		return fmt.Errorf("health: create temp heartbeat: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("health: write heartbeat: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("health: close temp heartbeat: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("health: replace %s: %w", w.path, err)
	}
	return nil
}

// Check reports whether the heartbeat at path is fresh. A missing,
// malformed, or stale file is unhealthy, never an error: the check is
// a boolean monitoring primitive.
func Check(path string, staleThreshold time.Duration) bool {
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return false
	}
	if hb.Timestamp <= 0 {
		return false
	}

	age := time.Since(time.Unix(0, int64(hb.Timestamp*float64(time.Second))))
	return age < staleThreshold
}
