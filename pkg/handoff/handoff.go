// Package handoff records video and audio candidates for an external
// command-line downloader instead of fetching them directly.
package handoff

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gallerygrab/pkg/models"
)

// Record is one handed-off media reference, written as a JSON line.
type Record struct {
	URL        string           `json:"url"`
	Kind       models.MediaKind `json:"kind"`
	SourcePage string           `json:"source_page"`
	Title      string           `json:"title,omitempty"`
}

// Writer appends handoff records to a JSONL file. Safe for concurrent
// use by download workers.
type Writer struct {
	mu    sync.Mutex
	file  *os.File
	count int
}

// Open creates or appends to a handoff file. An empty path yields a
// writer that counts but persists nothing.
func Open(path string) (*Writer, error) {
	w := &Writer{}

	if path == "" {
		return w, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create handoff directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open handoff file: %w", err)
	}
	w.file = f
	return w, nil
}

// Write appends one candidate to the handoff file.
func (w *Writer) Write(candidate models.MediaCandidate) error {
	rec := Record{
		URL:        candidate.SourceURL,
		Kind:       candidate.Kind,
		SourcePage: candidate.OriginPage,
		Title:      candidate.Title,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal handoff record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.count++
	if w.file == nil {
		return nil
	}
	if _, err := fmt.Fprintln(w.file, string(data)); err != nil {
		return fmt.Errorf("failed to write handoff record: %w", err)
	}
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close releases the file handle.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
