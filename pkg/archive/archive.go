// Package archive persists the set of already-downloaded media
// identifiers so repeated runs skip completed work.
package archive

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Archive is an append-only identifier set backed by a line-per-entry
// file. Entries are never removed; idempotent re-runs depend on the
// file surviving across invocations. Safe for concurrent use.
type Archive struct {
	path string

	mu   sync.Mutex
	seen map[string]bool
	file *os.File
}

// Open loads an archive file, creating it when absent.
func Open(path string) (*Archive, error) {
	a := &Archive{
		path: path,
		seen: make(map[string]bool),
	}

	if path == "" {
		return a, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			a.seen[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	a.file = f
	return a, nil
}

// Contains reports whether an identifier is already archived.
func (a *Archive) Contains(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seen[id]
}

// Add records an identifier, appending it to the backing file. Adding
// an existing identifier is a no-op.
func (a *Archive) Add(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("empty archive identifier")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.seen[id] {
		return nil
	}
	a.seen[id] = true

	if a.file == nil {
		return nil
	}
	if _, err := fmt.Fprintln(a.file, id); err != nil {
		return fmt.Errorf("failed to append to archive: %w", err)
	}
	// Sync so a crashed run never re-downloads what it completed.
	return a.file.Sync()
}

// Len returns the number of archived identifiers.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}

// Close releases the backing file handle.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}
