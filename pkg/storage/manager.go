// Package storage persists downloaded media: staged writes, atomic
// promotion into kind-organized directories, and metadata sidecars.
package storage

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gallerygrab/pkg/config"
	errs "gallerygrab/pkg/errors"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
)

const stagingDirName = ".staging"

// Manager owns the output directory tree. Files are written to a
// staging area first and renamed into place only after verification, so
// a cancelled or crashed run never leaves partial files in the final
// destination. Safe for concurrent use by download workers.
type Manager struct {
	baseDir        string
	organizeByKind bool
	writeMetadata  bool
	log            logger.Logger

	mu sync.Mutex
}

// NewManager creates the output directory tree.
func NewManager(cfg *config.OutputConfig, log logger.Logger) (*Manager, error) {
	m := &Manager{
		baseDir:        cfg.BaseDirectory,
		organizeByKind: cfg.OrganizeByKind,
		writeMetadata:  cfg.WriteMetadata,
		log:            log,
	}

	if err := os.MkdirAll(m.stagingDir(), 0755); err != nil {
		return nil, errs.New(errs.ErrorTypeDownload, "create staging directory: %v", err)
	}

	return m, nil
}

func (m *Manager) stagingDir() string {
	return filepath.Join(m.baseDir, stagingDirName)
}

// destDir returns the final directory for a media kind.
func (m *Manager) destDir(kind models.MediaKind) string {
	if !m.organizeByKind {
		return m.baseDir
	}
	switch kind {
	case models.KindVideo:
		return filepath.Join(m.baseDir, "videos")
	case models.KindAudio:
		return filepath.Join(m.baseDir, "audio")
	default:
		return filepath.Join(m.baseDir, "images")
	}
}

// Store writes a payload to staging, verifies it, and promotes it to
// its organized destination. Returns the final path.
func (m *Manager) Store(candidate models.MediaCandidate, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", errs.New(errs.ErrorTypeDownload, "refusing to store empty payload for %s", candidate.SourceURL)
	}

	filename := FilenameFromURL(candidate.SourceURL)

	// Each call stages to its own temp file: different URLs frequently
	// share a basename, and concurrent workers must never share a
	// staging path.
	tmp, err := os.CreateTemp(m.stagingDir(), filename+"-*.part")
	if err != nil {
		return "", errs.New(errs.ErrorTypeDownload, "create staging file: %v", err)
	}
	staged := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(staged)
		return "", errs.New(errs.ErrorTypeDownload, "write staging file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(staged)
		return "", errs.New(errs.ErrorTypeDownload, "write staging file: %v", err)
	}

	info, err := os.Stat(staged)
	if err != nil || info.Size() == 0 {
		os.Remove(staged)
		return "", errs.New(errs.ErrorTypeDownload, "staged file verification failed for %s", candidate.SourceURL)
	}

	destDir := m.destDir(candidate.Kind)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		os.Remove(staged)
		return "", errs.New(errs.ErrorTypeDownload, "create destination directory: %v", err)
	}

	// Destination naming is serialized so two workers cannot claim the
	// same unique name.
	m.mu.Lock()
	finalPath := m.uniquePath(filepath.Join(destDir, filename))
	err = os.Rename(staged, finalPath)
	m.mu.Unlock()

	if err != nil {
		os.Remove(staged)
		return "", errs.New(errs.ErrorTypeDownload, "promote staged file: %v", err)
	}

	if m.writeMetadata {
		if err := m.writeSidecar(finalPath, candidate); err != nil {
			m.log.WithError(err).WithField("path", finalPath).Warn("metadata sidecar write failed")
		}
	}

	return finalPath, nil
}

// writeSidecar writes the candidate's metadata next to the stored file.
func (m *Manager) writeSidecar(mediaPath string, candidate models.MediaCandidate) error {
	data, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(mediaPath+".json", data, 0644)
}

// uniquePath appends a numeric suffix until the path does not exist.
// Caller must hold the manager lock.
func (m *Manager) uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// DiscardStaging removes all staged partial files. Called on
// cancellation so aborted downloads never reach the destination.
func (m *Manager) DiscardStaging() error {
	entries, err := os.ReadDir(m.stagingDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		os.Remove(filepath.Join(m.stagingDir(), e.Name()))
	}
	return nil
}

// FilenameFromURL derives a safe local filename from a media URL.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return sanitizeFilename(rawURL)
	}

	name := filepath.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = strings.ReplaceAll(u.Hostname(), ".", "_")
	}
	return sanitizeFilename(name)
}

// sanitizeFilename strips characters that are unsafe in filenames.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	name = replacer.Replace(name)
	if len(name) > 200 {
		name = name[len(name)-200:]
	}
	if name == "" {
		name = "unnamed"
	}
	return name
}
