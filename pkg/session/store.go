package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store persists auth profiles to a JSON file, one profile per domain.
// Safe for concurrent use.
type Store struct {
	path     string
	mu       sync.RWMutex
	profiles map[string]*AuthProfile
}

// NewStore creates a profile store backed by the given file. An existing
// file is loaded; a missing file starts empty.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:     path,
		profiles: make(map[string]*AuthProfile),
	}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read profile store: %w", err)
	}

	var profiles map[string]*AuthProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profile store: %w", err)
	}
	if profiles != nil {
		s.profiles = profiles
	}

	return s, nil
}

// Profile returns the profile for a domain, falling back to parent
// domains the same way auth config lookup does.
func (s *Store) Profile(domain string) (*AuthProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, candidate := range domainFallbacks(domain) {
		if p, ok := s.profiles[candidate]; ok {
			cp := *p
			return &cp, true
		}
	}
	return nil, false
}

// Put stores a profile under its domain and persists the store.
func (s *Store) Put(profile *AuthProfile) error {
	if profile == nil || profile.Domain == "" {
		return fmt.Errorf("profile requires a domain")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *profile
	if cp.LastValidatedAt.IsZero() {
		cp.LastValidatedAt = time.Now()
	}
	s.profiles[cp.Domain] = &cp

	return s.saveLocked()
}

// Delete removes a domain's profile and persists the store.
func (s *Store) Delete(domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[domain]; !ok {
		return fmt.Errorf("no profile for domain: %s", domain)
	}
	delete(s.profiles, domain)

	return s.saveLocked()
}

// Domains returns all domains with a stored profile.
func (s *Store) Domains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.profiles))
	for d := range s.profiles {
		out = append(out, d)
	}
	return out
}

// saveLocked writes the store atomically. Caller must hold the lock.
func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create profile directory: %w", err)
		}
	}

	// Write to a temporary file first, then rename for atomicity.
	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write profile store: %w", err)
	}

	return os.Rename(tempFile, s.path)
}
