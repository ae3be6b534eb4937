package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Credentials holds login credentials for a domain.
type Credentials struct {
	Domain       string    `json:"domain"`
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a domain
	Store(creds *Credentials) error

	// Retrieve gets credentials for a specific domain
	Retrieve(domain string) (*Credentials, error)

	// Delete removes credentials for a specific domain
	Delete(domain string) error

	// Exists checks if credentials exist for a domain
	Exists(domain string) bool
}

// CredentialManager handles credential storage with fallback mechanisms
type CredentialManager struct {
	stores []CredentialStore
}

// NewCredentialManager creates a credential manager with the available
// storage backends: system keychain, encrypted file, environment.
func NewCredentialManager() (*CredentialManager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	// Always add encrypted file store as fallback
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Add environment store as last resort
	stores = append(stores, NewEnvironmentStore())

	return &CredentialManager{stores: stores}, nil
}

// Store saves credentials using the first store that accepts them
func (m *CredentialManager) Store(creds *Credentials) error {
	if creds.Domain == "" {
		return errors.New("domain is required")
	}
	if creds.Username == "" {
		return errors.New("username is required")
	}
	if creds.Password == "" {
		return errors.New("password is required")
	}

	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(creds); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them. Parent
// domains are consulted when the exact domain has no entry.
func (m *CredentialManager) Retrieve(domain string) (*Credentials, error) {
	for _, candidate := range domainFallbacks(domain) {
		for _, store := range m.stores {
			if creds, err := store.Retrieve(candidate); err == nil && creds != nil {
				return creds, nil
			}
		}
	}
	return nil, fmt.Errorf("credentials not found for domain: %s", domain)
}

// Delete removes credentials from all stores
func (m *CredentialManager) Delete(domain string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(domain); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credentials not found for domain: %s", domain)
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "gallerygrab")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "gallerygrab")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "gallerygrab")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "gallerygrab")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitized returns a copy with the password masked, safe for logs.
func (c *Credentials) Sanitized() *Credentials {
	if c == nil {
		return nil
	}
	return &Credentials{
		Domain:       c.Domain,
		Username:     c.Username,
		Password:     maskString(c.Password),
		LastModified: c.LastModified,
	}
}

// maskString masks all but the first 2 and last 2 characters of a string
func maskString(s string) string {
	if len(s) <= 4 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
