package session

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It serves a single domain set via GALLERYGRAB_AUTH_DOMAIN and exists for
// CI and one-off runs where no keychain is available.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(domain string) (*Credentials, error) {
	username := os.Getenv("GALLERYGRAB_USERNAME")
	password := os.Getenv("GALLERYGRAB_PASSWORD")
	envDomain := os.Getenv("GALLERYGRAB_AUTH_DOMAIN")

	if username == "" || password == "" {
		return nil, ErrCredentialsNotFound
	}

	// An explicit env domain restricts the credentials to that domain.
	if envDomain != "" && domain != "" && envDomain != domain {
		return nil, ErrCredentialsNotFound
	}
	if domain == "" {
		domain = envDomain
	}

	return &Credentials{
		Domain:       domain,
		Username:     username,
		Password:     password,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(domain string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(domain string) bool {
	creds, err := e.Retrieve(domain)
	return err == nil && creds != nil
}
