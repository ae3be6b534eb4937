// Package session persists per-domain authentication state: saved cookies,
// login automation steps, and the credentials needed to replay a login.
package session

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gallerygrab/pkg/browser"
)

// AuthProfile is the persisted authentication state for one domain.
type AuthProfile struct {
	Domain          string           `json:"domain"`
	Cookies         []browser.Cookie `json:"cookies,omitempty"`
	Username        string           `json:"username,omitempty"`
	LastValidatedAt time.Time        `json:"last_validated_at,omitempty"`
}

// LoginStep is one action in a scripted login sequence. The Value field
// supports {username} and {password} placeholders.
type LoginStep struct {
	Action   string `yaml:"action" json:"action"` // fill, click, wait
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`
	Value    string `yaml:"value,omitempty" json:"value,omitempty"`
}

// DomainAuth describes how to log in to one domain.
type DomainAuth struct {
	LoginURL string      `yaml:"login_url" json:"login_url"`
	Steps    []LoginStep `yaml:"steps" json:"steps"`

	// SuccessSelectors indicate a logged-in page (e.g. an avatar or
	// logout link). Checked first.
	SuccessSelectors []string `yaml:"success_selectors,omitempty" json:"success_selectors,omitempty"`

	// LoginFormSelectors indicate the login form is still showing, which
	// means the login failed. Checked when no success selector matched.
	LoginFormSelectors []string `yaml:"login_form_selectors,omitempty" json:"login_form_selectors,omitempty"`
}

// AuthConfig maps domains to their login descriptions.
type AuthConfig struct {
	Domains map[string]DomainAuth `yaml:"domains"`
}

// LoadAuthConfig reads a YAML auth configuration file. A missing file is
// not an error; it returns an empty config.
func LoadAuthConfig(path string) (*AuthConfig, error) {
	cfg := &AuthConfig{Domains: make(map[string]DomainAuth)}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read auth config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse auth config: %w", err)
	}
	if cfg.Domains == nil {
		cfg.Domains = make(map[string]DomainAuth)
	}

	return cfg, nil
}

// ForDomain returns the auth description for a domain, falling back to
// parent domains: "forum.example.com" matches an entry for "example.com".
func (c *AuthConfig) ForDomain(domain string) (DomainAuth, bool) {
	for _, candidate := range domainFallbacks(domain) {
		if auth, ok := c.Domains[candidate]; ok {
			return auth, true
		}
	}
	return DomainAuth{}, false
}

// domainFallbacks lists a domain and its parent domains, most specific
// first. The bare TLD is excluded.
func domainFallbacks(domain string) []string {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	labels := strings.Split(domain, ".")

	var out []string
	for i := 0; i < len(labels)-1; i++ {
		out = append(out, strings.Join(labels[i:], "."))
	}
	if len(out) == 0 && domain != "" {
		out = append(out, domain)
	}
	return out
}
