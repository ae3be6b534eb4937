// Package handlers contains the per-site extraction handlers and the
// registry that maps a URL to the most specific capable handler.
package handlers

import (
	"context"
	"net/url"
	"strings"

	"gallerygrab/pkg/browser"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
	"gallerygrab/pkg/session"
)

// AuthOutcome reports how authentication for a page concluded.
type AuthOutcome string

const (
	// AuthSkipped means no auth was configured or no credentials exist
	AuthSkipped AuthOutcome = "skipped"
	// AuthReused means a cached profile's cookies were installed
	AuthReused AuthOutcome = "reused"
	// AuthLoggedIn means a fresh login sequence succeeded
	AuthLoggedIn AuthOutcome = "logged_in"
	// AuthFailed means the login sequence failed; extraction proceeds anonymously
	AuthFailed AuthOutcome = "failed"
)

// CredentialSource supplies login credentials for a domain.
type CredentialSource interface {
	Retrieve(domain string) (*session.Credentials, error)
}

// AuthEnv bundles the collaborators a handler needs to authenticate.
type AuthEnv struct {
	Store       *session.Store
	Config      *session.AuthConfig
	Credentials CredentialSource
	SaveCookies bool
	Logger      logger.Logger
}

// Handler is the extraction contract one site family implements.
type Handler interface {
	// Name identifies the handler in logs and summaries
	Name() string

	// Authenticate establishes a logged-in session for the page's domain.
	// Failure is never fatal; the caller degrades to anonymous extraction.
	Authenticate(ctx context.Context, page browser.Page, env *AuthEnv) (AuthOutcome, error)

	// Extract inspects the current page and returns media candidates
	Extract(ctx context.Context, page browser.Page) ([]models.MediaCandidate, error)

	// PaginateHint tells the pagination engine how this site exposes
	// more content
	PaginateHint(ctx context.Context, page browser.Page) models.PaginationAction
}

// HiddenRevealer is implemented by handlers whose pages hide content
// behind collapsed blocks (spoilers, read-more). The pagination engine
// clicks these selectors before each extraction pass.
type HiddenRevealer interface {
	RevealSelectors() []string
}

// hostOf extracts the lowercased host from a URL, without port.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// absolutize resolves a possibly-relative href against the page URL.
func absolutize(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// imageExtensions are URL path suffixes treated as direct image links.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".avif"}

// videoExtensions are URL path suffixes treated as direct video links.
var videoExtensions = []string{".mp4", ".webm", ".mov", ".mkv", ".m3u8"}

// kindForURL classifies a URL by its path extension. Unknown extensions
// return false.
func kindForURL(rawURL string) (models.MediaKind, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	path := strings.ToLower(u.Path)

	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return models.KindImage, true
		}
	}
	for _, ext := range videoExtensions {
		if strings.HasSuffix(path, ext) {
			return models.KindVideo, true
		}
	}
	return "", false
}

// videoEmbedHosts are third-party video hosts whose embeds are handed
// off to an external downloader instead of being fetched directly.
var videoEmbedHosts = []string{
	"youtube.com",
	"youtu.be",
	"vimeo.com",
	"dailymotion.com",
	"streamable.com",
}

// isVideoEmbed reports whether a URL points at a known video host.
func isVideoEmbed(rawURL string) bool {
	host := hostOf(rawURL)
	for _, h := range videoEmbedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
