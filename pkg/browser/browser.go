// Package browser abstracts the headless browser behind small interfaces
// so extraction and pagination logic can be tested without Chrome.
package browser

import (
	"context"
	"time"
)

// Cookie is a browser cookie in transport-neutral form.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

// Element is a single DOM element returned by a query.
type Element interface {
	// Attribute returns the value of an attribute and whether it is present
	Attribute(name string) (string, bool)
	// Text returns the visible text content of the element
	Text() string
}

// Page is a single browser tab.
type Page interface {
	// Navigate loads a URL and waits for the page load event
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// URL returns the current page URL
	URL() string
	// HTML returns the serialized DOM as HTML
	HTML(ctx context.Context) (string, error)
	// Query returns all elements matching a CSS selector without waiting
	Query(ctx context.Context, selector string) ([]Element, error)
	// Eval runs a JavaScript function on the page; the script must return
	// a string (callers stringify structured results themselves)
	Eval(ctx context.Context, script string) (string, error)
	// Click clicks the first element matching the selector
	Click(ctx context.Context, selector string) error
	// Fill types a value into the first element matching the selector
	Fill(ctx context.Context, selector, value string) error
	// Press sends a named key (e.g. "Enter") to the page
	Press(ctx context.Context, key string) error
	// WaitFor blocks until an element matching the selector appears
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// Scroll scrolls the viewport vertically by deltaY pixels
	Scroll(ctx context.Context, deltaY float64) error
	// Screenshot captures the page as PNG
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// Cookies returns all cookies visible to the page
	Cookies(ctx context.Context) ([]Cookie, error)
	// SetCookies installs cookies before navigation
	SetCookies(ctx context.Context, cookies []Cookie) error
	// SniffedMediaURLs returns media URLs observed on the network since
	// the page was opened, in first-seen order
	SniffedMediaURLs() []string
	// Close closes the tab
	Close() error
}

// Browser owns the underlying browser process and creates pages.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}
