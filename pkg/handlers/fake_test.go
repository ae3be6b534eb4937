package handlers

import (
	"context"
	"time"

	"gallerygrab/pkg/browser"
)

// fakeElement is a canned DOM element for tests.
type fakeElement struct {
	attrs map[string]string
	text  string
}

func (e *fakeElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) Text() string { return e.text }

func el(attrs map[string]string) browser.Element {
	return &fakeElement{attrs: attrs}
}

func textEl(text string) browser.Element {
	return &fakeElement{attrs: map[string]string{}, text: text}
}

// fakePage serves canned query results keyed by exact selector string
// and records the interactions handlers perform.
type fakePage struct {
	url     string
	queries map[string][]browser.Element
	evalOut string
	sniffed []string

	navigated []string
	clicked   []string
	filled    map[string]string
	pressed   []string
	cookies   []browser.Cookie
	setCalls  [][]browser.Cookie
}

func newFakePage(url string) *fakePage {
	return &fakePage{
		url:     url,
		queries: make(map[string][]browser.Element),
		filled:  make(map[string]string),
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.navigated = append(p.navigated, url)
	p.url = url
	return nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) HTML(ctx context.Context) (string, error) { return "", nil }

func (p *fakePage) Query(ctx context.Context, selector string) ([]browser.Element, error) {
	return p.queries[selector], nil
}

func (p *fakePage) Eval(ctx context.Context, script string) (string, error) {
	return p.evalOut, nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.clicked = append(p.clicked, selector)
	return nil
}

func (p *fakePage) Fill(ctx context.Context, selector, value string) error {
	p.filled[selector] = value
	return nil
}

func (p *fakePage) Press(ctx context.Context, key string) error {
	p.pressed = append(p.pressed, key)
	return nil
}

func (p *fakePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (p *fakePage) Scroll(ctx context.Context, deltaY float64) error { return nil }

func (p *fakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return nil, nil
}

func (p *fakePage) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	return p.cookies, nil
}

func (p *fakePage) SetCookies(ctx context.Context, cookies []browser.Cookie) error {
	p.setCalls = append(p.setCalls, cookies)
	return nil
}

func (p *fakePage) SniffedMediaURLs() []string { return p.sniffed }

func (p *fakePage) Close() error { return nil }
