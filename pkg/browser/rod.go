package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"gallerygrab/pkg/config"
	errs "gallerygrab/pkg/errors"
	"gallerygrab/pkg/logger"
)

// rodBrowser implements Browser on top of go-rod.
type rodBrowser struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	cfg     *config.BrowserConfig
	log     logger.Logger
}

// New launches a local Chrome and connects to it.
func New(cfg *config.BrowserConfig, log logger.Logger) (Browser, error) {
	l := launcher.New().Headless(cfg.Headless)

	// Anti-detection flags.
	l = l.Set("disable-blink-features", "AutomationControlled")

	wsURL, err := l.Launch()
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNavigation, "browser launch failed: %v", err)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, errs.New(errs.ErrorTypeNavigation, "browser connect failed: %v", err)
	}

	log.DebugWithFields("browser launched", map[string]interface{}{
		"headless": cfg.Headless,
		"stealth":  cfg.Stealth,
	})

	return &rodBrowser{
		browser: b,
		lnch:    l,
		cfg:     cfg,
		log:     log,
	}, nil
}

// NewPage opens a new tab with stealth applied and network sniffing enabled.
func (rb *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	var page *rod.Page
	var err error

	if rb.cfg.Stealth {
		page, err = stealth.Page(rb.browser)
	} else {
		page, err = rb.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNavigation, "create tab failed: %v", err)
	}

	if rb.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: rb.cfg.UserAgent,
		}); err != nil {
			rb.log.WithError(err).Warn("user agent override failed")
		}
	}

	p := &rodPage{
		page: page.Context(ctx),
		log:  rb.log,
	}
	p.startSniffer()

	return p, nil
}

// Close shuts down Chrome.
func (rb *rodBrowser) Close() error {
	var err error
	if rb.browser != nil {
		err = rb.browser.Close()
	}
	if rb.lnch != nil {
		rb.lnch.Cleanup()
	}
	return err
}

// rodPage implements Page for a single rod tab.
type rodPage struct {
	page *rod.Page
	log  logger.Logger

	mu      sync.Mutex
	sniffed []string
	seen    map[string]struct{}
}

// startSniffer subscribes to network responses and records media URLs.
// The goroutine exits when the page closes.
func (p *rodPage) startSniffer() {
	p.seen = make(map[string]struct{})

	go p.page.EachEvent(func(e *proto.NetworkResponseReceived) {
		if !isMediaMIME(e.Response.MIMEType) {
			return
		}
		p.mu.Lock()
		if _, ok := p.seen[e.Response.URL]; !ok {
			p.seen[e.Response.URL] = struct{}{}
			p.sniffed = append(p.sniffed, e.Response.URL)
		}
		p.mu.Unlock()
	})()
}

// isMediaMIME reports whether a response MIME type is image, video or audio.
func isMediaMIME(mime string) bool {
	return strings.HasPrefix(mime, "image/") ||
		strings.HasPrefix(mime, "video/") ||
		strings.HasPrefix(mime, "audio/")
}

// Navigate loads a URL and waits for the load event.
func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := p.page.Context(navCtx).Navigate(url); err != nil {
		return errs.New(errs.ErrorTypeNavigation, "navigate %s: %v", url, err)
	}
	if err := p.page.Context(navCtx).WaitLoad(); err != nil {
		// A slow load event is tolerable; the DOM is usually usable.
		p.log.WithError(err).WithField("url", url).Warn("wait load timeout")
	}

	p.log.DebugWithFields("navigated", map[string]interface{}{
		"url":         url,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// URL returns the current page URL.
func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// HTML serialises the full DOM as outer HTML.
func (p *rodPage) HTML(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", errs.New(errs.ErrorTypeExtraction, "serialize DOM: %v", err)
	}
	return res.Value.Str(), nil
}

// Query returns all elements matching a selector without waiting.
func (p *rodPage) Query(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeExtraction, "query %q: %v", selector, err)
	}

	result := make([]Element, 0, len(els))
	for _, el := range els {
		result = append(result, &rodElement{el: el})
	}
	return result, nil
}

// Eval runs a JavaScript function and returns its string result.
func (p *rodPage) Eval(ctx context.Context, script string) (string, error) {
	res, err := p.page.Context(ctx).Eval(script)
	if err != nil {
		return "", errs.New(errs.ErrorTypeExtraction, "eval: %v", err)
	}
	return res.Value.Str(), nil
}

// Click clicks the first element matching the selector.
func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return errs.New(errs.ErrorTypeExtraction, "click target %q: %v", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return errs.New(errs.ErrorTypeExtraction, "click %q: %v", selector, err)
	}
	return nil
}

// Fill types a value into the first element matching the selector.
func (p *rodPage) Fill(ctx context.Context, selector, value string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return errs.New(errs.ErrorTypeExtraction, "fill target %q: %v", selector, err)
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(value); err != nil {
		return errs.New(errs.ErrorTypeExtraction, "fill %q: %v", selector, err)
	}
	return nil
}

// Press sends a named key to the page.
func (p *rodPage) Press(ctx context.Context, key string) error {
	k, ok := namedKeys[strings.ToLower(key)]
	if !ok {
		return errs.New(errs.ErrorTypeExtraction, "unknown key %q", key)
	}
	if err := p.page.Context(ctx).Keyboard.Press(k); err != nil {
		return errs.New(errs.ErrorTypeExtraction, "press %q: %v", key, err)
	}
	return nil
}

var namedKeys = map[string]input.Key{
	"enter":  input.Enter,
	"tab":    input.Tab,
	"escape": input.Escape,
	"space":  input.Space,
}

// WaitFor blocks until an element matching the selector appears.
func (p *rodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := p.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return errs.New(errs.ErrorTypeExtraction, "wait for %q: %v", selector, err)
	}
	return nil
}

// Scroll scrolls the viewport vertically.
func (p *rodPage) Scroll(ctx context.Context, deltaY float64) error {
	if err := p.page.Context(ctx).Mouse.Scroll(0, deltaY, 1); err != nil {
		return errs.New(errs.ErrorTypeNavigation, "scroll: %v", err)
	}
	return nil
}

// Screenshot captures the page as PNG.
func (p *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	data, err := p.page.Context(ctx).Screenshot(fullPage, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeExtraction, "screenshot: %v", err)
	}
	return data, nil
}

// Cookies returns all cookies visible to the page.
func (p *rodPage) Cookies(ctx context.Context) ([]Cookie, error) {
	raw, err := p.page.Context(ctx).Cookies([]string{})
	if err != nil {
		return nil, errs.New(errs.ErrorTypeAuth, "read cookies: %v", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			cookie.Expires = c.Expires.Time()
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

// SetCookies installs cookies before navigation.
func (p *rodPage) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.Expires.IsZero() {
			param.Expires = proto.TimeSinceEpoch(float64(c.Expires.Unix()))
		}
		params = append(params, param)
	}

	if err := p.page.Context(ctx).SetCookies(params); err != nil {
		return errs.New(errs.ErrorTypeAuth, "set cookies: %v", err)
	}
	return nil
}

// SniffedMediaURLs returns media URLs observed on the network in first-seen order.
func (p *rodPage) SniffedMediaURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.sniffed))
	copy(out, p.sniffed)
	return out
}

// Close closes the tab.
func (p *rodPage) Close() error {
	return p.page.Close()
}

// rodElement wraps a rod element.
type rodElement struct {
	el *rod.Element
}

// Attribute returns the value of an attribute and whether it is present.
func (e *rodElement) Attribute(name string) (string, bool) {
	val, err := e.el.Attribute(name)
	if err != nil || val == nil {
		return "", false
	}
	return *val, true
}

// Text returns the visible text content of the element.
func (e *rodElement) Text() string {
	text, err := e.el.Text()
	if err != nil {
		return ""
	}
	return text
}

// String renders a cookie without its value, for logs.
func (c *Cookie) String() string {
	return fmt.Sprintf("%s@%s%s", c.Name, c.Domain, c.Path)
}
