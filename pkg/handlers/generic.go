package handlers

import (
	"context"
	"strings"

	"gallerygrab/pkg/browser"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
)

// GenericHandler is the fallback for sites no specific handler knows.
// It harvests every image-shaped signal the DOM offers and relies on the
// orchestrator's fallback strategies and filters to separate content
// from chrome.
type GenericHandler struct {
	scrollCount int
	log         logger.Logger
}

// NewGenericHandler creates the always-matching fallback handler.
func NewGenericHandler(scrollCount int, log logger.Logger) *GenericHandler {
	if scrollCount <= 0 {
		scrollCount = 3
	}
	return &GenericHandler{scrollCount: scrollCount, log: log}
}

func (h *GenericHandler) Name() string { return "generic" }

// Authenticate uses the shared flow; most generic sites have no auth
// configured and the outcome is Skipped.
func (h *GenericHandler) Authenticate(ctx context.Context, page browser.Page, env *AuthEnv) (AuthOutcome, error) {
	return authenticatePage(ctx, page, env)
}

// backgroundImageScript collects CSS background-image URLs, which plain
// DOM attribute queries cannot see. Returns a newline-joined string so
// the result crosses the Eval boundary as text.
const backgroundImageScript = `() => {
	const urls = new Set();
	for (const el of document.querySelectorAll('*')) {
		const bg = getComputedStyle(el).backgroundImage;
		if (!bg || bg === 'none') continue;
		const m = bg.match(/url\(["']?([^"')]+)["']?\)/);
		if (m) urls.add(m[1]);
	}
	return Array.from(urls).join('\n');
}`

// Extract harvests anchor hrefs to images, img sources with srcset
// preference, and CSS background images.
func (h *GenericHandler) Extract(ctx context.Context, page browser.Page) ([]models.MediaCandidate, error) {
	pageURL := page.URL()
	var out []models.MediaCandidate
	seen := make(map[string]bool)

	add := func(raw string, width int) {
		u := absolutize(pageURL, raw)
		if u == "" || seen[u] || IsThumbnailURL(u) {
			return
		}
		// Resized-copy filenames often sit next to their original.
		if full, ok := UpgradeThumbnailURL(u); ok {
			u = full
		}
		c := candidateFromURL(u, pageURL, models.StrategyDOM)
		if c.SourceURL == "" || seen[c.SourceURL] {
			return
		}
		c.Width = width
		seen[u] = true
		seen[c.SourceURL] = true
		out = append(out, c)
	}

	// Direct links to media files are the strongest generic signal.
	if anchors, err := page.Query(ctx, "a[href]"); err == nil {
		for _, a := range anchors {
			href, ok := a.Attribute("href")
			if !ok {
				continue
			}
			if _, isMedia := kindForURL(absolutize(pageURL, href)); isMedia {
				add(href, 0)
			}
		}
	}

	if imgs, err := page.Query(ctx, "img"); err == nil {
		for _, img := range imgs {
			if srcset, ok := img.Attribute("srcset"); ok {
				if best, width := BestFromSrcset(srcset); best != "" {
					add(best, width)
					continue
				}
			}
			if src, ok := img.Attribute("src"); ok {
				add(src, 0)
			}
		}
	}

	// CSS background images.
	if raw, err := page.Eval(ctx, backgroundImageScript); err == nil {
		for _, line := range strings.Split(raw, "\n") {
			if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "data:") {
				add(line, 0)
			}
		}
	}

	return out, nil
}

// PaginateHint follows an explicit rel=next link when one exists and
// otherwise scrolls, letting the engine's no-new-items rule terminate.
func (h *GenericHandler) PaginateHint(ctx context.Context, page browser.Page) models.PaginationAction {
	pageURL := page.URL()

	if els, err := page.Query(ctx, "a[rel=next], link[rel=next]"); err == nil {
		for _, el := range els {
			if href, ok := el.Attribute("href"); ok {
				if u := absolutize(pageURL, href); u != "" && u != pageURL {
					return models.NextPage(u)
				}
			}
		}
	}

	return models.Scroll(h.scrollCount)
}
