// Package extract implements the per-page extraction fallback chain:
// DOM attribute inspection, network-response interception, then a raw
// HTML scan, applied in order until enough candidates are found.
package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gallerygrab/pkg/browser"
	errs "gallerygrab/pkg/errors"
	"gallerygrab/pkg/handlers"
	"gallerygrab/pkg/models"
)

// Strategy is one way of discovering media on the current page. A
// strategy returning no candidates is not an error; the orchestrator
// simply falls through to the next one.
type Strategy interface {
	ID() models.StrategyID
	Extract(ctx context.Context, page browser.Page, h handlers.Handler) ([]models.MediaCandidate, error)
}

// DOMStrategy delegates to the resolved handler, which knows the site's
// DOM shape. It is first in the chain because handler signals are the
// most precise.
type DOMStrategy struct{}

func (s *DOMStrategy) ID() models.StrategyID { return models.StrategyDOM }

func (s *DOMStrategy) Extract(ctx context.Context, page browser.Page, h handlers.Handler) ([]models.MediaCandidate, error) {
	return h.Extract(ctx, page)
}

// NetworkStrategy reads media URLs the browser observed in-flight while
// the page loaded. It catches media that never appears in the DOM, such
// as canvas-rendered or blob-backed images.
type NetworkStrategy struct{}

func (s *NetworkStrategy) ID() models.StrategyID { return models.StrategyNetwork }

func (s *NetworkStrategy) Extract(ctx context.Context, page browser.Page, h handlers.Handler) ([]models.MediaCandidate, error) {
	pageURL := page.URL()
	var out []models.MediaCandidate

	for _, u := range page.SniffedMediaURLs() {
		if handlers.IsThumbnailURL(u) {
			continue
		}
		kind := models.KindImage
		if k, ok := kindFromURL(u); ok {
			kind = k
		}
		out = append(out, models.MediaCandidate{
			SourceURL:     u,
			Kind:          kind,
			OriginPage:    pageURL,
			DiscoveredVia: models.StrategyNetwork,
		})
	}
	return out, nil
}

// HTMLStrategy parses the serialized DOM with goquery. It is the last
// resort: slower and noisier, but immune to scripts that hide elements
// from live queries.
type HTMLStrategy struct{}

func (s *HTMLStrategy) ID() models.StrategyID { return models.StrategyHTML }

func (s *HTMLStrategy) Extract(ctx context.Context, page browser.Page, h handlers.Handler) ([]models.MediaCandidate, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return ScanHTML(html, page.URL())
}

// ScanHTML extracts media candidates from raw HTML.
func ScanHTML(html, pageURL string) ([]models.MediaCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, "parse HTML: %v", err)
	}

	var out []models.MediaCandidate
	seen := make(map[string]bool)

	add := func(raw string, width int, kind models.MediaKind) {
		u := resolveURL(pageURL, raw)
		if u == "" || seen[u] || handlers.IsThumbnailURL(u) {
			return
		}
		seen[u] = true
		out = append(out, models.MediaCandidate{
			SourceURL:     u,
			Kind:          kind,
			Width:         width,
			OriginPage:    pageURL,
			DiscoveredVia: models.StrategyHTML,
		})
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if srcset, ok := sel.Attr("srcset"); ok {
			if best, width := handlers.BestFromSrcset(srcset); best != "" {
				add(best, width, models.KindImage)
				return
			}
		}
		for _, attr := range []string{"data-src", "src"} {
			if v, ok := sel.Attr(attr); ok && v != "" && !strings.HasPrefix(v, "data:") {
				add(v, 0, models.KindImage)
				return
			}
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u := resolveURL(pageURL, href)
		if kind, ok := kindFromURL(u); ok {
			add(u, 0, kind)
		}
	})

	doc.Find("video[src], video source[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			add(src, 0, models.KindVideo)
		}
	})

	return out, nil
}
