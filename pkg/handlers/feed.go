package handlers

import (
	"context"
	"strings"

	"gallerygrab/pkg/browser"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
)

// FeedHandler extracts media from infinite-scroll feeds and galleries:
// social profiles, image boards, anything that loads more content as the
// viewport reaches the bottom. Full-resolution images hide behind srcset
// descriptors and lazy-load attributes rather than plain src.
type FeedHandler struct {
	scrollCount int
	log         logger.Logger
}

// NewFeedHandler creates the feed site-family handler.
func NewFeedHandler(scrollCount int, log logger.Logger) *FeedHandler {
	if scrollCount <= 0 {
		scrollCount = 3
	}
	return &FeedHandler{scrollCount: scrollCount, log: log}
}

func (h *FeedHandler) Name() string { return "feed" }

// feedHosts are site families known to serve scroll-loaded galleries.
var feedHosts = []string{
	"instagram.com",
	"twitter.com",
	"x.com",
	"tumblr.com",
	"pinterest.com",
	"deviantart.com",
	"artstation.com",
	"flickr.com",
}

// CanHandle matches known feed-style hosts.
func (h *FeedHandler) CanHandle(rawURL string) bool {
	host := hostOf(rawURL)
	for _, fh := range feedHosts {
		if host == fh || strings.HasSuffix(host, "."+fh) {
			return true
		}
	}
	return false
}

// Authenticate uses the shared cookie-reuse / login-step flow. Feed
// sites are the common case for it: most hide full galleries behind a
// login wall.
func (h *FeedHandler) Authenticate(ctx context.Context, page browser.Page, env *AuthEnv) (AuthOutcome, error) {
	return authenticatePage(ctx, page, env)
}

// Extract prefers srcset descriptors (highest width wins) over lazy-load
// attributes over plain src, then collects native and embedded video.
func (h *FeedHandler) Extract(ctx context.Context, page browser.Page) ([]models.MediaCandidate, error) {
	pageURL := page.URL()
	var out []models.MediaCandidate
	seen := make(map[string]bool)

	add := func(raw string, width int, via models.StrategyID) {
		u := absolutize(pageURL, raw)
		if u == "" || seen[u] || IsThumbnailURL(u) {
			return
		}
		c := candidateFromURL(u, pageURL, via)
		if c.SourceURL == "" || seen[c.SourceURL] {
			return
		}
		c.Width = width
		seen[u] = true
		seen[c.SourceURL] = true
		out = append(out, c)
	}

	imgs, err := page.Query(ctx, "img")
	if err == nil {
		for _, img := range imgs {
			// srcset is authoritative: it names the real resolutions.
			if srcset, ok := img.Attribute("srcset"); ok {
				if best, width := BestFromSrcset(srcset); best != "" {
					add(best, width, models.StrategyDOM)
					continue
				}
			}
			// Lazy-loaded images keep the real URL off src until
			// visible; when a lazy attribute exists, src is a placeholder.
			lazy := false
			for _, attr := range []string{"data-src", "data-original", "data-lazy-src"} {
				if v, ok := img.Attribute(attr); ok && v != "" {
					add(v, 0, models.StrategyDOM)
					lazy = true
					break
				}
			}
			if lazy {
				continue
			}
			if src, ok := img.Attribute("src"); ok {
				add(src, 0, models.StrategyDOM)
			}
		}
	}

	// Native video elements and third-party embeds.
	if vids, err := page.Query(ctx, "video[src], video source[src], iframe[src]"); err == nil {
		for _, v := range vids {
			src, ok := v.Attribute("src")
			if !ok {
				continue
			}
			u := absolutize(pageURL, src)
			if u == "" || seen[u] {
				continue
			}
			kind, isMedia := kindForURL(u)
			if (isMedia && kind == models.KindVideo) || isVideoEmbed(u) {
				seen[u] = true
				out = append(out, models.MediaCandidate{
					SourceURL:     u,
					Kind:          models.KindVideo,
					OriginPage:    pageURL,
					DiscoveredVia: models.StrategyDOM,
				})
			}
		}
	}

	// Attribute author from og:site metadata or profile header when present.
	if metas, err := page.Query(ctx, `meta[property="og:title"]`); err == nil && len(metas) > 0 {
		if content, ok := metas[0].Attribute("content"); ok && content != "" {
			for i := range out {
				out[i].Author = content
			}
		}
	}

	return out, nil
}

// PaginateHint asks for scroll steps; feed pages load content as the
// viewport advances. A visible "load more" control is clicked instead.
func (h *FeedHandler) PaginateHint(ctx context.Context, page browser.Page) models.PaginationAction {
	for _, sel := range []string{"button.load-more", "a.load-more", "[data-testid=load-more]"} {
		if els, err := page.Query(ctx, sel); err == nil && len(els) > 0 {
			return models.RevealHidden(sel)
		}
	}
	return models.Scroll(h.scrollCount)
}
