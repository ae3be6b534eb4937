package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gallerygrab/pkg/browser"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
)

// ForumHandler extracts media from forum-software topic pages. Forums
// link attachments through thumbnails whose full-size original is either
// the anchor href or the thumbnail URL with its size marker stripped,
// and expose pagination through explicit "page X of Y" controls.
type ForumHandler struct {
	log logger.Logger
}

// NewForumHandler creates the forum site-family handler.
func NewForumHandler(log logger.Logger) *ForumHandler {
	return &ForumHandler{log: log}
}

func (h *ForumHandler) Name() string { return "forum" }

// CanHandle matches topic and board URLs of common forum software.
func (h *ForumHandler) CanHandle(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if strings.Contains(lower, "/topic/") || strings.Contains(lower, "/threads/") || strings.Contains(lower, "/forums/") {
		return true
	}
	return strings.Contains(hostOf(rawURL), "forum")
}

// RevealSelectors opens spoiler and collapsed-quote blocks before each
// extraction pass so hidden attachments count toward new items.
func (h *ForumHandler) RevealSelectors() []string {
	return []string{
		".ipsSpoiler .ipsSpoiler_header",
		"details:not([open]) summary",
		".bbc_spoiler_show",
	}
}

// Authenticate uses the shared cookie-reuse / login-step flow.
func (h *ForumHandler) Authenticate(ctx context.Context, page browser.Page, env *AuthEnv) (AuthOutcome, error) {
	return authenticatePage(ctx, page, env)
}

// Extract walks post attachments in signal-priority order: explicit
// full-resolution attributes first, then anchor hrefs around thumbnails,
// then bare image sources upgraded from their thumbnail form.
func (h *ForumHandler) Extract(ctx context.Context, page browser.Page) ([]models.MediaCandidate, error) {
	pageURL := page.URL()
	var out []models.MediaCandidate
	seen := make(map[string]bool)

	add := func(raw string, via models.StrategyID) {
		u := absolutize(pageURL, raw)
		if u == "" || seen[u] {
			return
		}
		c := candidateFromURL(u, pageURL, via)
		if c.SourceURL == "" || seen[c.SourceURL] {
			return
		}
		seen[u] = true
		seen[c.SourceURL] = true
		out = append(out, c)
	}

	// Authoritative full-resolution attributes.
	for _, sel := range []string{"a[data-fullurl]", "a[data-full-image]", "img[data-fullsize]"} {
		els, err := page.Query(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			for _, attr := range []string{"data-fullurl", "data-full-image", "data-fullsize"} {
				if v, ok := el.Attribute(attr); ok && !IsThumbnailURL(v) {
					add(v, models.StrategyDOM)
					break
				}
			}
		}
	}

	// Attachment anchors: the href is the original, the img inside is
	// the thumbnail.
	if els, err := page.Query(ctx, "a.ipsAttachLink_image, a[href] > img"); err == nil && len(els) > 0 {
		anchors, aerr := page.Query(ctx, "a[href]")
		if aerr == nil {
			for _, a := range anchors {
				href, ok := a.Attribute("href")
				if !ok {
					continue
				}
				if _, isMedia := kindForURL(absolutize(pageURL, href)); isMedia {
					add(href, models.StrategyDOM)
				}
			}
		}
	}

	// Post images, upgrading thumbnail URLs to their originals.
	if imgs, err := page.Query(ctx, "img[src]"); err == nil {
		for _, img := range imgs {
			src, ok := img.Attribute("src")
			if !ok {
				continue
			}
			if full, upgraded := UpgradeThumbnailURL(src); upgraded {
				add(full, models.StrategyDOM)
			} else if !IsThumbnailURL(src) {
				add(src, models.StrategyDOM)
			}
		}
	}

	// Embedded third-party video: emitted as video candidates for the
	// external downloader, never fetched directly.
	if frames, err := page.Query(ctx, "iframe[src], video source[src], video[src]"); err == nil {
		for _, f := range frames {
			src, ok := f.Attribute("src")
			if !ok {
				continue
			}
			u := absolutize(pageURL, src)
			if u == "" || seen[u] {
				continue
			}
			if kind, isMedia := kindForURL(u); (isMedia && kind == models.KindVideo) || isVideoEmbed(u) {
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

	// Best-effort title for metadata sidecars.
	if titles, err := page.Query(ctx, "h1.ipsType_pageTitle, h1.p-title-value, h1"); err == nil && len(titles) > 0 {
		if title := strings.TrimSpace(titles[0].Text()); title != "" {
			for i := range out {
				out[i].Title = title
			}
		}
	}

	return out, nil
}

// pageOfRe matches "Page 3 of 17" pagination labels.
var pageOfRe = regexp.MustCompile(`(?i)page\s+(\d+)\s+of\s+(\d+)`)

// pagePathRe matches the /page/N/ segment forum URLs carry past page 1.
var pagePathRe = regexp.MustCompile(`/page/(\d+)/?$`)

// PaginateHint reads the "page X of Y" control and advances with an
// explicit /page/N/ URL; topics without one are single-page.
func (h *ForumHandler) PaginateHint(ctx context.Context, page browser.Page) models.PaginationAction {
	pageURL := page.URL()
	current, total := h.detectPageOf(ctx, page, pageURL)

	if total > 0 && current < total {
		return models.NextPage(buildForumPageURL(pageURL, current+1))
	}

	// Fall back to an explicit rel=next link.
	if els, err := page.Query(ctx, "a[rel=next], link[rel=next]"); err == nil {
		for _, el := range els {
			if href, ok := el.Attribute("href"); ok {
				if u := absolutize(pageURL, href); u != "" {
					return models.NextPage(u)
				}
			}
		}
	}

	return models.Done()
}

// detectPageOf determines the current and total page numbers from the
// pagination control text and the URL.
func (h *ForumHandler) detectPageOf(ctx context.Context, page browser.Page, pageURL string) (current, total int) {
	current = 1
	if m := pagePathRe.FindStringSubmatch(strings.TrimSuffix(pageURL, "/") + "/"); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			current = n
		}
	}

	for _, sel := range []string{".ipsPagination_pageJump", ".pageNav-main", ".pagination"} {
		els, err := page.Query(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if m := pageOfRe.FindStringSubmatch(el.Text()); m != nil {
				if cur, err := strconv.Atoi(m[1]); err == nil {
					current = cur
				}
				if tot, err := strconv.Atoi(m[2]); err == nil {
					total = tot
				}
				return current, total
			}
		}
	}

	return current, total
}

// buildForumPageURL produces the URL for page n of a topic, replacing
// an existing /page/N/ segment or appending one.
func buildForumPageURL(pageURL string, n int) string {
	trimmed := strings.TrimSuffix(pageURL, "/")
	if pagePathRe.MatchString(trimmed + "/") {
		return pagePathRe.ReplaceAllString(trimmed+"/", fmt.Sprintf("/page/%d/", n))
	}
	return trimmed + fmt.Sprintf("/page/%d/", n)
}
