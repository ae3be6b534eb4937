package extract

import (
	"context"
	"net/url"
	"strings"

	"gallerygrab/pkg/browser"
	"gallerygrab/pkg/config"
	errs "gallerygrab/pkg/errors"
	"gallerygrab/pkg/handlers"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
)

// Orchestrator runs the strategy chain against one page and applies the
// size and thumbnail filters to the merged result.
type Orchestrator struct {
	strategies    []Strategy
	minCandidates int
	minWidth      int
	minHeight     int
	log           logger.Logger
}

// NewOrchestrator builds the default DOM -> network -> HTML chain.
func NewOrchestrator(cfg *config.ExtractionConfig, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		strategies:    []Strategy{&DOMStrategy{}, &NetworkStrategy{}, &HTMLStrategy{}},
		minCandidates: cfg.MinCandidates,
		minWidth:      cfg.MinWidth,
		minHeight:     cfg.MinHeight,
		log:           log,
	}
}

// ExtractPage applies the fallback chain to the current page. The chain
// stops early once a strategy alone yields the minimum candidate count;
// otherwise results from all strategies are merged and de-duplicated by
// exact URL. Per-strategy failures are absorbed; the page only fails
// when every strategy in the chain fails.
func (o *Orchestrator) ExtractPage(ctx context.Context, page browser.Page, h handlers.Handler) ([]models.MediaCandidate, error) {
	var merged []models.MediaCandidate
	seen := make(map[string]bool)
	failures := 0
	var lastErr error

	for _, strategy := range o.strategies {
		candidates, err := strategy.Extract(ctx, page, h)
		if err != nil {
			failures++
			lastErr = err
			o.log.WarnWithFields("extraction strategy failed", map[string]interface{}{
				"strategy": string(strategy.ID()),
				"error":    err.Error(),
			})
			continue
		}

		fresh := 0
		for _, c := range candidates {
			if c.SourceURL == "" || seen[c.SourceURL] {
				continue
			}
			seen[c.SourceURL] = true
			merged = append(merged, c)
			fresh++
		}

		o.log.DebugWithFields("strategy finished", map[string]interface{}{
			"strategy":   string(strategy.ID()),
			"candidates": len(candidates),
			"fresh":      fresh,
		})

		if o.minCandidates > 0 && len(candidates) >= o.minCandidates {
			break
		}
	}

	if failures == len(o.strategies) {
		return nil, errs.New(errs.ErrorTypeExtraction, "every extraction strategy failed: %v", lastErr)
	}

	return o.Filter(merged), nil
}

// Filter applies the final thumbnail checkpoint and the minimum-size
// rule. Size applies to images only: video and audio dimensions are
// rarely known before download, and unknown (zero) dimensions are never
// grounds for rejection.
func (o *Orchestrator) Filter(candidates []models.MediaCandidate) []models.MediaCandidate {
	out := make([]models.MediaCandidate, 0, len(candidates))

	for _, c := range candidates {
		if handlers.IsThumbnailURL(c.SourceURL) {
			continue
		}
		if c.Kind == models.KindImage {
			if c.Width > 0 && o.minWidth > 0 && c.Width < o.minWidth {
				continue
			}
			if c.Height > 0 && o.minHeight > 0 && c.Height < o.minHeight {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// resolveURL resolves a possibly-relative reference against a base URL.
func resolveURL(baseURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

// mediaExtensions maps URL path suffixes to media kinds.
var mediaExtensions = map[string]models.MediaKind{
	".jpg": models.KindImage, ".jpeg": models.KindImage, ".png": models.KindImage,
	".gif": models.KindImage, ".webp": models.KindImage, ".bmp": models.KindImage,
	".avif": models.KindImage,
	".mp4":  models.KindVideo, ".webm": models.KindVideo, ".mov": models.KindVideo,
	".mkv": models.KindVideo, ".m3u8": models.KindVideo,
	".mp3": models.KindAudio, ".ogg": models.KindAudio, ".flac": models.KindAudio,
	".wav": models.KindAudio, ".m4a": models.KindAudio,
}

// kindFromURL classifies a URL by its path extension.
func kindFromURL(rawURL string) (models.MediaKind, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	path := strings.ToLower(u.Path)
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		if kind, ok := mediaExtensions[path[idx:]]; ok {
			return kind, true
		}
	}
	return "", false
}
