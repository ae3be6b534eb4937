// Package paginate drives multi-page and infinite-scroll traversal
// until a termination condition is met.
package paginate

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"
	"time"

	"gallerygrab/pkg/browser"
	"gallerygrab/pkg/config"
	"gallerygrab/pkg/extract"
	"gallerygrab/pkg/handlers"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
	"gallerygrab/pkg/retry"
)

// scrollStep is the per-scroll viewport advance in pixels.
const scrollStep = 1200.0

// Engine runs the pagination loop for one session. Termination rules:
//   - a repeated page identifier trips the cycle guard (exhausted)
//   - two consecutive steps with zero new candidates end the run
//     (no_new_items)
//   - the configured page cap ends the run (max_pages)
//   - the handler reporting Done ends the run (exhausted)
type Engine struct {
	maxPages    int
	scrollDelay time.Duration
	orch        *extract.Orchestrator
	pacer       Pacer
	log         logger.Logger
}

// Pacer spaces successive requests to the same domain. Satisfied by
// ratelimit.PerDomain; nil disables pacing.
type Pacer interface {
	Wait(domain string)
}

// New creates a pagination engine.
func New(cfg *config.PaginationConfig, orch *extract.Orchestrator, pacer Pacer, log logger.Logger) *Engine {
	return &Engine{
		maxPages:    cfg.MaxPages,
		scrollDelay: cfg.ScrollDelay,
		orch:        orch,
		pacer:       pacer,
		log:         log,
	}
}

// Run traverses pages starting from the page's current location,
// accumulating candidates into the session. The page must already be
// navigated to the target URL. Errors local to one page are recorded on
// the session rather than returned.
func (e *Engine) Run(ctx context.Context, sess *models.ExtractionSession, page browser.Page, h handlers.Handler) {
	pageID := page.URL()
	zeroStreak := 0
	scrollDepth := 0
	revealDepth := 0

	for {
		if ctx.Err() != nil {
			sess.RecordError("run cancelled during pagination")
			sess.Termination = models.TerminatedError
			return
		}

		// Cycle guard: a repeated identifier means a self-referential
		// next link; abort instead of looping.
		if sess.MarkVisited(pageID) {
			e.log.WarnWithFields("pagination cycle detected", map[string]interface{}{
				"page_id": pageID,
			})
			sess.Termination = models.TerminatedExhausted
			return
		}
		sess.PagesVisited++

		e.revealHidden(ctx, page, h)

		candidates, err := e.orch.ExtractPage(ctx, page, h)
		if err != nil {
			sess.RecordError(fmt.Sprintf("extraction failed on %s: %v", pageID, err))
		}

		added := sess.AddCandidates(candidates)
		if added == 0 {
			zeroStreak++
		} else {
			zeroStreak = 0
		}

		e.log.InfoWithFields("page extracted", map[string]interface{}{
			"page_id": pageID,
			"page":    sess.PagesVisited,
			"added":   added,
			"total":   len(sess.Candidates),
		})

		if zeroStreak >= 2 {
			sess.Termination = models.TerminatedNoNewItems
			return
		}
		if e.maxPages > 0 && sess.PagesVisited >= e.maxPages {
			sess.Termination = models.TerminatedMaxPages
			return
		}

		action := h.PaginateHint(ctx, page)
		switch action.Kind {
		case models.PaginateDone:
			sess.Termination = models.TerminatedExhausted
			return

		case models.PaginateNextPage:
			if err := e.navigate(ctx, page, action.NextURL); err != nil {
				sess.RecordError(fmt.Sprintf("navigation to %s failed: %v", action.NextURL, err))
				sess.Termination = models.TerminatedError
				return
			}
			pageID = action.NextURL
			sess.Cursor = action.NextURL

		case models.PaginateScroll:
			count := action.ScrollCount
			if count <= 0 {
				count = 1
			}
			for i := 0; i < count; i++ {
				if err := page.Scroll(ctx, scrollStep); err != nil {
					sess.RecordError(fmt.Sprintf("scroll failed: %v", err))
					break
				}
				if e.scrollDelay > 0 {
					select {
					case <-time.After(e.scrollDelay):
					case <-ctx.Done():
					}
				}
			}
			scrollDepth += count
			pageID = fmt.Sprintf("%s#scroll-%d", sess.TargetURL, scrollDepth)
			sess.Cursor = pageID

		case models.PaginateReveal:
			for _, sel := range action.RevealSelectors {
				e.clickAll(ctx, page, sel)
			}
			revealDepth++
			pageID = fmt.Sprintf("%s#reveal-%d", sess.TargetURL, revealDepth)

		default:
			sess.Termination = models.TerminatedExhausted
			return
		}
	}
}

// navigate advances to the next page, retrying transient failures once
// before giving up. Navigation failure past the first page ends the
// session with partial results. Each navigation waits for the target
// domain's rate-limit slot first.
func (e *Engine) navigate(ctx context.Context, page browser.Page, nextURL string) error {
	if e.pacer != nil {
		e.pacer.Wait(hostOf(nextURL))
	}

	cfg := &retry.Config{
		MaxAttempts: 2,
		Backoff:     &retry.ConstantBackoff{Delay: 2 * time.Second},
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      e.log,
	}
	return retry.Do(func() error {
		return page.Navigate(ctx, nextURL, 30*time.Second)
	}, cfg)
}

// hostOf extracts the lowercased host from a URL for rate-limit keying.
func hostOf(rawURL string) string {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}

// revealHidden opens collapsed content blocks before extraction so
// hidden media counts toward new items.
func (e *Engine) revealHidden(ctx context.Context, page browser.Page, h handlers.Handler) {
	revealer, ok := h.(handlers.HiddenRevealer)
	if !ok {
		return
	}
	for _, sel := range revealer.RevealSelectors() {
		e.clickAll(ctx, page, sel)
	}
}

// clickAll clicks every element currently matching a selector.
func (e *Engine) clickAll(ctx context.Context, page browser.Page, selector string) {
	els, err := page.Query(ctx, selector)
	if err != nil || len(els) == 0 {
		return
	}
	// Clicking mutates the element list; click by selector one at a
	// time up to the observed count.
	for i := 0; i < len(els); i++ {
		if err := page.Click(ctx, selector); err != nil {
			return
		}
	}
}
