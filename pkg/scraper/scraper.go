// Package scraper wires the extraction pipeline end to end: handler
// resolution, authentication, pagination, and the download pool.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"gallerygrab/internal/downloader"
	"gallerygrab/pkg/archive"
	"gallerygrab/pkg/browser"
	"gallerygrab/pkg/config"
	"gallerygrab/pkg/dedup"
	errs "gallerygrab/pkg/errors"
	"gallerygrab/pkg/extract"
	"gallerygrab/pkg/handlers"
	"gallerygrab/pkg/handoff"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
	"gallerygrab/pkg/paginate"
	"gallerygrab/pkg/ratelimit"
	"gallerygrab/pkg/session"
	"gallerygrab/pkg/storage"
)

// Scraper owns the long-lived collaborators shared by all sessions:
// the browser, the handler registry, and the durable stores.
type Scraper struct {
	cfg      *config.Config
	browser  browser.Browser
	registry *handlers.Registry
	orch     *extract.Orchestrator
	engine   *paginate.Engine

	profileStore *session.Store
	authConfig   *session.AuthConfig
	credentials  handlers.CredentialSource

	archive *archive.Archive
	store   *storage.Manager
	handoff *handoff.Writer
	limiter *ratelimit.PerDomain

	log logger.Logger
}

// New builds a scraper from config, launching the browser and opening
// the durable stores.
func New(cfg *config.Config, log logger.Logger) (*Scraper, error) {
	b, err := browser.New(&cfg.Browser, log)
	if err != nil {
		return nil, err
	}

	profileStore, err := session.NewStore(cfg.Session.ProfileFile)
	if err != nil {
		b.Close()
		return nil, err
	}

	authConfig, err := session.LoadAuthConfig(cfg.Session.AuthConfigFile)
	if err != nil {
		b.Close()
		return nil, err
	}

	// Credential backends are optional: without them auth degrades to
	// cookie reuse only.
	var creds handlers.CredentialSource
	if mgr, err := session.NewCredentialManager(); err == nil {
		creds = mgr
	} else {
		log.WithError(err).Warn("credential stores unavailable, cookie reuse only")
	}

	arch, err := archive.Open(cfg.Output.ArchiveFile)
	if err != nil {
		b.Close()
		return nil, err
	}

	store, err := storage.NewManager(&cfg.Output, log)
	if err != nil {
		b.Close()
		arch.Close()
		return nil, err
	}

	ho, err := handoff.Open(cfg.Output.HandoffFile)
	if err != nil {
		b.Close()
		arch.Close()
		return nil, err
	}

	orch := extract.NewOrchestrator(&cfg.Extraction, log)

	refill := time.Minute
	if cfg.RateLimit.RequestsPerMinute > 0 {
		refill = time.Minute / time.Duration(cfg.RateLimit.RequestsPerMinute) * time.Duration(cfg.RateLimit.BurstSize)
	}
	limiter := ratelimit.NewPerDomain(cfg.RateLimit.BurstSize, refill)

	return &Scraper{
		cfg:          cfg,
		browser:      b,
		registry:     handlers.NewDefaultRegistry(cfg, log),
		orch:         orch,
		engine:       paginate.New(&cfg.Pagination, orch, limiter, log),
		profileStore: profileStore,
		authConfig:   authConfig,
		credentials:  creds,
		archive:      arch,
		store:        store,
		handoff:      ho,
		limiter:      limiter,
		log:          log,
	}, nil
}

// Close releases the browser and durable stores.
func (s *Scraper) Close() error {
	var firstErr error
	if err := s.browser.Close(); err != nil {
		firstErr = err
	}
	if err := s.archive.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.handoff.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Run extracts and downloads all media reachable from one target URL.
// Partial failures are reported through the summary; only an unreachable
// first page is a run-level error.
func (s *Scraper) Run(ctx context.Context, targetURL string) (*models.Summary, error) {
	handler := s.registry.Resolve(targetURL)
	if handler == nil {
		return nil, errs.New(errs.ErrorTypeUnknown, "no handler resolved for %s", targetURL)
	}

	sess := models.NewSession(targetURL)
	sess.HandlerName = handler.Name()

	s.log.InfoWithFields("starting extraction", map[string]interface{}{
		"url":     targetURL,
		"handler": handler.Name(),
	})

	// One page context per session; DOM state is not shareable.
	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	s.limiter.Wait(hostOf(targetURL))

	// An unreachable first page fails the whole run.
	if err := page.Navigate(ctx, targetURL, s.cfg.Browser.NavigateTimeout); err != nil {
		return nil, err
	}

	outcome, authErr := handler.Authenticate(ctx, page, &handlers.AuthEnv{
		Store:       s.profileStore,
		Config:      s.authConfig,
		Credentials: s.credentials,
		SaveCookies: s.cfg.Session.SaveCookies,
		Logger:      s.log,
	})
	if authErr != nil {
		// Auth failure downgrades to anonymous extraction.
		sess.RecordError(fmt.Sprintf("authentication failed: %v", authErr))
	}
	s.log.InfoWithFields("authentication resolved", map[string]interface{}{
		"outcome": string(outcome),
	})

	s.engine.Run(ctx, sess, page, handler)

	records := s.download(ctx, sess.Candidates)

	return s.summarize(sess, records), nil
}

// RunBatch runs independent sessions for several target URLs in
// parallel, each owning its own page context.
func (s *Scraper) RunBatch(ctx context.Context, urls []string) []*models.Summary {
	summaries := make([]*models.Summary, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			summary, err := s.Run(ctx, u)
			if err != nil {
				summary = &models.Summary{
					TargetURL:   u,
					Termination: string(models.TerminatedError),
					Errors:      []string{err.Error()},
				}
			}
			summaries[i] = summary
		}(i, u)
	}
	wg.Wait()

	return summaries
}

// download runs the scheduler over the session's candidates.
func (s *Scraper) download(ctx context.Context, candidates []models.MediaCandidate) []models.DownloadRecord {
	fetcher := downloader.NewHTTPFetcher(s.cfg.Browser.UserAgent)

	// Downloads are paced by a true requests-per-minute window; the
	// burstier token buckets stay on page navigation.
	var limiter ratelimit.Limiter
	if s.cfg.RateLimit.RequestsPerMinute > 0 {
		limiter = ratelimit.NewSlidingWindow(s.cfg.RateLimit.RequestsPerMinute, time.Minute)
	}

	// The perceptual index is scoped to one run: only the archive
	// carries download state across sessions, so parallel sessions
	// never discard each other's near-matches.
	sched := downloader.NewScheduler(
		&s.cfg.Download,
		fetcher,
		s.archive,
		dedup.New(&s.cfg.Dedup, s.log),
		s.store,
		s.handoff,
		limiter,
		s.log,
	)
	return sched.Run(ctx, candidates)
}

// hostOf extracts the lowercased host from a URL for rate-limit keying.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}

// summarize folds download records into the per-run summary.
func (s *Scraper) summarize(sess *models.ExtractionSession, records []models.DownloadRecord) *models.Summary {
	summary := &models.Summary{
		TargetURL:    sess.TargetURL,
		Handler:      sess.HandlerName,
		Discovered:   len(sess.Candidates),
		PagesVisited: sess.PagesVisited,
		Termination:  string(sess.Termination),
		Errors:       sess.Errors,
	}

	for _, rec := range records {
		switch rec.Status {
		case models.StatusDone:
			if rec.Reason == models.ReasonHandoff {
				summary.HandedOff++
			} else {
				summary.Downloaded++
			}
		case models.StatusSkipped:
			if rec.Reason == models.ReasonDuplicate {
				summary.Deduplicated++
			} else {
				summary.Skipped++
			}
		case models.StatusFailed:
			summary.Failed++
			if rec.Reason != "" {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", rec.Candidate.SourceURL, rec.Reason))
			}
		}
	}

	return summary
}
