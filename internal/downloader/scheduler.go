// Package downloader is the bounded-concurrency fetch-and-persist
// pipeline: archive skip, external-downloader handoff, retrying fetch,
// perceptual dedup, and staged storage.
package downloader

import (
	"context"
	"sync"
	"time"

	"gallerygrab/pkg/archive"
	"gallerygrab/pkg/config"
	"gallerygrab/pkg/dedup"
	"gallerygrab/pkg/handoff"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
	"gallerygrab/pkg/ratelimit"
	"gallerygrab/pkg/retry"
	"gallerygrab/pkg/storage"
)

// Scheduler runs a fixed-size worker pool over pending candidates.
type Scheduler struct {
	numWorkers    int
	timeout       time.Duration
	retryAttempts int
	minFileSize   int64

	fetcher Fetcher
	archive *archive.Archive
	dedup   *dedup.Deduplicator
	store   *storage.Manager
	handoff *handoff.Writer
	limiter ratelimit.Limiter
	log     logger.Logger
}

// NewScheduler wires the download pipeline together.
func NewScheduler(
	cfg *config.DownloadConfig,
	fetcher Fetcher,
	arch *archive.Archive,
	dd *dedup.Deduplicator,
	store *storage.Manager,
	ho *handoff.Writer,
	limiter ratelimit.Limiter,
	log logger.Logger,
) *Scheduler {
	workers := cfg.ConcurrentDownloads
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Scheduler{
		numWorkers:    workers,
		timeout:       cfg.DownloadTimeout,
		retryAttempts: cfg.RetryAttempts,
		minFileSize:   cfg.MinFileSize,
		fetcher:       fetcher,
		archive:       arch,
		dedup:         dd,
		store:         store,
		handoff:       ho,
		limiter:       limiter,
		log:           log,
	}
}

// indexedRecord keeps results aligned with their input candidate.
type indexedRecord struct {
	idx int
	rec models.DownloadRecord
}

// Run downloads the candidate set and returns one record per candidate,
// in input order. On cancellation no new items are dequeued, in-flight
// items finish or abort individually, and staged partial files are
// discarded rather than promoted.
func (s *Scheduler) Run(ctx context.Context, candidates []models.MediaCandidate) []models.DownloadRecord {
	records := make([]models.DownloadRecord, len(candidates))
	for i, c := range candidates {
		records[i] = models.DownloadRecord{Candidate: c, Status: models.StatusPending}
	}
	if len(candidates) == 0 {
		return records
	}

	s.log.InfoWithFields("starting download pool", map[string]interface{}{
		"num_workers": s.numWorkers,
		"candidates":  len(candidates),
	})

	jobQueue := make(chan int, s.numWorkers*2)
	resultQueue := make(chan indexedRecord, s.numWorkers)

	var wg sync.WaitGroup
	for w := 0; w < s.numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobQueue {
				resultQueue <- indexedRecord{idx: idx, rec: s.process(ctx, workerID, candidates[idx])}
			}
		}(w)
	}

	// Feeder stops enqueuing on cancellation; queued-but-unstarted
	// items stay Pending until marked cancelled below.
	go func() {
		defer close(jobQueue)
		for i := range candidates {
			select {
			case jobQueue <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultQueue)
	}()

	for ir := range resultQueue {
		records[ir.idx] = ir.rec
	}

	if ctx.Err() != nil {
		for i := range records {
			if records[i].Status == models.StatusPending {
				records[i].Status = models.StatusSkipped
				records[i].Reason = models.ReasonCancelled
			}
		}
		if err := s.store.DiscardStaging(); err != nil {
			s.log.WithError(err).Warn("failed to discard staging files")
		}
	}

	return records
}

// process takes one candidate through the full pipeline.
func (s *Scheduler) process(ctx context.Context, workerID int, candidate models.MediaCandidate) models.DownloadRecord {
	rec := models.DownloadRecord{Candidate: candidate, Status: models.StatusPending}

	if ctx.Err() != nil {
		rec.Status = models.StatusSkipped
		rec.Reason = models.ReasonCancelled
		return rec
	}

	identifier := candidate.SourceURL

	// Archive check makes re-runs idempotent.
	if s.archive.Contains(identifier) {
		rec.Status = models.StatusSkipped
		rec.Reason = models.ReasonArchived
		return rec
	}

	// Video and audio go to the external downloader, never fetched here.
	if candidate.Kind != models.KindImage {
		if err := s.handoff.Write(candidate); err != nil {
			rec.Status = models.StatusFailed
			rec.Reason = err.Error()
			return rec
		}
		if err := s.archive.Add(identifier); err != nil {
			s.log.WithError(err).Warn("archive append failed after handoff")
		}
		rec.Status = models.StatusDone
		rec.Reason = models.ReasonHandoff
		return rec
	}

	rec.Status = models.StatusDownloading

	if s.limiter != nil && !s.limiter.Allow() {
		s.limiter.Wait()
	}

	data, err := s.fetch(ctx, candidate.SourceURL, &rec)
	if err != nil {
		rec.Status = models.StatusFailed
		rec.Reason = err.Error()
		s.log.ErrorWithFields("download failed", map[string]interface{}{
			"worker_id": workerID,
			"url":       candidate.SourceURL,
			"attempts":  rec.AttemptCount,
			"error":     err.Error(),
		})
		return rec
	}

	if s.minFileSize > 0 && int64(len(data)) < s.minFileSize {
		rec.Status = models.StatusFailed
		rec.Reason = "payload below minimum file size"
		return rec
	}

	// Perceptual dedup runs post-fetch, once pixel data exists.
	if result := s.dedup.Offer(candidate, data); !result.Accepted {
		rec.Status = models.StatusSkipped
		rec.Reason = models.ReasonDuplicate
		s.log.DebugWithFields("perceptual duplicate discarded", map[string]interface{}{
			"url":          candidate.SourceURL,
			"duplicate_of": result.DuplicateOf,
		})
		return rec
	}

	path, err := s.store.Store(candidate, data)
	if err != nil {
		rec.Status = models.StatusFailed
		rec.Reason = err.Error()
		return rec
	}

	if err := s.archive.Add(identifier); err != nil {
		s.log.WithError(err).Warn("archive append failed")
	}

	rec.Status = models.StatusDone
	rec.LocalPath = path
	rec.BytesWritten = int64(len(data))

	s.log.DebugWithFields("download complete", map[string]interface{}{
		"worker_id": workerID,
		"url":       candidate.SourceURL,
		"path":      path,
		"bytes":     rec.BytesWritten,
	})

	return rec
}

// fetch retrieves the payload with the configured retry policy, counting
// attempts on the record.
func (s *Scheduler) fetch(ctx context.Context, url string, rec *models.DownloadRecord) ([]byte, error) {
	cfg := &retry.Config{
		MaxAttempts: s.retryAttempts,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      s.log,
	}

	return retry.DoWithResult(func() ([]byte, error) {
		rec.AttemptCount++
		return s.fetcher.Fetch(ctx, url, s.timeout)
	}, cfg)
}
