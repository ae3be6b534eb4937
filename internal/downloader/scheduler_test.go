package downloader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gallerygrab/pkg/archive"
	"gallerygrab/pkg/config"
	"gallerygrab/pkg/dedup"
	errs "gallerygrab/pkg/errors"
	"gallerygrab/pkg/handoff"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
	"gallerygrab/pkg/storage"
)

// MockFetcher is a mock implementation of the Fetcher interface
type MockFetcher struct {
	payload      []byte
	err          error
	failuresLeft int32 // transient failures before success
	fetchDelay   time.Duration
	fetchCounter int32

	mu         sync.Mutex
	perURLErrs map[string]error
}

func (m *MockFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	atomic.AddInt32(&m.fetchCounter, 1)
	if m.fetchDelay > 0 {
		time.Sleep(m.fetchDelay)
	}

	m.mu.Lock()
	urlErr := m.perURLErrs[url]
	m.mu.Unlock()
	if urlErr != nil {
		return nil, urlErr
	}

	if atomic.AddInt32(&m.failuresLeft, -1) >= 0 {
		return nil, errs.New(errs.ErrorTypeNetwork, "connection reset")
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.payload != nil {
		return m.payload, nil
	}
	return []byte("mock image data"), nil
}

func (m *MockFetcher) GetFetchCount() int {
	return int(atomic.LoadInt32(&m.fetchCounter))
}

func testScheduler(t *testing.T, fetcher Fetcher, cfg *config.DownloadConfig, dedupEnabled bool) (*Scheduler, *archive.Archive, *handoff.Writer) {
	t.Helper()

	arch, err := archive.Open("")
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	store, err := storage.NewManager(&config.OutputConfig{BaseDirectory: t.TempDir()}, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to create storage manager: %v", err)
	}
	ho, err := handoff.Open("")
	if err != nil {
		t.Fatalf("failed to open handoff writer: %v", err)
	}
	dd := dedup.New(&config.DedupConfig{Enabled: dedupEnabled, HammingThreshold: 5}, logger.NewNopLogger())

	s := NewScheduler(cfg, fetcher, arch, dd, store, ho, nil, logger.NewNopLogger())
	return s, arch, ho
}

func imageCandidates(n int) []models.MediaCandidate {
	out := make([]models.MediaCandidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.MediaCandidate{
			SourceURL: fmt.Sprintf("https://example.com/photo%d.jpg", i),
			Kind:      models.KindImage,
		})
	}
	return out
}

func TestSchedulerDownloadsAllCandidates(t *testing.T) {
	fetcher := &MockFetcher{fetchDelay: 5 * time.Millisecond}
	s, arch, _ := testScheduler(t, fetcher, &config.DownloadConfig{
		ConcurrentDownloads: 3,
		RetryAttempts:       3,
	}, false)

	records := s.Run(context.Background(), imageCandidates(10))

	if len(records) != 10 {
		t.Fatalf("Expected 10 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Status != models.StatusDone {
			t.Errorf("Record %d: expected done, got %s (%s)", i, rec.Status, rec.Reason)
		}
		if rec.LocalPath == "" {
			t.Errorf("Record %d: expected local path to be set", i)
		}
		if rec.BytesWritten == 0 {
			t.Errorf("Record %d: expected bytes written", i)
		}
	}
	if fetcher.GetFetchCount() != 10 {
		t.Errorf("Expected 10 fetches, got %d", fetcher.GetFetchCount())
	}
	if arch.Len() != 10 {
		t.Errorf("Expected 10 archive entries, got %d", arch.Len())
	}
}

func TestSchedulerSkipsArchivedCandidates(t *testing.T) {
	fetcher := &MockFetcher{}
	s, arch, _ := testScheduler(t, fetcher, &config.DownloadConfig{
		ConcurrentDownloads: 2,
		RetryAttempts:       3,
	}, false)

	candidates := imageCandidates(4)
	if err := arch.Add(candidates[1].SourceURL); err != nil {
		t.Fatalf("failed to seed archive: %v", err)
	}
	if err := arch.Add(candidates[3].SourceURL); err != nil {
		t.Fatalf("failed to seed archive: %v", err)
	}

	records := s.Run(context.Background(), candidates)

	skipped := 0
	for _, rec := range records {
		if rec.Status == models.StatusSkipped {
			skipped++
			if rec.Reason != models.ReasonArchived {
				t.Errorf("Expected archived reason, got %q", rec.Reason)
			}
		}
	}
	if skipped != 2 {
		t.Errorf("Expected 2 skipped records, got %d", skipped)
	}
	if fetcher.GetFetchCount() != 2 {
		t.Errorf("Expected 2 fetches, got %d", fetcher.GetFetchCount())
	}
}

func TestSchedulerRerunIsIdempotent(t *testing.T) {
	fetcher := &MockFetcher{}
	s, _, _ := testScheduler(t, fetcher, &config.DownloadConfig{
		ConcurrentDownloads: 2,
		RetryAttempts:       3,
	}, false)

	candidates := imageCandidates(5)
	s.Run(context.Background(), candidates)
	records := s.Run(context.Background(), candidates)

	for i, rec := range records {
		if rec.Status != models.StatusSkipped || rec.Reason != models.ReasonArchived {
			t.Errorf("Record %d: expected archived skip on rerun, got %s (%s)", i, rec.Status, rec.Reason)
		}
	}
	if fetcher.GetFetchCount() != 5 {
		t.Errorf("Expected 5 total fetches across both runs, got %d", fetcher.GetFetchCount())
	}
}

func TestSchedulerHandsOffVideoAndAudio(t *testing.T) {
	fetcher := &MockFetcher{}
	s, arch, ho := testScheduler(t, fetcher, &config.DownloadConfig{
		ConcurrentDownloads: 2,
		RetryAttempts:       3,
	}, false)

	candidates := []models.MediaCandidate{
		{SourceURL: "https://example.com/photo.jpg", Kind: models.KindImage},
		{SourceURL: "https://example.com/clip.mp4", Kind: models.KindVideo},
		{SourceURL: "https://example.com/track.mp3", Kind: models.KindAudio},
	}
	records := s.Run(context.Background(), candidates)

	if records[0].Status != models.StatusDone || records[0].Reason == models.ReasonHandoff {
		t.Errorf("Image: expected direct download, got %s (%s)", records[0].Status, records[0].Reason)
	}
	for _, i := range []int{1, 2} {
		if records[i].Status != models.StatusDone || records[i].Reason != models.ReasonHandoff {
			t.Errorf("Record %d: expected handoff, got %s (%s)", i, records[i].Status, records[i].Reason)
		}
		if records[i].LocalPath != "" {
			t.Errorf("Record %d: handoff must not produce a local file", i)
		}
	}
	if ho.Count() != 2 {
		t.Errorf("Expected 2 handoff records, got %d", ho.Count())
	}
	if fetcher.GetFetchCount() != 1 {
		t.Errorf("Expected 1 fetch (image only), got %d", fetcher.GetFetchCount())
	}
	if !arch.Contains("https://example.com/clip.mp4") {
		t.Error("Expected handed-off video to be archived")
	}
}

func TestSchedulerNonRetryableFailure(t *testing.T) {
	fetcher := &MockFetcher{
		perURLErrs: map[string]error{
			"https://example.com/photo2.jpg": errs.NewWithCode(errs.ErrorTypeNotFound, 404, "fetch returned status 404"),
		},
	}
	s, _, _ := testScheduler(t, fetcher, &config.DownloadConfig{
		ConcurrentDownloads: 2,
		RetryAttempts:       3,
	}, false)

	records := s.Run(context.Background(), imageCandidates(5))

	done, failed := 0, 0
	for _, rec := range records {
		switch rec.Status {
		case models.StatusDone:
			done++
		case models.StatusFailed:
			failed++
			if rec.AttemptCount != 1 {
				t.Errorf("Expected 1 attempt for non-retryable error, got %d", rec.AttemptCount)
			}
		}
	}
	if done != 4 || failed != 1 {
		t.Errorf("Expected 4 done and 1 failed, got %d done and %d failed", done, failed)
	}
}

func TestSchedulerRetriesTransientErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping backoff test in short mode")
	}

	fetcher := &MockFetcher{failuresLeft: 1}
	s, _, _ := testScheduler(t, fetcher, &config.DownloadConfig{
		ConcurrentDownloads: 1,
		RetryAttempts:       3,
	}, false)

	records := s.Run(context.Background(), imageCandidates(1))

	if records[0].Status != models.StatusDone {
		t.Fatalf("Expected done after retry, got %s (%s)", records[0].Status, records[0].Reason)
	}
	if records[0].AttemptCount != 2 {
		t.Errorf("Expected 2 attempts, got %d", records[0].AttemptCount)
	}
}

func TestSchedulerRejectsPayloadBelowMinimumSize(t *testing.T) {
	fetcher := &MockFetcher{payload: []byte("tiny")}
	s, arch, _ := testScheduler(t, fetcher, &config.DownloadConfig{
		ConcurrentDownloads: 1,
		RetryAttempts:       1,
		MinFileSize:         1024,
	}, false)

	records := s.Run(context.Background(), imageCandidates(1))

	if records[0].Status != models.StatusFailed {
		t.Errorf("Expected failed, got %s", records[0].Status)
	}
	if arch.Len() != 0 {
		t.Error("Undersized payload must not be archived")
	}
}

func TestSchedulerDiscardsPerceptualDuplicates(t *testing.T) {
	fetcher := &MockFetcher{payload: testPNG(t)}
	s, _, _ := testScheduler(t, fetcher, &config.DownloadConfig{
		ConcurrentDownloads: 1,
		RetryAttempts:       1,
	}, true)

	records := s.Run(context.Background(), []models.MediaCandidate{
		{SourceURL: "https://example.com/a.jpg", Kind: models.KindImage},
		{SourceURL: "https://example.com/a-mirror.jpg", Kind: models.KindImage},
	})

	done, duplicates := 0, 0
	for _, rec := range records {
		switch {
		case rec.Status == models.StatusDone:
			done++
		case rec.Status == models.StatusSkipped && rec.Reason == models.ReasonDuplicate:
			duplicates++
		}
	}
	if done != 1 || duplicates != 1 {
		t.Errorf("Expected 1 done and 1 duplicate, got %d done and %d duplicates", done, duplicates)
	}
}

func TestSchedulerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &MockFetcher{}
	s, _, _ := testScheduler(t, fetcher, &config.DownloadConfig{
		ConcurrentDownloads: 2,
		RetryAttempts:       1,
	}, false)

	records := s.Run(ctx, imageCandidates(6))

	for i, rec := range records {
		if rec.Status != models.StatusSkipped || rec.Reason != models.ReasonCancelled {
			t.Errorf("Record %d: expected cancelled skip, got %s (%s)", i, rec.Status, rec.Reason)
		}
	}
}

// testPNG renders a gradient so the difference hash is stable.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 8)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}
