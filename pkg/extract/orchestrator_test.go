package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallerygrab/pkg/browser"
	"gallerygrab/pkg/config"
	"gallerygrab/pkg/handlers"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
)

// fakePage serves canned HTML and sniffed network URLs.
type fakePage struct {
	url     string
	html    string
	sniffed []string
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.url = url
	return nil
}
func (p *fakePage) URL() string                                { return p.url }
func (p *fakePage) HTML(ctx context.Context) (string, error)   { return p.html, nil }
func (p *fakePage) Query(ctx context.Context, selector string) ([]browser.Element, error) {
	return nil, nil
}
func (p *fakePage) Eval(ctx context.Context, script string) (string, error) { return "", nil }
func (p *fakePage) Click(ctx context.Context, selector string) error        { return nil }
func (p *fakePage) Fill(ctx context.Context, selector, value string) error  { return nil }
func (p *fakePage) Press(ctx context.Context, key string) error             { return nil }
func (p *fakePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}
func (p *fakePage) Scroll(ctx context.Context, deltaY float64) error { return nil }
func (p *fakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return nil, nil
}
func (p *fakePage) Cookies(ctx context.Context) ([]browser.Cookie, error) { return nil, nil }
func (p *fakePage) SetCookies(ctx context.Context, cookies []browser.Cookie) error {
	return nil
}
func (p *fakePage) SniffedMediaURLs() []string { return p.sniffed }
func (p *fakePage) Close() error               { return nil }

// fakeHandler yields a fixed candidate list from its DOM pass.
type fakeHandler struct {
	candidates []models.MediaCandidate
	err        error
}

func (h *fakeHandler) Name() string { return "fake" }
func (h *fakeHandler) Authenticate(ctx context.Context, page browser.Page, env *handlers.AuthEnv) (handlers.AuthOutcome, error) {
	return handlers.AuthSkipped, nil
}
func (h *fakeHandler) Extract(ctx context.Context, page browser.Page) ([]models.MediaCandidate, error) {
	return h.candidates, h.err
}
func (h *fakeHandler) PaginateHint(ctx context.Context, page browser.Page) models.PaginationAction {
	return models.Done()
}

func img(url string, w, h int) models.MediaCandidate {
	return models.MediaCandidate{SourceURL: url, Kind: models.KindImage, Width: w, Height: h}
}

func TestFilterRejectsThumbnailsAndSmallImages(t *testing.T) {
	o := NewOrchestrator(&config.ExtractionConfig{MinWidth: 768, MinHeight: 768}, logger.NewNopLogger())

	in := []models.MediaCandidate{
		img("https://host/a.jpg", 1200, 900),
		img("https://host/a.thumb.jpg", 150, 150),
		img("https://host/b.jpg", 400, 300),
	}

	out := o.Filter(in)
	require.Len(t, out, 1)
	assert.Equal(t, "https://host/a.jpg", out[0].SourceURL)
}

func TestFilterKeepsUnknownDimensions(t *testing.T) {
	o := NewOrchestrator(&config.ExtractionConfig{MinWidth: 768, MinHeight: 768}, logger.NewNopLogger())

	out := o.Filter([]models.MediaCandidate{img("https://host/unknown.jpg", 0, 0)})
	assert.Len(t, out, 1)
}

func TestFilterNeverSizeFiltersVideo(t *testing.T) {
	o := NewOrchestrator(&config.ExtractionConfig{MinWidth: 768, MinHeight: 768}, logger.NewNopLogger())

	out := o.Filter([]models.MediaCandidate{
		{SourceURL: "https://host/clip.mp4", Kind: models.KindVideo, Width: 320, Height: 240},
	})
	assert.Len(t, out, 1)
}

func TestExtractPageStopsEarlyAtThreshold(t *testing.T) {
	o := NewOrchestrator(&config.ExtractionConfig{MinCandidates: 2}, logger.NewNopLogger())

	h := &fakeHandler{candidates: []models.MediaCandidate{
		img("https://host/one.jpg", 0, 0),
		img("https://host/two.jpg", 0, 0),
	}}
	// Network sniffing would add a third URL, but the DOM pass already
	// met the threshold.
	page := &fakePage{url: "https://host/", sniffed: []string{"https://host/three.jpg"}}

	out, err := o.ExtractPage(context.Background(), page, h)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestExtractPageFallsThroughAndMerges(t *testing.T) {
	o := NewOrchestrator(&config.ExtractionConfig{MinCandidates: 10}, logger.NewNopLogger())

	h := &fakeHandler{candidates: []models.MediaCandidate{img("https://host/one.jpg", 0, 0)}}
	page := &fakePage{
		url:     "https://host/",
		sniffed: []string{"https://host/one.jpg", "https://host/two.png"},
		html:    `<html><body><img src="https://host/three.gif"></body></html>`,
	}

	out, err := o.ExtractPage(context.Background(), page, h)
	require.NoError(t, err)

	urls := make([]string, 0, len(out))
	for _, c := range out {
		urls = append(urls, c.SourceURL)
	}
	assert.ElementsMatch(t, []string{
		"https://host/one.jpg",
		"https://host/two.png",
		"https://host/three.gif",
	}, urls)
}

func TestExtractPageAbsorbsSingleStrategyFailure(t *testing.T) {
	o := NewOrchestrator(&config.ExtractionConfig{MinCandidates: 10}, logger.NewNopLogger())

	h := &fakeHandler{err: assert.AnError}
	page := &fakePage{
		url:     "https://host/",
		sniffed: []string{"https://host/two.png"},
	}

	out, err := o.ExtractPage(context.Background(), page, h)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "https://host/two.png", out[0].SourceURL)
}

func TestScanHTML(t *testing.T) {
	html := `
	<html><body>
		<img srcset="https://host/s.jpg 320w, https://host/l.jpg 1600w">
		<img src="https://host/plain.png">
		<img src="https://host/pic.jpg.thumb.jpg">
		<a href="/files/linked.webp">download</a>
		<video src="https://host/clip.mp4"></video>
	</body></html>`

	out, err := ScanHTML(html, "https://host/page")
	require.NoError(t, err)

	urls := make(map[string]models.MediaKind)
	for _, c := range out {
		urls[c.SourceURL] = c.Kind
	}

	assert.Equal(t, models.KindImage, urls["https://host/l.jpg"])
	assert.Equal(t, models.KindImage, urls["https://host/plain.png"])
	assert.Equal(t, models.KindImage, urls["https://host/files/linked.webp"])
	assert.Equal(t, models.KindVideo, urls["https://host/clip.mp4"])
	assert.NotContains(t, urls, "https://host/pic.jpg.thumb.jpg")
	assert.NotContains(t, urls, "https://host/s.jpg")
}
