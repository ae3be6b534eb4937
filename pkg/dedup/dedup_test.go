package dedup

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallerygrab/pkg/config"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
)

func newDedup(t *testing.T, threshold int) *Deduplicator {
	t.Helper()
	return New(&config.DedupConfig{Enabled: true, HammingThreshold: threshold}, logger.NewNopLogger())
}

// gradientPNG renders a horizontal gradient; reversed flips its
// direction, which flips every bit of the difference hash.
func gradientPNG(t *testing.T, reversed bool) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(x * 4)
			if reversed {
				v = uint8((63 - x) * 4)
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imgCandidate(url string) models.MediaCandidate {
	return models.MediaCandidate{SourceURL: url, Kind: models.KindImage}
}

func TestOfferFlagsVisualDuplicates(t *testing.T) {
	d := newDedup(t, 5)
	payload := gradientPNG(t, false)

	first := d.Offer(imgCandidate("https://host/a.jpg"), payload)
	require.True(t, first.Accepted)

	second := d.Offer(imgCandidate("https://host/a-copy.jpg"), payload)
	assert.False(t, second.Accepted)
	assert.Equal(t, "https://host/a.jpg", second.DuplicateOf)
	assert.Equal(t, 1, d.Size())
}

func TestOfferKeepsVisuallyDistinctImages(t *testing.T) {
	d := newDedup(t, 5)

	first := d.Offer(imgCandidate("https://host/a.png"), gradientPNG(t, false))
	second := d.Offer(imgCandidate("https://host/b.png"), gradientPNG(t, true))

	assert.True(t, first.Accepted)
	assert.True(t, second.Accepted)
	assert.Equal(t, 2, d.Size())
}

func TestOfferAcceptsUndecodablePayload(t *testing.T) {
	d := newDedup(t, 5)

	res := d.Offer(imgCandidate("https://host/broken.jpg"), []byte("not an image at all"))
	assert.True(t, res.Accepted)
	assert.Zero(t, d.Size())
}

func TestOfferSkipsNonImageKinds(t *testing.T) {
	d := newDedup(t, 5)

	res := d.Offer(models.MediaCandidate{
		SourceURL: "https://host/clip.mp4",
		Kind:      models.KindVideo,
	}, gradientPNG(t, false))
	assert.True(t, res.Accepted)
	assert.Zero(t, d.Size())
}

func TestOfferDisabledPassesEverything(t *testing.T) {
	d := New(&config.DedupConfig{Enabled: false, HammingThreshold: 5}, logger.NewNopLogger())
	payload := gradientPNG(t, false)

	assert.True(t, d.Offer(imgCandidate("https://host/a.jpg"), payload).Accepted)
	assert.True(t, d.Offer(imgCandidate("https://host/b.jpg"), payload).Accepted)
	assert.Zero(t, d.Size())
}

