package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsThumbnailURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://host/uploads/photo.jpg.thumb.jpg", true},
		{"https://host/uploads/photo.THUMB.PNG", true},
		{"https://host/thumbs/photo.jpg", true},
		{"https://host/thumbnail/photo.png", true},
		{"https://host/preview/photo.webp", true},
		{"https://host/uploads/photo.jpg", false},
		{"https://host/gallery/full/photo.png", false},
		// "thumb" inside a filename is not a path-segment marker
		{"https://host/uploads/greenthumb.jpg", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsThumbnailURL(tt.url), "url: %s", tt.url)
	}
}

func TestUpgradeThumbnailURL(t *testing.T) {
	tests := []struct {
		url      string
		want     string
		upgraded bool
	}{
		{"https://host/uploads/photo.jpg.thumb.jpg", "https://host/uploads/photo.jpg", true},
		{"https://host/uploads/photo.png.thumb.png", "https://host/uploads/photo.png", true},
		{"https://host/wp/image-300x200.jpg", "https://host/wp/image.jpg", true},
		{"https://host/wp/image-1024x768.png", "https://host/wp/image.png", true},
		{"https://host/uploads/photo.jpg", "https://host/uploads/photo.jpg", false},
	}

	for _, tt := range tests {
		got, upgraded := UpgradeThumbnailURL(tt.url)
		assert.Equal(t, tt.want, got, "url: %s", tt.url)
		assert.Equal(t, tt.upgraded, upgraded, "url: %s", tt.url)
	}
}

func TestBestFromSrcset(t *testing.T) {
	url, width := BestFromSrcset("small.jpg 480w, large.jpg 1600w, medium.jpg 800w")
	assert.Equal(t, "large.jpg", url)
	assert.Equal(t, 1600, width)
}

func TestBestFromSrcsetEqualWidthsPicksFirstListed(t *testing.T) {
	url, width := BestFromSrcset("first.jpg 1200w, second.jpg 1200w")
	assert.Equal(t, "first.jpg", url)
	assert.Equal(t, 1200, width)
}

func TestBestFromSrcsetNoDescriptors(t *testing.T) {
	url, width := BestFromSrcset("only.jpg")
	assert.Equal(t, "only.jpg", url)
	assert.Equal(t, 0, width)
}

func TestBestFromSrcsetEmpty(t *testing.T) {
	url, _ := BestFromSrcset("")
	assert.Equal(t, "", url)
}
