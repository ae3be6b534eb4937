package handlers

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Thumbnail markers are rejected at three independent checkpoints: when
// a handler reads the DOM, when a candidate is constructed, and in the
// orchestrator's final filter. The triple check guarantees zero
// thumbnail leakage even if a site change bypasses one of them.

// thumbMarkerRe matches forum-software thumbnail suffixes like
// "photo.jpg.thumb.jpg" and plain ".thumb." infixes.
var thumbMarkerRe = regexp.MustCompile(`(?i)\.thumb\.(jpe?g|png|gif|webp)`)

// resizedSuffixRe matches CMS-style resized filenames like
// "photo-300x200.jpg".
var resizedSuffixRe = regexp.MustCompile(`(?i)-(\d{2,4})x(\d{2,4})(\.(?:jpe?g|png|gif|webp))$`)

// thumbPathSegments are URL path pieces that mark a scaled-down copy.
var thumbPathSegments = []string{
	"/thumb/", "/thumbs/", "/thumbnail/", "/thumbnails/", "/tn/", "/small/", "/preview/",
}

// IsThumbnailURL reports whether a URL carries a known thumbnail marker.
func IsThumbnailURL(rawURL string) bool {
	if thumbMarkerRe.MatchString(rawURL) {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)

	for _, seg := range thumbPathSegments {
		if strings.Contains(path, seg) {
			return true
		}
	}
	return false
}

// UpgradeThumbnailURL reconstructs a full-size URL from a thumbnail URL
// where the marker encodes one: ".thumb." suffixes are stripped and
// resized-filename suffixes removed. Returns the input unchanged with
// ok=false when no reconstruction applies.
func UpgradeThumbnailURL(rawURL string) (string, bool) {
	if thumbMarkerRe.MatchString(rawURL) {
		return thumbMarkerRe.ReplaceAllString(rawURL, ""), true
	}
	if m := resizedSuffixRe.FindStringSubmatch(rawURL); m != nil {
		return resizedSuffixRe.ReplaceAllString(rawURL, "$3"), true
	}
	return rawURL, false
}

// BestFromSrcset picks the highest-width entry from a srcset attribute.
// When several entries report the same width the first listed wins, so
// selection is deterministic. Entries without a width descriptor count
// as width 0.
func BestFromSrcset(srcset string) (string, int) {
	bestURL := ""
	bestWidth := -1

	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(entry))
		if len(fields) == 0 {
			continue
		}

		u := fields[0]
		width := 0
		if len(fields) > 1 {
			desc := fields[1]
			if strings.HasSuffix(desc, "w") {
				if n, err := strconv.Atoi(strings.TrimSuffix(desc, "w")); err == nil {
					width = n
				}
			}
		}

		if width > bestWidth {
			bestURL = u
			bestWidth = width
		}
	}

	if bestWidth < 0 {
		return "", 0
	}
	return bestURL, bestWidth
}
