// Package dedup filters visually near-identical media using perceptual
// hashing; exact-URL dedup happens upstream at candidate collection.
package dedup

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/corona10/goimagehash"

	"gallerygrab/pkg/config"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
)

// Result is the outcome of offering a candidate to the deduplicator.
type Result struct {
	Accepted    bool
	DuplicateOf string // source URL of the retained representative
}

// entry pairs a perceptual hash with the candidate it represents.
type entry struct {
	hash *goimagehash.ImageHash
	url  string
}

// Deduplicator maintains the set of seen perceptual hashes and answers
// near-duplicate queries. At most one representative survives per
// hash neighborhood within the configured Hamming-distance threshold.
// Safe for concurrent use by download workers.
type Deduplicator struct {
	enabled   bool
	threshold int
	log       logger.Logger

	mu      sync.Mutex
	entries []entry
}

// New creates a deduplicator from config.
func New(cfg *config.DedupConfig, log logger.Logger) *Deduplicator {
	return &Deduplicator{
		enabled:   cfg.Enabled,
		threshold: cfg.HammingThreshold,
		log:       log,
	}
}

// Offer hashes a downloaded payload and compares it against all
// retained hashes. A corrupt or undecodable payload is never treated as
// a duplicate; hashing trouble must not block the pipeline.
func (d *Deduplicator) Offer(candidate models.MediaCandidate, payload []byte) Result {
	if !d.enabled || candidate.Kind != models.KindImage || len(payload) == 0 {
		return Result{Accepted: true}
	}

	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		d.log.DebugWithFields("payload not decodable, skipping dedup", map[string]interface{}{
			"url":   candidate.SourceURL,
			"error": err.Error(),
		})
		return Result{Accepted: true}
	}

	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return Result{Accepted: true}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range d.entries {
		dist, err := hash.Distance(e.hash)
		if err != nil {
			continue
		}
		if dist <= d.threshold {
			return Result{Accepted: false, DuplicateOf: e.url}
		}
	}

	d.entries = append(d.entries, entry{hash: hash, url: candidate.SourceURL})
	return Result{Accepted: true}
}

// Size returns the number of retained representatives.
func (d *Deduplicator) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
