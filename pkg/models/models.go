package models

import "time"

// MediaKind classifies a discovered media candidate.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// StrategyID identifies which extraction strategy discovered a candidate.
type StrategyID string

const (
	StrategyDOM     StrategyID = "dom"
	StrategyNetwork StrategyID = "network"
	StrategyHTML    StrategyID = "html"
)

// MediaCandidate is a discovered, not-yet-downloaded media reference.
// It is immutable once produced by a handler. Width and Height are
// best-effort: zero means unknown and unknown dimensions are never
// grounds for filtering.
type MediaCandidate struct {
	SourceURL     string     `json:"source_url"`
	Kind          MediaKind  `json:"kind"`
	Width         int        `json:"width,omitempty"`
	Height        int        `json:"height,omitempty"`
	Title         string     `json:"title,omitempty"`
	Caption       string     `json:"caption,omitempty"`
	Author        string     `json:"author,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	OriginPage    string     `json:"origin_page"`
	DiscoveredVia StrategyID `json:"discovered_via"`
}

// DownloadStatus is the lifecycle state of a DownloadRecord. Done,
// Skipped and Failed are terminal.
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusDownloading DownloadStatus = "downloading"
	StatusDone        DownloadStatus = "done"
	StatusSkipped     DownloadStatus = "skipped"
	StatusFailed      DownloadStatus = "failed"
)

// Skip reasons recorded on DownloadRecord.Reason.
const (
	ReasonArchived  = "already in archive"
	ReasonDuplicate = "perceptual duplicate"
	ReasonHandoff   = "handed off to external downloader"
	ReasonCancelled = "run cancelled"
)

// DownloadRecord tracks one candidate through the download scheduler.
// Only the scheduler mutates it.
type DownloadRecord struct {
	Candidate    MediaCandidate `json:"candidate"`
	LocalPath    string         `json:"local_path,omitempty"`
	Status       DownloadStatus `json:"status"`
	BytesWritten int64          `json:"bytes_written"`
	AttemptCount int            `json:"attempt_count"`
	Reason       string         `json:"reason,omitempty"`
}

// PaginationKind tags a PaginationAction variant.
type PaginationKind string

const (
	PaginateNextPage PaginationKind = "next_page"
	PaginateScroll   PaginationKind = "scroll"
	PaginateReveal   PaginationKind = "reveal_hidden"
	PaginateDone     PaginationKind = "done"
)

// PaginationAction tells the pagination engine how the current site
// exposes more content.
type PaginationAction struct {
	Kind            PaginationKind
	NextURL         string
	ScrollCount     int
	RevealSelectors []string
}

// NextPage advances to an explicit URL.
func NextPage(url string) PaginationAction {
	return PaginationAction{Kind: PaginateNextPage, NextURL: url}
}

// Scroll asks the engine to scroll the current page count times.
func Scroll(count int) PaginationAction {
	return PaginationAction{Kind: PaginateScroll, ScrollCount: count}
}

// RevealHidden asks the engine to open collapsed content blocks before
// re-extracting.
func RevealHidden(selectors ...string) PaginationAction {
	return PaginationAction{Kind: PaginateReveal, RevealSelectors: selectors}
}

// Done reports that the handler has no further content.
func Done() PaginationAction {
	return PaginationAction{Kind: PaginateDone}
}

// TerminationReason explains why pagination stopped.
type TerminationReason string

const (
	TerminatedExhausted  TerminationReason = "exhausted"
	TerminatedMaxPages   TerminationReason = "max_pages"
	TerminatedNoNewItems TerminationReason = "no_new_items"
	TerminatedError      TerminationReason = "error"
)

// ExtractionSession is the per-run state for a single target URL. It is
// created per invocation and discarded at the end; candidates are kept
// in discovery order.
type ExtractionSession struct {
	TargetURL    string
	HandlerName  string
	Cursor       string
	Candidates   []MediaCandidate
	PagesVisited int
	Termination  TerminationReason
	Errors       []string

	visited  map[string]bool
	seenURLs map[string]bool
}

// NewSession creates an empty session for a target URL.
func NewSession(targetURL string) *ExtractionSession {
	return &ExtractionSession{
		TargetURL: targetURL,
		visited:   make(map[string]bool),
		seenURLs:  make(map[string]bool),
	}
}

// MarkVisited records a page identifier and reports whether it had been
// seen before. A repeat visit is the pagination cycle guard's trigger.
func (s *ExtractionSession) MarkVisited(pageID string) (alreadyVisited bool) {
	if s.visited[pageID] {
		return true
	}
	s.visited[pageID] = true
	return false
}

// Visited reports whether a page identifier has been recorded.
func (s *ExtractionSession) Visited(pageID string) bool {
	return s.visited[pageID]
}

// AddCandidates appends candidates whose URL has not been seen in this
// session and returns the number actually added.
func (s *ExtractionSession) AddCandidates(candidates []MediaCandidate) int {
	added := 0
	for _, c := range candidates {
		if c.SourceURL == "" || s.seenURLs[c.SourceURL] {
			continue
		}
		s.seenURLs[c.SourceURL] = true
		s.Candidates = append(s.Candidates, c)
		added++
	}
	return added
}

// RecordError appends a non-fatal error description to the session.
func (s *ExtractionSession) RecordError(desc string) {
	s.Errors = append(s.Errors, desc)
}

// Summary is the per-run result returned to the caller. Partial
// failures are reported through counts and Errors rather than a
// run-level error.
type Summary struct {
	TargetURL    string   `json:"target_url"`
	Handler      string   `json:"handler"`
	Discovered   int      `json:"discovered"`
	Downloaded   int      `json:"downloaded"`
	Skipped      int      `json:"skipped"`
	Deduplicated int      `json:"deduplicated"`
	Failed       int      `json:"failed"`
	HandedOff    int      `json:"handed_off"`
	PagesVisited int      `json:"pages_visited"`
	Termination  string   `json:"termination"`
	Errors       []string `json:"errors,omitempty"`
}
