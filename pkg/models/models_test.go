package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionMarkVisited(t *testing.T) {
	s := NewSession("https://host/gallery")

	assert.False(t, s.MarkVisited("https://host/gallery"))
	assert.True(t, s.MarkVisited("https://host/gallery"))
	assert.False(t, s.MarkVisited("https://host/gallery#scroll-1"))
	assert.True(t, s.Visited("https://host/gallery#scroll-1"))
	assert.False(t, s.Visited("https://host/gallery?page=2"))
}

func TestSessionAddCandidatesDeduplicatesByURL(t *testing.T) {
	s := NewSession("https://host/gallery")

	added := s.AddCandidates([]MediaCandidate{
		{SourceURL: "https://host/a.jpg", Kind: KindImage},
		{SourceURL: "https://host/b.jpg", Kind: KindImage},
		{SourceURL: "https://host/a.jpg", Kind: KindImage},
		{SourceURL: "", Kind: KindImage},
	})
	assert.Equal(t, 2, added)
	assert.Len(t, s.Candidates, 2)

	added = s.AddCandidates([]MediaCandidate{
		{SourceURL: "https://host/b.jpg", Kind: KindImage},
	})
	assert.Zero(t, added)
}

func TestPaginationActionConstructors(t *testing.T) {
	next := NextPage("https://host/page/2/")
	assert.Equal(t, PaginateNextPage, next.Kind)
	assert.Equal(t, "https://host/page/2/", next.NextURL)

	scroll := Scroll(5)
	assert.Equal(t, PaginateScroll, scroll.Kind)
	assert.Equal(t, 5, scroll.ScrollCount)

	reveal := RevealHidden(".spoiler", "details summary")
	assert.Equal(t, PaginateReveal, reveal.Kind)
	assert.Equal(t, []string{".spoiler", "details summary"}, reveal.RevealSelectors)

	assert.Equal(t, PaginateDone, Done().Kind)
}
