package handlers

import (
	"gallerygrab/pkg/config"
	"gallerygrab/pkg/logger"
)

// registration binds a handler to a URL predicate and a priority.
type registration struct {
	handler  Handler
	priority int
	match    func(url string) bool
}

// Registry resolves a URL to the most specific capable handler.
// Registration order matters only for priority ties: first registered
// wins. Reads are pure; the registry is not mutated after setup.
type Registry struct {
	entries []registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a handler with a predicate and priority.
func (r *Registry) Register(h Handler, priority int, match func(url string) bool) {
	r.entries = append(r.entries, registration{
		handler:  h,
		priority: priority,
		match:    match,
	})
}

// Resolve returns the highest-priority handler whose predicate matches.
// The generic fallback's always-true predicate guarantees a handler is
// always returned when it is registered.
func (r *Registry) Resolve(url string) Handler {
	var best Handler
	bestPriority := 0

	for _, e := range r.entries {
		if !e.match(url) {
			continue
		}
		if best == nil || e.priority > bestPriority {
			best = e.handler
			bestPriority = e.priority
		}
	}
	return best
}

// NewDefaultRegistry registers the built-in handlers: forum and feed
// site families plus the always-matching generic fallback.
func NewDefaultRegistry(cfg *config.Config, log logger.Logger) *Registry {
	r := NewRegistry()

	forum := NewForumHandler(log)
	r.Register(forum, 100, forum.CanHandle)

	feed := NewFeedHandler(cfg.Pagination.ScrollCount, log)
	r.Register(feed, 100, feed.CanHandle)

	generic := NewGenericHandler(cfg.Pagination.ScrollCount, log)
	r.Register(generic, 0, func(string) bool { return true })

	return r
}
