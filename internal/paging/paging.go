// Package paging computes page windows over a search's result set.
// Requested pages are clamped, never rejected: stale or reordered
// navigation requests simply land on a valid page recomputed from the
// session's current results.
package paging

import (
	"github.com/shohabbosdev/registrybot/internal/registry"
	"github.com/shohabbosdev/registrybot/internal/session"
)

// DefaultPageSize is how many records one page shows.
const DefaultPageSize = 7

// PageView is everything a renderer needs for one page. Summary covers
// the whole result set, not the window, so the headline counts stay
// stable while the user pages around.
type PageView struct {
	Items      []registry.Record
	Page       int
	TotalPages int
	Summary    registry.Summary
}

// TotalPages is max(1, ceil(n/size)); an empty result set still has
// one (empty) page.
func TotalPages(n, size int) int {
	if size < 1 {
		size = 1
	}
	pages := (n + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return pages
}

// RenderPage clamps requested into range, slices the window and
// records the effective page on the session.
func RenderPage(eng *registry.Engine, s *session.Session, results []registry.Record, requested, size int) PageView {
	if size < 1 {
		size = DefaultPageSize
	}
	total := TotalPages(len(results), size)
	page := requested
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	start := (page - 1) * size
	end := start + size
	if end > len(results) {
		end = len(results)
	}
	if s != nil {
		s.SetPage(page)
	}
	return PageView{
		Items:      results[start:end],
		Page:       page,
		TotalPages: total,
		Summary:    eng.Summarize(results),
	}
}
