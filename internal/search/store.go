// Package search owns the page list and the active search state.
package search

import (
	"log"
	"strings"
	"sync"

	"lecterm/internal/domain"
	"lecterm/internal/eventbus"
)

// Seeker is the one-directional dependency on the playback store: the search
// store only ever requests seeks, never the reverse.
type Seeker interface {
	SeekTo(ms float64)
}

// Store owns the immutable page list plus the query, match list and match
// cursor. Matches are collected by a single forward scan, so the index list
// is sorted ascending by construction.
type Store struct {
	mu     sync.RWMutex
	bus    eventbus.EventBus
	seeker Seeker

	pages   []domain.Page
	query   string
	matches []int // 0-based page indices
	cursor  int   // index into matches, -1 when there are none
}

// NewStore creates a search store that seeks through the given Seeker.
func NewStore(bus eventbus.EventBus, seeker Seeker) *Store {
	return &Store{
		bus:    bus,
		seeker: seeker,
		cursor: -1,
	}
}

// SetPages replaces the page list wholesale and drops any active search.
func (s *Store) SetPages(pages []domain.Page) {
	s.mu.Lock()
	s.pages = pages
	s.query = ""
	s.matches = nil
	s.cursor = -1
	count := len(pages)
	s.mu.Unlock()

	s.publish(domain.PagesLoadedEvent{Count: count})
}

// Pages returns the current page list. Callers must not mutate it.
func (s *Store) Pages() []domain.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pages
}

// PageCount returns the number of loaded pages.
func (s *Store) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Page returns the page at a 0-based index.
func (s *Store) Page(index int) (domain.Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.pages) {
		return domain.Page{}, false
	}
	return s.pages[index], true
}

// Search runs a case-insensitive substring search over the decoded page
// text. Blank queries are a no-op. The cursor moves to the first match and
// a seek to that page's timestamp is requested immediately.
func (s *Store) Search(query string) {
	if strings.TrimSpace(query) == "" {
		return
	}
	needle := strings.ToLower(query)

	s.mu.Lock()
	s.query = query
	s.matches = nil
	for i, p := range s.pages {
		if strings.Contains(strings.ToLower(p.Text), needle) {
			s.matches = append(s.matches, i)
		}
	}
	if len(s.matches) > 0 {
		s.cursor = 0
	} else {
		s.cursor = -1
	}
	matchCount := len(s.matches)
	cursor := s.cursor
	s.mu.Unlock()

	log.Printf("search: %q matched %d pages", query, matchCount)
	s.publish(domain.SearchUpdatedEvent{Query: query, Matches: matchCount, Cursor: cursor})
	s.seekToCurrent()
}

// FindNext advances the cursor cyclically and reseeks. No-op without an
// active query or matches.
func (s *Store) FindNext() {
	s.step(1)
}

// FindPrev retreats the cursor cyclically and reseeks.
func (s *Store) FindPrev() {
	s.step(-1)
}

func (s *Store) step(delta int) {
	s.mu.Lock()
	if s.query == "" || len(s.matches) == 0 {
		s.mu.Unlock()
		return
	}
	n := len(s.matches)
	s.cursor = ((s.cursor+delta)%n + n) % n
	query := s.query
	matchCount := n
	cursor := s.cursor
	s.mu.Unlock()

	s.publish(domain.SearchUpdatedEvent{Query: query, Matches: matchCount, Cursor: cursor})
	s.seekToCurrent()
}

// CancelSearch clears the query and match state. Calling it with nothing to
// clear emits no state churn.
func (s *Store) CancelSearch() {
	s.mu.Lock()
	if s.query == "" && len(s.matches) == 0 {
		s.mu.Unlock()
		return
	}
	s.query = ""
	s.matches = nil
	s.cursor = -1
	s.mu.Unlock()

	s.publish(domain.SearchClearedEvent{})
}

// seekToCurrent resolves the selected match to a timestamp and requests a
// seek. Out-of-range cursor values are a silent no-op.
func (s *Store) seekToCurrent() {
	s.mu.RLock()
	if s.cursor < 0 || s.cursor >= len(s.matches) {
		s.mu.RUnlock()
		return
	}
	index := s.matches[s.cursor]
	if index < 0 || index >= len(s.pages) {
		s.mu.RUnlock()
		return
	}
	ts := float64(s.pages[index].TimestampMs)
	seeker := s.seeker
	s.mu.RUnlock()

	if seeker != nil {
		seeker.SeekTo(ts)
	}
}

// Query returns the active search query.
func (s *Store) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Matches returns a copy of the matching page indices.
func (s *Store) Matches() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.matches))
	copy(out, s.matches)
	return out
}

// MatchCount returns the number of matches.
func (s *Store) MatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

// Cursor returns the position within the match list, -1 when empty.
func (s *Store) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// IsMatch reports whether a 0-based page index is in the match list.
func (s *Store) IsMatch(index int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.matches {
		if m == index {
			return true
		}
	}
	return false
}

func (s *Store) publish(ev eventbus.DomainEvent) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}
