package playback

import (
	"lecterm/internal/domain"
	"lecterm/internal/eventbus"
)

// PageForTimestamp returns the 1-based index of the page with the greatest
// timestamp <= ms, found by binary search. It returns page 1 when the list
// is empty or ms precedes the first page. Pages must be sorted by ascending
// timestamp; this is assumed, not verified.
func PageForTimestamp(pages []domain.Page, ms float64) int {
	if len(pages) == 0 || float64(pages[0].TimestampMs) > ms {
		return 1
	}

	lo, hi := 0, len(pages)-1
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if float64(pages[mid].TimestampMs) <= ms {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best + 1
}

// TimestampForPage resolves a 1-based page index to its timestamp in
// milliseconds. A timestamp of exactly zero is reported as unknown, which
// suppresses seeking during page navigation.
func TimestampForPage(pages []domain.Page, page int) (float64, bool) {
	if page < 1 || page > len(pages) {
		return 0, false
	}
	ts := pages[page-1].TimestampMs
	if ts == 0 {
		return 0, false
	}
	return float64(ts), true
}

// Synchronizer keeps the page cursor consistent with the playback position
// and drives seeks from explicit page navigation.
type Synchronizer struct {
	store   *Store
	pagesFn func() []domain.Page
}

// NewSynchronizer creates a synchronizer over the given store. pagesFn must
// return the current page list sorted by ascending timestamp.
func NewSynchronizer(store *Store, pagesFn func() []domain.Page) *Synchronizer {
	return &Synchronizer{store: store, pagesFn: pagesFn}
}

// Bind subscribes the synchronizer to time updates on the bus and returns
// the unsubscribe function.
func (y *Synchronizer) Bind(bus eventbus.EventBus) func() {
	return bus.Subscribe(domain.EventTimeChanged, func(e eventbus.DomainEvent) {
		if ev, ok := e.(domain.TimeChangedEvent); ok {
			y.HandleTimeChange(ev.Ms)
		}
	})
}

// HandleTimeChange recomputes the page for the new position and moves the
// cursor only when it actually changed.
func (y *Synchronizer) HandleTimeChange(ms float64) {
	page := PageForTimestamp(y.pagesFn(), ms)
	if page == y.store.CurrentPage() {
		return
	}
	y.store.SetPage(page)
}

// GoToPage moves the cursor to a specific page and seeks to its timestamp
// when one is known.
func (y *Synchronizer) GoToPage(n int) bool {
	if !y.store.SetPage(n) {
		return false
	}
	y.seekToPage(n)
	return true
}

// NextPage advances one page.
func (y *Synchronizer) NextPage() bool {
	return y.GoToPage(y.store.CurrentPage() + 1)
}

// PrevPage retreats one page.
func (y *Synchronizer) PrevPage() bool {
	return y.GoToPage(y.store.CurrentPage() - 1)
}

// FirstPage jumps to the first page.
func (y *Synchronizer) FirstPage() bool {
	return y.GoToPage(1)
}

// LastPage jumps to the last page.
func (y *Synchronizer) LastPage() bool {
	return y.GoToPage(y.store.PageCount())
}

func (y *Synchronizer) seekToPage(n int) {
	ts, ok := TimestampForPage(y.pagesFn(), n)
	if !ok {
		return
	}
	y.store.SeekTo(ts)
}
