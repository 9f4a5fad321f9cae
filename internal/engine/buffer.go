package engine

import (
	"sync"
	"time"
)

// BufferState describes where a canonical title sits in its lifecycle.
type BufferState string

const (
	// StateEmpty: created but no quotes yet.
	StateEmpty BufferState = "EMPTY"
	// StatePartial: has quotes but some outcome is quoted by fewer than two
	// venues and no outcome reaches two.
	StatePartial BufferState = "PARTIAL"
	// StateCovered: every outcome has at least one quote and at least one
	// outcome is quoted by two or more venues.
	StateCovered BufferState = "COVERED"
	// StateArbHot: the last detection pass emitted an opportunity here.
	StateArbHot BufferState = "ARB_HOT"
	// StateStale: every constituent quote is older than the stale horizon.
	StateStale BufferState = "STALE"
)

// quoteSlot is the freshest quote for one (canonical, outcome, venue) cell.
type quoteSlot struct {
	venue       string
	marketID    string
	price       float64
	impliedProb float64
	capturedAt  time.Time
}

// marketBook holds all quotes for one canonical title:
// outcome name -> venue slug -> freshest quote.
type marketBook struct {
	category string
	outcomes map[string]map[string]*quoteSlot
	arbHot   bool
}

// Buffer is the engine's in-memory view of the market, keyed by canonical
// title. Writes collapse by (canonical, outcome, venue): a newer quote from
// the same venue replaces the slot, an older one is dropped.
type Buffer struct {
	mu    sync.RWMutex
	books map[string]*marketBook

	// rawTitles remembers every raw title routed into each canonical key, so
	// reclustering can re-run the matcher over the full raw population.
	rawTitles map[string]string

	// rawVenues remembers which venue produced each raw title, feeding the
	// matcher's same-venue gate at recluster.
	rawVenues map[string]string
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		books:     make(map[string]*marketBook),
		rawTitles: make(map[string]string),
		rawVenues: make(map[string]string),
	}
}

// Apply routes one stream update into its canonical book. Returns false when
// the update was dropped because a fresher quote already occupies the slot.
func (b *Buffer) Apply(canonical string, u Update) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rawTitles[u.MarketTitle] = canonical
	b.rawVenues[u.MarketTitle] = u.Venue

	book := b.books[canonical]
	if book == nil {
		book = &marketBook{
			category: u.Category,
			outcomes: make(map[string]map[string]*quoteSlot),
		}
		b.books[canonical] = book
	}

	venues := book.outcomes[u.OutcomeName]
	if venues == nil {
		venues = make(map[string]*quoteSlot)
		book.outcomes[u.OutcomeName] = venues
	}

	if prev := venues[u.Venue]; prev != nil && prev.capturedAt.After(u.CapturedAt) {
		return false
	}
	venues[u.Venue] = &quoteSlot{
		venue:       u.Venue,
		marketID:    u.MarketID,
		price:       u.Price,
		impliedProb: u.ImpliedProb,
		capturedAt:  u.CapturedAt,
	}
	return true
}

// RawTitles returns every raw title currently routed through the buffer.
func (b *Buffer) RawTitles() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	titles := make([]string, 0, len(b.rawTitles))
	for t := range b.rawTitles {
		titles = append(titles, t)
	}
	return titles
}

// Categories returns the category per raw title, for matcher gating.
func (b *Buffer) Categories() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cats := make(map[string]string, len(b.rawTitles))
	for raw, canonical := range b.rawTitles {
		if book := b.books[canonical]; book != nil {
			cats[raw] = book.category
		}
	}
	return cats
}

// Venues returns the source venue per raw title, for matcher gating.
func (b *Buffer) Venues() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	venues := make(map[string]string, len(b.rawVenues))
	for raw, venue := range b.rawVenues {
		venues[raw] = venue
	}
	return venues
}

// bookView is an immutable copy of one canonical book handed to detection.
type bookView struct {
	canonical string
	category  string
	outcomes  map[string][]quoteSlot
	arbHot    bool
}

// Snapshot copies the buffer for a detection pass. Slot order within an
// outcome is insertion-independent; detection tie-breaks by capturedAt.
func (b *Buffer) Snapshot() []bookView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	views := make([]bookView, 0, len(b.books))
	for canonical, book := range b.books {
		view := bookView{
			canonical: canonical,
			category:  book.category,
			outcomes:  make(map[string][]quoteSlot, len(book.outcomes)),
			arbHot:    book.arbHot,
		}
		for outcome, venues := range book.outcomes {
			slots := make([]quoteSlot, 0, len(venues))
			for _, s := range venues {
				slots = append(slots, *s)
			}
			view.outcomes[outcome] = slots
		}
		views = append(views, view)
	}
	return views
}

// MarkArbHot records whether the last detection pass emitted on this title.
func (b *Buffer) MarkArbHot(canonical string, hot bool) {
	b.mu.Lock()
	if book := b.books[canonical]; book != nil {
		book.arbHot = hot
	}
	b.mu.Unlock()
}

// State derives the lifecycle state of one canonical title.
func (b *Buffer) State(canonical string, now time.Time, staleHorizon time.Duration) BufferState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	book := b.books[canonical]
	if book == nil || len(book.outcomes) == 0 {
		return StateEmpty
	}

	allStale := true
	crossVenue := false
	for _, venues := range book.outcomes {
		if len(venues) >= 2 {
			crossVenue = true
		}
		for _, s := range venues {
			if now.Sub(s.capturedAt) <= staleHorizon {
				allStale = false
			}
		}
	}
	if allStale {
		return StateStale
	}
	if book.arbHot {
		return StateArbHot
	}
	if crossVenue {
		return StateCovered
	}
	return StatePartial
}

// Recluster rebuilds the buffer under a fresh canonical map, merging
// sub-buffers whose titles moved and preferring the freshest quote per
// (outcome, venue) cell. Books whose quotes are all older than staleHorizon
// are dropped entirely.
func (b *Buffer) Recluster(canonical map[string]string, now time.Time, staleHorizon time.Duration) (moved, dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[string]*marketBook, len(b.books))
	nextRaw := make(map[string]string, len(b.rawTitles))

	for raw, oldCanonical := range b.rawTitles {
		newCanonical, ok := canonical[raw]
		if !ok {
			newCanonical = oldCanonical
		}
		nextRaw[raw] = newCanonical
		if newCanonical != oldCanonical {
			moved++
		}

		src := b.books[oldCanonical]
		if src == nil {
			continue
		}
		dst := next[newCanonical]
		if dst == nil {
			dst = &marketBook{
				category: src.category,
				outcomes: make(map[string]map[string]*quoteSlot),
			}
			next[newCanonical] = dst
		}
		for outcome, venues := range src.outcomes {
			cells := dst.outcomes[outcome]
			if cells == nil {
				cells = make(map[string]*quoteSlot)
				dst.outcomes[outcome] = cells
			}
			for venue, s := range venues {
				if now.Sub(s.capturedAt) > staleHorizon {
					continue
				}
				if prev := cells[venue]; prev == nil || s.capturedAt.After(prev.capturedAt) {
					cells[venue] = s
				}
			}
		}
	}

	// Drop books and raw titles that came out empty after stale eviction.
	for key, book := range next {
		for outcome, venues := range book.outcomes {
			if len(venues) == 0 {
				delete(book.outcomes, outcome)
			}
		}
		if len(book.outcomes) == 0 {
			delete(next, key)
			dropped++
		}
	}
	for raw, key := range nextRaw {
		if _, ok := next[key]; !ok {
			delete(nextRaw, raw)
		}
	}
	for raw := range b.rawVenues {
		if _, ok := nextRaw[raw]; !ok {
			delete(b.rawVenues, raw)
		}
	}

	b.books = next
	b.rawTitles = nextRaw
	return moved, dropped
}

// Len returns the number of canonical titles tracked.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.books)
}
