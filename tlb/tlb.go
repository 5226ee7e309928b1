// Package tlb caches address translations in a set-associative directory.
package tlb

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Stats counts TLB activity.
type Stats struct {
	Lookups uint64
	Hits    uint64
	Misses  uint64
	Flushes uint64
}

// TLB maps page-aligned virtual addresses to an entry of type E.
//
// Tags and LRU state live in an akita cache directory; entries are stored
// alongside, indexed by (setID * ways + wayID).
type TLB[E any] struct {
	pageSize  uint64
	ways      int
	directory *akitacache.DirectoryImpl
	entries   []E
	stats     Stats
}

// New creates a TLB with sets*ways entries. pageSize is the translation
// granule and must be a power of two.
func New[E any](sets, ways int, pageSize uint64) *TLB[E] {
	if sets <= 0 || ways <= 0 || pageSize == 0 || pageSize&(pageSize-1) != 0 {
		panic("tlb: invalid geometry")
	}

	return &TLB[E]{
		pageSize: pageSize,
		ways:     ways,
		directory: akitacache.NewDirectory(
			sets,
			ways,
			int(pageSize),
			akitacache.NewLRUVictimFinder(),
		),
		entries: make([]E, sets*ways),
	}
}

// PageSize returns the translation granule.
func (t *TLB[E]) PageSize() uint64 {
	return t.pageSize
}

// Stats returns the activity counters.
func (t *TLB[E]) Stats() Stats {
	return t.stats
}

func (t *TLB[E]) page(va uint64) uint64 {
	return va &^ (t.pageSize - 1)
}

func (t *TLB[E]) index(block *akitacache.Block) int {
	return block.SetID*t.ways + block.WayID
}

// Lookup returns the entry cached for va's page.
func (t *TLB[E]) Lookup(va uint64) (E, bool) {
	t.stats.Lookups++

	block := t.directory.Lookup(0, t.page(va))
	if block == nil || !block.IsValid {
		t.stats.Misses++
		var zero E
		return zero, false
	}

	t.stats.Hits++
	t.directory.Visit(block)
	return t.entries[t.index(block)], true
}

// Insert caches e for va's page, evicting the least recently used entry in
// the set if needed.
func (t *TLB[E]) Insert(va uint64, e E) {
	page := t.page(va)

	block := t.directory.Lookup(0, page)
	if block == nil || !block.IsValid {
		block = t.directory.FindVictim(page)
		if block == nil {
			return
		}
	}

	block.Tag = page
	block.IsValid = true
	block.IsDirty = false
	t.entries[t.index(block)] = e
	t.directory.Visit(block)
}

// FlushPage drops the entry for va's page, if cached.
func (t *TLB[E]) FlushPage(va uint64) {
	block := t.directory.Lookup(0, t.page(va))
	if block != nil && block.IsValid {
		block.IsValid = false
		var zero E
		t.entries[t.index(block)] = zero
	}
}

// Flush drops every entry.
func (t *TLB[E]) Flush() {
	t.stats.Flushes++
	t.directory.Reset()
	clear(t.entries)
}
