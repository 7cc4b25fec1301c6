// Package pagerange implements the bounded group of base pages and
// unbounded chain of tail pages that share one key range, per
// spec.md §4.3. PageRange is deliberately not internally
// synchronized; the Table owns the mutex that serializes access to it
// (spec.md §5, "Each Table has its own mutex guarding page-range
// mutations").
//
// PageRange itself only tracks page-layout bookkeeping (how many base
// and tail pages exist, and how full the newest one of each is); the
// page content lives in the shared buffer pool, addressed by
// (table, kind, range index, page index), so that the pool's capacity
// — not process memory — bounds how many pages are resident at once.
package pagerange

import "github.com/zhukovaskychina/lstore/server/lstore/errors"

// MaxBasePages bounds the number of base pages a single range may hold.
const MaxBasePages = 16

// RecordsPerPage mirrors page.RecordsPerPage without importing page,
// keeping this package dependency-free for the layout bookkeeping it owns.
const RecordsPerPage = 512

// PageRange tracks the base/tail page layout for one key range of a table.
type PageRange struct {
	Index uint32

	// basePageCounts[i] is the number of occupied slots in base page i.
	basePageCounts []int
	// tailPageCounts[i] is the number of occupied slots in tail page i.
	tailPageCounts []int

	// reclaimableBelow is the TPS-derived watermark: tail pages with
	// index < reclaimableBelow are already folded into the published
	// base image and may be reclaimed asynchronously.
	reclaimableBelow int
}

// New creates a PageRange with a single, empty base page.
func New(index uint32) *PageRange {
	return &PageRange{Index: index, basePageCounts: []int{0}}
}

// FromLayout rebuilds a PageRange's bookkeeping from a persisted
// layout, used by Database.Open to rehydrate page-range metadata
// without re-reading every page file (spec.md §4.10).
func FromLayout(index uint32, basePageCounts, tailPageCounts []int, reclaimableBelow int) *PageRange {
	pr := &PageRange{
		Index:            index,
		basePageCounts:   append([]int(nil), basePageCounts...),
		tailPageCounts:   append([]int(nil), tailPageCounts...),
		reclaimableBelow: reclaimableBelow,
	}
	if len(pr.basePageCounts) == 0 {
		pr.basePageCounts = []int{0}
	}
	return pr
}

// BasePageCounts returns a copy of every base page's occupancy, for persistence.
func (pr *PageRange) BasePageCounts() []int { return append([]int(nil), pr.basePageCounts...) }

// TailPageCounts returns a copy of every tail page's occupancy, for persistence.
func (pr *PageRange) TailPageCounts() []int { return append([]int(nil), pr.tailPageCounts...) }

// HasCapacity reports whether this range can accept another base
// record either in its current last base page or by appending a new
// one, per spec.md Invariant 4 (num_base_pages ≤ MAX_BASE_PAGES).
func (pr *PageRange) HasCapacity() bool {
	if len(pr.basePageCounts) == 0 {
		return true
	}
	if pr.basePageCounts[len(pr.basePageCounts)-1] < RecordsPerPage {
		return true
	}
	return len(pr.basePageCounts) < MaxBasePages
}

// NumBasePages reports how many base pages this range currently holds.
func (pr *PageRange) NumBasePages() int { return len(pr.basePageCounts) }

// NumTailPages reports how many tail pages this range currently holds.
func (pr *PageRange) NumTailPages() int { return len(pr.tailPageCounts) }

// LastBasePageIndex returns the index of the most recently appended base page.
func (pr *PageRange) LastBasePageIndex() int { return len(pr.basePageCounts) - 1 }

// LastTailPageIndex returns the index of the most recently appended
// tail page, creating the range's first tail page if none exists yet.
func (pr *PageRange) LastTailPageIndex() int {
	if len(pr.tailPageCounts) == 0 {
		pr.tailPageCounts = append(pr.tailPageCounts, 0)
	}
	return len(pr.tailPageCounts) - 1
}

// BasePageCount reports the occupancy of base page idx.
func (pr *PageRange) BasePageCount(idx int) int { return pr.basePageCounts[idx] }

// TailPageCount reports the occupancy of tail page idx.
func (pr *PageRange) TailPageCount(idx int) int { return pr.tailPageCounts[idx] }

// IncBasePageCount records one more occupied slot in base page idx.
func (pr *PageRange) IncBasePageCount(idx int) { pr.basePageCounts[idx]++ }

// IncTailPageCount records one more occupied slot in tail page idx.
func (pr *PageRange) IncTailPageCount(idx int) { pr.tailPageCounts[idx]++ }

// AddBasePage appends a new, empty base page, failing if the range is
// already at MaxBasePages (the caller opens a new range instead, per
// spec.md §4.5 insert()).
func (pr *PageRange) AddBasePage() (int, error) {
	if len(pr.basePageCounts) >= MaxBasePages {
		return 0, errors.Wrap("pagerange.AddBasePage", errors.ErrCapacityExceeded)
	}
	pr.basePageCounts = append(pr.basePageCounts, 0)
	return len(pr.basePageCounts) - 1, nil
}

// AddTailPage appends a new, empty tail page. Tail chains are unbounded.
func (pr *PageRange) AddTailPage() int {
	pr.tailPageCounts = append(pr.tailPageCounts, 0)
	return len(pr.tailPageCounts) - 1
}

// ReplaceBasePageCounts replaces the base-page occupancy list
// wholesale. Table.Merge does not call it: merge rewrites column
// values in place and never changes which RIDs a page holds, so the
// base-page layout is the same before and after a merge.
func (pr *PageRange) ReplaceBasePageCounts(counts []int) {
	pr.basePageCounts = counts
}

// MarkReclaimable records that tail pages [0, n) have been folded into
// the current base image by merge and may be reclaimed asynchronously
// (spec.md §4.5). Page indices are never renumbered — a reclaimed tail
// page's slot stays addressable, it is simply no longer consulted by
// merge or by indirection chains rooted at the new base image.
func (pr *PageRange) MarkReclaimable(n int) {
	if n > pr.reclaimableBelow {
		pr.reclaimableBelow = n
	}
}

// ReclaimableBelow returns the exclusive upper bound of tail pages
// already folded into the current base image.
func (pr *PageRange) ReclaimableBelow() int { return pr.reclaimableBelow }
