// Package table implements spec.md §4.5: the owner of one table's
// page-ranges, page-directory and per-column indexes, with
// insert/update/find/delete and background merge.
package table

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zhukovaskychina/lstore/logger"
	"github.com/zhukovaskychina/lstore/server/lstore/bufferpool"
	lerrors "github.com/zhukovaskychina/lstore/server/lstore/errors"
	"github.com/zhukovaskychina/lstore/server/lstore/index"
	"github.com/zhukovaskychina/lstore/server/lstore/metrics"
	"github.com/zhukovaskychina/lstore/server/lstore/page"
	"github.com/zhukovaskychina/lstore/server/lstore/pagerange"
	"github.com/zhukovaskychina/lstore/server/lstore/rid"
)

// DefaultMergeThreshold is the update count between merges when a
// table is not given an explicit one (spec.md §6, MERGE_THRESHOLD).
const DefaultMergeThreshold = 256

// Table owns one table's data: page-ranges, page-directory and
// per-column indexes. All multi-step write paths (insert, update,
// delete, merge) take mu, per spec.md §5.
type Table struct {
	Name       string
	NumColumns int
	KeyCol     int

	mu    sync.Mutex
	pool  *bufferpool.BufferPool
	index *index.Manager

	ranges    []*pagerange.PageRange
	directory *PageDirectory

	mergeThreshold    int
	updatesSinceMerge int
	mergeRunning      bool
}

// New creates an empty table backed by pool, with a single empty page-range.
func New(name string, numColumns, keyCol int, pool *bufferpool.BufferPool) *Table {
	return &Table{
		Name:           name,
		NumColumns:     numColumns,
		KeyCol:         keyCol,
		pool:           pool,
		index:          index.NewManager(numColumns, keyCol),
		ranges:         []*pagerange.PageRange{pagerange.New(0)},
		directory:      newPageDirectory(),
		mergeThreshold: DefaultMergeThreshold,
	}
}

// SetMergeThreshold overrides DefaultMergeThreshold.
func (t *Table) SetMergeThreshold(n int) {
	if n > 0 {
		t.mergeThreshold = n
	}
}

// IndexManager exposes the per-column index manager, e.g. for
// Query.CreateIndex / DropIndex pass-through and for Database rehydration.
func (t *Table) IndexManager() *index.Manager { return t.index }

// pageID builds the buffer-pool key for one page of this table.
func (t *Table) pageID(k rid.Kind, rangeIdx, pageIdx uint32) bufferpool.PageID {
	return bufferpool.PageID{Table: t.Name, Kind: k, Range: rangeIdx, PageIdx: pageIdx}
}

// loadGroup fetches and decodes the page named by id, synthesizing an
// empty group (and persisting it) if neither a cache entry nor a file
// exists yet, per spec.md §4.4.
func (t *Table) loadGroup(id bufferpool.PageID) (*page.Group, error) {
	data, err := t.pool.Get(id)
	if bufferpool.IsNotFound(err) {
		var g *page.Group
		if id.Kind == rid.Tail {
			g = page.NewTail(t.NumColumns)
		} else {
			g = page.NewBase(t.NumColumns)
		}
		encoded, encErr := bufferpool.BytesFromPage(g)
		if encErr != nil {
			return nil, encErr
		}
		if err := t.pool.Set(id, encoded); err != nil {
			return nil, err
		}
		t.pool.Unpin(id) // release the Get-equivalent pin Set takes on a fresh insert
		return g, nil
	}
	if err != nil {
		return nil, err
	}
	return bufferpool.PageFromBytes(data)
}

// storeGroup encodes and writes g back to id, releasing the pins taken
// by the preceding loadGroup/storeGroup pair.
func (t *Table) storeGroup(id bufferpool.PageID, g *page.Group) error {
	encoded, err := bufferpool.BytesFromPage(g)
	if err != nil {
		return err
	}
	if err := t.pool.Set(id, encoded); err != nil {
		return err
	}
	t.pool.Unpin(id)
	t.pool.Unpin(id)
	return nil
}

// releaseRead drops the single pin a read-only loadGroup call took.
func (t *Table) releaseRead(id bufferpool.PageID) { t.pool.Unpin(id) }

// Insert appends a new base record, per spec.md §4.5. Fails with
// errors.ErrDuplicateKey if the key column's value is already indexed.
func (t *Table) Insert(cols []int64) (rid.RID, error) {
	if len(cols) != t.NumColumns {
		return rid.RID{}, lerrors.Wrap("table.Insert", lerrors.ErrCorruption)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing := t.index.KeyIndex().Locate(cols[t.KeyCol]); len(existing) > 0 {
		return rid.RID{}, lerrors.Wrap("table.Insert", lerrors.ErrDuplicateKey)
	}

	pr := t.ranges[len(t.ranges)-1]
	if !pr.HasCapacity() {
		pr = pagerange.New(uint32(len(t.ranges)))
		t.ranges = append(t.ranges, pr)
	}

	pageIdx := pr.LastBasePageIndex()
	if pr.BasePageCount(pageIdx) >= pagerange.RecordsPerPage {
		var err error
		pageIdx, err = pr.AddBasePage()
		if err != nil {
			return rid.RID{}, lerrors.Wrap("table.Insert", err)
		}
	}
	slot := pr.BasePageCount(pageIdx)
	newRID := rid.RID{Range: pr.Index, Page: uint32(pageIdx), Slot: uint32(slot), Kind: rid.Base}

	id := t.pageID(rid.Base, pr.Index, uint32(pageIdx))
	g, err := t.loadGroup(id)
	if err != nil {
		return rid.RID{}, err
	}
	if err := g.Insert(newRID, nowMillis(), 0, rid.Live(newRID), cols); err != nil {
		t.releaseRead(id)
		return rid.RID{}, lerrors.Wrap("table.Insert", err)
	}
	if err := t.storeGroup(id, g); err != nil {
		return rid.RID{}, err
	}
	pr.IncBasePageCount(pageIdx)

	if err := t.index.InsertRecord(newRID, cols); err != nil {
		return rid.RID{}, lerrors.Wrap("table.Insert", err)
	}
	t.directory.Put(Record{RID: newRID, Key: cols[t.KeyCol], Columns: cloneColumns(cols)})
	return newRID, nil
}

// Find dereferences the page named by id via the buffer pool and
// reads the columns selected by projection, per spec.md §4.5. It does
// NOT follow indirection: callers (Query) resolve versions first.
func (t *Table) Find(id rid.RID, projection []bool) ([]int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findLocked(id, projection)
}

func (t *Table) findLocked(id rid.RID, projection []bool) ([]int64, error) {
	pid := t.pageID(id.Kind, id.Range, id.Page)
	g, err := t.loadGroup(pid)
	if err != nil {
		return nil, err
	}
	defer t.releaseRead(pid)
	if int(id.Slot) >= g.NumRecords() {
		return nil, lerrors.Wrap("table.Find", lerrors.ErrCorruption)
	}
	return g.ReadProjected(int(id.Slot), projection)
}

// Indirection returns the indirection cell stored at id, letting Query
// walk the base→tail and tail→tail chain without re-deriving page IDs.
func (t *Table) Indirection(id rid.RID) (rid.Indirection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pid := t.pageID(id.Kind, id.Range, id.Page)
	g, err := t.loadGroup(pid)
	if err != nil {
		return rid.Indirection{}, err
	}
	defer t.releaseRead(pid)
	if int(id.Slot) >= g.NumRecords() {
		return rid.Indirection{}, lerrors.Wrap("table.Indirection", lerrors.ErrCorruption)
	}
	return g.Indirection(int(id.Slot)), nil
}

// BaseRIDForKey resolves key to its live base RID via the
// page-directory's O(1) key side index (spec.md Invariant 3: every
// key-indexed RID has a matching directory entry, so the two lookups
// always agree).
func (t *Table) BaseRIDForKey(key int64) (rid.RID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.directory.RIDForKey(key)
}

// CurrentRecord returns the page-directory's cached current image for
// a live base RID, used by Query.Increment to read the current value
// without re-walking the indirection chain.
func (t *Table) CurrentRecord(base rid.RID) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.directory.Get(base)
	if !ok {
		return Record{}, false
	}
	rec.Columns = cloneColumns(rec.Columns)
	return rec, true
}

// Update appends a new tail version for key, per spec.md §4.5.
// updates[i] == nil means "leave column i unchanged". Fails with
// errors.ErrNoSuchKey or errors.ErrDuplicateKey (new key taken).
func (t *Table) Update(key int64, updates []*int64) error {
	if len(updates) != t.NumColumns {
		return lerrors.Wrap("table.Update", lerrors.ErrCorruption)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	baseRIDs := t.index.KeyIndex().Locate(key)
	if len(baseRIDs) == 0 {
		return lerrors.Wrap("table.Update", lerrors.ErrNoSuchKey)
	}
	baseRID := baseRIDs[0]
	cur, ok := t.directory.Get(baseRID)
	if !ok {
		return lerrors.Wrap("table.Update", lerrors.ErrNoSuchKey)
	}

	post := cloneColumns(cur.Columns)
	var schema uint64
	for c, v := range updates {
		if v == nil {
			continue
		}
		post[c] = *v
		schema |= 1 << uint(c)
	}
	if schema&(1<<uint(t.KeyCol)) != 0 && post[t.KeyCol] != key {
		if existing := t.index.KeyIndex().Locate(post[t.KeyCol]); len(existing) > 0 {
			return lerrors.Wrap("table.Update", lerrors.ErrDuplicateKey)
		}
	}

	basePID := t.pageID(rid.Base, baseRID.Range, baseRID.Page)
	baseGroup, err := t.loadGroup(basePID)
	if err != nil {
		return err
	}
	prevNewest := baseGroup.Indirection(int(baseRID.Slot))

	pr := t.ranges[baseRID.Range]
	tailPageIdx := pr.LastTailPageIndex()
	if pr.TailPageCount(tailPageIdx) >= pagerange.RecordsPerPage {
		tailPageIdx = pr.AddTailPage()
	}
	tailSlot := pr.TailPageCount(tailPageIdx)
	newTailRID := rid.RID{Range: baseRID.Range, Page: uint32(tailPageIdx), Slot: uint32(tailSlot), Kind: rid.Tail}

	tailPID := t.pageID(rid.Tail, baseRID.Range, uint32(tailPageIdx))
	tailGroup, err := t.loadGroup(tailPID)
	if err != nil {
		t.releaseRead(basePID)
		return err
	}
	if err := tailGroup.Insert(newTailRID, nowMillis(), schema, prevNewest, post); err != nil {
		t.releaseRead(basePID)
		t.releaseRead(tailPID)
		return lerrors.Wrap("table.Update", err)
	}
	if err := t.storeGroup(tailPID, tailGroup); err != nil {
		t.releaseRead(basePID)
		return err
	}
	pr.IncTailPageCount(tailPageIdx)

	baseGroup.SetIndirection(int(baseRID.Slot), rid.Live(newTailRID))
	baseGroup.OrSchemaEncoding(int(baseRID.Slot), schema)
	if err := t.storeGroup(basePID, baseGroup); err != nil {
		return err
	}

	for c := 0; c < t.NumColumns; c++ {
		if schema&(1<<uint(c)) == 0 {
			continue
		}
		idx := t.index.Index(c)
		if idx == nil {
			continue
		}
		_ = idx.Delete(cur.Columns[c], baseRID)
		if err := idx.Insert(post[c], baseRID); err != nil {
			return lerrors.Wrap("table.Update", err)
		}
	}
	t.directory.Delete(baseRID) // drop the stale byKey entry before the key may change
	t.directory.Put(Record{RID: baseRID, Key: post[t.KeyCol], Columns: post})

	t.updatesSinceMerge++
	triggerMerge := t.updatesSinceMerge >= t.mergeThreshold && !t.mergeRunning
	if triggerMerge {
		t.mergeRunning = true
		t.updatesSinceMerge = 0
	}
	if triggerMerge {
		go t.runMergeAsync()
	}
	return nil
}

// Delete purges key per spec.md §3/§4.5: the base slot's indirection
// becomes Tombstone and every index/page-directory entry for the
// record's base RID is removed. Idempotent: a second delete of the
// same key fails with errors.ErrNoSuchKey.
func (t *Table) Delete(key int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	baseRIDs := t.index.KeyIndex().Locate(key)
	if len(baseRIDs) == 0 {
		return lerrors.Wrap("table.Delete", lerrors.ErrNoSuchKey)
	}
	baseRID := baseRIDs[0]
	cur, ok := t.directory.Get(baseRID)
	if !ok {
		return lerrors.Wrap("table.Delete", lerrors.ErrNoSuchKey)
	}

	basePID := t.pageID(rid.Base, baseRID.Range, baseRID.Page)
	baseGroup, err := t.loadGroup(basePID)
	if err != nil {
		return err
	}
	baseGroup.SetIndirection(int(baseRID.Slot), rid.Tombstone)
	if err := t.storeGroup(basePID, baseGroup); err != nil {
		return err
	}

	t.index.DeleteRecord(baseRID, cur.Columns)
	t.directory.Delete(baseRID)
	return nil
}

// LocateKeyRange returns every live base RID whose key falls in
// [lo, hi], used by Query.Sum / Query.SumVersion range scans.
func (t *Table) LocateKeyRange(lo, hi int64) []rid.RID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.KeyIndex().LocateRange(lo, hi)
}

// RangeLayout is the persisted shape of one PageRange: page occupancy
// counts, not page contents (those live in the buffer pool's own
// files). Database.Close writes these into tb_metadata.msg and
// Database.Open replays them via RestoreRangeLayouts, per spec.md
// §4.10's "rehydrates page metadata" without re-reading every page file.
type RangeLayout struct {
	BasePageCounts   []int
	TailPageCounts   []int
	ReclaimableBelow int
}

// RangeLayouts snapshots the current page-range bookkeeping for persistence.
func (t *Table) RangeLayouts() []RangeLayout {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RangeLayout, len(t.ranges))
	for i, pr := range t.ranges {
		out[i] = RangeLayout{
			BasePageCounts:   pr.BasePageCounts(),
			TailPageCounts:   pr.TailPageCounts(),
			ReclaimableBelow: pr.ReclaimableBelow(),
		}
	}
	return out
}

// RestoreRangeLayouts replaces this table's page-ranges with ones
// rehydrated from a prior RangeLayouts call, per spec.md §4.10.
func (t *Table) RestoreRangeLayouts(layouts []RangeLayout) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ranges = make([]*pagerange.PageRange, len(layouts))
	for i, l := range layouts {
		t.ranges[i] = pagerange.FromLayout(uint32(i), l.BasePageCounts, l.TailPageCounts, l.ReclaimableBelow)
	}
}

// IndexedColumns returns every non-key column currently carrying a
// secondary index, so Database.Close can persist which CreateIndex
// calls to replay on reopen.
func (t *Table) IndexedColumns() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var cols []int
	for c := 0; c < t.NumColumns; c++ {
		if c == t.KeyCol {
			continue
		}
		if t.index.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// MergeThreshold returns the configured merge-trigger threshold, for persistence.
func (t *Table) MergeThreshold() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mergeThreshold
}

// Snapshot returns every live record in the page-directory, the
// pg_directory.msg payload per spec.md §6.
func (t *Table) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	recs := t.directory.All()
	out := make([]Record, len(recs))
	for i, rec := range recs {
		out[i] = Record{RID: rec.RID, Key: rec.Key, Columns: cloneColumns(rec.Columns)}
	}
	return out
}

// Restore repopulates the page-directory and rebuilds every
// per-column index (indexedCols first, so the columns exist to
// populate) by replaying the persisted records, per spec.md §4.10:
// "rebuilds every per-column index by scanning the persisted
// page-directory".
func (t *Table) Restore(records []Record, indexedCols []int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range indexedCols {
		t.index.CreateIndex(c)
	}
	for _, rec := range records {
		t.directory.Put(Record{RID: rec.RID, Key: rec.Key, Columns: cloneColumns(rec.Columns)})
		if err := t.index.InsertRecord(rec.RID, rec.Columns); err != nil {
			return lerrors.Wrap("table.Restore", err)
		}
	}
	return nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func (t *Table) runMergeAsync() {
	t.mu.Lock()
	defer func() {
		t.mergeRunning = false
		t.mu.Unlock()
	}()
	if err := t.mergeLocked(); err != nil {
		logger.WarnFields(logrus.Fields{
			"component": "table",
			"table":     t.Name,
		}, "merge failed: %v", err)
		return
	}
	metrics.MergesRun.Inc()
	logger.InfoFields(logrus.Fields{
		"component": "table",
		"table":     t.Name,
		"ranges":    len(t.ranges),
	}, "merge complete")
}
