// Package query implements the stateless request facade from
// spec.md §4.6: every operation translates into Table (and, through
// it, BufferPool/Index) calls and converts failures to the sentinel
// `false` the way the teacher's protocol layer converts internal
// errors into MySQL error packets rather than propagating Go errors
// to the wire.
package query

import (
	"github.com/zhukovaskychina/lstore/server/lstore/rid"
	"github.com/zhukovaskychina/lstore/server/lstore/table"
)

// Query is deliberately stateless: every method takes the Table it
// operates on as its first argument, per spec.md §4.6.
type Query struct{}

// New returns a Query facade. It carries no state; callers may share
// a single instance across every table and goroutine.
func New() Query { return Query{} }

// AllColumns returns a projection selecting every one of n columns,
// the common case for select(..., key_col, all_ones).
func AllColumns(n int) []bool {
	proj := make([]bool, n)
	for i := range proj {
		proj[i] = true
	}
	return proj
}

// Insert appends a new record. Returns false on a duplicate key.
func (Query) Insert(t *table.Table, cols []int64) bool {
	_, err := t.Insert(cols)
	return err == nil
}

// Select returns the CURRENT version of every record whose searchCol
// equals searchValue, projected per projection. searchCol need not be
// the key column, but it must have an index (spec.md §4.6/§6).
func (q Query) Select(t *table.Table, searchValue int64, searchCol int, projection []bool) ([][]int64, bool) {
	return q.SelectVersion(t, searchValue, searchCol, projection, 0)
}

// SelectVersion returns the requested historical version of every
// record whose searchCol equals searchValue. version follows spec.md
// §4.6: 0 = current, -1 = original base image, v ≤ -2 walks |v| steps
// backward from the newest tail, clamped at the base.
func (q Query) SelectVersion(t *table.Table, searchValue int64, searchCol int, projection []bool, version int) ([][]int64, bool) {
	baseRIDs := q.locateBaseRIDs(t, searchValue, searchCol)
	if len(baseRIDs) == 0 {
		return nil, false
	}

	var out [][]int64
	for _, baseRID := range baseRIDs {
		target, err := resolveVersion(t, baseRID, version)
		if err != nil {
			continue
		}
		cols, err := t.Find(target, projection)
		if err != nil {
			continue
		}
		out = append(out, cols)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// locateBaseRIDs resolves searchValue to the base RIDs matching it,
// through the key index when searchCol is the key column and through
// the generic per-column index otherwise.
func (q Query) locateBaseRIDs(t *table.Table, searchValue int64, searchCol int) []rid.RID {
	if searchCol == t.KeyCol {
		if r, ok := t.BaseRIDForKey(searchValue); ok {
			return []rid.RID{r}
		}
		return nil
	}
	idx := t.IndexManager().Index(searchCol)
	if idx == nil {
		return nil
	}
	return idx.Locate(searchValue)
}

// Update rewrites key's column values per spec.md §4.5's update().
// updates[i] == nil leaves column i unchanged.
func (Query) Update(t *table.Table, key int64, updates []*int64) bool {
	return t.Update(key, updates) == nil
}

// Delete removes key. Returns false on a second delete of the same key.
func (Query) Delete(t *table.Table, key int64) bool {
	return t.Delete(key) == nil
}

// Increment reads the current value of col for key and writes back
// col+1, per the original engine's increment() (supplemented into
// SPEC_FULL.md — the distilled spec names it but does not spell out
// its mechanics).
func (q Query) Increment(t *table.Table, key int64, col int) bool {
	baseRID, ok := t.BaseRIDForKey(key)
	if !ok {
		return false
	}
	rec, ok := t.CurrentRecord(baseRID)
	if !ok {
		return false
	}
	updates := make([]*int64, t.NumColumns)
	next := rec.Columns[col] + 1
	updates[col] = &next
	return t.Update(key, updates) == nil
}

// CreateIndex builds a secondary index over col, per the external
// collaborator contract in spec.md §6.
func (Query) CreateIndex(t *table.Table, col int) { t.IndexManager().CreateIndex(col) }

// DropIndex removes the secondary index over col.
func (Query) DropIndex(t *table.Table, col int) { t.IndexManager().DropIndex(col) }

// resolveVersion maps a base RID and a version number to the concrete
// RID to read from, per spec.md §4.6.
func resolveVersion(t *table.Table, baseRID rid.RID, version int) (rid.RID, error) {
	if version == -1 {
		return baseRID, nil
	}

	chain, err := newestToBaseChain(t, baseRID)
	if err != nil {
		return rid.RID{}, err
	}
	if version >= 0 {
		return chain[0], nil
	}
	idx := -version
	if idx >= len(chain) {
		idx = len(chain) - 1
	}
	return chain[idx], nil
}

// newestToBaseChain returns [newest, ..., base], walking the
// indirection chain from the base slot's newest pointer back through
// each tail's previous-version pointer, per spec.md §3 Invariant 1.
func newestToBaseChain(t *table.Table, baseRID rid.RID) ([]rid.RID, error) {
	ind, err := t.Indirection(baseRID)
	if err != nil {
		return nil, err
	}
	newest, live := ind.RID()
	if !live || newest == baseRID {
		return []rid.RID{baseRID}, nil
	}

	chain := []rid.RID{newest}
	cur := newest
	for {
		curInd, err := t.Indirection(cur)
		if err != nil {
			return nil, err
		}
		prev, live := curInd.RID()
		if !live {
			break
		}
		if prev.Kind == rid.Base {
			chain = append(chain, prev)
			break
		}
		chain = append(chain, prev)
		cur = prev
	}
	return chain, nil
}
