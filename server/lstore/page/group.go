package page

import (
	"github.com/zhukovaskychina/lstore/server/lstore/errors"
	"github.com/zhukovaskychina/lstore/server/lstore/rid"
)

// Group is the column-group shape shared by BasePage and TailPage per
// spec.md §4.2: one Page per table column plus four parallel per-slot
// metadata arrays. A Group never shrinks; slots are only ever appended.
type Group struct {
	Kind    rid.Kind
	columns []*Page

	indirection []rid.Indirection
	schema      []uint64
	timestamp   []int64
	rids        []rid.RID

	// mergedTailCount is the TPS watermark: for a base Group produced
	// by merge, the number of tail pages (in range order) already
	// folded into this image. Zero on ordinary (unmerged) base pages
	// and on tail pages, where it is unused.
	mergedTailCount int
}

// NewBase creates an empty BasePage-shaped Group for numColumns columns.
func NewBase(numColumns int) *Group { return newGroup(rid.Base, numColumns) }

// NewTail creates an empty TailPage-shaped Group for numColumns columns.
func NewTail(numColumns int) *Group { return newGroup(rid.Tail, numColumns) }

func newGroup(kind rid.Kind, numColumns int) *Group {
	cols := make([]*Page, numColumns)
	for i := range cols {
		cols[i] = New()
	}
	return &Group{Kind: kind, columns: cols}
}

// NumColumns returns the column arity of this group.
func (g *Group) NumColumns() int { return len(g.columns) }

// NumRecords returns the number of occupied slots.
func (g *Group) NumRecords() int { return len(g.rids) }

// HasCapacity reports whether one more slot fits (RECORDS_PER_PAGE cap).
func (g *Group) HasCapacity() bool { return len(g.rids) < RecordsPerPage }

// Insert appends one slot: cols[c] to column c for every c, plus the
// four metadata values. Preconditions per spec.md §4.2: len(cols) ==
// NumColumns() and HasCapacity().
func (g *Group) Insert(id rid.RID, timestamp int64, schema uint64, indirection rid.Indirection, cols []int64) error {
	if len(cols) != len(g.columns) {
		return errors.Wrap("group.Insert", errors.ErrCorruption)
	}
	if !g.HasCapacity() {
		return errors.Wrap("group.Insert", errors.ErrCapacityExceeded)
	}
	for c, v := range cols {
		if err := g.columns[c].Write(v); err != nil {
			return errors.Wrap("group.Insert", err)
		}
	}
	g.indirection = append(g.indirection, indirection)
	g.schema = append(g.schema, schema)
	g.timestamp = append(g.timestamp, timestamp)
	g.rids = append(g.rids, id)
	return nil
}

// ReadColumn reads the value of column c at slot.
func (g *Group) ReadColumn(slot, c int) (int64, error) {
	if c < 0 || c >= len(g.columns) {
		return 0, errors.Wrap("group.ReadColumn", errors.ErrCorruption)
	}
	return g.columns[c].ReadOne(slot)
}

// ReadProjected reads every column whose bit is set in projection,
// returning a sparse slice the same length as NumColumns() with
// unprojected positions left as zero.
func (g *Group) ReadProjected(slot int, projection []bool) ([]int64, error) {
	out := make([]int64, len(g.columns))
	for c, want := range projection {
		if !want {
			continue
		}
		v, err := g.ReadColumn(slot, c)
		if err != nil {
			return nil, err
		}
		out[c] = v
	}
	return out, nil
}

// RID returns the RID stored at slot.
func (g *Group) RID(slot int) rid.RID { return g.rids[slot] }

// Indirection returns the indirection cell stored at slot.
func (g *Group) Indirection(slot int) rid.Indirection { return g.indirection[slot] }

// SetIndirection overwrites the indirection cell at slot. This is the
// one mutable metadata field: base slots are repointed at a new tail
// RID on every update, and at Tombstone on delete.
func (g *Group) SetIndirection(slot int, ind rid.Indirection) { g.indirection[slot] = ind }

// SchemaEncoding returns the schema bitmask stored at slot.
func (g *Group) SchemaEncoding(slot int) uint64 { return g.schema[slot] }

// OrSchemaEncoding ORs bits into the schema bitmask at slot.
func (g *Group) OrSchemaEncoding(slot int, bits uint64) { g.schema[slot] |= bits }

// Timestamp returns the timestamp recorded at slot.
func (g *Group) Timestamp(slot int) int64 { return g.timestamp[slot] }

// MergedTailCount returns the TPS watermark for a merged base group.
func (g *Group) MergedTailCount() int { return g.mergedTailCount }

// SetMergedTailCount sets the TPS watermark after a merge pass.
func (g *Group) SetMergedTailCount(n int) { g.mergedTailCount = n }

// Column exposes the underlying Page for column c, for serialization.
func (g *Group) Column(c int) *Page { return g.columns[c] }

// AllRIDs returns every RID stored in this group, in slot order.
func (g *Group) AllRIDs() []rid.RID {
	out := make([]rid.RID, len(g.rids))
	copy(out, g.rids)
	return out
}
