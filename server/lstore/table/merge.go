package table

import (
	"github.com/zhukovaskychina/lstore/server/lstore/page"
	"github.com/zhukovaskychina/lstore/server/lstore/pagerange"
	"github.com/zhukovaskychina/lstore/server/lstore/rid"
)

// Merge runs a synchronous merge pass over every page-range, per
// spec.md §4.5. Table.Update triggers this in a background goroutine
// once updatesSinceMerge crosses mergeThreshold; tests and operators
// may also call it directly.
func (t *Table) Merge() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mergeLocked()
}

// mergeLocked folds every live base slot's newest column values out of
// its tail chain back into the base page, leaving each slot's
// indirection, timestamp and schema_encoding untouched (spec.md §4.5,
// "merge only ever rewrites column values"). Reads keep working
// unmodified: Query still starts from the base RID's indirection chain,
// which merge leaves pointing at the newest tail.
func (t *Table) mergeLocked() error {
	for _, pr := range t.ranges {
		if pr.NumTailPages() == 0 {
			continue
		}
		if err := t.mergeRangeLocked(pr); err != nil {
			return err
		}
		pr.MarkReclaimable(pr.NumTailPages())
	}
	return nil
}

func (t *Table) mergeRangeLocked(pr *pagerange.PageRange) error {
	for pageIdx := 0; pageIdx < pr.NumBasePages(); pageIdx++ {
		basePID := t.pageID(rid.Base, pr.Index, uint32(pageIdx))
		baseGroup, err := t.loadGroup(basePID)
		if err != nil {
			return err
		}
		dirty := false
		for slot := 0; slot < baseGroup.NumRecords(); slot++ {
			ind := baseGroup.Indirection(slot)
			tailRID, isLive := ind.RID()
			if !isLive || tailRID.Kind != rid.Tail {
				continue // never updated, or already a tombstone
			}
			merged, err := t.collectMergedColumns(baseGroup, slot, tailRID)
			if err != nil {
				t.releaseRead(basePID)
				return err
			}
			if merged == nil {
				continue
			}
			for c, v := range merged {
				if err := baseGroup.Column(c).WriteAt(slot, v); err != nil {
					t.releaseRead(basePID)
					return err
				}
			}
			dirty = true
		}
		if dirty {
			baseGroup.SetMergedTailCount(pr.NumTailPages())
			if err := t.storeGroup(basePID, baseGroup); err != nil {
				return err
			}
		} else {
			t.releaseRead(basePID)
		}
	}
	return nil
}

// collectMergedColumns walks the tail chain rooted at tailRID back to
// the base slot, returning the newest value seen for every column the
// chain touched (nil, nil if the chain is empty or unreachable).
func (t *Table) collectMergedColumns(baseGroup *page.Group, baseSlot int, tailRID rid.RID) ([]int64, error) {
	seen := make([]bool, t.NumColumns)
	merged := make([]int64, t.NumColumns)
	any := false

	cur := tailRID
	for {
		pid := t.pageID(cur.Kind, cur.Range, cur.Page)
		g, err := t.loadGroup(pid)
		if err != nil {
			return nil, err
		}
		schema := g.SchemaEncoding(int(cur.Slot))
		for c := 0; c < t.NumColumns; c++ {
			if seen[c] || schema&(1<<uint(c)) == 0 {
				continue
			}
			v, err := g.ReadColumn(int(cur.Slot), c)
			if err != nil {
				t.releaseRead(pid)
				return nil, err
			}
			merged[c] = v
			seen[c] = true
			any = true
		}
		prev := g.Indirection(int(cur.Slot))
		t.releaseRead(pid)

		next, isLive := prev.RID()
		if !isLive || next.Kind == rid.Base {
			break
		}
		cur = next
	}
	if !any {
		return nil, nil
	}
	for c := 0; c < t.NumColumns; c++ {
		if !seen[c] {
			v, err := baseGroup.ReadColumn(baseSlot, c)
			if err != nil {
				return nil, err
			}
			merged[c] = v
		}
	}
	return merged, nil
}
