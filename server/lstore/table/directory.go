package table

import "github.com/zhukovaskychina/lstore/server/lstore/rid"

// PageDirectory is the table-scoped RID→Record mapping from spec.md §3,
// supplemented (per original_source/lstore/table.py's page_directory
// dict) with an explicit key→RID side index so key lookups that don't
// go through the per-column B+-tree — e.g. a quick existence check —
// stay O(1) rather than falling back to a tree search. Table guards
// every access with its own mutex; PageDirectory holds no lock of its own.
type PageDirectory struct {
	byRID map[rid.RID]Record
	byKey map[int64]rid.RID
}

func newPageDirectory() *PageDirectory {
	return &PageDirectory{byRID: make(map[rid.RID]Record), byKey: make(map[int64]rid.RID)}
}

// Put inserts or replaces the record at rec.RID, keyed by both its RID
// and its primary key.
func (d *PageDirectory) Put(rec Record) {
	d.byRID[rec.RID] = rec
	d.byKey[rec.Key] = rec.RID
}

// Delete removes the record named by r, if present.
func (d *PageDirectory) Delete(r rid.RID) {
	if rec, ok := d.byRID[r]; ok {
		delete(d.byKey, rec.Key)
		delete(d.byRID, r)
	}
}

// Get returns the record stored at RID r.
func (d *PageDirectory) Get(r rid.RID) (Record, bool) {
	rec, ok := d.byRID[r]
	return rec, ok
}

// RIDForKey returns the base RID holding key, per spec.md Invariant 3.
func (d *PageDirectory) RIDForKey(key int64) (rid.RID, bool) {
	r, ok := d.byKey[key]
	return r, ok
}

// Len reports how many live records the directory holds.
func (d *PageDirectory) Len() int { return len(d.byRID) }

// All returns every record currently in the directory, for
// persistence (pg_directory.msg) and for merge/test introspection.
func (d *PageDirectory) All() []Record {
	out := make([]Record, 0, len(d.byRID))
	for _, rec := range d.byRID {
		out = append(out, rec)
	}
	return out
}
