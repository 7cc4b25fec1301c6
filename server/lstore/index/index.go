package index

import "github.com/zhukovaskychina/lstore/server/lstore/rid"

// ColumnIndex is the external collaborator contract from spec.md §6.
// *Tree satisfies it; Table depends only on this interface so a
// different index implementation could be substituted without
// touching table/query code.
type ColumnIndex interface {
	Insert(value int64, r rid.RID) error
	Delete(value int64, r rid.RID) error
	Locate(value int64) []rid.RID
	LocateRange(lo, hi int64) []rid.RID
}

// Manager owns one ColumnIndex per indexed table column. Column 0..N-1
// may each have an index or be nil (not indexed); the key column's
// slot is always present and unique.
type Manager struct {
	indexes []ColumnIndex
	keyCol  int
}

// NewManager creates a Manager for a table with the given column count
// and key column, with an index created up front only for keyCol.
func NewManager(numColumns, keyCol int) *Manager {
	m := &Manager{indexes: make([]ColumnIndex, numColumns), keyCol: keyCol}
	m.indexes[keyCol] = New(true)
	return m
}

// CreateIndex builds a (non-unique) secondary index over column col.
func (m *Manager) CreateIndex(col int) {
	if col == m.keyCol {
		return
	}
	m.indexes[col] = New(false)
}

// DropIndex removes the index over column col, except the key column's,
// which must always remain indexed to enforce uniqueness.
func (m *Manager) DropIndex(col int) {
	if col == m.keyCol {
		return
	}
	m.indexes[col] = nil
}

// Has reports whether column col currently has an index.
func (m *Manager) Has(col int) bool { return m.indexes[col] != nil }

// Index returns the ColumnIndex for col, or nil if unindexed.
func (m *Manager) Index(col int) ColumnIndex { return m.indexes[col] }

// KeyIndex returns the always-present, always-unique key-column index.
func (m *Manager) KeyIndex() ColumnIndex { return m.indexes[m.keyCol] }

// InsertRecord indexes every column of cols (length numColumns) under r,
// skipping columns with no index.
func (m *Manager) InsertRecord(r rid.RID, cols []int64) error {
	for c, idx := range m.indexes {
		if idx == nil {
			continue
		}
		if err := idx.Insert(cols[c], r); err != nil {
			// Roll back the columns already indexed for this record
			// so a failed insert never leaves a partial index entry.
			for back := 0; back < c; back++ {
				if m.indexes[back] != nil {
					_ = m.indexes[back].Delete(cols[back], r)
				}
			}
			return err
		}
	}
	return nil
}

// DeleteRecord removes r from every column index it appears in.
func (m *Manager) DeleteRecord(r rid.RID, cols []int64) {
	for c, idx := range m.indexes {
		if idx == nil {
			continue
		}
		_ = idx.Delete(cols[c], r)
	}
}
