package table

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhukovaskychina/lstore/server/lstore/bufferpool"
	lerrors "github.com/zhukovaskychina/lstore/server/lstore/errors"
	"github.com/zhukovaskychina/lstore/server/lstore/rid"
)

func newTestTable(t *testing.T, numColumns, keyCol int) *Table {
	pool := bufferpool.New(100, t.TempDir())
	return New("t", numColumns, keyCol, pool)
}

func allColumns(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func TestInsertAndFindRoundTrip(t *testing.T) {
	tb := newTestTable(t, 3, 0)
	r, err := tb.Insert([]int64{1, 2, 3})
	assert.NoError(t, err)

	cols, err := tb.Find(r, allColumns(3))
	assert.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, cols)
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	_, err := tb.Insert([]int64{1, 10})
	assert.NoError(t, err)
	_, err = tb.Insert([]int64{1, 20})
	assert.True(t, lerrors.IsDuplicateKey(err))
}

func TestUpdateAppendsTailAndRepointsIndirection(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	base, err := tb.Insert([]int64{1, 10})
	assert.NoError(t, err)

	newVal := int64(99)
	assert.NoError(t, tb.Update(1, []*int64{nil, &newVal}))

	ind, err := tb.Indirection(base)
	assert.NoError(t, err)
	target, ok := ind.RID()
	assert.True(t, ok)
	assert.Equal(t, rid.Tail, target.Kind)

	rec, ok := tb.CurrentRecord(base)
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 99}, rec.Columns)
}

func TestUpdateMissingKeyFails(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	v := int64(1)
	err := tb.Update(404, []*int64{&v, nil})
	assert.True(t, lerrors.IsNoSuchKey(err))
}

func TestUpdateChangingKeyColumnRekeysDirectory(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	base, err := tb.Insert([]int64{1, 10})
	assert.NoError(t, err)

	newKey := int64(2)
	assert.NoError(t, tb.Update(1, []*int64{&newKey, nil}))

	_, stillOld := tb.BaseRIDForKey(1)
	assert.False(t, stillOld)

	gotRID, ok := tb.BaseRIDForKey(2)
	assert.True(t, ok)
	assert.Equal(t, base, gotRID)
}

func TestDeleteTombstonesAndPurgesIndexes(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	_, err := tb.Insert([]int64{1, 10})
	assert.NoError(t, err)

	assert.NoError(t, tb.Delete(1))
	_, ok := tb.BaseRIDForKey(1)
	assert.False(t, ok)

	err = tb.Delete(1)
	assert.True(t, lerrors.IsNoSuchKey(err))
}

func TestLocateKeyRangeReturnsLiveKeysOnly(t *testing.T) {
	tb := newTestTable(t, 1, 0)
	for i := int64(0); i < 5; i++ {
		_, err := tb.Insert([]int64{i})
		assert.NoError(t, err)
	}
	assert.NoError(t, tb.Delete(2))

	got := tb.LocateKeyRange(0, 4)
	assert.Len(t, got, 4)
}

func TestRangeLayoutRoundTrip(t *testing.T) {
	tb := newTestTable(t, 1, 0)
	for i := int64(0); i < 10; i++ {
		_, err := tb.Insert([]int64{i})
		assert.NoError(t, err)
	}
	layouts := tb.RangeLayouts()

	other := newTestTable(t, 1, 0)
	other.RestoreRangeLayouts(layouts)
	assert.Equal(t, layouts, other.RangeLayouts())
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	tb.IndexManager().CreateIndex(1)
	for i := int64(0); i < 5; i++ {
		_, err := tb.Insert([]int64{i, i * 10})
		assert.NoError(t, err)
	}
	snap := tb.Snapshot()
	indexed := tb.IndexedColumns()

	// Page contents live in the buffer pool, not in the snapshot, so the
	// restored table shares tb's pool the way a reopened Database does.
	restored := New("t", 2, 0, tb.pool)
	assert.NoError(t, restored.Restore(snap, indexed))

	gotRID, ok := restored.BaseRIDForKey(3)
	assert.True(t, ok)
	cols, err := restored.Find(gotRID, allColumns(2))
	assert.NoError(t, err)
	assert.Equal(t, []int64{3, 30}, cols)
	assert.True(t, restored.IndexManager().Has(1))
}

func TestMergeFoldsTailIntoBaseWithoutChangingCurrentRecord(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	base, err := tb.Insert([]int64{1, 10})
	assert.NoError(t, err)

	for i := int64(0); i < 3; i++ {
		v := 10 + i
		assert.NoError(t, tb.Update(1, []*int64{nil, &v}))
	}

	assert.NoError(t, tb.Merge())

	cols, err := tb.Find(base, allColumns(2))
	assert.NoError(t, err)
	assert.Equal(t, int64(12), cols[1])

	rec, ok := tb.CurrentRecord(base)
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 12}, rec.Columns)
}
