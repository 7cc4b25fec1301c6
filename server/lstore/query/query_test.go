package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhukovaskychina/lstore/server/lstore/bufferpool"
	"github.com/zhukovaskychina/lstore/server/lstore/table"
)

func newTestTable(t *testing.T, numColumns, keyCol int) *table.Table {
	pool := bufferpool.New(100, t.TempDir())
	return table.New("t", numColumns, keyCol, pool)
}

func TestInsertAndSelectCurrent(t *testing.T) {
	tb := newTestTable(t, 3, 0)
	q := New()
	assert.True(t, q.Insert(tb, []int64{1, 2, 3}))

	rows, ok := q.Select(tb, 1, 0, AllColumns(3))
	assert.True(t, ok)
	assert.Equal(t, [][]int64{{1, 2, 3}}, rows)
}

func TestSelectMissingKeyReturnsFalse(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	q := New()
	_, ok := q.Select(tb, 404, 0, AllColumns(2))
	assert.False(t, ok)
}

func TestSelectVersionNegativeOneReturnsOriginalBase(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	q := New()
	assert.True(t, q.Insert(tb, []int64{1, 10}))

	for i := int64(0); i < 3; i++ {
		v := 20 + i
		assert.True(t, q.Update(tb, 1, []*int64{nil, &v}))
	}

	current, ok := q.SelectVersion(tb, 1, 0, AllColumns(2), 0)
	assert.True(t, ok)
	assert.Equal(t, int64(22), current[0][1])

	original, ok := q.SelectVersion(tb, 1, 0, AllColumns(2), -1)
	assert.True(t, ok)
	assert.Equal(t, int64(10), original[0][1])
}

func TestSelectVersionWalksBackNSteps(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	q := New()
	assert.True(t, q.Insert(tb, []int64{1, 0}))
	for i := int64(1); i <= 3; i++ {
		v := i
		assert.True(t, q.Update(tb, 1, []*int64{nil, &v}))
	}
	// newest=3, one step back=2, two steps back=1, clamp at base(0);
	// version -2 walks two steps back from the newest tail.
	twoBack, ok := q.SelectVersion(tb, 1, 0, AllColumns(2), -2)
	assert.True(t, ok)
	assert.Equal(t, int64(1), twoBack[0][1])

	clamped, ok := q.SelectVersion(tb, 1, 0, AllColumns(2), -10)
	assert.True(t, ok)
	assert.Equal(t, int64(0), clamped[0][1])
}

func TestUpdateDeleteIncrementThroughFacade(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	q := New()
	assert.True(t, q.Insert(tb, []int64{1, 5}))

	assert.True(t, q.Increment(tb, 1, 1))
	rows, ok := q.Select(tb, 1, 0, AllColumns(2))
	assert.True(t, ok)
	assert.Equal(t, int64(6), rows[0][1])

	assert.True(t, q.Delete(tb, 1))
	assert.False(t, q.Delete(tb, 1))
}

func TestCreateIndexEnablesSelectBySecondaryColumn(t *testing.T) {
	tb := newTestTable(t, 2, 0)
	q := New()
	q.CreateIndex(tb, 1)
	assert.True(t, q.Insert(tb, []int64{1, 99}))

	rows, ok := q.Select(tb, 99, 1, AllColumns(2))
	assert.True(t, ok)
	assert.Equal(t, [][]int64{{1, 99}}, rows)

	q.DropIndex(tb, 1)
	_, ok = q.Select(tb, 99, 1, AllColumns(2))
	assert.False(t, ok)
}
