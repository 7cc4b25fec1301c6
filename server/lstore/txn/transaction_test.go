package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhukovaskychina/lstore/server/lstore/bufferpool"
	"github.com/zhukovaskychina/lstore/server/lstore/query"
	"github.com/zhukovaskychina/lstore/server/lstore/table"
)

func newTxnTestTable(t *testing.T) *table.Table {
	pool := bufferpool.New(100, t.TempDir())
	return table.New("t", 2, 0, pool)
}

func TestTransactionCommitsAllStepsSucceed(t *testing.T) {
	tb := newTxnTestTable(t)
	q := query.New()
	lm := NewLockManager()
	tx := New(1, lm)
	tx.AddQuery(tb, 1, Exclusive, func() bool { return q.Insert(tb, []int64{1, 10}) })

	assert.True(t, tx.Run())
	rows, ok := q.Select(tb, 1, 0, query.AllColumns(2))
	assert.True(t, ok)
	assert.Equal(t, [][]int64{{1, 10}}, rows)
}

func TestTransactionAbortsOnFailingStep(t *testing.T) {
	tb := newTxnTestTable(t)
	q := query.New()
	lm := NewLockManager()

	tx := New(1, lm)
	tx.AddQuery(tb, 404, Exclusive, func() bool { return q.Update(tb, 404, []*int64{nil, nil}) })

	assert.False(t, tx.Run())
}

func TestTransactionReleasesLocksAfterRun(t *testing.T) {
	tb := newTxnTestTable(t)
	q := query.New()
	assert.True(t, q.Insert(tb, []int64{1, 10}))
	lm := NewLockManager()

	tx := New(1, lm)
	v := int64(99)
	tx.AddQuery(tb, 1, Exclusive, func() bool { return q.Update(tb, 1, []*int64{nil, &v}) })
	assert.True(t, tx.Run())

	base, _ := tb.BaseRIDForKey(1)
	// lock must be free for another transaction after commit.
	assert.True(t, lm.Acquire(2, base, Exclusive))
}

func TestOneOfTwoTransactionsUpdatingSameKeyWins(t *testing.T) {
	tb := newTxnTestTable(t)
	q := query.New()
	assert.True(t, q.Insert(tb, []int64{1, 0}))
	lm := NewLockManager()

	base, _ := tb.BaseRIDForKey(1)
	// Simulate a held exclusive lock from an in-flight transaction 1,
	// then attempt a second transaction's conflicting step directly.
	assert.True(t, lm.Acquire(1, base, Exclusive))
	assert.False(t, lm.Acquire(2, base, Exclusive))
	lm.Release(1, base)
	assert.True(t, lm.Acquire(2, base, Exclusive))
}
