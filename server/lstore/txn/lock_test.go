package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhukovaskychina/lstore/server/lstore/rid"
)

func TestSharedLocksDoNotConflict(t *testing.T) {
	lm := NewLockManager()
	r := rid.RID{Slot: 1}
	assert.True(t, lm.Acquire(1, r, Shared))
	assert.True(t, lm.Acquire(2, r, Shared))
}

func TestExclusiveConflictsWithShared(t *testing.T) {
	lm := NewLockManager()
	r := rid.RID{Slot: 1}
	assert.True(t, lm.Acquire(1, r, Shared))
	assert.False(t, lm.Acquire(2, r, Exclusive))
}

func TestExclusiveConflictsWithExclusive(t *testing.T) {
	lm := NewLockManager()
	r := rid.RID{Slot: 1}
	assert.True(t, lm.Acquire(1, r, Exclusive))
	assert.False(t, lm.Acquire(2, r, Exclusive))
}

func TestSameTransactionCanUpgradeSharedToExclusive(t *testing.T) {
	lm := NewLockManager()
	r := rid.RID{Slot: 1}
	assert.True(t, lm.Acquire(1, r, Shared))
	assert.True(t, lm.Acquire(1, r, Exclusive))
}

func TestExclusiveIdempotentForSameHolder(t *testing.T) {
	lm := NewLockManager()
	r := rid.RID{Slot: 1}
	assert.True(t, lm.Acquire(1, r, Exclusive))
	assert.True(t, lm.Acquire(1, r, Exclusive))
}

func TestReleaseFreesLockForOthers(t *testing.T) {
	lm := NewLockManager()
	r := rid.RID{Slot: 1}
	assert.True(t, lm.Acquire(1, r, Exclusive))
	lm.Release(1, r)
	assert.True(t, lm.Acquire(2, r, Exclusive))
}

func TestReleaseAllReleasesEveryRID(t *testing.T) {
	lm := NewLockManager()
	r1 := rid.RID{Slot: 1}
	r2 := rid.RID{Slot: 2}
	assert.True(t, lm.Acquire(1, r1, Exclusive))
	assert.True(t, lm.Acquire(1, r2, Exclusive))

	lm.ReleaseAll(1, []rid.RID{r1, r2})
	assert.True(t, lm.Acquire(2, r1, Exclusive))
	assert.True(t, lm.Acquire(2, r2, Exclusive))
}
