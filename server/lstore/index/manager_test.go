package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhukovaskychina/lstore/server/lstore/rid"
)

func TestNewManagerIndexesOnlyKeyColumn(t *testing.T) {
	m := NewManager(3, 0)
	assert.True(t, m.Has(0))
	assert.False(t, m.Has(1))
	assert.False(t, m.Has(2))
}

func TestCreateAndDropIndex(t *testing.T) {
	m := NewManager(3, 0)
	m.CreateIndex(1)
	assert.True(t, m.Has(1))
	m.DropIndex(1)
	assert.False(t, m.Has(1))
}

func TestDropIndexNeverDropsKeyColumn(t *testing.T) {
	m := NewManager(3, 0)
	m.DropIndex(0)
	assert.True(t, m.Has(0))
}

func TestInsertRecordIndexesAllIndexedColumns(t *testing.T) {
	m := NewManager(3, 0)
	m.CreateIndex(2)
	r := rid.RID{Slot: 1}
	assert.NoError(t, m.InsertRecord(r, []int64{5, 6, 7}))

	assert.Equal(t, []rid.RID{r}, m.KeyIndex().Locate(5))
	assert.Equal(t, []rid.RID{r}, m.Index(2).Locate(7))
	assert.Nil(t, m.Index(1))
}

func TestInsertRecordRollsBackOnDuplicateKey(t *testing.T) {
	m := NewManager(2, 1)
	m.CreateIndex(0)
	r1 := rid.RID{Slot: 1}
	r2 := rid.RID{Slot: 2}
	assert.NoError(t, m.InsertRecord(r1, []int64{100, 1}))

	err := m.InsertRecord(r2, []int64{200, 1})
	assert.Error(t, err)
	// column 0 is indexed before the key column rejects the duplicate;
	// that partial index entry for r2 must have been rolled back.
	assert.Nil(t, m.Index(0).Locate(200))
}

func TestDeleteRecordRemovesFromEveryIndexedColumn(t *testing.T) {
	m := NewManager(2, 0)
	m.CreateIndex(1)
	r := rid.RID{Slot: 1}
	assert.NoError(t, m.InsertRecord(r, []int64{1, 100}))

	m.DeleteRecord(r, []int64{1, 100})
	assert.Nil(t, m.KeyIndex().Locate(1))
	assert.Nil(t, m.Index(1).Locate(100))
}
