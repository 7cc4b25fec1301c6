package table

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhukovaskychina/lstore/server/lstore/rid"
)

func TestPageDirectoryPutGetByRIDAndKey(t *testing.T) {
	d := newPageDirectory()
	r := rid.RID{Slot: 1}
	d.Put(Record{RID: r, Key: 5, Columns: []int64{5, 6}})

	rec, ok := d.Get(r)
	assert.True(t, ok)
	assert.Equal(t, int64(5), rec.Key)

	gotRID, ok := d.RIDForKey(5)
	assert.True(t, ok)
	assert.Equal(t, r, gotRID)
}

func TestPageDirectoryDeleteRemovesBothIndexes(t *testing.T) {
	d := newPageDirectory()
	r := rid.RID{Slot: 1}
	d.Put(Record{RID: r, Key: 5})
	d.Delete(r)

	_, ok := d.Get(r)
	assert.False(t, ok)
	_, ok = d.RIDForKey(5)
	assert.False(t, ok)
}

func TestPageDirectoryRekeyOnPut(t *testing.T) {
	d := newPageDirectory()
	r := rid.RID{Slot: 1}
	d.Put(Record{RID: r, Key: 5})
	d.Delete(r) // simulate the rekey sequence table.Update performs
	d.Put(Record{RID: r, Key: 6})

	_, ok := d.RIDForKey(5)
	assert.False(t, ok)
	gotRID, ok := d.RIDForKey(6)
	assert.True(t, ok)
	assert.Equal(t, r, gotRID)
}

func TestPageDirectoryLenAndAll(t *testing.T) {
	d := newPageDirectory()
	d.Put(Record{RID: rid.RID{Slot: 1}, Key: 1})
	d.Put(Record{RID: rid.RID{Slot: 2}, Key: 2})

	assert.Equal(t, 2, d.Len())
	assert.Len(t, d.All(), 2)
}
