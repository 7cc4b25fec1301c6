package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhukovaskychina/lstore/server/lstore/rid"
	"github.com/zhukovaskychina/lstore/server/lstore/table"
)

func TestRIDRecordRoundTrip(t *testing.T) {
	r := rid.RID{Range: 1, Page: 2, Slot: 3, Kind: rid.Tail}
	assert.Equal(t, r, fromRIDRecord(toRIDRecord(r)))
}

func TestWriteReadMsgpackRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meta.msg")
	in := []dbMetaRecord{{Name: "t", NumColumns: 3, KeyCol: 0}}
	assert.NoError(t, writeMsgpack(path, &in))

	var out []dbMetaRecord
	found, err := readMsgpack(path, &out)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestReadMsgpackMissingFileReturnsFalse(t *testing.T) {
	var out []dbMetaRecord
	found, err := readMsgpack(filepath.Join(t.TempDir(), "absent.msg"), &out)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestDirectoryRecordsRoundTrip(t *testing.T) {
	recs := []table.Record{
		{RID: rid.RID{Slot: 1}, Key: 1, Columns: []int64{1, 2}},
		{RID: rid.RID{Slot: 2}, Key: 2, Columns: []int64{3, 4}},
	}
	got := fromDirectoryRecords(toDirectoryRecords(recs))
	assert.Equal(t, recs, got)
}

func TestRangeRecordsRoundTrip(t *testing.T) {
	layouts := []table.RangeLayout{
		{BasePageCounts: []int{10, 5}, TailPageCounts: []int{2}, ReclaimableBelow: 1},
	}
	got := fromRangeRecords(toRangeRecords(layouts))
	assert.Equal(t, layouts, got)
}
