package table

import "github.com/zhukovaskychina/lstore/server/lstore/rid"

// Record is the page-directory's materialized value for a live base
// RID: the primary key and the record's current (newest) column
// vector, per spec.md §3's Page-Directory definition.
type Record struct {
	RID     rid.RID
	Key     int64
	Columns []int64
}

func cloneColumns(cols []int64) []int64 {
	out := make([]int64, len(cols))
	copy(out, cols)
	return out
}
