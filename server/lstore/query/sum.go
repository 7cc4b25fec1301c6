package query

import "github.com/zhukovaskychina/lstore/server/lstore/table"

// Sum accumulates the CURRENT value of col over every key in
// [startKey, endKey] inclusive, per spec.md §4.6. It returns false
// when the range holds no keys — the asymmetric sentinel spec.md §6
// calls out explicitly (SumVersion returns 0 for the same case).
func (q Query) Sum(t *table.Table, startKey, endKey int64, col int) (int64, bool) {
	total, count := q.sumRange(t, startKey, endKey, col, 0)
	if count == 0 {
		return 0, false
	}
	return total, true
}

// SumVersion accumulates the requested historical version of col over
// every key in [startKey, endKey] inclusive. An empty range sums to 0,
// not false, matching spec.md §6.
func (q Query) SumVersion(t *table.Table, startKey, endKey int64, col int, version int) (int64, bool) {
	total, _ := q.sumRange(t, startKey, endKey, col, version)
	return total, true
}

func (q Query) sumRange(t *table.Table, startKey, endKey int64, col int, version int) (int64, int) {
	baseRIDs := t.LocateKeyRange(startKey, endKey)
	projection := make([]bool, t.NumColumns)
	projection[col] = true

	var total int64
	var count int
	for _, baseRID := range baseRIDs {
		target, err := resolveVersion(t, baseRID, version)
		if err != nil {
			continue
		}
		cols, err := t.Find(target, projection)
		if err != nil {
			continue
		}
		total += cols[col]
		count++
	}
	return total, count
}
