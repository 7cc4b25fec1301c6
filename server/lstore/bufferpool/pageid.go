package bufferpool

import "github.com/zhukovaskychina/lstore/server/lstore/rid"

// PageID names one page across the whole database: which table, which
// page-range, which slot in the base/tail list, per spec.md §4.4
// ("page_id is a 3-tuple (base|tail, range, page_idx)") plus the table
// name since the pool is shared across every table.
type PageID struct {
	Table   string
	Kind    rid.Kind
	Range   uint32
	PageIdx uint32
}
