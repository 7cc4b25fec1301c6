// Package metrics exposes process-wide counters for the buffer pool,
// merge, locking and transaction layers, following the teacher's
// buffer_pool.BufferPool stats fields (hitCount/missCount/readCount)
// but as shared atomic counters any component can bump, matching the
// go.uber.org/atomic usage the teacher's go.mod already declares.
package metrics

import "go.uber.org/atomic"

var (
	BufferPoolHits   = atomic.NewUint64(0)
	BufferPoolMisses = atomic.NewUint64(0)
	Evictions        = atomic.NewUint64(0)
	MergesRun        = atomic.NewUint64(0)

	LockConflicts = atomic.NewUint64(0)

	TransactionsCommitted = atomic.NewUint64(0)
	TransactionsAborted   = atomic.NewUint64(0)
)

// Snapshot is a point-in-time read of every counter, returned by
// Database.Metrics() for callers that want a single consistent view.
type Snapshot struct {
	BufferPoolHits        uint64
	BufferPoolMisses      uint64
	Evictions             uint64
	MergesRun             uint64
	LockConflicts         uint64
	TransactionsCommitted uint64
	TransactionsAborted   uint64
}

// HitRatio returns BufferPoolHits / (BufferPoolHits + BufferPoolMisses),
// or 0 when the pool has never been read from, mirroring the teacher's
// BufferPool.GetHitRatio.
func (s Snapshot) HitRatio() float64 {
	total := s.BufferPoolHits + s.BufferPoolMisses
	if total == 0 {
		return 0
	}
	return float64(s.BufferPoolHits) / float64(total)
}

// Take returns the current value of every counter.
func Take() Snapshot {
	return Snapshot{
		BufferPoolHits:        BufferPoolHits.Load(),
		BufferPoolMisses:      BufferPoolMisses.Load(),
		Evictions:             Evictions.Load(),
		MergesRun:             MergesRun.Load(),
		LockConflicts:         LockConflicts.Load(),
		TransactionsCommitted: TransactionsCommitted.Load(),
		TransactionsAborted:   TransactionsAborted.Load(),
	}
}
