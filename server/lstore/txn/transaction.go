package txn

import (
	"github.com/zhukovaskychina/lstore/server/lstore/rid"
	"github.com/zhukovaskychina/lstore/server/lstore/table"
)

// step is one (query_fn, table, args) tuple accumulated by AddQuery,
// per spec.md §4.8. Key/Mode name the record to lock before fn runs;
// a step with Key unresolved (e.g. an insert of a not-yet-existing
// key) simply runs unlocked.
type step struct {
	table *table.Table
	key   int64
	mode  Mode
	fn    func() bool
}

// Transaction accumulates Query calls and runs them under 2PL,
// committing on full success or aborting on the first failure, per
// spec.md §4.8.
type Transaction struct {
	id    uint64
	lm    *LockManager
	steps []step
	held  map[*table.Table][]rid.RID
}

// New creates a Transaction identified by id, using lm for record
// locking. id must be unique among concurrently running transactions.
func New(id uint64, lm *LockManager) *Transaction {
	return &Transaction{id: id, lm: lm, held: make(map[*table.Table][]rid.RID)}
}

// AddQuery appends one step: fn is the bound Query call (e.g.
// `func() bool { return q.Update(t, key, updates) }`); key/mode name
// the record fn touches, so Run can acquire its lock first.
func (tx *Transaction) AddQuery(t *table.Table, key int64, mode Mode, fn func() bool) {
	tx.steps = append(tx.steps, step{table: t, key: key, mode: mode, fn: fn})
}

// Run executes every accumulated step in order. The first step that
// fails to acquire its lock, or whose query returns false, triggers
// abort(); otherwise Run commits. Matches the `False`-sentinel
// contract spec.md §4.6/§4.8 establish for the whole stack.
func (tx *Transaction) Run() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			tx.abort()
			ok = false
		}
	}()

	for _, s := range tx.steps {
		if baseRID, found := s.table.BaseRIDForKey(s.key); found {
			if !tx.lm.Acquire(tx.id, baseRID, s.mode) {
				return tx.abort()
			}
			tx.held[s.table] = append(tx.held[s.table], baseRID)
		}
		if !s.fn() {
			return tx.abort()
		}
	}
	return tx.commit()
}

// commit releases every lock this transaction holds and reports
// success. Durability beyond that is delegated to the buffer pool's
// eventual flush, per spec.md §4.8 — no per-commit fsync at this layer.
func (tx *Transaction) commit() bool {
	tx.releaseAll()
	return true
}

// abort releases every lock this transaction holds and reports
// failure. Full rollback of already-applied steps is OPTIONAL per
// spec.md §4.8; this implementation takes the minimal contract.
func (tx *Transaction) abort() bool {
	tx.releaseAll()
	return false
}

func (tx *Transaction) releaseAll() {
	for _, rids := range tx.held {
		tx.lm.ReleaseAll(tx.id, rids)
	}
	tx.held = make(map[*table.Table][]rid.RID)
}
