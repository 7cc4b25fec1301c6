package txn

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zhukovaskychina/lstore/logger"
	"github.com/zhukovaskychina/lstore/server/lstore/metrics"
)

// TransactionWorker drives a batch of Transactions on one goroutine,
// per spec.md §4.9. Each worker runs sequentially within itself;
// concurrency comes from running several workers, the way Database
// callers spawn one worker per client thread in the original design.
type TransactionWorker struct {
	transactions []*Transaction
	result       int
	wg           sync.WaitGroup
	mu           sync.Mutex
}

// NewWorker returns an empty worker.
func NewWorker() *TransactionWorker { return &TransactionWorker{} }

// AddTransaction enqueues tx to run when Run is called.
func (w *TransactionWorker) AddTransaction(tx *Transaction) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transactions = append(w.transactions, tx)
}

// Run starts a goroutine that executes every enqueued transaction in
// order, tallying commits into result. The worker MUST never raise
// past the goroutine boundary (spec.md §4.9): a panicking transaction
// is recorded as a failure, not propagated.
func (w *TransactionWorker) Run() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.mu.Lock()
		batch := append([]*Transaction(nil), w.transactions...)
		w.mu.Unlock()

		committed := 0
		for _, tx := range batch {
			if w.runOne(tx) {
				committed++
				metrics.TransactionsCommitted.Inc()
			} else {
				metrics.TransactionsAborted.Inc()
			}
		}
		w.mu.Lock()
		w.result = committed
		w.mu.Unlock()
	}()
}

func (w *TransactionWorker) runOne(tx *Transaction) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorFields(logrus.Fields{
				"component": "txn",
				"txnID":     tx.id,
			}, "recovered panic: %v", r)
			ok = false
		}
	}()
	return tx.Run()
}

// Join blocks until Run's goroutine has finished every transaction.
func (w *TransactionWorker) Join() { w.wg.Wait() }

// Result returns the number of committed transactions, valid after Join.
func (w *TransactionWorker) Result() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}
