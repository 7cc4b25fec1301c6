// Command lstoredb is a thin, non-core harness exercising the lstore
// library end to end: open a database, create a table, run a few
// queries through a transaction worker, and close. Per spec.md §1,
// the CLI shape itself is non-core; it exists to exercise the engine,
// not to define its contract.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zhukovaskychina/lstore/config"
	"github.com/zhukovaskychina/lstore/logger"
	lerrors "github.com/zhukovaskychina/lstore/server/lstore/errors"
	"github.com/zhukovaskychina/lstore/server/lstore/db"
	"github.com/zhukovaskychina/lstore/server/lstore/query"
	"github.com/zhukovaskychina/lstore/server/lstore/txn"
)

func main() {
	dataDir := flag.String("data", "./lstore-data", "database directory")
	configPath := flag.String("config", "", "optional ini config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.DataDir = *dataDir

	database := db.New(cfg)
	if err := database.Open(cfg.DataDir); err != nil {
		logger.Errorf("open failed: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Errorf("close failed: %v", err)
		}
	}()

	t, err := database.GetTable("demo")
	if lerrors.IsNoSuchTable(err) {
		t, err = database.CreateTable("demo", 3, 0)
	}
	if err != nil {
		logger.Errorf("table setup failed: %v", err)
		os.Exit(1)
	}

	q := query.New()
	lm := txn.NewLockManager()
	worker := txn.NewWorker()

	for k := int64(0); k < 10; k++ {
		key := k
		tx := txn.New(uint64(key), lm)
		tx.AddQuery(t, key, txn.Exclusive, func() bool {
			return q.Insert(t, []int64{key, key * 2, key * 3})
		})
		worker.AddTransaction(tx)
	}
	worker.Run()
	worker.Join()
	logger.Infof("committed %d/10 inserts", worker.Result())

	if rows, ok := q.Select(t, 5, 0, query.AllColumns(3)); ok {
		logger.Infof("select key=5: %v", rows)
	}
	if sum, ok := q.Sum(t, 0, 9, 1); ok {
		logger.Infof("sum col1 over [0,9]: %d", sum)
	}
}
