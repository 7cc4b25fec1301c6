// Package db implements the lifecycle owner from spec.md §4.10:
// open/close, database- and table-level metadata, and per-table
// directory rehydration on reopen.
package db

import (
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zhukovaskychina/lstore/config"
	"github.com/zhukovaskychina/lstore/logger"
	"github.com/zhukovaskychina/lstore/server/lstore/bufferpool"
	"github.com/zhukovaskychina/lstore/server/lstore/errors"
	"github.com/zhukovaskychina/lstore/server/lstore/metrics"
	"github.com/zhukovaskychina/lstore/server/lstore/table"
)

// Database is the {closed → open → closed} lifecycle owner from
// spec.md §4.10. Operations on a closed Database fail with errors.ErrNotOpen.
type Database struct {
	mu     sync.Mutex
	cfg    *config.Config
	root   string
	open   bool
	pool   *bufferpool.BufferPool
	tables map[string]*table.Table
}

// New returns a closed Database configured per cfg.
func New(cfg *config.Config) *Database {
	if cfg == nil {
		cfg = config.Defaults()
	}
	return &Database{cfg: cfg}
}

// Open creates path if missing, initializes the buffer pool rooted
// there, loads db_metadata.msg, and for each listed table rehydrates
// its page-range layout and page-directory, rebuilding every
// per-column index by replaying the directory (spec.md §4.10). Open
// on an already-open Database is a no-op.
func (d *Database) Open(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil
	}

	d.root = path
	d.pool = bufferpool.New(d.cfg.BufferPoolSize, path)
	d.tables = make(map[string]*table.Table)

	var dbMeta []dbMetaRecord
	found, err := readMsgpack(filepath.Join(path, "db_metadata.msg"), &dbMeta)
	if err != nil {
		return err
	}
	if !found {
		d.open = true
		return nil
	}

	for _, tm := range dbMeta {
		t, err := d.rehydrateTable(tm)
		if err != nil {
			return err
		}
		d.tables[tm.Name] = t
	}
	d.open = true
	logger.InfoFields(logrus.Fields{
		"component": "db",
		"path":      path,
		"tables":    len(d.tables),
	}, "opened")
	return nil
}

func (d *Database) rehydrateTable(tm dbMetaRecord) (*table.Table, error) {
	var tbMeta tableMetaRecord
	tbPath := filepath.Join(d.root, tm.Name, "tb_metadata.msg")
	found, err := readMsgpack(tbPath, &tbMeta)
	if err != nil {
		return nil, err
	}

	t := table.New(tm.Name, tm.NumColumns, tm.KeyCol, d.pool)
	if !found {
		return t, nil
	}
	t.SetMergeThreshold(tbMeta.MergeThreshold)
	t.RestoreRangeLayouts(fromRangeRecords(tbMeta.Ranges))

	var dirRecs []directoryRecord
	dirPath := filepath.Join(d.root, tm.Name, "pg_directory.msg")
	if _, err := readMsgpack(dirPath, &dirRecs); err != nil {
		return nil, err
	}
	if err := t.Restore(fromDirectoryRecords(dirRecs), tbMeta.IndexedColumns); err != nil {
		return nil, err
	}
	return t, nil
}

// Close serializes every table's metadata and page-directory, writes
// db_metadata.msg, flushes the buffer pool, and clears in-memory
// state, per spec.md §4.10.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return errors.Wrap("db.Close", errors.ErrNotOpen)
	}

	var dbMeta []dbMetaRecord
	for name, t := range d.tables {
		dbMeta = append(dbMeta, dbMetaRecord{Name: name, NumColumns: t.NumColumns, KeyCol: t.KeyCol})

		tbMeta := tableMetaRecord{
			Name:           name,
			NumColumns:     t.NumColumns,
			KeyCol:         t.KeyCol,
			MergeThreshold: t.MergeThreshold(),
			Ranges:         toRangeRecords(t.RangeLayouts()),
			IndexedColumns: t.IndexedColumns(),
		}
		if err := writeMsgpack(filepath.Join(d.root, name, "tb_metadata.msg"), &tbMeta); err != nil {
			return err
		}

		dirRecs := toDirectoryRecords(t.Snapshot())
		if err := writeMsgpack(filepath.Join(d.root, name, "pg_directory.msg"), &dirRecs); err != nil {
			return err
		}
	}
	if err := writeMsgpack(filepath.Join(d.root, "db_metadata.msg"), &dbMeta); err != nil {
		return err
	}

	if err := d.pool.Reset(); err != nil {
		return err
	}
	d.tables = nil
	d.pool = nil
	d.open = false
	logger.InfoFields(logrus.Fields{
		"component": "db",
		"path":      d.root,
	}, "closed")
	return nil
}

// CreateTable registers a new table of numColumns 64-bit integer
// columns with keyCol as its unique key column. Fails with
// errors.ErrDuplicateTable if the name is taken.
func (d *Database) CreateTable(name string, numColumns, keyCol int) (*table.Table, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil, errors.Wrap("db.CreateTable", errors.ErrNotOpen)
	}
	if _, exists := d.tables[name]; exists {
		return nil, errors.Wrap("db.CreateTable", errors.ErrDuplicateTable)
	}
	t := table.New(name, numColumns, keyCol, d.pool)
	t.SetMergeThreshold(d.cfg.MergeThreshold)
	d.tables[name] = t
	return t, nil
}

// DropTable removes a table from the database. Fails with
// errors.ErrNoSuchTable if it does not exist.
func (d *Database) DropTable(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return errors.Wrap("db.DropTable", errors.ErrNotOpen)
	}
	if _, exists := d.tables[name]; !exists {
		return errors.Wrap("db.DropTable", errors.ErrNoSuchTable)
	}
	delete(d.tables, name)
	return nil
}

// Metrics returns a point-in-time snapshot of every process-wide
// counter (buffer pool, merge, lock, transaction), per SPEC_FULL.md §4.12.
func (d *Database) Metrics() metrics.Snapshot { return metrics.Take() }

// GetTable returns a previously created or rehydrated table. Fails
// with errors.ErrNoSuchTable if it does not exist.
func (d *Database) GetTable(name string) (*table.Table, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil, errors.Wrap("db.GetTable", errors.ErrNotOpen)
	}
	t, exists := d.tables[name]
	if !exists {
		return nil, errors.Wrap("db.GetTable", errors.ErrNoSuchTable)
	}
	return t, nil
}
