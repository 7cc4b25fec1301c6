package db

import (
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/zhukovaskychina/lstore/server/lstore/errors"
	"github.com/zhukovaskychina/lstore/server/lstore/rid"
	"github.com/zhukovaskychina/lstore/server/lstore/table"
)

// ridRecord mirrors bufferpool's private wire shape for rid.RID; kept
// local because metadata files are a separate concern from page files
// and msgpack needs concrete field names either way.
type ridRecord struct {
	Range uint32
	Page  uint32
	Slot  uint32
	Kind  uint8
}

func toRIDRecord(r rid.RID) ridRecord {
	return ridRecord{Range: r.Range, Page: r.Page, Slot: r.Slot, Kind: uint8(r.Kind)}
}

func fromRIDRecord(r ridRecord) rid.RID {
	return rid.RID{Range: r.Range, Page: r.Page, Slot: r.Slot, Kind: rid.Kind(r.Kind)}
}

// dbMetaRecord is the wire shape of db_metadata.msg: "list of {name,
// num_columns, key}" per spec.md §6.
type dbMetaRecord struct {
	Name       string
	NumColumns int
	KeyCol     int
}

// rangeRecord is the persisted layout of one PageRange: occupancy
// counts only, never page contents (those round-trip through the
// buffer pool's own page files).
type rangeRecord struct {
	BasePageCounts   []int
	TailPageCounts   []int
	ReclaimableBelow int
}

// tableMetaRecord is the wire shape of tb_metadata.msg: "{name,
// num_columns, key, num_pages}" in spec.md §6, expanded with the
// merge threshold and secondary-index list a faithful rehydrate needs.
type tableMetaRecord struct {
	Name           string
	NumColumns     int
	KeyCol         int
	MergeThreshold int
	Ranges         []rangeRecord
	IndexedColumns []int
}

// directoryRecord is one entry of pg_directory.msg's "{rid: [...],
// data: [[...], ...]}" shape, flattened to one record per RID for a
// simpler round trip.
type directoryRecord struct {
	RID     ridRecord
	Key     int64
	Columns []int64
}

func writeMsgpack(path string, v interface{}) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return errors.Wrap("db.writeMsgpack", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap("db.writeMsgpack", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return errors.Wrap("db.writeMsgpack", err)
	}
	return errors.Wrap("db.writeMsgpack", os.Rename(tmp, path))
}

func readMsgpack(path string, v interface{}) (bool, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap("db.readMsgpack", err)
	}
	if err := msgpack.Unmarshal(b, v); err != nil {
		return false, errors.Wrap("db.readMsgpack", errors.ErrCorruption)
	}
	return true, nil
}

func toRangeRecords(layouts []table.RangeLayout) []rangeRecord {
	out := make([]rangeRecord, len(layouts))
	for i, l := range layouts {
		out[i] = rangeRecord{
			BasePageCounts:   l.BasePageCounts,
			TailPageCounts:   l.TailPageCounts,
			ReclaimableBelow: l.ReclaimableBelow,
		}
	}
	return out
}

func fromRangeRecords(recs []rangeRecord) []table.RangeLayout {
	out := make([]table.RangeLayout, len(recs))
	for i, r := range recs {
		out[i] = table.RangeLayout{
			BasePageCounts:   r.BasePageCounts,
			TailPageCounts:   r.TailPageCounts,
			ReclaimableBelow: r.ReclaimableBelow,
		}
	}
	return out
}

func toDirectoryRecords(records []table.Record) []directoryRecord {
	out := make([]directoryRecord, len(records))
	for i, r := range records {
		out[i] = directoryRecord{RID: toRIDRecord(r.RID), Key: r.Key, Columns: r.Columns}
	}
	return out
}

func fromDirectoryRecords(recs []directoryRecord) []table.Record {
	out := make([]table.Record, len(recs))
	for i, r := range recs {
		out[i] = table.Record{RID: fromRIDRecord(r.RID), Key: r.Key, Columns: r.Columns}
	}
	return out
}
