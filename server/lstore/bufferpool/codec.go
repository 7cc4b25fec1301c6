package bufferpool

import (
	"bytes"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zhukovaskychina/lstore/server/lstore/errors"
	"github.com/zhukovaskychina/lstore/server/lstore/page"
	"github.com/zhukovaskychina/lstore/server/lstore/rid"
)

// ridRecord and indirectionRecord are the wire shapes for rid.RID and
// rid.Indirection: msgpack has no notion of the sum type described in
// DESIGN.md, so Tombstone is carried as an explicit flag.
type ridRecord struct {
	Range uint32
	Page  uint32
	Slot  uint32
	Kind  uint8
}

type indirectionRecord struct {
	Tombstone bool
	Target    ridRecord
}

// pageRecord is the self-describing record spec.md §4.4 requires every
// page file to contain: one dense column per table column, plus the
// four parallel per-slot metadata arrays, plus the merge TPS watermark.
type pageRecord struct {
	Kind        uint8
	NumColumns  int
	Columns     [][]int64
	Indirection []indirectionRecord
	Schema      []uint64
	Timestamp   []int64
	RID         []ridRecord
	TPS         int
}

func toRIDRecord(r rid.RID) ridRecord {
	return ridRecord{Range: r.Range, Page: r.Page, Slot: r.Slot, Kind: uint8(r.Kind)}
}

func fromRIDRecord(r ridRecord) rid.RID {
	return rid.RID{Range: r.Range, Page: r.Page, Slot: r.Slot, Kind: rid.Kind(r.Kind)}
}

func toIndirectionRecord(ind rid.Indirection) indirectionRecord {
	if ind.IsTombstone() {
		return indirectionRecord{Tombstone: true}
	}
	target, _ := ind.RID()
	return indirectionRecord{Target: toRIDRecord(target)}
}

func fromIndirectionRecord(r indirectionRecord) rid.Indirection {
	if r.Tombstone {
		return rid.Tombstone
	}
	return rid.Live(fromRIDRecord(r.Target))
}

// encodeGroup flattens a page.Group into the msgpack bytes written to
// (or cached in lieu of) a page file.
func encodeGroup(g *page.Group) ([]byte, error) {
	n := g.NumRecords()
	rec := pageRecord{
		Kind:       uint8(g.Kind),
		NumColumns: g.NumColumns(),
		Columns:    make([][]int64, g.NumColumns()),
		TPS:        g.MergedTailCount(),
	}
	for c := 0; c < g.NumColumns(); c++ {
		col := make([]int64, n)
		for s := 0; s < n; s++ {
			v, err := g.ReadColumn(s, c)
			if err != nil {
				return nil, errors.Wrap("codec.encodeGroup", err)
			}
			col[s] = v
		}
		rec.Columns[c] = col
	}
	for s := 0; s < n; s++ {
		rec.Indirection = append(rec.Indirection, toIndirectionRecord(g.Indirection(s)))
		rec.Schema = append(rec.Schema, g.SchemaEncoding(s))
		rec.Timestamp = append(rec.Timestamp, g.Timestamp(s))
		rec.RID = append(rec.RID, toRIDRecord(g.RID(s)))
	}
	b, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, errors.Wrap("codec.encodeGroup", err)
	}
	return b, nil
}

// decodeGroup rebuilds a page.Group from msgpack bytes produced by encodeGroup.
func decodeGroup(data []byte) (*page.Group, error) {
	var rec pageRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap("codec.decodeGroup", errors.ErrCorruption)
	}
	kind := rid.Kind(rec.Kind)
	var g *page.Group
	if kind == rid.Tail {
		g = page.NewTail(rec.NumColumns)
	} else {
		g = page.NewBase(rec.NumColumns)
	}
	n := len(rec.RID)
	for s := 0; s < n; s++ {
		cols := make([]int64, rec.NumColumns)
		for c := 0; c < rec.NumColumns; c++ {
			cols[c] = rec.Columns[c][s]
		}
		id := fromRIDRecord(rec.RID[s])
		ind := fromIndirectionRecord(rec.Indirection[s])
		if err := g.Insert(id, rec.Timestamp[s], rec.Schema[s], ind, cols); err != nil {
			return nil, errors.Wrap("codec.decodeGroup", err)
		}
	}
	g.SetMergedTailCount(rec.TPS)
	return g, nil
}

// compress applies LZ4 frame compression to the msgpack payload before
// it is written to disk, the way InnoDB-style engines compress page
// images; the in-memory cache keeps the uncompressed form.
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap("codec.compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap("codec.compress", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out := new(bytes.Buffer)
	if _, err := out.ReadFrom(r); err != nil {
		return nil, errors.Wrap("codec.decompress", errors.ErrCorruption)
	}
	return out.Bytes(), nil
}
