// Package page implements the fixed-size column page and the
// base/tail page-group that stores one column-group of versioned
// records, per spec.md §4.1-4.2.
package page

import (
	"encoding/binary"

	lerrors "github.com/zhukovaskychina/lstore/server/lstore/errors"
)

const (
	// Size is the fixed byte size of a Page, per spec.md §6.
	Size = 4096
	// CellSize is the width of one stored integer cell.
	CellSize = 8
	// RecordsPerPage is the maximum number of cells a Page can hold.
	RecordsPerPage = Size / CellSize
)

// Page is a dense array of big-endian signed 8-byte integers. The
// big-endian choice is fixed by spec.md §4.1 so persisted bytes are
// bit-exact across implementations.
type Page struct {
	data       [Size]byte
	numRecords int
}

// New returns an empty Page.
func New() *Page { return &Page{} }

// NumRecords reports how many cells are occupied.
func (p *Page) NumRecords() int { return p.numRecords }

// HasCapacity reports whether one more cell fits.
func (p *Page) HasCapacity() bool { return p.numRecords < RecordsPerPage }

// Write appends v at index NumRecords(). It fails if the page is full.
func (p *Page) Write(v int64) error {
	if !p.HasCapacity() {
		return lerrors.Wrap("page.Write", lerrors.ErrCapacityExceeded)
	}
	offset := p.numRecords * CellSize
	binary.BigEndian.PutUint64(p.data[offset:offset+CellSize], uint64(v))
	p.numRecords++
	return nil
}

// Read returns the n sequential cells starting at index i.
func (p *Page) Read(i, n int) ([]int64, error) {
	if i < 0 || n < 0 || i+n > p.numRecords {
		return nil, lerrors.Wrap("page.Read", lerrors.ErrCorruption)
	}
	out := make([]int64, n)
	for j := 0; j < n; j++ {
		offset := (i + j) * CellSize
		out[j] = int64(binary.BigEndian.Uint64(p.data[offset : offset+CellSize]))
	}
	return out, nil
}

// ReadOne returns the single cell at index i.
func (p *Page) ReadOne(i int) (int64, error) {
	vs, err := p.Read(i, 1)
	if err != nil {
		return 0, err
	}
	return vs[0], nil
}

// WriteAt overwrites the cell at index i in place, used by merge to
// rewrite a base page's column values without touching occupancy or
// any other slot (spec.md §4.5).
func (p *Page) WriteAt(i int, v int64) error {
	if i < 0 || i >= p.numRecords {
		return lerrors.Wrap("page.WriteAt", lerrors.ErrCorruption)
	}
	offset := i * CellSize
	binary.BigEndian.PutUint64(p.data[offset:offset+CellSize], uint64(v))
	return nil
}

// Bytes exposes the raw backing buffer for serialization.
func (p *Page) Bytes() []byte { return p.data[:] }

// Overwrite replaces the backing buffer (used when loading from disk).
func (p *Page) Overwrite(data []byte, numRecords int) {
	copy(p.data[:], data)
	p.numRecords = numRecords
}
