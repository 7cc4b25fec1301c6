// Package rid defines the stable record identifier used across every
// lstore component. Per the packed-struct design note, a RID is a
// small comparable value (usable as a map key) rather than the mixed
// tuple the original engine passed around.
package rid

import "fmt"

// Kind distinguishes a base-page record from a tail-page record.
type Kind uint8

const (
	// Base identifies a slot inside a BasePage.
	Base Kind = iota
	// Tail identifies a slot inside a TailPage.
	Tail
)

func (k Kind) String() string {
	if k == Tail {
		return "tail"
	}
	return "base"
}

// RID names one slot inside one page inside one page-range of a table.
// RIDs never change after insertion and are never recycled by merge.
type RID struct {
	Range uint32
	Page  uint32
	Slot  uint32
	Kind  Kind
}

func (r RID) String() string {
	return fmt.Sprintf("%s(%d,%d,%d)", r.Kind, r.Range, r.Page, r.Slot)
}

// IsZero reports whether r is the unset RID value. Zero is a valid RID
// (range 0, page 0, slot 0, kind base) so callers that need "absent"
// must use Indirection's Tombstone variant, not the zero RID.
func (r RID) IsZero() bool {
	return r == RID{}
}

// Indirection is the per-slot pointer stored by BasePage and TailPage.
// On a base slot it names the newest version of the record; on a tail
// slot it names the version immediately older than it. The explicit
// sum type replaces the source engine's sentinel "empty" marker so a
// deleted record can never be confused with a live RID of all zeros.
type Indirection struct {
	target    RID
	tombstone bool
}

// Live builds an Indirection pointing at r.
func Live(r RID) Indirection { return Indirection{target: r} }

// Tombstone is the Indirection value written when a record is deleted.
var Tombstone = Indirection{tombstone: true}

// IsTombstone reports whether this indirection marks a deleted record.
func (i Indirection) IsTombstone() bool { return i.tombstone }

// RID returns the pointed-to record id and true, or the zero RID and
// false if i is a Tombstone.
func (i Indirection) RID() (RID, bool) {
	if i.tombstone {
		return RID{}, false
	}
	return i.target, true
}

func (i Indirection) String() string {
	if i.tombstone {
		return "tombstone"
	}
	return i.target.String()
}
