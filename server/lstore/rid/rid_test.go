package rid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "base", Base.String())
	assert.Equal(t, "tail", Tail.String())
}

func TestRIDIsZero(t *testing.T) {
	assert.True(t, RID{}.IsZero())
	assert.False(t, RID{Range: 1}.IsZero())
}

func TestIndirectionLive(t *testing.T) {
	target := RID{Range: 1, Page: 2, Slot: 3, Kind: Tail}
	ind := Live(target)

	got, ok := ind.RID()
	assert.True(t, ok)
	assert.Equal(t, target, got)
	assert.False(t, ind.IsTombstone())
}

func TestIndirectionTombstone(t *testing.T) {
	_, ok := Tombstone.RID()
	assert.False(t, ok)
	assert.True(t, Tombstone.IsTombstone())
}

func TestRIDString(t *testing.T) {
	r := RID{Range: 1, Page: 2, Slot: 3, Kind: Base}
	assert.Equal(t, "base(1,2,3)", r.String())
}
