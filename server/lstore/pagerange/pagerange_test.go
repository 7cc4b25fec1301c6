package pagerange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHasOneEmptyBasePage(t *testing.T) {
	pr := New(0)
	assert.Equal(t, 1, pr.NumBasePages())
	assert.Equal(t, 0, pr.NumTailPages())
	assert.True(t, pr.HasCapacity())
}

func TestAddBasePageRespectsMaxBasePages(t *testing.T) {
	pr := New(0)
	for i := 1; i < MaxBasePages; i++ {
		_, err := pr.AddBasePage()
		assert.NoError(t, err)
	}
	assert.Equal(t, MaxBasePages, pr.NumBasePages())
	_, err := pr.AddBasePage()
	assert.Error(t, err)
}

func TestHasCapacityFalseWhenFullRangeAtMax(t *testing.T) {
	pr := New(0)
	for i := 0; i < MaxBasePages-1; i++ {
		_, err := pr.AddBasePage()
		assert.NoError(t, err)
	}
	for i := 0; i < pr.NumBasePages(); i++ {
		for j := 0; j < RecordsPerPage; j++ {
			pr.IncBasePageCount(i)
		}
	}
	assert.False(t, pr.HasCapacity())
}

func TestTailPagesUnbounded(t *testing.T) {
	pr := New(0)
	for i := 0; i < 100; i++ {
		pr.AddTailPage()
	}
	assert.Equal(t, 100, pr.NumTailPages())
}

func TestFromLayoutRoundTrip(t *testing.T) {
	pr := New(2)
	_, _ = pr.AddBasePage()
	pr.IncBasePageCount(0)
	pr.AddTailPage()
	pr.IncTailPageCount(0)
	pr.MarkReclaimable(1)

	restored := FromLayout(pr.Index, pr.BasePageCounts(), pr.TailPageCounts(), pr.ReclaimableBelow())
	assert.Equal(t, pr.BasePageCounts(), restored.BasePageCounts())
	assert.Equal(t, pr.TailPageCounts(), restored.TailPageCounts())
	assert.Equal(t, pr.ReclaimableBelow(), restored.ReclaimableBelow())
}

func TestMarkReclaimableNeverGoesBackwards(t *testing.T) {
	pr := New(0)
	pr.MarkReclaimable(5)
	pr.MarkReclaimable(2)
	assert.Equal(t, 5, pr.ReclaimableBelow())
}
