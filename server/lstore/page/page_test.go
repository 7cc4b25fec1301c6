package page

import (
	"testing"

	"github.com/stretchr/testify/assert"

	lerrors "github.com/zhukovaskychina/lstore/server/lstore/errors"
)

func TestWriteReadRoundTrip(t *testing.T) {
	p := New()
	assert.NoError(t, p.Write(42))
	assert.NoError(t, p.Write(-7))

	v, err := p.ReadOne(0)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), v)

	vs, err := p.Read(0, 2)
	assert.NoError(t, err)
	assert.Equal(t, []int64{42, -7}, vs)
}

func TestWriteAtOverwritesInPlace(t *testing.T) {
	p := New()
	require := assert.New(t)
	require.NoError(p.Write(1))
	require.NoError(p.Write(2))

	require.NoError(p.WriteAt(0, 99))
	v, err := p.ReadOne(0)
	require.NoError(err)
	require.Equal(int64(99), v)
	require.Equal(2, p.NumRecords())
}

func TestWriteAtOutOfRange(t *testing.T) {
	p := New()
	err := p.WriteAt(0, 1)
	assert.True(t, lerrors.IsCorruption(err))
}

func TestPageFullWhenCapacityExceeded(t *testing.T) {
	p := New()
	for i := 0; i < RecordsPerPage; i++ {
		assert.NoError(t, p.Write(int64(i)))
	}
	assert.False(t, p.HasCapacity())
	err := p.Write(0)
	assert.Error(t, err)
}

func TestOverwriteRestoresFromBytes(t *testing.T) {
	p := New()
	assert.NoError(t, p.Write(5))
	other := New()
	other.Overwrite(p.Bytes(), p.NumRecords())
	v, err := other.ReadOne(0)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), v)
}
