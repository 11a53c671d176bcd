package medium

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordDevice is the smallest possible implementation: it supplies ReadWord
// and leans on the package defaults for everything else.
type wordDevice struct {
	geo   Geometry
	words []uint16
}

func newWordDevice(sectorWords, sectors int64) *wordDevice {
	return &wordDevice{
		geo:   GeometryOf[uint16](sectorWords),
		words: make([]uint16, sectorWords*sectors),
	}
}

func (d *wordDevice) Geometry() Geometry { return d.geo }

func (d *wordDevice) Capacity() int64 {
	return int64(len(d.words)) / d.geo.SectorWords
}

func (d *wordDevice) ReadWord(wordOff int64) (uint16, error) {
	if err := CheckWordRead(d, wordOff); err != nil {
		return 0, err
	}

	return d.words[wordOff], nil
}

func (d *wordDevice) ReadWords(wordOff int64, buf []uint16) error {
	return ReadWords[uint16](d, wordOff, buf)
}

func (d *wordDevice) ReadSector(sectorIdx int64, buf []uint16) error {
	return ReadSector[uint16](d, sectorIdx, buf)
}

func (d *wordDevice) WriteSector(sectorIdx int64, words []uint16) error {
	if err := CheckWrite[uint16](d, sectorIdx, words); err != nil {
		return err
	}

	copy(d.words[sectorIdx*d.geo.SectorWords:], words)

	return nil
}

func TestCapacityConsistency(t *testing.T) {
	d := newWordDevice(128, 16)

	assert.Equal(t, int64(16), d.Capacity())
	assert.Equal(t, int64(16*128), CapacityWords(d))
	assert.Equal(t, d.Capacity()*d.Geometry().SectorWords*d.Geometry().WordBytes, CapacityBytes(d))
}

func TestReadWordsFillsBuffer(t *testing.T) {
	d := newWordDevice(4, 2)
	require.NoError(t, d.WriteSector(1, []uint16{10, 20, 30, 40}))

	buf := make([]uint16, 6)
	require.NoError(t, d.ReadWords(2, buf))

	assert.Equal(t, []uint16{0, 0, 10, 20, 30, 40}, buf)
}

func TestReadWordsOutOfRangeLeavesBufferUntouched(t *testing.T) {
	d := newWordDevice(4, 2)

	buf := []uint16{7, 7, 7}
	err := d.ReadWords(6, buf)

	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, UnitWords, oor.Unit)
	assert.Equal(t, int64(8), oor.Requested)
	assert.Equal(t, int64(8), oor.Max)

	assert.Equal(t, []uint16{7, 7, 7}, buf, "failed read must not modify the buffer")
}

func TestReadWordsEmptyBuffer(t *testing.T) {
	d := newWordDevice(4, 2)

	assert.NoError(t, d.ReadWords(0, nil))
	// An empty request is valid even at the very end of the medium, where a
	// naive len-1 computation would underflow.
	assert.NoError(t, d.ReadWords(CapacityWords(d), []uint16{}))
}

func TestReadSectorDelegatesToReadWords(t *testing.T) {
	d := newWordDevice(4, 3)
	require.NoError(t, d.WriteSector(2, []uint16{1, 2, 3, 4}))

	buf := make([]uint16, 4)
	require.NoError(t, d.ReadSector(2, buf))
	assert.Equal(t, []uint16{1, 2, 3, 4}, buf)
}

func TestReadSectorWrongBufferSize(t *testing.T) {
	d := newWordDevice(4, 3)

	err := d.ReadSector(0, make([]uint16, 3))

	var size *SectorSizeError
	require.ErrorAs(t, err, &size)
	assert.Equal(t, int64(3), size.Given)
	assert.Equal(t, int64(4), size.Want)
}

func TestWriteSectorOutOfRange(t *testing.T) {
	d := newWordDevice(4, 3)

	err := d.WriteSector(3, make([]uint16, 4))

	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, UnitSectors, oor.Unit)
	assert.Equal(t, int64(3), oor.Requested)
	assert.Equal(t, int64(3), oor.Max)
}

func TestEraseErrorUnwrap(t *testing.T) {
	inner := &OutOfRangeError{Unit: UnitSectors, Requested: 9, Max: 4}
	err := &EraseError{Sector: 9, Err: inner}

	var oor *OutOfRangeError
	assert.True(t, errors.As(err, &oor))
	assert.Equal(t, inner, oor)
}

func TestUnitConversionOverflowPanics(t *testing.T) {
	assert.Panics(t, func() {
		mul(1<<40, 1<<40)
	})
}
