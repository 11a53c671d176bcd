package filemedium

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediumkit/mediumkit/pkg/medium"
)

func TestCreatePreSizesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")

	m, err := Create[uint8](path, 512, 4)
	require.NoError(t, err)
	defer m.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), info.Size())

	assert.Equal(t, int64(4), m.Capacity())
	assert.Equal(t, int64(2048), medium.CapacityBytes(m))
}

func TestSectorWriteReadIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")

	m, err := Create[uint8](path, 512, 4)
	require.NoError(t, err)
	defer m.Close()

	sector := make([]uint8, 512)
	for i := range sector {
		sector[i] = 0xAB
	}

	require.NoError(t, m.WriteSector(1, sector))

	got := make([]uint8, 512)
	require.NoError(t, m.ReadSector(1, got))
	assert.Equal(t, sector, got)
}

func TestSectorIndexOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")

	m, err := Create[uint8](path, 512, 4)
	require.NoError(t, err)
	defer m.Close()

	err = m.ReadSector(4, make([]uint8, 512))

	var oor *medium.OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, medium.UnitSectors, oor.Unit)
	assert.Equal(t, int64(4), oor.Requested)
	assert.Equal(t, int64(4), oor.Max)

	err = m.WriteSector(4, make([]uint8, 512))
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, int64(4), oor.Requested)
}

func TestMultiWordRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")

	m, err := Create[uint32](path, 16, 8)
	require.NoError(t, err)
	defer m.Close()

	sector := make([]uint32, 16)
	for i := range sector {
		sector[i] = 0xDEAD0000 + uint32(i)
	}

	require.NoError(t, m.WriteSector(7, sector))

	// Word reads see through the sector layout.
	w, err := m.ReadWord(7*16 + 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEAD0003), w)

	// Unaligned bulk read crossing the previous (never written) sector.
	buf := make([]uint32, 4)
	require.NoError(t, m.ReadWords(7*16-2, buf))
	assert.Equal(t, []uint32{0, 0, 0xDEAD0000, 0xDEAD0001}, buf)
}

func TestReadWordsOutOfRangeLeavesBufferUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")

	m, err := Create[uint16](path, 8, 2)
	require.NoError(t, err)
	defer m.Close()

	buf := []uint16{42, 42, 42}
	err = m.ReadWords(14, buf)

	var oor *medium.OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, int64(16), oor.Requested)
	assert.Equal(t, int64(16), oor.Max)
	assert.Equal(t, []uint16{42, 42, 42}, buf)
}

func TestReadWordsEmptyBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")

	m, err := Create[uint16](path, 8, 2)
	require.NoError(t, err)
	defer m.Close()

	assert.NoError(t, m.ReadWords(0, nil))
	assert.NoError(t, m.ReadWords(medium.CapacityWords(m), []uint16{}))
}

func TestWriteSectorWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")

	m, err := Create[uint8](path, 512, 4)
	require.NoError(t, err)
	defer m.Close()

	err = m.WriteSector(0, make([]uint8, 100))

	var size *medium.SectorSizeError
	require.ErrorAs(t, err, &size)
	assert.Equal(t, int64(100), size.Given)
	assert.Equal(t, int64(512), size.Want)
}

func TestOpenInfersSectorCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")

	m, err := Create[uint8](path, 512, 4)
	require.NoError(t, err)

	sector := make([]uint8, 512)
	for i := range sector {
		sector[i] = uint8(i)
	}
	require.NoError(t, m.WriteSector(2, sector))
	require.NoError(t, m.Close())

	reopened, err := Open[uint8](path, 512)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, int64(4), reopened.Capacity())

	got := make([]uint8, 512)
	require.NoError(t, reopened.ReadSector(2, got))
	assert.Equal(t, sector, got)
}

func TestOpenRejectsPartialSector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048+100), 0o644))

	_, err := Open[uint8](path, 512)
	assert.Error(t, err, "a file length that is not a whole number of sectors must be rejected")
}

func TestOpenSizedTrustsCaller(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")

	m, err := Create[uint8](path, 512, 4)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	// The file holds 4 sectors; the caller asserts 2 and the medium obeys.
	short, err := OpenSized[uint8](path, 512, 2)
	require.NoError(t, err)
	defer short.Close()

	assert.Equal(t, int64(2), short.Capacity())

	var oor *medium.OutOfRangeError
	err = short.ReadSector(2, make([]uint8, 512))
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, int64(2), oor.Max)
}

func TestCreateRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medium.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Create[uint8](path, 512, 4)
	assert.Error(t, err)
}
