// Package memmedium is a storage medium held entirely in memory. It is the
// test double for everything built on the storage contract, and the one
// in-tree medium that reports UninitializedError for words that were never
// written instead of synthesizing zeros.
package memmedium

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/mediumkit/mediumkit/pkg/medium"
	"github.com/mediumkit/mediumkit/pkg/word"
)

// EraseByte is the value every byte of an erased region holds, matching the
// all-ones erased state of NOR/NAND flash.
const EraseByte = 0xFF

// Medium is a byte-slice medium with a word-granular record of which words
// have been written. It cannot be resized.
//
// Beyond the core contract it implements the word-write, sector-erase and
// full-erase capabilities.
type Medium[W word.Unsigned] struct {
	geo     medium.Geometry
	data    []byte
	written *bitset.BitSet
}

// New builds an empty medium; every word starts uninitialized.
func New[W word.Unsigned](sectorWords, sectors int64) *Medium[W] {
	geo := medium.GeometryOf[W](sectorWords)

	return &Medium[W]{
		geo:     geo,
		data:    make([]byte, sectors*geo.SectorBytes()),
		written: bitset.New(uint(sectors * sectorWords)),
	}
}

// FromBytes builds a medium over an existing byte image. With initialized
// set, every word is considered written; otherwise reads fail with
// UninitializedError until the first write, regardless of the image content.
// The image length must be a whole number of sectors.
func FromBytes[W word.Unsigned](sectorWords int64, data []byte, initialized bool) (*Medium[W], error) {
	geo := medium.GeometryOf[W](sectorWords)

	if int64(len(data))%geo.SectorBytes() != 0 {
		return nil, fmt.Errorf("image of %d bytes is not a multiple of the sector size %d", len(data), geo.SectorBytes())
	}

	words := int64(len(data)) / geo.WordBytes

	m := &Medium[W]{
		geo:     geo,
		data:    data,
		written: bitset.New(uint(words)),
	}

	if initialized {
		for i := int64(0); i < words; i++ {
			m.written.Set(uint(i))
		}
	}

	return m, nil
}

func (m *Medium[W]) Geometry() medium.Geometry { return m.geo }

func (m *Medium[W]) Capacity() int64 {
	return int64(len(m.data)) / m.geo.SectorBytes()
}

func (m *Medium[W]) ReadWord(wordOff int64) (W, error) {
	if err := medium.CheckWordRead(m, wordOff); err != nil {
		return 0, err
	}

	if !m.written.Test(uint(wordOff)) {
		return 0, &medium.UninitializedError{Offset: wordOff}
	}

	w, _, ok := word.Take[W](m.data[wordOff*m.geo.WordBytes:])
	if !ok {
		return 0, fmt.Errorf("short decode of word %d", wordOff)
	}

	return w, nil
}

// ReadWords uses the word-at-a-time fallback; the per-word initialization
// check leaves no faster bulk path to take.
func (m *Medium[W]) ReadWords(wordOff int64, buf []W) error {
	return medium.ReadWords[W](m, wordOff, buf)
}

func (m *Medium[W]) ReadSector(sectorIdx int64, buf []W) error {
	return medium.ReadSector[W](m, sectorIdx, buf)
}

func (m *Medium[W]) WriteSector(sectorIdx int64, words []W) error {
	if err := medium.CheckWrite[W](m, sectorIdx, words); err != nil {
		return err
	}

	firstWord := sectorIdx * m.geo.SectorWords
	for i, w := range words {
		word.Put(m.data[(firstWord+int64(i))*m.geo.WordBytes:], w)
		m.written.Set(uint(firstWord + int64(i)))
	}

	return nil
}

// WriteWord is the word-write capability.
func (m *Medium[W]) WriteWord(wordOff int64, w W) error {
	if err := medium.CheckWordRead(m, wordOff); err != nil {
		return err
	}

	word.Put(m.data[wordOff*m.geo.WordBytes:], w)
	m.written.Set(uint(wordOff))

	return nil
}

// EraseSector resets one sector to the erased byte pattern. The erased words
// count as written: they read back as all-ones, not as uninitialized.
func (m *Medium[W]) EraseSector(sectorIdx int64) error {
	if limit := m.Capacity(); sectorIdx >= limit || sectorIdx < 0 {
		return &medium.OutOfRangeError{Unit: medium.UnitSectors, Requested: sectorIdx, Max: limit}
	}

	sectorBytes := m.geo.SectorBytes()
	for i := sectorIdx * sectorBytes; i < (sectorIdx+1)*sectorBytes; i++ {
		m.data[i] = EraseByte
	}

	firstWord := sectorIdx * m.geo.SectorWords
	for i := int64(0); i < m.geo.SectorWords; i++ {
		m.written.Set(uint(firstWord + i))
	}

	return nil
}

// Erase resets the whole medium by erasing every sector in order.
func (m *Medium[W]) Erase() error {
	for idx := int64(0); idx < m.Capacity(); idx++ {
		if err := m.EraseSector(idx); err != nil {
			return &medium.EraseError{Sector: idx, Err: err}
		}
	}

	return nil
}
