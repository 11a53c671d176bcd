// Package flashmedium wraps a word-writable medium with the write discipline
// of gradually-programmed flash: a word must be erased before it can be
// written, and written at most once per erase. Violations are caught at
// runtime instead of corrupting the medium.
//
// The bookkeeping assumes exclusive ownership of the wrapped address range.
// Two live instances over overlapping ranges of the same physical medium see
// neither each other's erases nor each other's writes, and their tracking is
// garbage; do not do that.
package flashmedium

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/mediumkit/mediumkit/pkg/medium"
	"github.com/mediumkit/mediumkit/pkg/word"
)

// EraseByte is the value every byte of an erased sector is programmed to.
const EraseByte = 0xFF

// NotErasedError reports a word write into a region that was never erased.
type NotErasedError struct {
	Offset int64
}

func (e *NotErasedError) Error() string {
	return fmt.Sprintf("word at offset %d has not been erased", e.Offset)
}

// RewriteError reports a second write to a word since its last erase.
type RewriteError struct {
	Offset int64
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("word at offset %d was already written since its last erase", e.Offset)
}

// Medium enforces erase-before-write over any word-writable medium. Tracking
// is two word-granular bitsets, one for the erased state and one for writes
// since the last erase.
type Medium[W word.Unsigned] struct {
	dev     medium.WordWriter[W]
	erased  *bitset.BitSet
	written *bitset.BitSet
}

// New wraps dev. Every word starts in the not-erased state; nothing is
// writable until the first erase, whatever the wrapped medium already holds.
func New[W word.Unsigned](dev medium.WordWriter[W]) *Medium[W] {
	words := uint(medium.CapacityWords(dev))

	return &Medium[W]{
		dev:     dev,
		erased:  bitset.New(words),
		written: bitset.New(words),
	}
}

func (m *Medium[W]) Geometry() medium.Geometry { return m.dev.Geometry() }

func (m *Medium[W]) Capacity() int64 { return m.dev.Capacity() }

func (m *Medium[W]) ReadWord(wordOff int64) (W, error) {
	return m.dev.ReadWord(wordOff)
}

func (m *Medium[W]) ReadWords(wordOff int64, buf []W) error {
	return m.dev.ReadWords(wordOff, buf)
}

func (m *Medium[W]) ReadSector(sectorIdx int64, buf []W) error {
	return m.dev.ReadSector(sectorIdx, buf)
}

// WriteSector passes through to the wrapped medium and counts as a fresh
// write of every word in the sector; the sector must be erased first and not
// written since.
func (m *Medium[W]) WriteSector(sectorIdx int64, words []W) error {
	if err := medium.CheckWrite[W](m.dev, sectorIdx, words); err != nil {
		return err
	}

	firstWord := sectorIdx * m.Geometry().SectorWords
	for i := range words {
		if err := m.checkWritable(firstWord + int64(i)); err != nil {
			return err
		}
	}

	if err := m.dev.WriteSector(sectorIdx, words); err != nil {
		return err
	}

	for i := range words {
		m.written.Set(uint(firstWord + int64(i)))
	}

	return nil
}

// WriteWord writes one word, once. A word that was never erased or was
// already written since its last erase is rejected before the wrapped medium
// is touched.
func (m *Medium[W]) WriteWord(wordOff int64, w W) error {
	if err := medium.CheckWordRead(m.dev, wordOff); err != nil {
		return err
	}

	if err := m.checkWritable(wordOff); err != nil {
		return err
	}

	if err := m.dev.WriteWord(wordOff, w); err != nil {
		return err
	}

	m.written.Set(uint(wordOff))

	return nil
}

func (m *Medium[W]) checkWritable(wordOff int64) error {
	if !m.erased.Test(uint(wordOff)) {
		return &NotErasedError{Offset: wordOff}
	}

	if m.written.Test(uint(wordOff)) {
		return &RewriteError{Offset: wordOff}
	}

	return nil
}

// EraseSector programs one sector to the erased pattern through the wrapped
// medium's sector write, then marks its words erased and writable again.
func (m *Medium[W]) EraseSector(sectorIdx int64) error {
	geo := m.Geometry()

	if limit := m.Capacity(); sectorIdx >= limit || sectorIdx < 0 {
		return &medium.OutOfRangeError{Unit: medium.UnitSectors, Requested: sectorIdx, Max: limit}
	}

	blank := make([]W, geo.SectorWords)
	for i := range blank {
		blank[i] = ^W(0)
	}

	if err := m.dev.WriteSector(sectorIdx, blank); err != nil {
		return err
	}

	firstWord := sectorIdx * geo.SectorWords
	for i := int64(0); i < geo.SectorWords; i++ {
		m.erased.Set(uint(firstWord + i))
		m.written.Clear(uint(firstWord + i))
	}

	return nil
}

// Erase erases every sector in order. A failing sub-erase surfaces as
// EraseError wrapping the underlying write failure.
func (m *Medium[W]) Erase() error {
	for idx := int64(0); idx < m.Capacity(); idx++ {
		if err := m.EraseSector(idx); err != nil {
			return &medium.EraseError{Sector: idx, Err: err}
		}
	}

	return nil
}
