// Package medium defines the storage contract shared by every byte-addressable,
// sector-erasable medium in this module.
//
// The contract assumes the lowest common denominator of flash-like hardware:
// reads happen at word granularity, writes at sector granularity. Mediums that
// can do more (word writes, bulk erase) declare it through the capability
// interfaces instead of a single monolithic interface every medium would have
// to fake.
//
// A medium instance assumes exclusive ownership of its address range. Two live
// instances over overlapping ranges of the same physical medium are not
// supported; callers that need sharing must serialize access in a layer above
// this one.
package medium

import (
	"fmt"
	"math"

	"github.com/mediumkit/mediumkit/pkg/word"
)

// Unit names the unit an offset or count is expressed in. Every bounds error
// carries one so that word offsets and sector indices cannot be confused
// silently.
type Unit string

const (
	UnitWords   Unit = "words"
	UnitSectors Unit = "sectors"
	UnitBytes   Unit = "bytes"
)

// Geometry is the fixed layout of a medium: how many words make up one sector
// and how many bytes encode one word. It never changes for the lifetime of a
// medium instance.
type Geometry struct {
	SectorWords int64
	WordBytes   int64
}

// GeometryOf builds the geometry for a medium with sectorWords words per
// sector and W as its word type.
func GeometryOf[W word.Unsigned](sectorWords int64) Geometry {
	return Geometry{
		SectorWords: sectorWords,
		WordBytes:   word.Width[W](),
	}
}

// SectorBytes reports the encoded size of one sector.
func (g Geometry) SectorBytes() int64 {
	return mul(g.SectorWords, g.WordBytes)
}

// Sized is the part of the contract every medium satisfies regardless of its
// word type: a fixed geometry and a capacity in sectors.
type Sized interface {
	Geometry() Geometry

	// Capacity reports the medium size in units of sectors. It is queried
	// per call rather than cached by callers; the value must not change for
	// the lifetime of the instance.
	Capacity() int64
}

// Storage is the core contract. Reads are word granular, writes sector
// granular; WriteSector is the sole write primitive.
//
// Implementations back the bulk read methods with the default algorithms in
// this package (ReadWords, ReadSector) unless the medium has a faster bulk
// path. Correctness never depends on which of the two an implementation picks.
type Storage[W word.Unsigned] interface {
	Sized

	// ReadWord reads the word at wordOff. wordOff must be in
	// [0, CapacityWords) for this to succeed. Mediums may return
	// UninitializedError for locations never written to, or synthesize a
	// zero value instead; each medium documents its choice.
	ReadWord(wordOff int64) (W, error)

	// ReadWords fills buf with consecutive words starting at wordOff. The
	// requested range does not have to be sector aligned. On failure buf is
	// left untouched.
	ReadWords(wordOff int64, buf []W) error

	// ReadSector reads the full sector at sectorIdx into buf, which must
	// hold exactly Geometry().SectorWords words.
	ReadSector(sectorIdx int64, buf []W) error

	// WriteSector writes the full sector at sectorIdx. words must hold
	// exactly Geometry().SectorWords words. Bounds and size are validated
	// before anything is mutated; implementations strive to apply the
	// sector all-or-nothing and document when their medium cannot
	// guarantee that.
	WriteSector(sectorIdx int64, words []W) error
}

// WordWriter is the capability of mediums that can reliably write single
// words outside the sector path, such as EEPROM.
type WordWriter[W word.Unsigned] interface {
	Storage[W]

	// WriteWord writes one word at wordOff. wordOff must be in
	// [0, CapacityWords).
	WriteWord(wordOff int64, w W) error
}

// SectorEraser is the capability of mediums that expose per-sector erase.
type SectorEraser interface {
	EraseSector(sectorIdx int64) error
}

// Eraser is the capability of mediums that have a fast way to reset their
// whole address range to the erased state. Implementations composed out of
// individual sector erases surface a sub-step failure as EraseError.
type Eraser interface {
	Erase() error
}

// CapacityWords reports the capacity of s in units of words.
func CapacityWords(s Sized) int64 {
	return mul(s.Capacity(), s.Geometry().SectorWords)
}

// CapacityBytes reports the capacity of s in units of bytes.
func CapacityBytes(s Sized) int64 {
	return mul(CapacityWords(s), s.Geometry().WordBytes)
}

// mul multiplies two non-negative sizes. Overflow here would silently corrupt
// every addressing invariant downstream, so it fails loudly instead.
func mul(a, b int64) int64 {
	if a < 0 || b < 0 {
		panic(fmt.Sprintf("negative size in unit conversion: %d * %d", a, b))
	}

	if a != 0 && b > math.MaxInt64/a {
		panic(fmt.Sprintf("unit conversion overflows int64: %d * %d", a, b))
	}

	return a * b
}

// add adds a non-negative offset and count, failing loudly on overflow.
func add(a, b int64) int64 {
	if s := a + b; s >= a {
		return s
	}

	panic(fmt.Sprintf("offset arithmetic overflows int64: %d + %d", a, b))
}
