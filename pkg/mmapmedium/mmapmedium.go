// Package mmapmedium backs the storage contract with a memory-mapped file.
// It shares the on-disk layout of filemedium, so the two can open each
// other's backing files.
//
// On top of the core contract the mapping makes two extra capabilities cheap:
// word-granular writes and a fast whole-medium erase. Unwritten regions read
// as zeros; this medium never returns UninitializedError.
package mmapmedium

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	"github.com/mediumkit/mediumkit/pkg/medium"
	"github.com/mediumkit/mediumkit/pkg/word"
)

// Medium is a storage medium over a memory-mapped file. The sector count is
// fixed at construction; resizing the file afterwards does not move the
// mapping and is not supported.
type Medium[W word.Unsigned] struct {
	file    *os.File
	mm      mmap.MMap
	geo     medium.Geometry
	sectors int64
	log     *zap.Logger
}

type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger attaches a logger for construction and teardown events.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Create makes and maps a new backing file sized for sectors sectors.
func Create[W word.Unsigned](path string, sectorWords, sectors int64, opts ...Option) (*Medium[W], error) {
	return open[W](path, sectorWords, sectors, true, opts)
}

// Open maps an existing backing file, inferring the sector count from its
// length. A length that is not a whole number of sectors is rejected.
func Open[W word.Unsigned](path string, sectorWords int64, opts ...Option) (*Medium[W], error) {
	return open[W](path, sectorWords, 0, false, opts)
}

func open[W word.Unsigned](path string, sectorWords, sectors int64, create bool, opts []Option) (*Medium[W], error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if sectorWords <= 0 {
		return nil, fmt.Errorf("invalid sector length %d words", sectorWords)
	}

	geo := medium.GeometryOf[W](sectorWords)
	sectorBytes := geo.SectorBytes()

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	if create {
		if err := f.Truncate(sectors * sectorBytes); err != nil {
			closeErr := f.Close()

			return nil, errors.Join(fmt.Errorf("error allocating file: %w", err), closeErr)
		}
	} else {
		info, err := f.Stat()
		if err != nil {
			closeErr := f.Close()

			return nil, errors.Join(fmt.Errorf("error inspecting file: %w", err), closeErr)
		}

		if info.Size()%sectorBytes != 0 {
			closeErr := f.Close()

			return nil, errors.Join(
				fmt.Errorf("file size %d is not a multiple of the sector size %d", info.Size(), sectorBytes),
				closeErr,
			)
		}

		sectors = info.Size() / sectorBytes
	}

	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		closeErr := f.Close()

		return nil, errors.Join(fmt.Errorf("error mapping file: %w", err), closeErr)
	}

	o.log.Debug("mapped medium",
		zap.String("path", path),
		zap.Int64("sectors", sectors),
		zap.Int("size_bytes", len(mm)),
	)

	return &Medium[W]{file: f, mm: mm, geo: geo, sectors: sectors, log: o.log}, nil
}

func (m *Medium[W]) Geometry() medium.Geometry { return m.geo }

func (m *Medium[W]) Capacity() int64 { return m.sectors }

func (m *Medium[W]) ReadWord(wordOff int64) (W, error) {
	if err := medium.CheckWordRead(m, wordOff); err != nil {
		return 0, err
	}

	w, _, ok := word.Take[W](m.mm[wordOff*m.geo.WordBytes:])
	if !ok {
		return 0, fmt.Errorf("short decode of word %d", wordOff)
	}

	return w, nil
}

// ReadWords decodes straight out of the mapping; the range check is the only
// work beyond the copy.
func (m *Medium[W]) ReadWords(wordOff int64, buf []W) error {
	if len(buf) == 0 {
		return nil
	}

	if err := medium.CheckWordRead(m, wordOff); err != nil {
		return err
	}

	maxOff := wordOff + int64(len(buf)) - 1
	if limit := medium.CapacityWords(m); maxOff >= limit {
		return &medium.OutOfRangeError{Unit: medium.UnitWords, Requested: maxOff, Max: limit}
	}

	rest := m.mm[wordOff*m.geo.WordBytes:]
	for i := range buf {
		w, r, ok := word.Take[W](rest)
		if !ok {
			return fmt.Errorf("short decode of word %d", wordOff+int64(i))
		}

		buf[i], rest = w, r
	}

	return nil
}

func (m *Medium[W]) ReadSector(sectorIdx int64, buf []W) error {
	return medium.ReadSector[W](m, sectorIdx, buf)
}

func (m *Medium[W]) WriteSector(sectorIdx int64, words []W) error {
	if err := medium.CheckWrite[W](m, sectorIdx, words); err != nil {
		return err
	}

	off := sectorIdx * m.geo.SectorBytes()
	for _, w := range words {
		word.Put(m.mm[off:], w)
		off += m.geo.WordBytes
	}

	return nil
}

// WriteWord is the word-write capability.
func (m *Medium[W]) WriteWord(wordOff int64, w W) error {
	if err := medium.CheckWordRead(m, wordOff); err != nil {
		return err
	}

	word.Put(m.mm[wordOff*m.geo.WordBytes:], w)

	return nil
}

// Erase is the fast-erase capability: one pass over the mapping, no
// per-sector writes to compose.
func (m *Medium[W]) Erase() error {
	for i := range m.mm {
		m.mm[i] = 0xFF
	}

	return nil
}

// Sync flushes the mapping back to the file.
func (m *Medium[W]) Sync() error {
	if err := m.mm.Flush(); err != nil {
		return fmt.Errorf("error flushing mapping: %w", err)
	}

	return nil
}

func (m *Medium[W]) Close() error {
	m.log.Debug("closing mapped medium", zap.String("path", m.file.Name()))

	flushErr := m.mm.Flush()
	unmapErr := m.mm.Unmap()
	closeErr := m.file.Close()

	return errors.Join(flushErr, unmapErr, closeErr)
}
