// Package filemedium backs the storage contract with a random-access file.
//
// The on-disk layout is a flat byte region of exactly
// capacity × SectorWords × WordBytes bytes: sector i occupies the byte range
// [i*SectorBytes, (i+1)*SectorBytes), and words inside a sector are packed
// consecutively in their little-endian encoding with no padding, header, or
// checksum.
//
// Regions of the file that were never written read back as zero words; this
// medium synthesizes zeros instead of returning UninitializedError.
package filemedium

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/zap"

	"github.com/mediumkit/mediumkit/pkg/medium"
	"github.com/mediumkit/mediumkit/pkg/word"
)

// Medium is a file-backed storage medium. The sector count is recorded at
// construction and never re-derived from the live file length, so the medium
// is not confused if the file is resized out-of-band after construction.
type Medium[W word.Unsigned] struct {
	file    *os.File
	geo     medium.Geometry
	sectors int64
	log     *zap.Logger
}

type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger attaches a logger for construction and teardown events. The
// default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Create makes a new backing file at path sized for sectors sectors of
// sectorWords words each, pre-sizing the byte region up front. The file must
// not already exist.
func Create[W word.Unsigned](path string, sectorWords, sectors int64, opts ...Option) (*Medium[W], error) {
	o := buildOptions(opts)

	geo, err := checkGeometry[W](sectorWords)
	if err != nil {
		return nil, err
	}

	if sectors < 0 {
		return nil, fmt.Errorf("invalid sector count %d", sectors)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error creating file: %w", err)
	}

	size := mulSize(sectors, geo.SectorBytes())

	err = f.Truncate(size)
	if err != nil {
		closeErr := f.Close()

		return nil, errors.Join(fmt.Errorf("error allocating file: %w", err), closeErr)
	}

	o.log.Debug("created file medium",
		zap.String("path", path),
		zap.Int64("sectors", sectors),
		zap.Int64("size_bytes", size),
	)

	return &Medium[W]{file: f, geo: geo, sectors: sectors, log: o.log}, nil
}

// Open opens an existing backing file and infers its sector count from the
// file length. It fails if the length is not an exact multiple of the sector
// byte size; a medium is never silently truncated to fit.
func Open[W word.Unsigned](path string, sectorWords int64, opts ...Option) (*Medium[W], error) {
	o := buildOptions(opts)

	geo, err := checkGeometry[W](sectorWords)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		closeErr := f.Close()

		return nil, errors.Join(fmt.Errorf("error inspecting file: %w", err), closeErr)
	}

	sectorBytes := geo.SectorBytes()
	if info.Size()%sectorBytes != 0 {
		closeErr := f.Close()

		return nil, errors.Join(
			fmt.Errorf("file size %d is not a multiple of the sector size %d", info.Size(), sectorBytes),
			closeErr,
		)
	}

	sectors := info.Size() / sectorBytes

	o.log.Debug("opened file medium",
		zap.String("path", path),
		zap.Int64("sectors", sectors),
	)

	return &Medium[W]{file: f, geo: geo, sectors: sectors, log: o.log}, nil
}

// OpenSized opens an existing backing file at a caller-asserted sector count,
// for media whose reported length is unreliable (raw block devices). The byte
// region is trusted to hold at least sectors sectors.
func OpenSized[W word.Unsigned](path string, sectorWords, sectors int64, opts ...Option) (*Medium[W], error) {
	o := buildOptions(opts)

	geo, err := checkGeometry[W](sectorWords)
	if err != nil {
		return nil, err
	}

	if sectors < 0 {
		return nil, fmt.Errorf("invalid sector count %d", sectors)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	return &Medium[W]{file: f, geo: geo, sectors: sectors, log: o.log}, nil
}

func checkGeometry[W word.Unsigned](sectorWords int64) (medium.Geometry, error) {
	if sectorWords <= 0 {
		return medium.Geometry{}, fmt.Errorf("invalid sector length %d words", sectorWords)
	}

	return medium.GeometryOf[W](sectorWords), nil
}

// mulSize is the construction-time counterpart of the contract's checked unit
// conversions; sizes here were already validated non-negative.
func mulSize(a, b int64) int64 {
	if b != 0 && a > math.MaxInt64/b {
		panic(fmt.Sprintf("file size overflows int64: %d * %d", a, b))
	}

	return a * b
}

func (m *Medium[W]) Geometry() medium.Geometry { return m.geo }

func (m *Medium[W]) Capacity() int64 { return m.sectors }

func (m *Medium[W]) ReadWord(wordOff int64) (W, error) {
	if err := medium.CheckWordRead(m, wordOff); err != nil {
		return 0, err
	}

	buf := make([]byte, m.geo.WordBytes)
	if _, err := m.file.ReadAt(buf, wordOff*m.geo.WordBytes); err != nil {
		return 0, fmt.Errorf("error reading word %d: %w", wordOff, err)
	}

	w, _, ok := word.Take[W](buf)
	if !ok {
		return 0, fmt.Errorf("short decode of word %d", wordOff)
	}

	return w, nil
}

// ReadWords overrides the word-at-a-time fallback with a single bulk read of
// the requested byte range. The scratch buffer is decoded into buf only after
// the read succeeded in full, so a failed call leaves buf untouched.
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

	raw := make([]byte, int64(len(buf))*m.geo.WordBytes)
	if _, err := m.file.ReadAt(raw, wordOff*m.geo.WordBytes); err != nil {
		return fmt.Errorf("error reading %d words at offset %d: %w", len(buf), wordOff, err)
	}

	rest := raw
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

// WriteSector serializes the whole sector into one contiguous buffer and
// lands it with a single WriteAt. The backing file is assumed to apply
// sector-sized writes atomically; a short write is an invariant violation
// surfaced as io.ErrShortWrite, not a state to recover from.
func (m *Medium[W]) WriteSector(sectorIdx int64, words []W) error {
	if err := medium.CheckWrite[W](m, sectorIdx, words); err != nil {
		return err
	}

	sectorBytes := m.geo.SectorBytes()

	raw := make([]byte, 0, sectorBytes)
	for _, w := range words {
		raw = word.Append(raw, w)
	}

	n, err := m.file.WriteAt(raw, sectorIdx*sectorBytes)
	if err != nil {
		return fmt.Errorf("error writing sector %d: %w", sectorIdx, err)
	}

	if int64(n) != sectorBytes {
		return fmt.Errorf("sector %d landed %d of %d bytes: %w", sectorIdx, n, sectorBytes, io.ErrShortWrite)
	}

	return nil
}

// Sync flushes the backing file to stable storage.
func (m *Medium[W]) Sync() error {
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("error syncing file: %w", err)
	}

	return nil
}

func (m *Medium[W]) Close() error {
	m.log.Debug("closing file medium", zap.String("path", m.file.Name()))

	return m.file.Close()
}
