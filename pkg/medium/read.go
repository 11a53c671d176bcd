package medium

import "github.com/mediumkit/mediumkit/pkg/word"

// ReadWords is the fallback bulk read: it fills buf one ReadWord at a time.
// Mediums without a faster bulk path implement their ReadWords method by
// delegating here.
//
// The whole range is validated before buf is touched, so a failed call leaves
// the caller's buffer unaltered. An empty buf succeeds without touching
// storage at all.
func ReadWords[W word.Unsigned](s Storage[W], wordOff int64, buf []W) error {
	if len(buf) == 0 {
		return nil
	}

	if wordOff < 0 {
		return &OutOfRangeError{Unit: UnitWords, Requested: wordOff, Max: CapacityWords(s)}
	}

	maxOff := add(wordOff, int64(len(buf))-1)
	if limit := CapacityWords(s); maxOff >= limit {
		return &OutOfRangeError{Unit: UnitWords, Requested: maxOff, Max: limit}
	}

	for i := range buf {
		w, err := s.ReadWord(wordOff + int64(i))
		if err != nil {
			return err
		}

		buf[i] = w
	}

	return nil
}

// ReadSector is the fallback sector read: it validates the index and the
// buffer size, then delegates to the medium's own ReadWords. A medium whose
// ReadWords already takes advantage of sector-sized requests gets the benefit
// here for free.
func ReadSector[W word.Unsigned](s Storage[W], sectorIdx int64, buf []W) error {
	geo := s.Geometry()
	if int64(len(buf)) != geo.SectorWords {
		return &SectorSizeError{Unit: UnitWords, Given: int64(len(buf)), Want: geo.SectorWords}
	}

	if limit := s.Capacity(); sectorIdx >= limit || sectorIdx < 0 {
		return &OutOfRangeError{Unit: UnitSectors, Requested: sectorIdx, Max: limit}
	}

	return s.ReadWords(mul(sectorIdx, geo.SectorWords), buf)
}

// CheckWordRead validates a single-word access at wordOff against the
// capacity of s.
func CheckWordRead(s Sized, wordOff int64) error {
	if limit := CapacityWords(s); wordOff >= limit || wordOff < 0 {
		return &OutOfRangeError{Unit: UnitWords, Requested: wordOff, Max: limit}
	}

	return nil
}

// CheckWrite runs the validation every WriteSector implementation performs
// before mutating anything: the sector index must be inside the medium and
// words must be exactly one sector long.
func CheckWrite[W word.Unsigned](s Storage[W], sectorIdx int64, words []W) error {
	geo := s.Geometry()
	if int64(len(words)) != geo.SectorWords {
		return &SectorSizeError{Unit: UnitWords, Given: int64(len(words)), Want: geo.SectorWords}
	}

	if limit := s.Capacity(); sectorIdx >= limit || sectorIdx < 0 {
		return &OutOfRangeError{Unit: UnitSectors, Requested: sectorIdx, Max: limit}
	}

	return nil
}
