package medium

import "fmt"

// The taxonomy below covers the failures shared by every medium. It is open
// on purpose: medium-specific conditions are ordinary errors wrapped with %w
// and travel through the same return paths, so a concrete medium can surface
// native failures (an I/O error, a flash tracking violation) without this
// package knowing about them.

// OutOfRangeError reports a request past the declared capacity. Requested is
// the violating offset and Max the capacity ceiling, both in Unit.
type OutOfRangeError struct {
	Unit      Unit
	Requested int64
	Max       int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("requested offset %d out of range, medium holds %d %s", e.Requested, e.Max, e.Unit)
}

// UninitializedError reports a read of a word that has never been written.
// This is a soft error: a medium may instead synthesize zero values and never
// return it. Each medium documents which behavior it picked.
type UninitializedError struct {
	Offset int64
}

func (e *UninitializedError) Error() string {
	return fmt.Sprintf("word at offset %d has not been written to", e.Offset)
}

// SectorSizeError reports a caller buffer that does not match the exact
// sector size of the medium.
type SectorSizeError struct {
	Unit  Unit
	Given int64
	Want  int64
}

func (e *SectorSizeError) Error() string {
	return fmt.Sprintf("got %d %s, a sector holds exactly %d %s", e.Given, e.Unit, e.Want, e.Unit)
}

// EraseError reports a failure of one sub-step of an erase that is composed
// out of individual sector erases.
type EraseError struct {
	Sector int64
	Err    error
}

func (e *EraseError) Error() string {
	return fmt.Sprintf("erase of sector %d failed: %v", e.Sector, e.Err)
}

func (e *EraseError) Unwrap() error {
	return e.Err
}
