// Package word converts fixed-width unsigned integers to and from their
// little-endian byte encoding. It is the unit of exchange for every storage
// medium in this module: a medium reads words and writes sectors of words.
package word

// Unsigned is the set of types a medium can use as its word type.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Width reports the number of bytes in the encoded form of W.
func Width[W Unsigned]() int64 {
	var n int64
	for v := ^W(0); v != 0; v >>= 8 {
		n++
	}

	return n
}

// Put encodes w into dst in little-endian order, writing exactly Width[W]()
// bytes. It panics if dst is too short, mirroring encoding/binary.
func Put[W Unsigned](dst []byte, w W) {
	width := Width[W]()

	_ = dst[width-1]
	for i := int64(0); i < width; i++ {
		dst[i] = byte(w >> (8 * i))
	}
}

// Append appends the little-endian encoding of w to dst and returns the
// extended slice.
func Append[W Unsigned](dst []byte, w W) []byte {
	for i, width := int64(0), Width[W](); i < width; i++ {
		dst = append(dst, byte(w>>(8*i)))
	}

	return dst
}

// Take decodes one word from the front of b. On success it returns the word,
// the bytes it did not consume, and true. If b holds fewer than Width[W]()
// bytes it returns false; it never panics.
//
// Take and Append form a round trip: for any w, Take(Append(nil, w)) yields w
// back with an empty remainder.
func Take[W Unsigned](b []byte) (w W, rest []byte, ok bool) {
	width := Width[W]()
	if int64(len(b)) < width {
		return 0, nil, false
	}

	for i := int64(0); i < width; i++ {
		w |= W(b[i]) << (8 * i)
	}

	return w, b[width:], true
}
