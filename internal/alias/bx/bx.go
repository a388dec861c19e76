// stand for bytes helper
package bx

import "encoding/binary"

// BE is the byte order of every on-page integer.
var BE = binary.BigEndian

// inRange reports whether b[off:off+n] is addressable.
func inRange(b []byte, off, n int) bool {
	return off >= 0 && n >= 0 && off <= len(b)-n
}

// --- BE: checked read ---
func U32BEAt(b []byte, off int) (uint32, bool) {
	if !inRange(b, off, 4) {
		return 0, false
	}
	return BE.Uint32(b[off : off+4]), true
}

func I32BEAt(b []byte, off int) (int32, bool) {
	v, ok := U32BEAt(b, off)
	return int32(v), ok
}

// --- BE: checked write ---
func PutU32BEAt(b []byte, off int, v uint32) bool {
	if !inRange(b, off, 4) {
		return false
	}
	BE.PutUint32(b[off:off+4], v)
	return true
}

func PutI32BEAt(b []byte, off int, v int32) bool {
	return PutU32BEAt(b, off, uint32(v))
}
