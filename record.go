package sfcb

import "encoding/binary"

// headerSize is sizeof(RecordHeader) on flash: two little-endian u32
// fields, magic and id. It equals the "2*sizeof(u32)" term (written 2*4)
// in the pages_per_element formula in RegisterQueue.
const headerSize = 8

// RecordHeader is the fixed header written at page 0 of every record.
// Erased flash bytes read 0xFF; a page is the start of a record iff its
// first headerSize bytes decode to a magic matching the owning queue.
type RecordHeader struct {
	Magic uint32
	ID    uint32
}

// encodeHeader serialises h in little-endian, the layout mirrored
// verbatim onto the wire (the wire's own addressing is big-endian, but
// that applies to the 24-bit address prefix, not to header payload
// bytes).
func encodeHeader(h RecordHeader) [headerSize]byte {
	var buf [headerSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.ID)
	return buf
}

// decodeHeader reads a RecordHeader out of the first headerSize bytes of buf.
func decodeHeader(buf []byte) RecordHeader {
	return RecordHeader{
		Magic: binary.LittleEndian.Uint32(buf[0:4]),
		ID:    binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// isErased reports whether every byte of buf reads as erased flash (0xFF),
// the only signal an implementation has that a page was never programmed.
func isErased(buf []byte) bool {
	for _, b := range buf {
		if b != 0xFF {
			return false
		}
	}
	return true
}
