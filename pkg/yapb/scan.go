package yapb

import "encoding/binary"

// ElementCount counts the top-level elements of a loaded packet without
// moving the cursor. A nested packet counts as one element. Unknown tags are
// treated as corruption.
func (p *Packet) ElementCount() (int, Result) {
	if p == nil {
		return 0, ErrNullPointer
	}
	if p.mode != ModeRead {
		return 0, ErrInvalidMode
	}

	count := 0
	for off := HeaderSize; off < p.size; count++ {
		n, ok := elementSize(p.buf[off:p.size])
		if !ok {
			return 0, ErrInvalidPacket
		}
		off += n
	}
	return count, OK
}

// elementSize returns the encoded size, tag included, of the element at the
// start of b. b must not be empty.
func elementSize(b []byte) (int, bool) {
	var body uint64
	switch t := Type(b[0]); t {
	case TypeBlob:
		if len(b) < 1+blobLenSize {
			return 0, false
		}
		body = blobLenSize + uint64(binary.BigEndian.Uint16(b[1:1+blobLenSize]))
	case TypeNested:
		if len(b) < 1+HeaderSize {
			return 0, false
		}
		body = uint64(binary.BigEndian.Uint32(b[1 : 1+HeaderSize]))
		if body < HeaderSize {
			return 0, false
		}
	default:
		width, ok := t.width()
		if !ok {
			return 0, false
		}
		body = uint64(width)
	}

	if body > uint64(len(b)-1) {
		return 0, false
	}
	return 1 + int(body), true
}

// DeclaredLength reads the length header at the start of data. ok is false
// when fewer than HeaderSize bytes are present or the value is below
// HeaderSize.
func DeclaredLength(data []byte) (n uint32, ok bool) {
	if len(data) < HeaderSize {
		return 0, false
	}
	n = binary.BigEndian.Uint32(data[:HeaderSize])
	return n, n >= HeaderSize
}

// CheckComplete reports whether data holds at least one whole packet. It is
// the framing primitive for packets arriving over a byte stream.
func CheckComplete(data []byte) bool {
	n, ok := DeclaredLength(data)
	return ok && uint64(len(data)) >= uint64(n)
}
