package yapb

import "encoding/binary"

const blobLenSize = 2

// PushBlob appends data as a length-prefixed blob. A nil or empty slice
// encodes a zero-length blob. Payloads longer than MaxBlobLen do not fit in
// a single element and fail with ErrBufferTooSmall.
func (p *Packet) PushBlob(data []byte) Result {
	if p == nil {
		return ErrNullPointer
	}
	if r := p.pushCheck(1 + blobLenSize + len(data)); r != OK {
		return r
	}
	if len(data) > MaxBlobLen {
		return p.fail(ErrBufferTooSmall)
	}

	p.buf[p.pos] = byte(TypeBlob)
	binary.BigEndian.PutUint16(p.buf[p.pos+1:p.pos+1+blobLenSize], uint16(len(data)))
	p.pos += 1 + blobLenSize
	p.pos += copy(p.buf[p.pos:], data)
	return OK
}

// PopBlob points out at the next blob payload. The slice aliases the loaded
// buffer and is capacity-clipped, so appending to it never writes into the
// packet. It is valid only while that buffer is.
func (p *Packet) PopBlob(out *[]byte) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	if r := p.popCheck(TypeBlob); r != OK {
		return r
	}
	if !p.fits(blobLenSize) {
		return p.fail(ErrInvalidPacket)
	}
	n := binary.BigEndian.Uint16(p.buf[p.pos+1 : p.pos+1+blobLenSize])
	if !p.fits(blobLenSize + uint64(n)) {
		return p.fail(ErrInvalidPacket)
	}

	start := p.pos + 1 + blobLenSize
	end := start + int(n)
	*out = p.buf[start:end:end]
	p.pos = end
	return p.progress()
}

// PushNested appends the encoded bytes of child, header included. The child
// must expose its buffer: a written child must be finalized first. A written
// child that recorded an error is rejected with that error.
func (p *Packet) PushNested(child *Packet) Result {
	if p == nil {
		return ErrNullPointer
	}
	src := child.Buffer()
	if src == nil {
		return ErrNullPointer
	}
	if p.status.Failed() {
		return p.status
	}
	if p.mode != ModeWrite || p.finalized {
		return p.fail(ErrInvalidMode)
	}
	if child.mode == ModeWrite && child.status.Failed() {
		return p.fail(child.status)
	}
	if r := p.pushCheck(1 + len(src)); r != OK {
		return r
	}

	p.buf[p.pos] = byte(TypeNested)
	p.pos++
	p.pos += copy(p.buf[p.pos:], src)
	return OK
}

// PopNested loads the next nested packet into out. out shares storage with
// p; the parent buffer must outlive every use of the child.
func (p *Packet) PopNested(out *Packet) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	if r := p.popCheck(TypeNested); r != OK {
		return r
	}
	if !p.fits(HeaderSize) {
		return p.fail(ErrInvalidPacket)
	}
	declared := uint64(binary.BigEndian.Uint32(p.buf[p.pos+1 : p.pos+1+HeaderSize]))
	if !p.fits(declared) {
		return p.fail(ErrInvalidPacket)
	}

	start := p.pos + 1
	end := start + int(declared)
	var child Packet
	if r := child.Load(p.buf[start:end]); r != OK {
		return p.fail(ErrInvalidPacket)
	}
	p.pos = end
	r := p.progress()
	*out = child
	return r
}
