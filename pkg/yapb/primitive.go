package yapb

import (
	"encoding/binary"
	"math"
)

// ─── Push ──────────────────────────────────────────────────────────────────

// PushInt8 appends a 1-byte integer.
func (p *Packet) PushInt8(v int8) Result { return p.pushFixed(TypeInt8, uint64(uint8(v))) }

// PushInt16 appends a 2-byte big-endian integer.
func (p *Packet) PushInt16(v int16) Result { return p.pushFixed(TypeInt16, uint64(uint16(v))) }

// PushInt32 appends a 4-byte big-endian integer.
func (p *Packet) PushInt32(v int32) Result { return p.pushFixed(TypeInt32, uint64(uint32(v))) }

// PushInt64 appends an 8-byte big-endian integer.
func (p *Packet) PushInt64(v int64) Result { return p.pushFixed(TypeInt64, uint64(v)) }

// PushUint8 appends v under the INT8 tag.
func (p *Packet) PushUint8(v uint8) Result { return p.pushFixed(TypeInt8, uint64(v)) }

// PushUint16 appends v under the INT16 tag.
func (p *Packet) PushUint16(v uint16) Result { return p.pushFixed(TypeInt16, uint64(v)) }

// PushUint32 appends v under the INT32 tag.
func (p *Packet) PushUint32(v uint32) Result { return p.pushFixed(TypeInt32, uint64(v)) }

// PushUint64 appends v under the INT64 tag.
func (p *Packet) PushUint64(v uint64) Result { return p.pushFixed(TypeInt64, v) }

// PushFloat32 appends the IEEE-754 bit pattern of v.
func (p *Packet) PushFloat32(v float32) Result {
	return p.pushFixed(TypeFloat32, uint64(math.Float32bits(v)))
}

// PushFloat64 appends the IEEE-754 bit pattern of v.
func (p *Packet) PushFloat64(v float64) Result {
	return p.pushFixed(TypeFloat64, math.Float64bits(v))
}

func (p *Packet) pushFixed(t Type, bits uint64) Result {
	if p == nil {
		return ErrNullPointer
	}
	width, _ := t.width()
	if r := p.pushCheck(1 + width); r != OK {
		return r
	}

	p.buf[p.pos] = byte(t)
	putBits(p.buf[p.pos+1:p.pos+1+width], bits)
	p.pos += 1 + width
	return OK
}

// ─── Pop ───────────────────────────────────────────────────────────────────

// PopInt8 reads a 1-byte integer into out. out is untouched on failure.
func (p *Packet) PopInt8(out *int8) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeInt8)
	if r.Failed() {
		return r
	}
	*out = int8(bits)
	return r
}

// PopInt16 reads a 2-byte integer into out. out is untouched on failure.
func (p *Packet) PopInt16(out *int16) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeInt16)
	if r.Failed() {
		return r
	}
	*out = int16(bits)
	return r
}

// PopInt32 reads a 4-byte integer into out. out is untouched on failure.
func (p *Packet) PopInt32(out *int32) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeInt32)
	if r.Failed() {
		return r
	}
	*out = int32(bits)
	return r
}

// PopInt64 reads an 8-byte integer into out. out is untouched on failure.
func (p *Packet) PopInt64(out *int64) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeInt64)
	if r.Failed() {
		return r
	}
	*out = int64(bits)
	return r
}

// PopUint8 reads an INT8 element into out as unsigned. out is untouched on failure.
func (p *Packet) PopUint8(out *uint8) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeInt8)
	if r.Failed() {
		return r
	}
	*out = uint8(bits)
	return r
}

// PopUint16 reads an INT16 element into out as unsigned. out is untouched on failure.
func (p *Packet) PopUint16(out *uint16) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeInt16)
	if r.Failed() {
		return r
	}
	*out = uint16(bits)
	return r
}

// PopUint32 reads an INT32 element into out as unsigned. out is untouched on failure.
func (p *Packet) PopUint32(out *uint32) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeInt32)
	if r.Failed() {
		return r
	}
	*out = uint32(bits)
	return r
}

// PopUint64 reads an INT64 element into out as unsigned. out is untouched on failure.
func (p *Packet) PopUint64(out *uint64) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeInt64)
	if r.Failed() {
		return r
	}
	*out = bits
	return r
}

// PopFloat32 reads a float into out. out is untouched on failure.
func (p *Packet) PopFloat32(out *float32) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeFloat32)
	if r.Failed() {
		return r
	}
	*out = math.Float32frombits(uint32(bits))
	return r
}

// PopFloat64 reads a double into out. out is untouched on failure.
func (p *Packet) PopFloat64(out *float64) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	bits, r := p.popFixed(TypeFloat64)
	if r.Failed() {
		return r
	}
	*out = math.Float64frombits(bits)
	return r
}

// popFixed consumes one fixed-width element of type t and returns its raw
// bits. A value cut short by the packet end is corruption, not exhaustion.
func (p *Packet) popFixed(t Type) (uint64, Result) {
	width, _ := t.width()
	if r := p.popCheck(t); r != OK {
		return 0, r
	}
	if !p.fits(uint64(width)) {
		return 0, p.fail(ErrInvalidPacket)
	}

	bits := readBits(p.buf[p.pos+1 : p.pos+1+width])
	p.pos += 1 + width
	return bits, p.progress()
}

// ─── Big-endian helpers ────────────────────────────────────────────────────

// putBits writes the low len(dst) bytes of v in network byte order.
func putBits(dst []byte, v uint64) {
	switch len(dst) {
	case 1:
		dst[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.BigEndian.PutUint32(dst, uint32(v))
	case 8:
		binary.BigEndian.PutUint64(dst, v)
	}
}

func readBits(src []byte) uint64 {
	switch len(src) {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(src))
	case 4:
		return uint64(binary.BigEndian.Uint32(src))
	case 8:
		return binary.BigEndian.Uint64(src)
	}
	return 0
}
