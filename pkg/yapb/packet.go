package yapb

import (
	"encoding/binary"
	"math"
)

// Packet is a cursor over a caller-owned buffer. It is opened for writing
// with Initialize or for reading with Load. The zero value is closed: every
// push or pop on it fails with ErrInvalidMode.
//
// A Packet never owns its buffer. Copying a Packet copies the cursor, not
// the bytes.
type Packet struct {
	buf       []byte // caller storage; read mode is clipped to the declared length
	size      int    // write capacity, or declared length in read mode
	pos       int    // next offset to write or read, always >= HeaderSize once opened
	mode      Mode
	status    Result // sticky, never changes once negative
	finalized bool
}

// NewWriter returns a packet opened for writing into buf.
func NewWriter(buf []byte) (*Packet, error) {
	p := new(Packet)
	if r := p.Initialize(buf); r.Failed() {
		return nil, r
	}
	return p, nil
}

// NewReader returns a packet opened for reading data.
func NewReader(data []byte) (*Packet, error) {
	p := new(Packet)
	if r := p.Load(data); r.Failed() {
		return nil, r
	}
	return p, nil
}

// Initialize opens p for writing into buf. The header is zeroed so that a
// packet that is never finalized declares an invalid length.
func (p *Packet) Initialize(buf []byte) Result {
	if p == nil || buf == nil {
		return ErrNullPointer
	}
	if len(buf) < HeaderSize {
		return ErrBufferTooSmall
	}
	// The header cannot describe more than 4 GiB.
	if limit := uint64(math.MaxUint32); uint64(len(buf)) > limit {
		buf = buf[:limit]
	}

	*p = Packet{
		buf:    buf,
		size:   len(buf),
		pos:    HeaderSize,
		mode:   ModeWrite,
		status: OK,
	}
	binary.BigEndian.PutUint32(buf[:HeaderSize], 0)
	return OK
}

// Finalize stamps the length header and returns the encoded length.
// It succeeds exactly once per Initialize.
func (p *Packet) Finalize() (int, Result) {
	if p == nil {
		return 0, ErrNullPointer
	}
	if p.mode != ModeWrite || p.finalized {
		return 0, ErrInvalidMode
	}

	binary.BigEndian.PutUint32(p.buf[:HeaderSize], uint32(p.pos))
	p.finalized = true
	return p.pos, OK
}

// Load opens p for reading data. Bytes past the declared length are ignored.
// On failure p is left unchanged.
func (p *Packet) Load(data []byte) Result {
	if p == nil || data == nil {
		return ErrNullPointer
	}
	if len(data) < HeaderSize {
		return ErrBufferTooSmall
	}

	declared := uint64(binary.BigEndian.Uint32(data[:HeaderSize]))
	if declared > uint64(len(data)) || declared < HeaderSize {
		return ErrInvalidPacket
	}

	*p = Packet{
		buf:    data[:declared:declared],
		size:   int(declared),
		pos:    HeaderSize,
		mode:   ModeRead,
		status: OK,
	}
	return OK
}

// Mode returns the direction p was opened in.
func (p *Packet) Mode() Mode {
	if p == nil {
		return modeNone
	}
	return p.mode
}

// Offset returns the current cursor position, header included.
func (p *Packet) Offset() int {
	if p == nil {
		return 0
	}
	return p.pos
}

// Len returns the usable size: capacity when writing, declared length when
// reading.
func (p *Packet) Len() int {
	if p == nil {
		return 0
	}
	return p.size
}

// Finalized reports whether Finalize has succeeded.
func (p *Packet) Finalized() bool {
	return p != nil && p.finalized
}

// Status returns the sticky result. Non-negative means no error so far.
func (p *Packet) Status() Result {
	if p == nil {
		return ErrNullPointer
	}
	return p.status
}

// Buffer returns the encoded bytes. For a written packet they are available
// only after Finalize; before that Buffer returns nil.
func (p *Packet) Buffer() []byte {
	if p == nil {
		return nil
	}
	switch {
	case p.mode == ModeRead:
		return p.buf[:p.size]
	case p.mode == ModeWrite && p.finalized:
		return p.buf[:p.pos]
	default:
		return nil
	}
}

// ─── Validation helpers ────────────────────────────────────────────────────

func (p *Packet) fail(r Result) Result {
	p.status = r
	return r
}

// pushCheck validates write preconditions for an element of need bytes,
// tag included.
func (p *Packet) pushCheck(need int) Result {
	if p.status.Failed() {
		return p.status
	}
	if p.mode != ModeWrite || p.finalized {
		return p.fail(ErrInvalidMode)
	}
	if need > p.size-p.pos {
		return p.fail(ErrBufferTooSmall)
	}
	return OK
}

// popCheck validates read preconditions and the tag under the cursor.
func (p *Packet) popCheck(expected Type) Result {
	if p.status.Failed() {
		return p.status
	}
	if p.mode != ModeRead {
		return p.fail(ErrInvalidMode)
	}
	if p.pos >= p.size {
		return p.fail(ErrNoMoreElements)
	}
	if Type(p.buf[p.pos]) != expected {
		return p.fail(ErrTypeMismatch)
	}
	return OK
}

// fits reports whether n bytes follow the tag under the cursor.
func (p *Packet) fits(n uint64) bool {
	return n <= uint64(p.size-p.pos-1)
}

// progress is the success result after consuming an element.
func (p *Packet) progress() Result {
	if p.pos >= p.size {
		return Complete
	}
	return OK
}
