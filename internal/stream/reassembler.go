package stream

import "bufio"

// Reassembler accumulates chunks of a byte stream, such as TCP segment
// payloads, and hands back the packets they complete.
type Reassembler struct {
	buf   []byte
	split bufio.SplitFunc
}

// NewReassembler returns a Reassembler accepting packets up to maxPacket
// bytes.
func NewReassembler(maxPacket int) *Reassembler {
	return &Reassembler{split: SplitFunc(maxPacket)}
}

// Write appends chunk. It never fails; it implements io.Writer so that
// streams can be copied into a Reassembler.
func (r *Reassembler) Write(chunk []byte) (int, error) {
	r.buf = append(r.buf, chunk...)
	return len(chunk), nil
}

// Frames removes and returns every complete packet buffered so far. The
// returned slices are owned by the caller. On a framing error the buffer
// is discarded, since the stream cannot be resynchronized.
func (r *Reassembler) Frames() ([][]byte, error) {
	var frames [][]byte
	off := 0
	for off < len(r.buf) {
		adv, tok, err := r.split(r.buf[off:], false)
		if err != nil {
			r.Reset()
			return frames, err
		}
		if tok == nil {
			break
		}
		frames = append(frames, append([]byte(nil), tok...))
		off += adv
	}
	r.buf = append(r.buf[:0], r.buf[off:]...)
	return frames, nil
}

// Buffered returns the number of bytes waiting for the rest of a packet.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset drops buffered bytes.
func (r *Reassembler) Reset() {
	r.buf = nil
}
