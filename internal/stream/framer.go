// Package stream splits byte streams into whole yapb packets.
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"firestige.xyz/yapb/internal/core"
	"firestige.xyz/yapb/pkg/yapb"
)

// SplitFunc returns a bufio.SplitFunc that yields one packet per token,
// header included. Packets declaring more than maxPacket bytes fail with
// core.ErrFrameTooLarge and headers below yapb.HeaderSize with
// core.ErrFrameMalformed. A partial packet at EOF is io.ErrUnexpectedEOF.
func SplitFunc(maxPacket int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if len(data) >= yapb.HeaderSize {
			n, ok := yapb.DeclaredLength(data)
			if !ok {
				return 0, nil, fmt.Errorf("%w: declared length %d", core.ErrFrameMalformed, n)
			}
			if uint64(n) > uint64(maxPacket) {
				return 0, nil, fmt.Errorf("%w: declared length %d, limit %d", core.ErrFrameTooLarge, n, maxPacket)
			}
			if yapb.CheckComplete(data) {
				return int(n), data[:n:n], nil
			}
		}
		if atEOF && len(data) > 0 {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, nil
	}
}

// Framer reads whole packets from a byte stream.
type Framer struct {
	sc *bufio.Scanner
}

// NewFramer returns a Framer over r accepting packets up to maxPacket bytes.
func NewFramer(r io.Reader, maxPacket int) *Framer {
	initial := 4096
	if maxPacket < initial {
		initial = maxPacket
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initial), maxPacket)
	sc.Split(SplitFunc(maxPacket))
	return &Framer{sc: sc}
}

// Next returns the next packet. The slice is valid until the following
// call. A clean end of stream returns io.EOF.
func (f *Framer) Next() ([]byte, error) {
	if f.sc.Scan() {
		return f.sc.Bytes(), nil
	}
	if err := f.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// CheckDatagram reports whether a datagram carries one whole packet of at
// most maxPacket bytes. Bytes past the declared length are tolerated. On
// failure reason is one of too_large, malformed or truncated.
func CheckDatagram(data []byte, maxPacket int) (reason string, ok bool) {
	if len(data) > maxPacket {
		return "too_large", false
	}
	if _, valid := yapb.DeclaredLength(data); !valid {
		return "malformed", false
	}
	if !yapb.CheckComplete(data) {
		return "truncated", false
	}
	return "", true
}

// Reason maps a framing error to a short metrics label.
func Reason(err error) string {
	switch {
	case errors.Is(err, core.ErrFrameTooLarge):
		return "too_large"
	case errors.Is(err, core.ErrFrameMalformed):
		return "malformed"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "truncated"
	default:
		return "other"
	}
}
