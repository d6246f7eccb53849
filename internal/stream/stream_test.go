package stream

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/yapb/internal/core"
	"firestige.xyz/yapb/pkg/yapb"
)

func packet(t *testing.T, values ...int32) []byte {
	t.Helper()
	buf := make([]byte, 256)
	w, err := yapb.NewWriter(buf)
	require.NoError(t, err)
	for _, v := range values {
		require.Equal(t, yapb.OK, w.PushInt32(v))
	}
	n, r := w.Finalize()
	require.Equal(t, yapb.OK, r)
	return buf[:n]
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func TestFramer(t *testing.T) {
	a, b, c := packet(t, 1), packet(t), packet(t, 2, 3)
	stream := concat(a, b, c)

	// One byte per read exercises every partial-header state.
	f := NewFramer(iotest.OneByteReader(bytes.NewReader(stream)), 1024)

	for _, want := range [][]byte{a, b, c} {
		got, err := f.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := f.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFramerErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		max  int
		want error
	}{
		{"TooLarge", []byte{0, 0, 1, 0, 0}, 128, core.ErrFrameTooLarge},
		{"Malformed", []byte{0, 0, 0, 3, 0}, 128, core.ErrFrameMalformed},
		{"TruncatedBody", []byte{0, 0, 0, 9, 0x02, 0}, 128, io.ErrUnexpectedEOF},
		{"TruncatedHeader", []byte{0, 0}, 128, io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer(bytes.NewReader(tt.data), tt.max)
			_, err := f.Next()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFramerMaxSizeBoundary(t *testing.T) {
	p := packet(t, 1, 2)
	f := NewFramer(bytes.NewReader(concat(p, p)), len(p))
	for i := 0; i < 2; i++ {
		got, err := f.Next()
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	f = NewFramer(bytes.NewReader(p), len(p)-1)
	_, err := f.Next()
	assert.ErrorIs(t, err, core.ErrFrameTooLarge)
}

func TestFramerReaderError(t *testing.T) {
	f := NewFramer(iotest.ErrReader(io.ErrClosedPipe), 64)
	_, err := f.Next()
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestSplitFunc(t *testing.T) {
	split := SplitFunc(64)

	adv, tok, err := split([]byte{0, 0, 0}, false)
	assert.NoError(t, err)
	assert.Zero(t, adv)
	assert.Nil(t, tok)

	adv, tok, err = split([]byte{0, 0, 0, 5, 0x00, 0x07, 0xAA}, false)
	require.NoError(t, err)
	assert.Equal(t, 5, adv)
	assert.Equal(t, []byte{0, 0, 0, 5, 0x00}, tok)
	assert.Equal(t, 5, cap(tok))

	adv, tok, err = split(nil, true)
	assert.NoError(t, err)
	assert.Zero(t, adv)
	assert.Nil(t, tok)
}

func TestReassembler(t *testing.T) {
	a, b := packet(t, 7), packet(t, 8, 9)
	stream := concat(a, b)

	r := NewReassembler(1024)
	var got [][]byte
	for _, chunk := range [][]byte{stream[:2], stream[2:6], stream[6:12], stream[12:]} {
		n, err := r.Write(chunk)
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)

		frames, err := r.Frames()
		require.NoError(t, err)
		got = append(got, frames...)
	}

	assert.Equal(t, [][]byte{a, b}, got)
	assert.Zero(t, r.Buffered())
}

func TestReassemblerOwnsFrames(t *testing.T) {
	a := packet(t, 1)
	r := NewReassembler(64)
	_, _ = r.Write(concat(a, a[:3]))

	frames, err := r.Frames()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 3, r.Buffered())

	_, _ = r.Write(a[3:])
	next, err := r.Frames()
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, a, frames[0], "earlier frame unchanged by later writes")
	assert.Equal(t, a, next[0])
}

func TestReassemblerError(t *testing.T) {
	good := packet(t, 1)
	r := NewReassembler(64)
	_, _ = r.Write(concat(good, []byte{0xff, 0xff, 0xff, 0xff, 0x00}))

	frames, err := r.Frames()
	assert.ErrorIs(t, err, core.ErrFrameTooLarge)
	assert.Equal(t, [][]byte{good}, frames)
	assert.Zero(t, r.Buffered())
}

func TestCheckDatagram(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		reason string
		ok     bool
	}{
		{"Whole", []byte{0, 0, 0, 4}, "", true},
		{"Trailing", []byte{0, 0, 0, 4, 0xAA}, "", true},
		{"Short", []byte{0, 0}, "malformed", false},
		{"BelowHeader", []byte{0, 0, 0, 1}, "malformed", false},
		{"Truncated", []byte{0, 0, 0, 6, 0x00}, "truncated", false},
		{"TooLarge", make([]byte, 9), "too_large", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := CheckDatagram(tt.data, 8)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestReason(t *testing.T) {
	assert.Equal(t, "too_large", Reason(fmt.Errorf("x: %w", core.ErrFrameTooLarge)))
	assert.Equal(t, "malformed", Reason(core.ErrFrameMalformed))
	assert.Equal(t, "truncated", Reason(io.ErrUnexpectedEOF))
	assert.Equal(t, "other", Reason(io.ErrClosedPipe))
}
