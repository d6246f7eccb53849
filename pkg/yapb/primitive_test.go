package yapb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// build encodes a packet with fill and returns the finalized bytes.
func build(t *testing.T, size int, fill func(p *Packet)) []byte {
	t.Helper()
	var p Packet
	require.Equal(t, OK, p.Initialize(make([]byte, size)))
	fill(&p)
	require.False(t, p.Status().Failed(), "push failed: %v", p.Status())
	n, r := p.Finalize()
	require.Equal(t, OK, r)
	return p.Buffer()[:n]
}

func load(t *testing.T, data []byte) *Packet {
	t.Helper()
	var p Packet
	require.Equal(t, OK, p.Load(data))
	return &p
}

func TestPrimitiveRoundTrip(t *testing.T) {
	t.Run("Int8", func(t *testing.T) {
		for _, v := range []int8{0, 1, -1, math.MinInt8, math.MaxInt8} {
			p := load(t, build(t, 16, func(p *Packet) { p.PushInt8(v) }))
			var got int8
			assert.Equal(t, Complete, p.PopInt8(&got))
			assert.Equal(t, v, got)
		}
	})

	t.Run("Int16", func(t *testing.T) {
		for _, v := range []int16{0, 1, -1, math.MinInt16, math.MaxInt16} {
			p := load(t, build(t, 16, func(p *Packet) { p.PushInt16(v) }))
			var got int16
			assert.Equal(t, Complete, p.PopInt16(&got))
			assert.Equal(t, v, got)
		}
	})

	t.Run("Int32", func(t *testing.T) {
		for _, v := range []int32{0, 1, -1, math.MinInt32, math.MaxInt32} {
			p := load(t, build(t, 16, func(p *Packet) { p.PushInt32(v) }))
			var got int32
			assert.Equal(t, Complete, p.PopInt32(&got))
			assert.Equal(t, v, got)
		}
	})

	t.Run("Int64", func(t *testing.T) {
		for _, v := range []int64{0, 1, -1, math.MinInt64, math.MaxInt64} {
			p := load(t, build(t, 16, func(p *Packet) { p.PushInt64(v) }))
			var got int64
			assert.Equal(t, Complete, p.PopInt64(&got))
			assert.Equal(t, v, got)
		}
	})

	t.Run("Unsigned", func(t *testing.T) {
		data := build(t, 64, func(p *Packet) {
			p.PushUint8(math.MaxUint8)
			p.PushUint16(math.MaxUint16)
			p.PushUint32(math.MaxUint32)
			p.PushUint64(math.MaxUint64)
		})
		p := load(t, data)
		var (
			u8  uint8
			u16 uint16
			u32 uint32
			u64 uint64
		)
		assert.Equal(t, OK, p.PopUint8(&u8))
		assert.Equal(t, OK, p.PopUint16(&u16))
		assert.Equal(t, OK, p.PopUint32(&u32))
		assert.Equal(t, Complete, p.PopUint64(&u64))
		assert.Equal(t, uint8(math.MaxUint8), u8)
		assert.Equal(t, uint16(math.MaxUint16), u16)
		assert.Equal(t, uint32(math.MaxUint32), u32)
		assert.Equal(t, uint64(math.MaxUint64), u64)
	})

	t.Run("Float32", func(t *testing.T) {
		for _, v := range []float32{0, -1.5, math.MaxFloat32, math.SmallestNonzeroFloat32, float32(math.Inf(-1))} {
			p := load(t, build(t, 16, func(p *Packet) { p.PushFloat32(v) }))
			var got float32
			assert.Equal(t, Complete, p.PopFloat32(&got))
			assert.Equal(t, v, got)
		}
	})

	t.Run("Float64", func(t *testing.T) {
		for _, v := range []float64{0, 3.141592653589793, -math.MaxFloat64, math.SmallestNonzeroFloat64, math.Inf(1)} {
			p := load(t, build(t, 16, func(p *Packet) { p.PushFloat64(v) }))
			var got float64
			assert.Equal(t, Complete, p.PopFloat64(&got))
			assert.Equal(t, v, got)
		}
	})

	t.Run("NaNBits", func(t *testing.T) {
		nan := math.Float64frombits(0x7ff8_0000_dead_beef)
		p := load(t, build(t, 16, func(p *Packet) { p.PushFloat64(nan) }))
		var got float64
		require.Equal(t, Complete, p.PopFloat64(&got))
		assert.Equal(t, uint64(0x7ff8_0000_dead_beef), math.Float64bits(got))
	})
}

func TestUnsignedSharesSignedTags(t *testing.T) {
	data := build(t, 16, func(p *Packet) { p.PushUint16(0xfffe) })
	p := load(t, data)
	var v int16
	assert.Equal(t, Complete, p.PopInt16(&v))
	assert.Equal(t, int16(-2), v)
}

func TestWireLayout(t *testing.T) {
	data := build(t, 64, func(p *Packet) {
		p.PushInt8(-1)
		p.PushInt16(0x0102)
		p.PushInt32(0x03040506)
		p.PushInt64(0x0708090a0b0c0d0e)
		p.PushFloat32(1)
		p.PushFloat64(1)
	})
	want := []byte{
		0, 0, 0, 37,
		0x00, 0xff,
		0x01, 0x01, 0x02,
		0x02, 0x03, 0x04, 0x05, 0x06,
		0x03, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e,
		0x04, 0x3f, 0x80, 0x00, 0x00,
		0x05, 0x3f, 0xf0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, data)
}

func TestOrderPreservation(t *testing.T) {
	data := build(t, 64, func(p *Packet) {
		p.PushInt32(10)
		p.PushInt32(20)
		p.PushInt32(30)
	})
	p := load(t, data)
	var a, b, c int32
	assert.Equal(t, OK, p.PopInt32(&a))
	assert.Equal(t, OK, p.PopInt32(&b))
	assert.Equal(t, Complete, p.PopInt32(&c))
	assert.Equal(t, []int32{10, 20, 30}, []int32{a, b, c})
}

func TestTypeMismatchLeavesOutput(t *testing.T) {
	data := build(t, 64, func(p *Packet) {
		p.PushInt16(5)
		p.PushInt64(6)
	})
	p := load(t, data)

	var first int16
	require.Equal(t, OK, p.PopInt16(&first))

	got := int32(-99)
	assert.Equal(t, ErrTypeMismatch, p.PopInt32(&got))
	assert.Equal(t, int32(-99), got)
	assert.Equal(t, ErrTypeMismatch, p.Status())
}

func TestForwardCompatibleDefaults(t *testing.T) {
	data := build(t, 64, func(p *Packet) {
		p.PushUint32(1234)
		p.PushInt8(7)
	})
	p := load(t, data)

	var (
		id      uint32
		flags   int8
		version = uint16(42)
	)
	assert.Equal(t, OK, p.PopUint32(&id))
	assert.Equal(t, Complete, p.PopInt8(&flags))
	assert.Equal(t, ErrNoMoreElements, p.PopUint16(&version))
	assert.Equal(t, uint16(42), version)
	assert.Equal(t, uint32(1234), id)
	assert.Equal(t, int8(7), flags)
}

func TestStickyErrorIdempotence(t *testing.T) {
	t.Run("Pop", func(t *testing.T) {
		p := load(t, build(t, 16, func(p *Packet) { p.PushInt8(1) }))
		var wrong int64
		require.Equal(t, ErrTypeMismatch, p.PopInt64(&wrong))

		offset := p.Offset()
		var (
			i8  = int8(5)
			f64 = 2.5
			blb = []byte("keep")
			nst Packet
			el  Element
		)
		assert.Equal(t, ErrTypeMismatch, p.PopInt8(&i8))
		assert.Equal(t, ErrTypeMismatch, p.PopFloat64(&f64))
		assert.Equal(t, ErrTypeMismatch, p.PopBlob(&blb))
		assert.Equal(t, ErrTypeMismatch, p.PopNested(&nst))
		assert.Equal(t, ErrTypeMismatch, p.PopNext(&el))
		assert.Equal(t, ErrTypeMismatch, p.Status())

		assert.Equal(t, int8(5), i8)
		assert.Equal(t, 2.5, f64)
		assert.Equal(t, []byte("keep"), blb)
		assert.Equal(t, Packet{}, nst)
		assert.Equal(t, Element{}, el)
		assert.Equal(t, offset, p.Offset())
	})

	t.Run("Push", func(t *testing.T) {
		buf := make([]byte, 6)
		var p Packet
		require.Equal(t, OK, p.Initialize(buf))
		require.Equal(t, ErrBufferTooSmall, p.PushInt32(1))

		assert.Equal(t, ErrBufferTooSmall, p.PushInt8(1))
		assert.Equal(t, ErrBufferTooSmall, p.PushBlob(nil))
		assert.Equal(t, ErrBufferTooSmall, p.PushFloat32(1))
		assert.Equal(t, HeaderSize, p.Offset())
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0}, buf)
	})

	t.Run("NullPointerDoesNotLatch", func(t *testing.T) {
		p := load(t, build(t, 16, func(p *Packet) { p.PushInt8(1) }))
		assert.Equal(t, ErrNullPointer, p.PopInt8(nil))
		assert.Equal(t, OK, p.Status())
		var v int8
		assert.Equal(t, Complete, p.PopInt8(&v))
	})
}

func TestPushValidation(t *testing.T) {
	t.Run("NilPacket", func(t *testing.T) {
		var p *Packet
		assert.Equal(t, ErrNullPointer, p.PushInt64(1))
		assert.Equal(t, ErrNullPointer, p.PushBlob([]byte{1}))
		assert.Equal(t, ErrNullPointer, p.PushNested(nil))
	})

	t.Run("ReadMode", func(t *testing.T) {
		p := load(t, []byte{0, 0, 0, 4})
		assert.Equal(t, ErrInvalidMode, p.PushInt8(1))
		assert.Equal(t, ErrInvalidMode, p.Status())
	})

	t.Run("ExactFit", func(t *testing.T) {
		var p Packet
		require.Equal(t, OK, p.Initialize(make([]byte, HeaderSize+9)))
		assert.Equal(t, OK, p.PushInt64(1))
		assert.Equal(t, ErrBufferTooSmall, p.PushInt8(1))
	})
}

func TestPopValidation(t *testing.T) {
	t.Run("WriteMode", func(t *testing.T) {
		var p Packet
		require.Equal(t, OK, p.Initialize(make([]byte, 16)))
		var v int8
		assert.Equal(t, ErrInvalidMode, p.PopInt8(&v))
	})

	t.Run("EmptyPacket", func(t *testing.T) {
		p := load(t, []byte{0, 0, 0, 4})
		var v float32
		assert.Equal(t, ErrNoMoreElements, p.PopFloat32(&v))
	})

	t.Run("TruncatedValue", func(t *testing.T) {
		// int32 tag followed by only two value bytes.
		p := load(t, []byte{0, 0, 0, 7, 0x02, 0x00, 0x01})
		v := int32(3)
		assert.Equal(t, ErrInvalidPacket, p.PopInt32(&v))
		assert.Equal(t, int32(3), v)
	})

	t.Run("OKThenComplete", func(t *testing.T) {
		p := load(t, build(t, 16, func(p *Packet) {
			p.PushInt8(1)
			p.PushInt8(2)
		}))
		var v int8
		assert.Equal(t, OK, p.PopInt8(&v))
		assert.Equal(t, Complete, p.PopInt8(&v))
		assert.Equal(t, ErrNoMoreElements, p.PopInt8(&v))
	})
}
