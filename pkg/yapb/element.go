package yapb

// Value is a decoded element value. It is implemented only by the types in
// this package: Int8, Int16, Int32, Int64, Float32, Float64, Blob and Nested.
type Value interface {
	Type() Type
	isValue()
}

type (
	Int8    int8
	Int16   int16
	Int32   int32
	Int64   int64
	Float32 float32
	Float64 float64
	// Blob aliases the loaded buffer.
	Blob []byte
	// Nested is a read-mode cursor over a sub-range of the parent buffer.
	Nested struct{ *Packet }
)

func (Int8) Type() Type    { return TypeInt8 }
func (Int16) Type() Type   { return TypeInt16 }
func (Int32) Type() Type   { return TypeInt32 }
func (Int64) Type() Type   { return TypeInt64 }
func (Float32) Type() Type { return TypeFloat32 }
func (Float64) Type() Type { return TypeFloat64 }
func (Blob) Type() Type    { return TypeBlob }
func (Nested) Type() Type  { return TypeNested }

func (Int8) isValue()    {}
func (Int16) isValue()   {}
func (Int32) isValue()   {}
func (Int64) isValue()   {}
func (Float32) isValue() {}
func (Float64) isValue() {}
func (Blob) isValue()    {}
func (Nested) isValue()  {}

// Element is one decoded element: the wire tag plus its value.
type Element struct {
	Type  Type
	Value Value
}

// PopNext pops the next element whatever its type. out is written only on
// success. Boxing the value allocates; hot paths should use the typed pops.
func (p *Packet) PopNext(out *Element) Result {
	if p == nil || out == nil {
		return ErrNullPointer
	}
	if p.status.Failed() {
		return p.status
	}
	if p.mode != ModeRead {
		return p.fail(ErrInvalidMode)
	}
	if p.pos >= p.size {
		return p.fail(ErrNoMoreElements)
	}

	var (
		t = Type(p.buf[p.pos])
		v Value
		r Result
	)
	switch t {
	case TypeInt8:
		var x int8
		r = p.PopInt8(&x)
		v = Int8(x)
	case TypeInt16:
		var x int16
		r = p.PopInt16(&x)
		v = Int16(x)
	case TypeInt32:
		var x int32
		r = p.PopInt32(&x)
		v = Int32(x)
	case TypeInt64:
		var x int64
		r = p.PopInt64(&x)
		v = Int64(x)
	case TypeFloat32:
		var x float32
		r = p.PopFloat32(&x)
		v = Float32(x)
	case TypeFloat64:
		var x float64
		r = p.PopFloat64(&x)
		v = Float64(x)
	case TypeBlob:
		var x []byte
		r = p.PopBlob(&x)
		v = Blob(x)
	case TypeNested:
		child := new(Packet)
		r = p.PopNested(child)
		v = Nested{child}
	default:
		return p.fail(ErrInvalidPacket)
	}

	if r.Failed() {
		return r
	}
	*out = Element{Type: t, Value: v}
	return r
}
