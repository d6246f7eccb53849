package yapb

import "fmt"

// HeaderSize is the size of the packet length header.
const HeaderSize = 4

// MaxBlobLen is the largest payload a single blob element can carry.
const MaxBlobLen = 1<<16 - 1

// Type is the one-byte element tag.
type Type uint8

const (
	TypeInt8    Type = 0x00
	TypeInt16   Type = 0x01
	TypeInt32   Type = 0x02
	TypeInt64   Type = 0x03
	TypeFloat32 Type = 0x04
	TypeFloat64 Type = 0x05
	// 0x06-0x0D reserved for future types
	TypeBlob   Type = 0x0E
	TypeNested Type = 0x0F
)

// Known reports whether t is a tag this package can decode.
func (t Type) Known() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeFloat32, TypeFloat64, TypeBlob, TypeNested:
		return true
	}
	return false
}

// width returns the value size of fixed-width tags.
func (t Type) width() (int, bool) {
	switch t {
	case TypeInt8:
		return 1, true
	case TypeInt16:
		return 2, true
	case TypeInt32, TypeFloat32:
		return 4, true
	case TypeInt64, TypeFloat64:
		return 8, true
	}
	return 0, false
}

func (t Type) String() string {
	switch t {
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float"
	case TypeFloat64:
		return "double"
	case TypeBlob:
		return "blob"
	case TypeNested:
		return "nested"
	default:
		return fmt.Sprintf("Type(0x%02x)", uint8(t))
	}
}

// Mode is the direction a packet was opened in.
type Mode uint8

const (
	modeNone Mode = iota
	ModeWrite
	ModeRead
)

func (m Mode) String() string {
	switch m {
	case ModeWrite:
		return "write"
	case ModeRead:
		return "read"
	default:
		return "none"
	}
}
