package manifest

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/yapb/pkg/yapb"
)

// Blob encodings.
const (
	EncodingUTF8   = "utf8"
	EncodingHex    = "hex"
	EncodingBase64 = "base64"
)

// kind is a document type name resolved to its wire tag.
type kind struct {
	tag      yapb.Type
	unsigned bool
}

var kinds = map[string]kind{
	"int8":    {yapb.TypeInt8, false},
	"int16":   {yapb.TypeInt16, false},
	"int32":   {yapb.TypeInt32, false},
	"int64":   {yapb.TypeInt64, false},
	"uint8":   {yapb.TypeInt8, true},
	"uint16":  {yapb.TypeInt16, true},
	"uint32":  {yapb.TypeInt32, true},
	"uint64":  {yapb.TypeInt64, true},
	"float":   {yapb.TypeFloat32, false},
	"float32": {yapb.TypeFloat32, false},
	"double":  {yapb.TypeFloat64, false},
	"float64": {yapb.TypeFloat64, false},
	"blob":    {yapb.TypeBlob, false},
	"nested":  {yapb.TypeNested, false},
}

// intBits is the value width of each integer tag.
var intBits = map[yapb.Type]uint{
	yapb.TypeInt8:  8,
	yapb.TypeInt16: 16,
	yapb.TypeInt32: 32,
	yapb.TypeInt64: 64,
}

func lookupKind(name string) (kind, error) {
	k, ok := kinds[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return kind{}, fmt.Errorf("unknown type %q", name)
	}
	return k, nil
}

// integer converts a parsed literal to an integer, rejecting fractions.
// Strings accept base prefixes such as 0x and 0b.
func integer(v any) (*big.Int, error) {
	switch x := v.(type) {
	case int:
		return big.NewInt(int64(x)), nil
	case int8:
		return big.NewInt(int64(x)), nil
	case int16:
		return big.NewInt(int64(x)), nil
	case int32:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return nil, fmt.Errorf("value %v is not an integer", x)
		}
		n, _ := big.NewFloat(x).Int(nil)
		return n, nil
	case json.Number:
		return integer(string(x))
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(x), 0)
		if !ok {
			return nil, fmt.Errorf("value %q is not an integer", x)
		}
		return n, nil
	case nil:
		return nil, fmt.Errorf("missing value")
	default:
		return nil, fmt.Errorf("value of type %T is not an integer", v)
	}
}

// intRange returns the inclusive bounds of a width and signedness.
func intRange(bits uint, unsigned bool) (lo, hi *big.Int) {
	one := big.NewInt(1)
	if unsigned {
		return new(big.Int), new(big.Int).Sub(new(big.Int).Lsh(one, bits), one)
	}
	hi = new(big.Int).Sub(new(big.Int).Lsh(one, bits-1), one)
	lo = new(big.Int).Neg(new(big.Int).Lsh(one, bits-1))
	return lo, hi
}

// wireBits returns the two's complement bit pattern of an in-range integer.
func wireBits(k kind, v any) (uint64, error) {
	n, err := integer(v)
	if err != nil {
		return 0, err
	}
	bits := intBits[k.tag]
	lo, hi := intRange(bits, k.unsigned)
	if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
		return 0, fmt.Errorf("value %s out of range [%s, %s]", n, lo, hi)
	}
	if n.Sign() >= 0 {
		return n.Uint64(), nil
	}
	return uint64(n.Int64()), nil
}

// floatValue converts a parsed literal with mapstructure's weak typing, so
// numeric strings like "1e-3" are accepted.
func floatValue(v any, bits int) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("missing value")
	}
	if n, ok := v.(json.Number); ok {
		v = string(n)
	}
	var f float64
	if err := mapstructure.WeakDecode(v, &f); err != nil {
		return 0, fmt.Errorf("value %v is not a number: %v", v, err)
	}
	if bits == 32 && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, fmt.Errorf("value %v overflows float", f)
	}
	return f, nil
}

// blobBytes decodes a blob literal in its declared encoding.
func blobBytes(e Element) ([]byte, error) {
	var s string
	switch x := e.Value.(type) {
	case nil:
	case string:
		s = x
	default:
		return nil, fmt.Errorf("blob value must be a string, got %T", e.Value)
	}

	var (
		b   []byte
		err error
	)
	switch strings.ToLower(e.Encoding) {
	case "", EncodingUTF8:
		b = []byte(s)
	case EncodingHex:
		b, err = hex.DecodeString(strings.Join(strings.Fields(s), ""))
	case EncodingBase64:
		b, err = base64.StdEncoding.DecodeString(s)
	default:
		return nil, fmt.Errorf("unknown encoding %q", e.Encoding)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s blob: %v", e.Encoding, err)
	}
	if len(b) > yapb.MaxBlobLen {
		return nil, fmt.Errorf("blob of %d bytes exceeds %d", len(b), yapb.MaxBlobLen)
	}
	return b, nil
}
