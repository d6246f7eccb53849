// Package manifest describes the literal contents of one packet as a YAML or
// JSON document and encodes it with the yapb codec.
//
//	elements:
//	  - {type: int32, value: 42}
//	  - {type: blob, value: "68656c6c6f", encoding: hex}
//	  - {type: nested, elements: [{type: int8, value: -1}]}
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"firestige.xyz/yapb/internal/core"
)

// Document is an ordered list of top-level elements.
type Document struct {
	Elements []Element `mapstructure:"elements" yaml:"elements" json:"elements" cbor:"elements"`
}

// Element is one document entry. Value holds the literal as parsed: a
// number, a numeric string, or the blob text. Nested entries carry
// Elements instead of a Value.
type Element struct {
	Type     string    `mapstructure:"type" yaml:"type" json:"type" cbor:"type"`
	Value    any       `mapstructure:"value" yaml:"value,omitempty" json:"value,omitempty" cbor:"value,omitempty"`
	Encoding string    `mapstructure:"encoding" yaml:"encoding,omitempty" json:"encoding,omitempty" cbor:"encoding,omitempty"`
	Elements []Element `mapstructure:"elements" yaml:"elements,omitempty" json:"elements,omitempty" cbor:"elements,omitempty"`

	// Offset is the wire offset of a decoded element. Not serialized.
	Offset int `mapstructure:"-" yaml:"-" json:"-" cbor:"-"`
}

// Format is a document or dump serialization.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// cborDecMode decodes untyped CBOR maps as map[string]any so they feed
// mapstructure like YAML and JSON do.
var cborDecMode cbor.DecMode

func init() {
	var err error
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("manifest: CBOR decoder initialization failed: " + err.Error())
	}
}

// FormatFromName picks a document format from a file extension. Unknown
// extensions fall back to YAML, which also accepts JSON.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".cbor":
		return FormatCBOR
	default:
		return FormatYAML
	}
}

// Parse decodes a document. name only selects the format.
func Parse(data []byte, name string) (*Document, error) {
	var raw any
	switch FormatFromName(name) {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: parse json %s: %v", core.ErrDocumentInvalid, name, err)
		}
	case FormatCBOR:
		if len(data) > 0 {
			if err := cborDecMode.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("%w: parse cbor %s: %v", core.ErrDocumentInvalid, name, err)
			}
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parse yaml %s: %v", core.ErrDocumentInvalid, name, err)
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s is empty", core.ErrDocumentInvalid, name)
	}

	var doc Document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", core.ErrDocumentInvalid, name, err)
	}
	return &doc, nil
}

// Count returns the number of elements at every depth.
func (d *Document) Count() int {
	if d == nil {
		return 0
	}
	return countElements(d.Elements)
}

func countElements(els []Element) int {
	n := len(els)
	for _, e := range els {
		n += countElements(e.Elements)
	}
	return n
}

func elementPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}
