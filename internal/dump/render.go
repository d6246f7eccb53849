package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"firestige.xyz/yapb/internal/core"
	"firestige.xyz/yapb/internal/manifest"
)

// encMode is the CBOR encoder configured with Core Deterministic Encoding:
// the same document always produces identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("dump: CBOR encoder initialization failed: " + err.Error())
	}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (manifest.Format, error) {
	f := manifest.Format(strings.ToLower(name))
	switch f {
	case manifest.FormatText, manifest.FormatJSON, manifest.FormatYAML, manifest.FormatCBOR:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (must be text/json/yaml/cbor)", core.ErrUnsupportedFormat, name)
}

// Render writes doc to w in the given format.
func Render(w io.Writer, doc *manifest.Document, format manifest.Format) error {
	switch format {
	case manifest.FormatText:
		return renderText(w, doc.Elements, 0)
	case manifest.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case manifest.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case manifest.FormatCBOR:
		b, err := encMode.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, format)
	}
}

// renderText writes one line per element:
//
//	@4     int32   42
//	@9     nested  (1 elements)
//	  @14    int8    -1
func renderText(w io.Writer, els []manifest.Element, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, e := range els {
		var err error
		switch {
		case e.Type == "nested":
			_, err = fmt.Fprintf(w, "%s@%-5d %-7s (%d elements)\n", indent, e.Offset, e.Type, len(e.Elements))
			if err == nil {
				err = renderText(w, e.Elements, depth+1)
			}
		case e.Type == "blob":
			_, err = fmt.Fprintf(w, "%s@%-5d %-7s %s\n", indent, e.Offset, e.Type, blobText(e))
		default:
			_, err = fmt.Fprintf(w, "%s@%-5d %-7s %v\n", indent, e.Offset, e.Type, e.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func blobText(e manifest.Element) string {
	s, _ := e.Value.(string)
	if e.Encoding == manifest.EncodingHex {
		return "hex:" + s
	}
	return fmt.Sprintf("%q", s)
}
