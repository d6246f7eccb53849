// Package dump decodes yapb packets into element documents and renders them.
package dump

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"unicode"
	"unicode/utf8"

	"firestige.xyz/yapb/internal/manifest"
	"firestige.xyz/yapb/pkg/yapb"
)

// Walk pops every remaining element of p, descending into nested packets.
// The result re-encodes to the same bytes with manifest.Build. maxDepth is
// the number of nested levels allowed; zero means unbounded.
func Walk(p *yapb.Packet, maxDepth int) (*manifest.Document, error) {
	els, err := walk(p, 0, 0, maxDepth)
	if err != nil {
		return nil, err
	}
	return &manifest.Document{Elements: els}, nil
}

// walk decodes p. base is the absolute offset of p's header.
func walk(p *yapb.Packet, base, depth, maxDepth int) ([]manifest.Element, error) {
	var els []manifest.Element
	for p.Offset() < p.Len() {
		off := base + p.Offset()
		var el yapb.Element
		r := p.PopNext(&el)
		if r.Failed() {
			return nil, fmt.Errorf("element %d at offset %d: %w", len(els), off, r)
		}

		out := manifest.Element{Type: el.Type.String(), Offset: off}
		switch v := el.Value.(type) {
		case yapb.Int8:
			out.Value = int64(v)
		case yapb.Int16:
			out.Value = int64(v)
		case yapb.Int32:
			out.Value = int64(v)
		case yapb.Int64:
			out.Value = int64(v)
		case yapb.Float32:
			out.Value = floatLiteral(float64(v))
		case yapb.Float64:
			out.Value = floatLiteral(float64(v))
		case yapb.Blob:
			out.Value, out.Encoding = blobLiteral(v)
		case yapb.Nested:
			if maxDepth > 0 && depth >= maxDepth {
				return nil, fmt.Errorf("element %d at offset %d: nesting deeper than %d", len(els), off, maxDepth)
			}
			children, err := walk(v.Packet, off+1, depth+1, maxDepth)
			if err != nil {
				return nil, fmt.Errorf("nested at offset %d: %w", off, err)
			}
			out.Elements = children
		}
		els = append(els, out)

		if r == yapb.Complete {
			break
		}
	}
	return els, nil
}

// floatLiteral keeps finite values numeric and spells the rest the way
// strconv.ParseFloat reads them back, since JSON has no NaN or Inf.
func floatLiteral(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

// blobLiteral renders printable UTF-8 as text and anything else as hex.
func blobLiteral(b []byte) (value any, encoding string) {
	if len(b) == 0 {
		return nil, ""
	}
	if printable(b) {
		return string(b), ""
	}
	return hex.EncodeToString(b), manifest.EncodingHex
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && r != '\n' && r != '\t' {
			return false
		}
	}
	return true
}

// Summary describes one decoded packet for logging.
type Summary struct {
	Length   int // declared packet length
	Elements int // top-level elements
	Total    int // elements at every depth
}

// Summarize builds a Summary for a packet of length bytes decoded into doc.
func Summarize(length int, doc *manifest.Document) Summary {
	s := Summary{Length: length}
	if doc != nil {
		s.Elements = len(doc.Elements)
		s.Total = doc.Count()
	}
	return s
}

// LogValue implements slog.LogValuer.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("length", s.Length),
		slog.Int("elements", s.Elements),
		slog.Int("total", s.Total),
	)
}
