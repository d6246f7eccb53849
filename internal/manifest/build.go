package manifest

import (
	"fmt"

	"firestige.xyz/yapb/internal/core"
	"firestige.xyz/yapb/pkg/yapb"
)

// Validate checks type names, value ranges, encodings and nesting without
// encoding anything. maxDepth is the number of nested levels allowed;
// zero means unbounded.
func Validate(doc *Document, maxDepth int) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", core.ErrDocumentInvalid)
	}
	return validateElements(doc.Elements, "elements", 0, maxDepth)
}

func validateElements(els []Element, path string, depth, maxDepth int) error {
	for i, e := range els {
		p := elementPath(path, i)
		k, err := lookupKind(e.Type)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrDocumentInvalid, p, err)
		}

		if k.tag != yapb.TypeNested && len(e.Elements) > 0 {
			return fmt.Errorf("%w: %s: %s cannot have elements", core.ErrDocumentInvalid, p, e.Type)
		}
		if k.tag != yapb.TypeBlob && e.Encoding != "" {
			return fmt.Errorf("%w: %s: encoding applies to blobs only", core.ErrDocumentInvalid, p)
		}

		switch k.tag {
		case yapb.TypeNested:
			if e.Value != nil {
				return fmt.Errorf("%w: %s: nested takes elements, not a value", core.ErrDocumentInvalid, p)
			}
			if maxDepth > 0 && depth >= maxDepth {
				return fmt.Errorf("%w: %s: nesting deeper than %d", core.ErrDocumentInvalid, p, maxDepth)
			}
			if err := validateElements(e.Elements, p+".elements", depth+1, maxDepth); err != nil {
				return err
			}
		case yapb.TypeBlob:
			_, err = blobBytes(e)
		case yapb.TypeFloat32:
			_, err = floatValue(e.Value, 32)
		case yapb.TypeFloat64:
			_, err = floatValue(e.Value, 64)
		default:
			_, err = wireBits(k, e.Value)
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrDocumentInvalid, p, err)
		}
	}
	return nil
}

// Build encodes doc into buf and returns the finalized packet length.
// Nested elements are encoded into scratch buffers carved from the space
// the parent has left.
func Build(doc *Document, buf []byte) (int, error) {
	if doc == nil {
		return 0, fmt.Errorf("%w: nil document", core.ErrDocumentInvalid)
	}
	p, err := yapb.NewWriter(buf)
	if err != nil {
		return 0, fmt.Errorf("open packet: %w", err)
	}
	if err := encodeElements(p, doc.Elements, "elements"); err != nil {
		return 0, err
	}
	n, r := p.Finalize()
	if r.Failed() {
		return 0, fmt.Errorf("finalize: %w", r)
	}
	return n, nil
}

func encodeElements(p *yapb.Packet, els []Element, path string) error {
	for i, e := range els {
		if err := encodeElement(p, e, elementPath(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func encodeElement(p *yapb.Packet, e Element, path string) error {
	k, err := lookupKind(e.Type)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrDocumentInvalid, path, err)
	}

	var r yapb.Result
	switch k.tag {
	case yapb.TypeNested:
		child, err := buildNested(p, e.Elements, path+".elements")
		if err != nil {
			return err
		}
		r = p.PushNested(child)
	case yapb.TypeBlob:
		b, err := blobBytes(e)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrDocumentInvalid, path, err)
		}
		r = p.PushBlob(b)
	case yapb.TypeFloat32:
		f, err := floatValue(e.Value, 32)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrDocumentInvalid, path, err)
		}
		r = p.PushFloat32(float32(f))
	case yapb.TypeFloat64:
		f, err := floatValue(e.Value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrDocumentInvalid, path, err)
		}
		r = p.PushFloat64(f)
	default:
		bits, err := wireBits(k, e.Value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrDocumentInvalid, path, err)
		}
		r = pushInteger(p, k.tag, bits)
	}

	if r.Failed() {
		return fmt.Errorf("%s: push %s: %w", path, e.Type, r)
	}
	return nil
}

func pushInteger(p *yapb.Packet, t yapb.Type, bits uint64) yapb.Result {
	switch t {
	case yapb.TypeInt8:
		return p.PushUint8(uint8(bits))
	case yapb.TypeInt16:
		return p.PushUint16(uint16(bits))
	case yapb.TypeInt32:
		return p.PushUint32(uint32(bits))
	default:
		return p.PushUint64(bits)
	}
}

// buildNested encodes els as a finalized child sized to what still fits in
// the parent after the nested tag.
func buildNested(parent *yapb.Packet, els []Element, path string) (*yapb.Packet, error) {
	room := parent.Len() - parent.Offset() - 1
	if room < yapb.HeaderSize {
		return nil, fmt.Errorf("%s: open nested: %w", path, yapb.ErrBufferTooSmall)
	}
	child, err := yapb.NewWriter(make([]byte, room))
	if err != nil {
		return nil, fmt.Errorf("%s: open nested: %w", path, err)
	}
	if err := encodeElements(child, els, path); err != nil {
		return nil, err
	}
	if _, r := child.Finalize(); r.Failed() {
		return nil, fmt.Errorf("%s: finalize nested: %w", path, r)
	}
	return child, nil
}
