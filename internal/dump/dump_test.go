package dump

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/yapb/internal/core"
	"firestige.xyz/yapb/internal/manifest"
	"firestige.xyz/yapb/pkg/yapb"
)

var sample = []byte{
	0, 0, 0, 36,
	0x02, 0, 0, 0, 42,
	0x01, 0xff, 0xff,
	0x05, 0x40, 0x0c, 0, 0, 0, 0, 0, 0,
	0x0E, 0, 5, 'h', 'e', 'l', 'l', 'o',
	0x0F, 0, 0, 0, 6, 0x00, 0xff,
}

func walkBytes(t *testing.T, data []byte, maxDepth int) (*manifest.Document, error) {
	t.Helper()
	p, err := yapb.NewReader(data)
	require.NoError(t, err)
	return Walk(p, maxDepth)
}

func TestWalk(t *testing.T) {
	doc, err := walkBytes(t, sample, 0)
	require.NoError(t, err)
	require.Len(t, doc.Elements, 5)

	want := []manifest.Element{
		{Type: "int32", Value: int64(42), Offset: 4},
		{Type: "int16", Value: int64(-1), Offset: 9},
		{Type: "double", Value: 3.5, Offset: 12},
		{Type: "blob", Value: "hello", Offset: 21},
		{Type: "nested", Offset: 29, Elements: []manifest.Element{
			{Type: "int8", Value: int64(-1), Offset: 34},
		}},
	}
	assert.Equal(t, want, doc.Elements)
}

func TestWalkEmpty(t *testing.T) {
	p, err := yapb.NewReader([]byte{0, 0, 0, 4})
	require.NoError(t, err)
	doc, err := Walk(p, 0)
	require.NoError(t, err)
	assert.Empty(t, doc.Elements)
	assert.Equal(t, yapb.OK, p.Status())
}

func TestWalkBlobEncodings(t *testing.T) {
	data := make([]byte, 64)
	w, err := yapb.NewWriter(data)
	require.NoError(t, err)
	w.PushBlob([]byte{0x00, 0xff})
	w.PushBlob(nil)
	w.PushBlob([]byte("tab\there"))
	n, _ := w.Finalize()

	doc, err := walkBytes(t, data[:n], 0)
	require.NoError(t, err)
	require.Len(t, doc.Elements, 3)
	assert.Equal(t, "00ff", doc.Elements[0].Value)
	assert.Equal(t, manifest.EncodingHex, doc.Elements[0].Encoding)
	assert.Nil(t, doc.Elements[1].Value)
	assert.Equal(t, "tab\there", doc.Elements[2].Value)
	assert.Empty(t, doc.Elements[2].Encoding)
}

func TestWalkNonFiniteFloats(t *testing.T) {
	data := make([]byte, 64)
	w, err := yapb.NewWriter(data)
	require.NoError(t, err)
	w.PushFloat64(math.Inf(-1))
	w.PushFloat32(float32(math.NaN()))
	n, _ := w.Finalize()

	doc, err := walkBytes(t, data[:n], 0)
	require.NoError(t, err)
	assert.Equal(t, "-Inf", doc.Elements[0].Value)
	assert.Equal(t, "NaN", doc.Elements[1].Value)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc, manifest.FormatJSON))
	again, err := manifest.Parse(buf.Bytes(), "x.json")
	require.NoError(t, err)
	out := make([]byte, 64)
	m, err := manifest.Build(again, out)
	require.NoError(t, err)
	assert.Equal(t, data[:n], out[:m])
}

func TestWalkErrors(t *testing.T) {
	t.Run("Truncated", func(t *testing.T) {
		_, err := walkBytes(t, []byte{0, 0, 0, 7, 0x00, 0x01, 0x02}, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, yapb.ErrInvalidPacket)
		assert.Contains(t, err.Error(), "offset 6")
	})

	t.Run("ReservedTag", func(t *testing.T) {
		_, err := walkBytes(t, []byte{0, 0, 0, 6, 0x09, 0x00}, 0)
		assert.ErrorIs(t, err, yapb.ErrInvalidPacket)
	})

	t.Run("BadNestedChild", func(t *testing.T) {
		_, err := walkBytes(t, []byte{0, 0, 0, 11, 0x0F, 0, 0, 0, 6, 0x02, 0x00}, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, yapb.ErrInvalidPacket)
		assert.Contains(t, err.Error(), "nested at offset 4")
	})

	t.Run("Depth", func(t *testing.T) {
		_, err := walkBytes(t, sample, 1)
		assert.NoError(t, err)

		deep := []byte{0, 0, 0, 14, 0x0F, 0, 0, 0, 9, 0x0F, 0, 0, 0, 4}
		_, err = walkBytes(t, deep, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nesting deeper than 1")
		_, err = walkBytes(t, deep, 2)
		assert.NoError(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	formats := []struct {
		format manifest.Format
		name   string
	}{
		{manifest.FormatJSON, "dump.json"},
		{manifest.FormatYAML, "dump.yaml"},
		{manifest.FormatCBOR, "dump.cbor"},
	}
	for _, f := range formats {
		t.Run(string(f.format), func(t *testing.T) {
			doc, err := walkBytes(t, sample, 0)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, Render(&buf, doc, f.format))

			parsed, err := manifest.Parse(buf.Bytes(), f.name)
			require.NoError(t, err)
			require.NoError(t, manifest.Validate(parsed, 16))

			out := make([]byte, 128)
			n, err := manifest.Build(parsed, out)
			require.NoError(t, err)
			assert.Equal(t, sample, out[:n])
		})
	}
}

func TestRenderText(t *testing.T) {
	doc, err := walkBytes(t, sample, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc, manifest.FormatText))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "@4     int32   42", lines[0])
	assert.Equal(t, "@21    blob    \"hello\"", lines[3])
	assert.Equal(t, "@29    nested  (1 elements)", lines[4])
	assert.Equal(t, "  @34    int8    -1", lines[5])
}

func TestRenderCBORDeterministic(t *testing.T) {
	doc, err := walkBytes(t, sample, 0)
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, Render(&a, doc, manifest.FormatCBOR))
	require.NoError(t, Render(&b, doc, manifest.FormatCBOR))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, manifest.FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	assert.ErrorIs(t, Render(&bytes.Buffer{}, &manifest.Document{}, "xml"), core.ErrUnsupportedFormat)
}

func TestSummary(t *testing.T) {
	doc, err := walkBytes(t, sample, 0)
	require.NoError(t, err)

	s := Summarize(len(sample), doc)
	assert.Equal(t, Summary{Length: 36, Elements: 5, Total: 6}, s)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("packet", "summary", s)
	assert.Contains(t, buf.String(), "summary.length=36 summary.elements=5 summary.total=6")
}
