package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"firestige.xyz/yapb/internal/config"
	"firestige.xyz/yapb/internal/manifest"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build a packet from an element document",
	Long: `Build a yapb packet from a YAML, JSON or CBOR element document.
The format is detected from the file extension (.json, .cbor, anything else is YAML).

Examples:
  yapb encode -f doc.yaml -o packet.bin
  yapb encode -f doc.json > packet.bin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, encodeFile)
		if err != nil {
			return err
		}
		out, closeOut, err := openOutput(encodeOutput, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		_, err = runEncode(data, encodeFile, cfg.Codec, out)
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		return err
	},
}

var (
	encodeFile   string
	encodeOutput string
)

func init() {
	encodeCmd.Flags().StringVarP(&encodeFile, "file", "f", "",
		"element document to encode (required, - for stdin)")
	encodeCmd.Flags().StringVarP(&encodeOutput, "output", "o", "-",
		"output file (- for stdout)")
	encodeCmd.MarkFlagRequired("file")
}

// encodeDocument parses, validates and builds the document in data.
func encodeDocument(data []byte, name string, codec config.CodecConfig) ([]byte, error) {
	doc, err := manifest.Parse(data, name)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(doc, codec.MaxDepth); err != nil {
		return nil, err
	}
	buf := make([]byte, codec.BufferSize)
	n, err := manifest.Build(doc, buf)
	if err != nil {
		return nil, err
	}
	slog.Debug("packet built", "document", name, "elements", doc.Count(), "length", n)
	return buf[:n], nil
}

func runEncode(data []byte, name string, codec config.CodecConfig, w io.Writer) (int, error) {
	packet, err := encodeDocument(data, name, codec)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(packet)
	if err != nil {
		return n, fmt.Errorf("failed to write packet: %w", err)
	}
	return n, nil
}
