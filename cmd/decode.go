package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/yapb/internal/config"
	"firestige.xyz/yapb/internal/dump"
	"firestige.xyz/yapb/internal/manifest"
	"firestige.xyz/yapb/internal/stream"
	"firestige.xyz/yapb/pkg/yapb"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Dump the contents of a packet",
	Long: `Dump the elements of a yapb packet as text, JSON, YAML or CBOR.
With --stream the input is a sequence of back-to-back packets.

Examples:
  yapb decode -f packet.bin
  yapb decode -f packet.bin --format yaml
  cat capture.bin | yapb decode -f - --stream`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := dump.ParseFormat(decodeFormat)
		if err != nil {
			return err
		}
		data, err := readInput(cmd, decodeFile)
		if err != nil {
			return err
		}
		if decodeStream {
			return runDecodeStream(bytes.NewReader(data), cmd.OutOrStdout(), format, cfg)
		}
		return runDecode(data, cmd.OutOrStdout(), format, cfg.Codec.MaxDepth)
	},
}

var (
	decodeFile   string
	decodeFormat string
	decodeStream bool
)

func init() {
	decodeCmd.Flags().StringVarP(&decodeFile, "file", "f", "",
		"packet file to decode (required, - for stdin)")
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "text",
		"output format (text, json, yaml, cbor)")
	decodeCmd.Flags().BoolVar(&decodeStream, "stream", false,
		"treat the input as a stream of packets")
	decodeCmd.MarkFlagRequired("file")
}

func decodePacket(data []byte, maxDepth int) (*manifest.Document, int, error) {
	p, err := yapb.NewReader(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load packet: %w", err)
	}
	doc, err := dump.Walk(p, maxDepth)
	if err != nil {
		return nil, 0, err
	}
	return doc, p.Len(), nil
}

func runDecode(data []byte, w io.Writer, format manifest.Format, maxDepth int) error {
	doc, _, err := decodePacket(data, maxDepth)
	if err != nil {
		return err
	}
	return dump.Render(w, doc, format)
}

func runDecodeStream(r io.Reader, w io.Writer, format manifest.Format, cfg *config.GlobalConfig) error {
	framer := stream.NewFramer(r, cfg.Listener.MaxPacketSize)
	for i := 0; ; i++ {
		data, err := framer.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("packet %d: %w", i, err)
		}
		doc, n, err := decodePacket(data, cfg.Codec.MaxDepth)
		if err != nil {
			return fmt.Errorf("packet %d: %w", i, err)
		}

		switch format {
		case manifest.FormatText:
			_, err = fmt.Fprintf(w, "# packet %d length=%d\n", i, n)
		case manifest.FormatYAML:
			_, err = io.WriteString(w, "---\n")
		}
		if err != nil {
			return err
		}
		if err := dump.Render(w, doc, format); err != nil {
			return err
		}
	}
}
