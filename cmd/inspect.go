package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/yapb/internal/manifest"
	"firestige.xyz/yapb/pkg/yapb"
)

var errIncomplete = errors.New("packet incomplete")

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the top-level elements of a packet",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, inspectFile)
		if err != nil {
			return err
		}
		return runCount(data, cmd.OutOrStdout())
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a buffer holds a whole packet",
	Long: `Check whether the input starts with a complete yapb packet.
Exits non-zero when the declared length is invalid or more bytes are needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, inspectFile)
		if err != nil {
			return err
		}
		return runCheck(data, cmd.OutOrStdout())
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an element document",
	Long: `Validate an element document (YAML, JSON or CBOR) without encoding it.

This checks type names, integer ranges, blob encodings and lengths, and nesting depth.
File format is auto-detected from extension (.json, .cbor, .yaml, .yml).

Examples:
  yapb validate -f doc.yaml
  yapb validate -f doc.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, validateFile)
		if err != nil {
			return err
		}
		return runValidate(data, validateFile, cfg.Codec.MaxDepth, cmd.OutOrStdout())
	},
}

var (
	inspectFile  string
	validateFile string
)

func init() {
	for _, c := range []*cobra.Command{countCmd, checkCmd} {
		c.Flags().StringVarP(&inspectFile, "file", "f", "",
			"packet file (required, - for stdin)")
		c.MarkFlagRequired("file")
	}
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "",
		"element document to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runCount(data []byte, w io.Writer) error {
	p, err := yapb.NewReader(data)
	if err != nil {
		return fmt.Errorf("failed to load packet: %w", err)
	}
	n, r := p.ElementCount()
	if r.Failed() {
		return fmt.Errorf("failed to count elements: %w", r)
	}
	_, err = fmt.Fprintf(w, "%d\n", n)
	return err
}

func runCheck(data []byte, w io.Writer) error {
	n, ok := yapb.DeclaredLength(data)
	switch {
	case len(data) < yapb.HeaderSize:
		fmt.Fprintf(w, "INCOMPLETE: %d of %d header bytes\n", len(data), yapb.HeaderSize)
		return errIncomplete
	case !ok:
		fmt.Fprintf(w, "INVALID: declared length %d\n", n)
		return fmt.Errorf("%w: declared length %d", yapb.ErrInvalidPacket, n)
	case !yapb.CheckComplete(data):
		fmt.Fprintf(w, "INCOMPLETE: %d of %d bytes\n", len(data), n)
		return errIncomplete
	}
	_, err := fmt.Fprintf(w, "COMPLETE: length=%d available=%d\n", n, len(data))
	return err
}

func runValidate(data []byte, name string, maxDepth int, w io.Writer) error {
	doc, err := manifest.Parse(data, name)
	if err != nil {
		fmt.Fprintf(w, "INVALID: %v\n", err)
		return err
	}
	if err := manifest.Validate(doc, maxDepth); err != nil {
		fmt.Fprintf(w, "INVALID: %v\n", err)
		return err
	}
	_, err = fmt.Fprintf(w, "VALID: %d top-level element(s), %d in total\n", len(doc.Elements), doc.Count())
	return err
}
