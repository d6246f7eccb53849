package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"firestige.xyz/yapb/internal/dump"
	"firestige.xyz/yapb/internal/server"
	"firestige.xyz/yapb/internal/source/pcap"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Dump packets carried in a capture file",
	Long: `Extract yapb packets from a pcap or pcapng file and dump them. UDP payloads
are taken as whole packets; TCP streams are reassembled and split into packets.

Examples:
  yapb replay -f capture.pcap
  yapb replay -f capture.pcapng --port 7400 --network tcp --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := dump.ParseFormat(replayFormat)
		if err != nil {
			return err
		}
		filter := pcap.Filter{Port: replayPort, Network: replayNetwork}
		handler := server.NewDumpHandler(cmd.OutOrStdout(), format, cfg.Codec.MaxDepth)
		return runReplay(cmd.Context(), replayFile, filter, cfg.Listener.MaxPacketSize, handler, cmd.ErrOrStderr())
	},
}

var (
	replayFile    string
	replayPort    uint16
	replayNetwork string
	replayFormat  string
)

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "capture file (required)")
	replayCmd.Flags().Uint16Var(&replayPort, "port", 0, "only traffic to or from this port (0 = any)")
	replayCmd.Flags().StringVar(&replayNetwork, "network", "", "only tcp or udp (empty = both)")
	replayCmd.Flags().StringVar(&replayFormat, "format", "text", "dump format (text, json, yaml, cbor)")
	replayCmd.MarkFlagRequired("file")
}

// runReplay feeds every packet found in the capture to handler and writes
// the final counters to w.
func runReplay(ctx context.Context, path string, filter pcap.Filter, maxPacket int, handler server.Handler, w io.Writer) error {
	if filter.Network != "" && filter.Network != "tcp" && filter.Network != "udp" {
		return fmt.Errorf("unsupported network %q (must be tcp or udp)", filter.Network)
	}
	src, err := pcap.Open(path, filter, maxPacket)
	if err != nil {
		return err
	}
	defer src.Close()

	failed := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		frame := server.Frame{
			ConnID:   path,
			Network:  f.Network,
			Remote:   f.Src,
			Received: f.Timestamp,
			Data:     f.Data,
		}
		if err := handler.HandlePacket(ctx, frame); err != nil {
			failed++
			slog.Warn("packet handling failed", "src", f.Src.String(), "time", f.Timestamp, "error", err)
		}
	}

	st := src.Stats()
	_, err = fmt.Fprintf(w, "%d record(s), %d matched, %d packet(s), %d dropped, %d failed\n",
		st.Packets, st.Matched, st.Frames, st.Dropped, failed)
	return err
}
