package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/yapb/internal/config"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Encode a document and send it to a listener",
	Long: `Encode an element document and send the packet over TCP or UDP.

Examples:
  yapb send -f doc.yaml --addr 127.0.0.1:7400
  yapb send -f doc.yaml --addr 127.0.0.1:7400 --network udp -n 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, sendFile)
		if err != nil {
			return err
		}
		target := sendTarget{
			Network: sendNetwork,
			Addr:    sendAddr,
			Count:   sendCount,
			Timeout: sendTimeout,
		}
		return runSend(cmd.Context(), data, sendFile, target, cfg.Codec, cmd.OutOrStdout())
	},
}

var (
	sendFile    string
	sendNetwork string
	sendAddr    string
	sendCount   int
	sendTimeout time.Duration
)

func init() {
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "element document to send (required)")
	sendCmd.Flags().StringVar(&sendNetwork, "network", "tcp", "network (tcp, udp)")
	sendCmd.Flags().StringVar(&sendAddr, "addr", "127.0.0.1:7400", "listener address")
	sendCmd.Flags().IntVarP(&sendCount, "count", "n", 1, "number of copies to send")
	sendCmd.Flags().DurationVarP(&sendTimeout, "timeout", "t", 5*time.Second, "dial and write timeout")
	sendCmd.MarkFlagRequired("file")
}

type sendTarget struct {
	Network string
	Addr    string
	Count   int
	Timeout time.Duration
}

func runSend(ctx context.Context, data []byte, name string, target sendTarget, codec config.CodecConfig, w io.Writer) error {
	if target.Network != "tcp" && target.Network != "udp" {
		return fmt.Errorf("unsupported network %q (must be tcp or udp)", target.Network)
	}
	if target.Count < 1 {
		target.Count = 1
	}
	packet, err := encodeDocument(data, name, codec)
	if err != nil {
		return err
	}

	d := net.Dialer{Timeout: target.Timeout}
	conn, err := d.DialContext(ctx, target.Network, target.Addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s %s: %w", target.Network, target.Addr, err)
	}
	defer conn.Close()

	if target.Timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(target.Timeout))
	}
	for i := 0; i < target.Count; i++ {
		if _, err := conn.Write(packet); err != nil {
			return fmt.Errorf("failed to send packet %d: %w", i, err)
		}
	}

	slog.Debug("packets sent", "network", target.Network, "addr", target.Addr, "count", target.Count, "length", len(packet))
	_, err = fmt.Fprintf(w, "✓ Sent %d packet(s) of %d bytes to %s/%s\n", target.Count, len(packet), target.Network, target.Addr)
	return err
}
