package cmd

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/yapb/internal/config"
	"firestige.xyz/yapb/internal/dump"
	"firestige.xyz/yapb/internal/manifest"
	"firestige.xyz/yapb/internal/metrics"
	"firestige.xyz/yapb/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive and dump packets over TCP or UDP",
	Long: `
Listen for yapb packets and dump each one as it arrives. TCP connections carry
back-to-back packets; every UDP datagram carries exactly one packet.

Examples:
  yapb serve                                # listen on the configured address
  yapb serve --network udp --addr :7400     # override the listener
  yapb serve --format json                  # print every packet as JSON
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("network") {
			cfg.Listener.Network = serveNetwork
		}
		if cmd.Flags().Changed("addr") {
			cfg.Listener.Addr = serveAddr
		}
		if err := cfg.ValidateAndApplyDefaults(); err != nil {
			return err
		}
		format, err := dump.ParseFormat(serveFormat)
		if err != nil {
			return err
		}
		var out io.Writer
		if !serveQuiet {
			out = cmd.OutOrStdout()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, out, format, nil)
	},
}

var (
	serveNetwork string
	serveAddr    string
	serveFormat  string
	serveQuiet   bool
)

func init() {
	serveCmd.Flags().StringVar(&serveNetwork, "network", "tcp", "listener network (tcp, udp)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":7400", "listen address")
	serveCmd.Flags().StringVar(&serveFormat, "format", "text", "dump format (text, json, yaml, cbor)")
	serveCmd.Flags().BoolVarP(&serveQuiet, "quiet", "q", false, "only log packet summaries")
}

// runServe serves until ctx is cancelled. ready, when set, receives the
// bound listener address.
func runServe(ctx context.Context, cfg *config.GlobalConfig, out io.Writer, format manifest.Format, ready func(net.Addr)) error {
	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := ms.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := ms.Stop(context.Background()); err != nil {
				slog.Warn("metrics server stop failed", "error", err)
			}
		}()
	}

	handler := server.NewDumpHandler(out, format, cfg.Codec.MaxDepth)
	srv := server.New(cfg.Listener, handler)

	if ready != nil {
		go func() {
			select {
			case <-srv.Ready():
				ready(srv.Addr())
			case <-ctx.Done():
			}
		}()
	}

	slog.Info("serving", "network", cfg.Listener.Network, "addr", cfg.Listener.Addr)
	return srv.Start(ctx)
}
