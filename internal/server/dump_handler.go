package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"firestige.xyz/yapb/internal/dump"
	"firestige.xyz/yapb/internal/manifest"
	"firestige.xyz/yapb/internal/metrics"
	"firestige.xyz/yapb/pkg/yapb"
)

// DumpHandler decodes every packet, logs a summary and optionally renders
// it to a writer.
type DumpHandler struct {
	maxDepth int
	format   manifest.Format

	mu  sync.Mutex
	out io.Writer
}

// NewDumpHandler returns a handler rendering to out in format. A nil out
// only logs.
func NewDumpHandler(out io.Writer, format manifest.Format, maxDepth int) *DumpHandler {
	return &DumpHandler{
		maxDepth: maxDepth,
		format:   format,
		out:      out,
	}
}

// HandlePacket implements Handler.
func (h *DumpHandler) HandlePacket(ctx context.Context, f Frame) error {
	p, err := yapb.NewReader(f.Data)
	if err != nil {
		return fmt.Errorf("load packet: %w", err)
	}
	doc, err := dump.Walk(p, h.maxDepth)
	if err != nil {
		return err
	}

	summary := dump.Summarize(p.Len(), doc)
	metrics.PacketElements.Observe(float64(summary.Elements))
	slog.InfoContext(ctx, "packet received",
		"conn", f.ConnID, "network", f.Network, "remote", addrString(f.Remote), "packet", summary)

	if h.out == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.format == manifest.FormatText {
		if _, err := fmt.Fprintf(h.out, "# %s %s length=%d\n", f.Network, addrString(f.Remote), summary.Length); err != nil {
			return err
		}
	}
	return dump.Render(h.out, doc, h.format)
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
