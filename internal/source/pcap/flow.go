package pcap

import (
	"log/slog"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/tcpassembly"

	"firestige.xyz/yapb/internal/metrics"
	"firestige.xyz/yapb/internal/stream"
)

// flowFactory creates one tcpFlow per direction of a TCP connection.
type flowFactory struct {
	src *Source
}

func (f *flowFactory) New(netFlow, transport gopacket.Flow) tcpassembly.Stream {
	return &tcpFlow{
		src:   f.src,
		from:  &net.TCPAddr{IP: endpointIP(netFlow.Src()), Port: endpointPort(transport.Src())},
		to:    &net.TCPAddr{IP: endpointIP(netFlow.Dst()), Port: endpointPort(transport.Dst())},
		reasm: stream.NewReassembler(f.src.maxPacket),
	}
}

// tcpFlow frames the reassembled bytes of one direction. The assembler
// calls it synchronously from Source.Next.
type tcpFlow struct {
	src      *Source
	from, to net.Addr
	reasm    *stream.Reassembler
}

func (t *tcpFlow) Reassembled(rs []tcpassembly.Reassembly) {
	for _, r := range rs {
		if r.Skip != 0 && t.reasm.Buffered() > 0 {
			t.drop("gap", "bytes missing from stream", r.Skip)
		}
		if len(r.Bytes) == 0 {
			continue
		}

		t.reasm.Write(r.Bytes)
		frames, err := t.reasm.Frames()
		for _, data := range frames {
			t.src.emit(Frame{
				Timestamp: r.Seen,
				Network:   "tcp",
				Src:       t.from,
				Dst:       t.to,
				Data:      data,
			})
		}
		if err != nil {
			t.src.stats.Dropped++
			metrics.ObserveFrameError(metricsSource, stream.Reason(err))
			slog.Warn("dropping tcp stream data", "src", t.from.String(), "dst", t.to.String(), "error", err)
		}
	}
}

func (t *tcpFlow) ReassemblyComplete() {
	if t.reasm.Buffered() > 0 {
		t.drop("truncated", "stream ended mid-packet", t.reasm.Buffered())
	}
}

func (t *tcpFlow) drop(reason, msg string, n int) {
	t.src.stats.Dropped++
	metrics.ObserveFrameError(metricsSource, reason)
	slog.Warn(msg, "src", t.from.String(), "dst", t.to.String(), "bytes", n)
	t.reasm.Reset()
}
