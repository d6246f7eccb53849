// Package pcap replays yapb packets carried in a capture file.
package pcap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/google/gopacket/tcpassembly"

	"firestige.xyz/yapb/internal/metrics"
	"firestige.xyz/yapb/internal/stream"
)

const metricsSource = "pcap"

// pcapngMagic is the section header block type that opens a pcapng file.
var pcapngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

// Filter selects the traffic that carries packets.
type Filter struct {
	Port    uint16 // matches source or destination; 0 = any
	Network string // tcp, udp, or empty for both
}

func (f Filter) wants(network string, src, dst uint16) bool {
	if f.Network != "" && f.Network != network {
		return false
	}
	return f.Port == 0 || f.Port == src || f.Port == dst
}

// Frame is one packet recovered from the capture.
type Frame struct {
	Timestamp time.Time
	Network   string
	Src, Dst  net.Addr
	Data      []byte // owned by the caller
}

// Stats counts what the source has seen so far.
type Stats struct {
	Packets int // capture records read
	Matched int // records passing the filter
	Frames  int // packets recovered
	Dropped int // payloads or stream bytes that did not frame
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Source reads a pcap or pcapng file and yields the packets found in UDP
// payloads and reassembled TCP streams.
type Source struct {
	path      string
	file      *os.File
	reader    packetReader
	filter    Filter
	maxPacket int

	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
	eth     layers.Ethernet
	sll     layers.LinuxSLL
	dot1q   layers.Dot1Q
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	payload gopacket.Payload

	assembler *tcpassembly.Assembler
	pending   []Frame
	eof       bool
	stats     Stats
}

// Open opens a capture file. maxPacket bounds the packets accepted.
func Open(path string, filter Filter, maxPacket int) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
	}

	reader, err := newPacketReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture file %s: %w", path, err)
	}

	first, err := firstLayer(reader.LinkType())
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &Source{
		path:      path,
		file:      f,
		reader:    reader,
		filter:    filter,
		maxPacket: maxPacket,
		decoded:   make([]gopacket.LayerType, 0, 8),
	}
	s.parser = gopacket.NewDecodingLayerParser(first,
		&s.eth, &s.sll, &s.dot1q, &s.ip4, &s.ip6, &s.tcp, &s.udp, &s.payload)
	s.parser.IgnoreUnsupported = true
	s.assembler = tcpassembly.NewAssembler(tcpassembly.NewStreamPool(&flowFactory{src: s}))

	slog.Debug("capture opened", "path", path, "link_type", reader.LinkType().String())
	return s, nil
}

func newPacketReader(r *bufio.Reader) (packetReader, error) {
	magic, err := r.Peek(len(pcapngMagic))
	if err != nil {
		return nil, err
	}
	if string(magic) == string(pcapngMagic) {
		return pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(r)
}

func firstLayer(lt layers.LinkType) (gopacket.LayerType, error) {
	switch lt {
	case layers.LinkTypeEthernet:
		return layers.LayerTypeEthernet, nil
	case layers.LinkTypeLinuxSLL:
		return layers.LayerTypeLinuxSLL, nil
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		return layers.LayerTypeIPv4, nil
	case layers.LinkTypeIPv6:
		return layers.LayerTypeIPv6, nil
	default:
		return gopacket.LayerTypeZero, fmt.Errorf("unsupported link type %s", lt)
	}
}

// Next returns the next recovered packet, or io.EOF once the file is
// exhausted and every TCP stream flushed.
func (s *Source) Next() (Frame, error) {
	for len(s.pending) == 0 {
		if s.eof {
			return Frame{}, io.EOF
		}
		data, ci, err := s.reader.ReadPacketData()
		if err == io.EOF {
			s.eof = true
			s.assembler.FlushAll()
			continue
		}
		if err != nil {
			return Frame{}, fmt.Errorf("failed to read packet: %w", err)
		}
		s.stats.Packets++
		s.handle(data, ci)
	}

	f := s.pending[0]
	s.pending[0] = Frame{}
	s.pending = s.pending[1:]
	return f, nil
}

// Stats returns counters accumulated so far.
func (s *Source) Stats() Stats {
	return s.stats
}

// Close releases the capture file.
func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *Source) handle(data []byte, ci gopacket.CaptureInfo) {
	if err := s.parser.DecodeLayers(data, &s.decoded); err != nil {
		slog.Debug("undecodable capture record", "error", err)
		return
	}

	var netFlow gopacket.Flow
	for _, lt := range s.decoded {
		switch lt {
		case layers.LayerTypeIPv4:
			netFlow = s.ip4.NetworkFlow()
		case layers.LayerTypeIPv6:
			netFlow = s.ip6.NetworkFlow()
		case layers.LayerTypeUDP:
			if s.filter.wants("udp", uint16(s.udp.SrcPort), uint16(s.udp.DstPort)) {
				s.stats.Matched++
				s.handleUDP(netFlow, ci.Timestamp)
			}
		case layers.LayerTypeTCP:
			if s.filter.wants("tcp", uint16(s.tcp.SrcPort), uint16(s.tcp.DstPort)) {
				s.stats.Matched++
				s.assembler.AssembleWithTimestamp(netFlow, &s.tcp, ci.Timestamp)
			}
		}
	}
}

func (s *Source) handleUDP(netFlow gopacket.Flow, ts time.Time) {
	payload := s.udp.Payload
	if len(payload) == 0 {
		return
	}
	if reason, ok := stream.CheckDatagram(payload, s.maxPacket); !ok {
		s.stats.Dropped++
		metrics.ObserveFrameError(metricsSource, reason)
		slog.Debug("skipping udp payload", "size", len(payload), "reason", reason)
		return
	}
	s.emit(Frame{
		Timestamp: ts,
		Network:   "udp",
		Src:       &net.UDPAddr{IP: endpointIP(netFlow.Src()), Port: int(s.udp.SrcPort)},
		Dst:       &net.UDPAddr{IP: endpointIP(netFlow.Dst()), Port: int(s.udp.DstPort)},
		Data:      append([]byte(nil), payload...),
	})
}

func (s *Source) emit(f Frame) {
	s.stats.Frames++
	metrics.ObservePacket(metricsSource, len(f.Data), metrics.ResultOK)
	s.pending = append(s.pending, f)
}

func endpointIP(e gopacket.Endpoint) net.IP {
	return append(net.IP(nil), e.Raw()...)
}

func endpointPort(e gopacket.Endpoint) int {
	raw := e.Raw()
	if len(raw) != 2 {
		return 0
	}
	return int(binary.BigEndian.Uint16(raw))
}
