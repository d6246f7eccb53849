// Package server receives yapb packets over TCP streams or UDP datagrams.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"

	"firestige.xyz/yapb/internal/config"
	"firestige.xyz/yapb/internal/core"
	"firestige.xyz/yapb/internal/metrics"
	"firestige.xyz/yapb/internal/stream"
)

// Frame is one received packet.
type Frame struct {
	ConnID   string // per TCP connection, per listener for UDP
	Network  string
	Remote   net.Addr
	Received time.Time
	Data     []byte // valid only for the duration of HandlePacket
}

// Handler consumes received packets. A returned error is logged and counted;
// it does not close the connection.
type Handler interface {
	HandlePacket(ctx context.Context, f Frame) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, f Frame) error

// HandlePacket calls fn.
func (fn HandlerFunc) HandlePacket(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}

// Server is a packet listener.
type Server struct {
	cfg     config.ListenerConfig
	timeout time.Duration
	handler Handler

	mu         sync.Mutex
	listener   net.Listener
	packetConn net.PacketConn
	conns      map[net.Conn]struct{}
	wg         sync.WaitGroup
	started    bool
	stopped    bool
	ready      chan struct{}
	done       chan struct{}
}

// New creates a server. cfg is expected to be validated.
func New(cfg config.ListenerConfig, handler Handler) *Server {
	return &Server{
		cfg:     cfg,
		timeout: cfg.ReadTimeoutDuration(),
		handler: handler,
		conns:   make(map[net.Conn]struct{}),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start binds the listener and serves until ctx is cancelled or Stop is
// called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.stopped:
		s.mu.Unlock()
		return core.ErrServerStopped
	case s.started:
		s.mu.Unlock()
		return fmt.Errorf("listener already started")
	}
	s.started = true
	s.mu.Unlock()

	var err error
	switch s.cfg.Network {
	case "udp":
		err = s.bindUDP()
	default:
		err = s.bindTCP()
	}
	if err != nil {
		return err
	}
	close(s.ready)

	slog.Info("listener started", "network", s.cfg.Network, "addr", s.Addr().String(),
		"max_conns", s.cfg.MaxConns, "max_packet_size", s.cfg.MaxPacketSize)

	select {
	case <-ctx.Done():
		slog.Info("listener stopping", "reason", ctx.Err())
	case <-s.done:
	}
	return s.Stop()
}

func (s *Server) bindTCP() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		ln.Close()
		return core.ErrServerStopped
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

func (s *Server) bindUDP() error {
	pc, err := net.ListenPacket("udp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		pc.Close()
		return core.ErrServerStopped
	}
	s.packetConn = pc

	s.wg.Add(1)
	go s.readDatagrams(pc)
	return nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Start binds.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.listener != nil:
		return s.listener.Addr()
	case s.packetConn != nil:
		return s.packetConn.LocalAddr()
	}
	return nil
}

// Stop closes the listener and every open connection, then waits for
// handlers to return. It is safe to call more than once.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.done)

	if s.listener != nil {
		s.listener.Close()
	}
	if s.packetConn != nil {
		s.packetConn.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	slog.Info("listener stopped")
	return nil
}

func (s *Server) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// ─── TCP ───

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isStopped() {
				return
			}
			slog.Error("failed to accept connection", "error", err)
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	id := uuid.NewString()
	log := slog.With("conn", id, "remote", conn.RemoteAddr().String())
	metrics.ActiveConnections.Inc()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		metrics.ActiveConnections.Dec()
	}()

	log.Debug("connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	framer := stream.NewFramer(&deadlineReader{conn: conn, timeout: s.timeout}, s.cfg.MaxPacketSize)
	for {
		data, err := framer.Next()
		if err != nil {
			s.connError(log, err)
			return
		}
		s.dispatch(ctx, log, Frame{
			ConnID:   id,
			Network:  "tcp",
			Remote:   conn.RemoteAddr(),
			Received: time.Now(),
			Data:     data,
		})
	}
}

func (s *Server) connError(log *slog.Logger, err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		log.Debug("connection closed")
	case s.isStopped():
	case errors.As(err, &netErr) && netErr.Timeout():
		log.Debug("connection idle timeout", "timeout", s.timeout)
	case errors.Is(err, core.ErrFrameTooLarge), errors.Is(err, core.ErrFrameMalformed):
		metrics.ObserveFrameError("tcp", stream.Reason(err))
		log.Warn("closing connection", "error", err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		metrics.ObserveFrameError("tcp", stream.Reason(err))
		log.Warn("connection closed mid-packet")
	default:
		log.Error("connection error", "error", err)
	}
}

// deadlineReader refreshes the read deadline before every read.
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	if r.timeout > 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
			return 0, err
		}
	}
	return r.conn.Read(p)
}

// ─── UDP ───

func (s *Server) readDatagrams(pc net.PacketConn) {
	defer s.wg.Done()

	id := uuid.NewString()
	log := slog.With("conn", id, "network", "udp")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.done
		cancel()
	}()

	// One spare byte detects datagrams above the limit.
	buf := make([]byte, s.cfg.MaxPacketSize+1)
	for {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			if s.isStopped() {
				return
			}
			log.Error("failed to read datagram", "error", err)
			continue
		}

		data := buf[:n]
		if reason, ok := stream.CheckDatagram(data, s.cfg.MaxPacketSize); !ok {
			metrics.ObserveFrameError("udp", reason)
			log.Warn("dropping datagram", "remote", addr.String(), "size", n, "reason", reason)
			continue
		}
		s.dispatch(ctx, log, Frame{
			ConnID:   id,
			Network:  "udp",
			Remote:   addr,
			Received: time.Now(),
			Data:     data,
		})
	}
}

func (s *Server) dispatch(ctx context.Context, log *slog.Logger, f Frame) {
	result := metrics.ResultOK
	if err := s.handler.HandlePacket(ctx, f); err != nil {
		result = metrics.ResultInvalid
		log.Warn("packet rejected", "size", len(f.Data), "error", err)
	}
	metrics.ObservePacket(f.Network, len(f.Data), result)
}
