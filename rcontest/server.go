// Package rcontest provides an in-process RCON server for tests, in the spirit
// of net/http/httptest.
package rcontest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mmx233/rcon/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dialect selects how the server answers the end-of-response probe and the
// handshake.
type Dialect int

const (
	// Minecraft answers unknown packet types with "Unknown request <type>".
	Minecraft Dialect = iota
	// Source mirrors an empty RESPONSE_VALUE followed by a 00 01 00 00
	// trailer, and sends an empty RESPONSE_VALUE before each AUTH_RESPONSE.
	Source
)

// String returns a string representation of the dialect
func (d Dialect) String() string {
	switch d {
	case Minecraft:
		return "minecraft"
	case Source:
		return "source"
	default:
		return "unknown"
	}
}

// DefaultMaxBody is the largest body the server puts in one response frame.
const DefaultMaxBody = 4096

// sourceTrailer is the body of the second frame Source servers send after
// mirroring an empty RESPONSE_VALUE.
var sourceTrailer = []byte{0x00, 0x01, 0x00, 0x00}

// splitDelay separates the two halves of a split write so they reach the
// client as separate reads.
const splitDelay = 10 * time.Millisecond

type Config struct {
	Password string
	Dialect  Dialect

	// Handler produces the output of a command. Nil echoes the command.
	Handler func(command string) string

	Silent      bool // never answer anything after auth
	WrongIDs    bool // answer commands with an id the client never sent
	SplitWrites bool // deliver every response in two delayed halves
	MaxBody     int  // split command output into frames of this size, default 4096

	Logger *zerolog.Logger
}

// Server is a running fake RCON server on a loopback port.
type Server struct {
	Host string
	Port int

	config   Config
	listener net.Listener
	logger   zerolog.Logger

	conns    sync.Map // connID -> net.Conn
	connSeq  atomic.Uint64
	accepted atomic.Int64

	mu       sync.Mutex
	commands []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer starts a server listening on 127.0.0.1 on a random port.
func NewServer(conf Config) (*Server, error) {
	if conf.MaxBody <= 0 {
		conf.MaxBody = DefaultMaxBody
	}
	if conf.Handler == nil {
		conf.Handler = func(command string) string { return command }
	}

	base := log.Logger
	if conf.Logger != nil {
		base = *conf.Logger
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen TCP: %w", err)
	}
	addr := listener.Addr().(*net.TCPAddr)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Host:     addr.IP.String(),
		Port:     addr.Port,
		config:   conf,
		listener: listener,
		logger: base.With().
			Str("com", "rcontest").
			Str("dialect", conf.Dialect.String()).
			Str("addr", addr.String()).
			Logger(),
		ctx:    ctx,
		cancel: cancel,
	}

	s.wg.Add(1)
	go s.accept()

	return s, nil
}

// Addr returns the listening address in host:port form.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Commands returns every command received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Accepted returns the number of connections accepted so far.
func (s *Server) Accepted() int64 {
	return s.accepted.Load()
}

// Close stops the listener, closes every open connection and waits for the
// connection handlers to return.
func (s *Server) Close() error {
	s.cancel()
	err := s.listener.Close()

	s.conns.Range(func(key, value interface{}) bool {
		if conn, ok := value.(net.Conn); ok {
			conn.Close()
		}
		return true
	})

	s.wg.Wait()
	return err
}

// accept accepts TCP connections
func (s *Server) accept() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("accept TCP connection failed")
			continue
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}

		s.accepted.Add(1)
		connID := s.connSeq.Add(1)
		s.conns.Store(connID, conn)

		s.wg.Add(1)
		go s.handle(connID, conn)
	}
}

// handle serves a single client connection until it disconnects
func (s *Server) handle(connID uint64, conn net.Conn) {
	defer s.wg.Done()
	defer s.conns.Delete(connID)
	defer conn.Close()

	logger := s.logger.With().
		Uint64("conn_id", connID).
		Str("remote", conn.RemoteAddr().String()).
		Logger()

	logger.Debug().Msg("new connection")

	authed := false
	for {
		p, err := protocol.ReadPacket(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug().Err(err).Msg("read packet failed")
			}
			return
		}

		var out []byte
		switch {
		case p.Kind == protocol.KindAuth:
			out = s.authResponse(p, &authed)
			logger.Debug().Bool("authed", authed).Msg("auth attempt")

		case !authed:
			logger.Debug().Msg("dropping unauthenticated client")
			return

		case s.config.Silent:
			if p.Kind == protocol.KindExecCommand {
				s.record(p.Body)
			}
			continue

		case p.Kind == protocol.KindExecCommand:
			s.record(p.Body)
			out = s.commandResponse(p)

		default:
			out = s.probeResponse(p)
		}

		if err := s.write(conn, out); err != nil {
			logger.Debug().Err(err).Msg("write response failed")
			return
		}
	}
}

func (s *Server) record(command string) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()
}

func (s *Server) authResponse(p protocol.Packet, authed *bool) []byte {
	var out []byte
	if s.config.Dialect == Source {
		out = protocol.AppendFrame(out, protocol.KindResponseValue, p.ID, nil)
	}
	if p.Body != s.config.Password {
		return protocol.AppendFrame(out, protocol.KindAuthResponse, -1, nil)
	}
	*authed = true
	return protocol.AppendFrame(out, protocol.KindAuthResponse, p.ID, nil)
}

func (s *Server) commandResponse(p protocol.Packet) []byte {
	id := p.ID
	if s.config.WrongIDs {
		id ^= 0x5a5a
	}

	body := []byte(s.config.Handler(p.Body))
	if len(body) == 0 {
		return protocol.AppendFrame(nil, protocol.KindResponseValue, id, nil)
	}

	var out []byte
	for len(body) > 0 {
		n := min(len(body), s.config.MaxBody)
		out = protocol.AppendFrame(out, protocol.KindResponseValue, id, body[:n])
		body = body[n:]
	}
	return out
}

func (s *Server) probeResponse(p protocol.Packet) []byte {
	if s.config.Dialect == Source {
		out := protocol.AppendFrame(nil, protocol.KindResponseValue, p.ID, nil)
		return protocol.AppendFrame(out, protocol.KindResponseValue, p.ID, sourceTrailer)
	}
	body := fmt.Sprintf("Unknown request %x", int32(p.Kind))
	return protocol.AppendFrame(nil, protocol.KindResponseValue, p.ID, []byte(body))
}

func (s *Server) write(conn net.Conn, out []byte) error {
	if !s.config.SplitWrites || len(out) < 2 {
		return protocol.WriteFrame(conn, out)
	}

	half := len(out) / 2
	if err := protocol.WriteFrame(conn, out[:half]); err != nil {
		return err
	}
	select {
	case <-time.After(splitDelay):
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	return protocol.WriteFrame(conn, out[half:])
}
