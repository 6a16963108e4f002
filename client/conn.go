package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mmx233/rcon/config"
	"github.com/Mmx233/rcon/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the session state of a connection
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

// String returns a string representation of the session state
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrClosed is wrapped by errors returned from operations on a closed connection.
var ErrClosed = errors.New("use of closed connection")

// aLongTimeAgo is a deadline in the past, used to abort blocked I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Options configures a Conn. The zero value uses the defaults from the
// config package.
type Options struct {
	// ReadTimeout bounds every blocking read and write. Zero means
	// config.DefaultReadTimeout.
	ReadTimeout time.Duration

	// DialTimeout bounds the TCP connect. Zero falls back to ReadTimeout.
	DialTimeout time.Duration

	// IDs generates request ids. Nil means RandomIDs.
	IDs IDGenerator

	// Logger is the parent logger. Nil means the global logger.
	Logger *zerolog.Logger

	// DisableReassembly reads exactly one frame per command instead of
	// collecting every frame up to the end-of-response probe.
	DisableReassembly bool

	// LogAuthPackets includes the password in trace packet logs.
	LogAuthPackets bool
}

// Conn is one RCON session over a single stream connection. It carries at
// most one outstanding request: Authenticate and Execute are serialized.
//
// A request that fails after reaching the wire closes the connection, since
// its response may still arrive and would be read by the next request.
type Conn struct {
	nc        net.Conn
	sessionID string

	readTimeout    time.Duration
	ids            IDGenerator
	reassemble     bool
	logAuthPackets bool

	state atomic.Int32

	// mu serializes requests; fields below it are guarded by it.
	mu       sync.Mutex
	cause    error
	staleID  int32
	hasStale bool

	closeOnce sync.Once
	closeErr  error

	logger zerolog.Logger
}

// Dial connects to an RCON server over TCP.
func Dial(ctx context.Context, host string, port int, opts Options) (*Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	timeout := opts.DialTimeout
	if timeout == 0 {
		timeout = opts.ReadTimeout
	}
	if timeout == 0 {
		timeout = config.DefaultDialTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, protocol.Classify("dial", fmt.Errorf("dial %s: %w", addr, err))
	}

	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	return NewConn(nc, opts), nil
}

// NewConn wraps an established stream, such as a TLS connection or one end of
// a net.Pipe. The Conn takes ownership of nc.
func NewConn(nc net.Conn, opts Options) *Conn {
	readTimeout := opts.ReadTimeout
	if readTimeout == 0 {
		readTimeout = config.DefaultReadTimeout
	}
	ids := opts.IDs
	if ids == nil {
		ids = RandomIDs{}
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}

	sessionID := uuid.NewString()
	c := &Conn{
		nc:             nc,
		sessionID:      sessionID,
		readTimeout:    readTimeout,
		ids:            ids,
		reassemble:     !opts.DisableReassembly,
		logAuthPackets: opts.LogAuthPackets,
		logger: base.With().
			Str("com", "rcon").
			Str("session", sessionID).
			Str("server", nc.RemoteAddr().String()).
			Logger(),
	}
	c.state.Store(int32(StateUnauthenticated))

	c.logger.Debug().Msg("connected")
	return c
}

// SessionID returns the unique id used to tag this connection's log lines.
func (c *Conn) SessionID() string {
	return c.sessionID
}

// RemoteAddr returns the server address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// State returns the current session state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Close releases the socket. It is safe to call more than once and from any
// goroutine; a request blocked on the socket fails with a transport error.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		c.closeErr = c.nc.Close()
		c.logger.Debug().Msg("connection closed")
	})
	return c.closeErr
}

// Send writes one complete frame.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable("write"); err != nil {
		return err
	}
	return c.send(ctx, frame)
}

// ReceiveFrame blocks until one complete frame has arrived and returns its
// bytes, size prefix included.
func (c *Conn) ReceiveFrame(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable("read"); err != nil {
		return nil, err
	}
	return c.receiveFrame(ctx)
}

func (c *Conn) send(ctx context.Context, frame []byte) error {
	stop := c.watch(ctx)
	defer stop()

	if err := c.nc.SetWriteDeadline(c.deadline(ctx)); err != nil {
		return c.classify(ctx, "write", err)
	}
	c.logFrame("sending packet", frame, true)
	if err := protocol.WriteFrame(c.nc, frame); err != nil {
		return c.classify(ctx, "write", err)
	}
	return nil
}

func (c *Conn) receiveFrame(ctx context.Context) ([]byte, error) {
	stop := c.watch(ctx)
	defer stop()

	if err := c.nc.SetReadDeadline(c.deadline(ctx)); err != nil {
		return nil, c.classify(ctx, "read", err)
	}
	frame, err := protocol.ReadFrame(c.nc)
	if err != nil {
		return nil, c.classify(ctx, "read", err)
	}
	c.logFrame("received packet", frame, false)
	return frame, nil
}

func (c *Conn) receive(ctx context.Context) (protocol.Packet, error) {
	frame, err := c.receiveFrame(ctx)
	if err != nil {
		return protocol.Packet{}, err
	}
	return protocol.Decode(frame)
}

// deadline is now + readTimeout, or the context deadline when that is earlier.
func (c *Conn) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.readTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// watch aborts blocked I/O when ctx is done.
func (c *Conn) watch(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		_ = c.nc.SetDeadline(aLongTimeAgo)
	})
}

func (c *Conn) classify(ctx context.Context, op string, err error) error {
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.Canceled):
		return &protocol.Error{Class: protocol.ClassTransport, Op: op, Err: fmt.Errorf("%w: %w", ctxErr, err)}
	case ctxErr != nil:
		return &protocol.Error{Class: protocol.ClassTimeout, Op: op, Err: fmt.Errorf("%w: %w", ctxErr, err)}
	}
	return protocol.Classify(op, err)
}

// usable reports an error when the connection can no longer carry requests.
// Callers hold c.mu.
func (c *Conn) usable(op string) error {
	if c.State() != StateClosed {
		return nil
	}
	if c.cause != nil {
		return &protocol.Error{Class: protocol.ClassTransport, Op: op, Err: fmt.Errorf("%w: %w", ErrClosed, c.cause)}
	}
	return &protocol.Error{Class: protocol.ClassTransport, Op: op, Err: ErrClosed}
}

// fail closes the connection after a request error and returns err.
// Callers hold c.mu.
func (c *Conn) fail(err error) error {
	c.cause = err
	c.logger.Debug().Err(err).Msg("closing connection after failed request")
	_ = c.Close()
	return err
}

// nextID draws a request id in [0, math.MaxInt32] that differs from avoid and
// from the pending probe trailer id. Callers hold c.mu.
func (c *Conn) nextID(avoid ...int32) int32 {
	taken := func(id int32) bool {
		if c.hasStale && id == c.staleID {
			return true
		}
		for _, a := range avoid {
			if id == a {
				return true
			}
		}
		return false
	}

	id := c.ids.NextID() & math.MaxInt32
	for attempts := 0; taken(id); attempts++ {
		if attempts < 8 {
			id = c.ids.NextID() & math.MaxInt32
		} else {
			id = (id + 1) & math.MaxInt32
		}
	}
	return id
}

// logFrame logs a frame at trace level. Outbound auth packets are scrubbed
// unless LogAuthPackets is set.
func (c *Conn) logFrame(msg string, frame []byte, outbound bool) {
	e := c.logger.Trace()
	if !e.Enabled() {
		return
	}

	if outbound && !c.logAuthPackets {
		if p, err := protocol.Decode(frame); err == nil && p.Kind == protocol.KindAuth {
			frame = protocol.AppendFrame(nil, p.Kind, p.ID, []byte("xxxxx"))
		}
	}

	e.Hex("packet", frame).Msg(msg)
}
