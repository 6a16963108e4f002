package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Mmx233/rcon/config"
	"github.com/Mmx233/rcon/protocol"
	"github.com/Mmx233/rcon/rcontest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testPassword = "hunter2"

var nopLogger = zerolog.Nop()

// startServer starts a fake server that is closed with the test.
func startServer(t *testing.T, conf rcontest.Config) *rcontest.Server {
	t.Helper()
	if conf.Password == "" {
		conf.Password = testPassword
	}
	if conf.Logger == nil {
		conf.Logger = &nopLogger
	}
	srv, err := rcontest.NewServer(conf)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

// dial connects to srv with quiet logging and the given options.
func dial(t *testing.T, srv *rcontest.Server, opts Options) *Conn {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = &nopLogger
	}
	conn, err := Dial(context.Background(), srv.Host, srv.Port, opts)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// dialAuthed connects to srv and authenticates.
func dialAuthed(t *testing.T, srv *rcontest.Server, opts Options) *Conn {
	t.Helper()
	conn := dial(t, srv, opts)
	require.NoError(t, conn.Authenticate(context.Background(), testPassword))
	return conn
}

// testConfig returns a client configuration pointing at srv.
func testConfig(srv *rcontest.Server) *config.Client {
	return &config.Client{
		Server:      config.Endpoint{Host: srv.Host, Port: srv.Port},
		Password:    testPassword,
		ReadTimeout: 2 * time.Second,
	}
}

// pipeConn returns a Conn over one end of a net.Pipe and runs script against
// the other end. The script goroutine is waited for at cleanup.
func pipeConn(t *testing.T, opts Options, script func(srv net.Conn)) *Conn {
	t.Helper()
	cli, srv := net.Pipe()
	if opts.Logger == nil {
		opts.Logger = &nopLogger
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 2 * time.Second
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer srv.Close()
		script(srv)
	}()

	conn := NewConn(cli, opts)
	t.Cleanup(func() {
		conn.Close()
		wg.Wait()
	})
	return conn
}

// reply writes one frame from a scripted server, ignoring errors caused by
// the client hanging up.
func reply(srv net.Conn, kind protocol.Kind, id int32, body string) {
	_ = protocol.WriteFrame(srv, protocol.AppendFrame(nil, kind, id, []byte(body)))
}

// acceptAuth reads the auth packet and accepts it.
func acceptAuth(srv net.Conn) (protocol.Packet, error) {
	p, err := protocol.ReadPacket(srv)
	if err != nil {
		return p, err
	}
	reply(srv, protocol.KindAuthResponse, p.ID, "")
	return p, nil
}
