package client

import (
	"context"
	"fmt"

	"github.com/Mmx233/rcon/config"
)

// OptionsFromConfig maps a client configuration onto connection options.
func OptionsFromConfig(conf *config.Client) Options {
	return Options{
		ReadTimeout:       conf.ReadTimeout,
		DialTimeout:       conf.DialTimeout,
		DisableReassembly: !conf.ReassembleEnabled(),
		LogAuthPackets:    conf.LogAuthPackets,
	}
}

// Open dials the configured server and authenticates. The connection is
// closed again if authentication fails.
func Open(ctx context.Context, conf *config.Client) (*Conn, error) {
	// Apply defaults to ensure all required fields have values
	conf.ApplyDefaults()

	conn, err := Dial(ctx, conf.Server.Host, conf.Server.Port, OptionsFromConfig(conf))
	if err != nil {
		return nil, err
	}

	if err := conn.Authenticate(ctx, conf.Password); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// WithConn opens an authenticated connection, passes it to fn and closes it
// on every exit path, including a panic in fn.
func WithConn(ctx context.Context, conf *config.Client, fn func(*Conn) error) (err error) {
	conn, err := Open(ctx, conf)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close connection: %w", closeErr)
		}
	}()

	return fn(conn)
}
