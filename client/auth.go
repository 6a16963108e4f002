package client

import (
	"context"

	"github.com/Mmx233/rcon/protocol"
)

// Authenticate performs the one-time password handshake. A rejected password
// is reported as protocol.ErrAuthentication; any other unexpected reply is
// protocol.ErrCorrelation. Either way the connection is closed.
func (c *Conn) Authenticate(ctx context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable("auth"); err != nil {
		return err
	}
	if c.State() != StateUnauthenticated {
		return protocol.NewError(protocol.ClassAuthentication, "auth", "already authenticated")
	}

	rid := c.nextID()
	frame, err := protocol.Encode(protocol.KindAuth, rid, password)
	if err != nil {
		return err
	}

	c.logger.Debug().Int32("request_id", rid).Msg("authenticating")

	if err := c.send(ctx, frame); err != nil {
		return c.fail(err)
	}

	resp, err := c.receive(ctx)
	if err != nil {
		return c.fail(err)
	}

	// Source servers send an empty RESPONSE_VALUE ahead of the AUTH_RESPONSE.
	if resp.Kind == protocol.KindResponseValue && resp.ID == rid && resp.Body == "" {
		if resp, err = c.receive(ctx); err != nil {
			return c.fail(err)
		}
	}

	switch {
	case resp.ID == -1:
		return c.fail(protocol.NewError(protocol.ClassAuthentication, "auth", "server rejected password"))
	case resp.Kind != protocol.KindAuthResponse:
		return c.fail(protocol.NewError(protocol.ClassCorrelation, "auth", "expected auth response, got packet type %d", resp.Kind))
	case resp.ID != rid:
		return c.fail(protocol.NewError(protocol.ClassCorrelation, "auth", "response id %d does not match request id %d", resp.ID, rid))
	}

	if !c.state.CompareAndSwap(int32(StateUnauthenticated), int32(StateAuthenticated)) {
		return c.usable("auth")
	}

	c.logger.Debug().Msg("authenticated")
	return nil
}
