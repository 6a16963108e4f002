package client

import (
	"context"
	"strings"

	"github.com/Mmx233/rcon/protocol"
)

// Execute runs one command and returns its output.
//
// With reassembly enabled (the default) the command is followed on the wire by
// an empty RESPONSE_VALUE probe carrying a second id. Servers answer requests
// in order, so every frame carrying the command's id up to the probe's answer
// belongs to the output. With reassembly disabled only the first frame is
// read, which truncates outputs the server splits across frames.
//
// A frame carrying an id that belongs to neither request fails with
// protocol.ErrCorrelation.
func (c *Conn) Execute(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable("exec"); err != nil {
		return "", err
	}
	if c.State() != StateAuthenticated {
		return "", protocol.NewError(protocol.ClassAuthentication, "exec", "not authenticated")
	}

	rid := c.nextID()
	frame, err := protocol.Encode(protocol.KindExecCommand, rid, command)
	if err != nil {
		return "", err
	}

	if !c.reassemble {
		return c.executeSingle(ctx, rid, frame)
	}
	return c.executeReassembled(ctx, rid, frame)
}

// ExecuteAll runs commands in order and stops at the first error.
func (c *Conn) ExecuteAll(ctx context.Context, commands ...string) ([]string, error) {
	responses := make([]string, 0, len(commands))
	for _, command := range commands {
		resp, err := c.Execute(ctx, command)
		if err != nil {
			return responses, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (c *Conn) executeSingle(ctx context.Context, rid int32, frame []byte) (string, error) {
	if err := c.send(ctx, frame); err != nil {
		return "", c.fail(err)
	}

	resp, err := c.receive(ctx)
	if err != nil {
		return "", c.fail(err)
	}
	if err := checkResponse(resp, rid); err != nil {
		return "", c.fail(err)
	}

	return resp.Body, nil
}

func (c *Conn) executeReassembled(ctx context.Context, rid int32, frame []byte) (string, error) {
	pid := c.nextID(rid)
	probe, err := protocol.Encode(protocol.KindResponseValue, pid, "")
	if err != nil {
		return "", err
	}

	if err := c.send(ctx, append(frame, probe...)); err != nil {
		return "", c.fail(err)
	}

	var out strings.Builder
	frames := 0
	for {
		resp, err := c.receive(ctx)
		if err != nil {
			return "", c.fail(err)
		}

		switch {
		case resp.ID == rid:
			if err := checkResponse(resp, rid); err != nil {
				return "", c.fail(err)
			}
			out.WriteString(resp.Body)
			frames++

		case resp.ID == pid:
			// Source servers follow the probe's answer with a trailer frame
			// on the same id; it is discarded by the next request.
			c.staleID, c.hasStale = pid, true
			c.logger.Trace().Int32("request_id", rid).Int("frames", frames).Msg("response complete")
			return out.String(), nil

		case c.hasStale && resp.ID == c.staleID:
			c.logger.Trace().Int32("probe_id", resp.ID).Msg("discarding probe trailer")

		default:
			return "", c.fail(protocol.NewError(protocol.ClassCorrelation, "exec", "response id %d does not match request id %d", resp.ID, rid))
		}
	}
}

func checkResponse(resp protocol.Packet, rid int32) error {
	if resp.ID != rid {
		return protocol.NewError(protocol.ClassCorrelation, "exec", "response id %d does not match request id %d", resp.ID, rid)
	}
	if resp.Kind != protocol.KindResponseValue {
		return protocol.NewError(protocol.ClassCorrelation, "exec", "expected response value, got packet type %d", resp.Kind)
	}
	return nil
}
