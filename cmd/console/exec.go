package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Mmx233/rcon/client"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	jsonOutput bool

	execCmd = &cobra.Command{
		Use:   "exec <command>...",
		Short: "Run commands on the server and print their output",
		Long:  "Run each argument as one command, in order, over a single authenticated connection.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExec,
	}
)

func init() {
	execCmd.Flags().BoolVar(&jsonOutput, "json", false, "print one JSON object per command")
}

// execResult is one line of --json output.
type execResult struct {
	Command  string `json:"command"`
	Response string `json:"response"`
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return client.WithConn(ctx, cfg, func(conn *client.Conn) error {
		return execCommands(ctx, conn, args, cmd.OutOrStdout(), jsonOutput)
	})
}

// execCommands runs commands in order and writes each response to w.
func execCommands(ctx context.Context, conn *client.Conn, commands []string, w io.Writer, asJSON bool) error {
	enc := json.NewEncoder(w)
	for _, command := range commands {
		resp, err := conn.Execute(ctx, command)
		if err != nil {
			return fmt.Errorf("execute %q: %w", command, err)
		}

		if asJSON {
			if err := enc.Encode(execResult{Command: command, Response: resp}); err != nil {
				return fmt.Errorf("encode response: %w", err)
			}
			continue
		}
		if err := writeResponse(w, resp); err != nil {
			return err
		}
	}
	return nil
}

// writeResponse prints resp, adding a newline if it lacks one.
func writeResponse(w io.Writer, resp string) error {
	if resp == "" {
		return nil
	}
	if !strings.HasSuffix(resp, "\n") {
		resp += "\n"
	}
	_, err := io.WriteString(w, resp)
	return err
}
