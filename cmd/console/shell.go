package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mmx233/rcon/client"
	"github.com/Mmx233/rcon/config"
	"github.com/Mmx233/rcon/tools"
	"github.com/ergochat/readline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	historyFileName = ".rcon_history"
	historySize     = 500
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive RCON session",
	Long:  "Read commands line by line and print each response. Type exit or quit, or press Ctrl-D, to leave.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	editor := newLineEditor(cmd.InOrStdin())
	defer editor.Close()

	return shellLoop(context.Background(), cfg, editor, cmd.OutOrStdout())
}

// lineReader yields input lines until io.EOF.
type lineReader interface {
	ReadLine(prompt string) (string, error)
}

// shellLoop executes lines from in until EOF or an exit command. A
// connection lost to a failed request is reopened on the next line.
func shellLoop(ctx context.Context, cfg *config.Client, in lineReader, out io.Writer) error {
	logger := log.With().Str("com", "shell").Logger()

	conn, err := client.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { conn.Close() }()

	prompt := cfg.Server.Address() + "> "
	for {
		line, err := in.ReadLine(prompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		command := strings.TrimSpace(line)
		switch command {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if conn.State() == client.StateClosed {
			logger.Info().Msg("reconnecting")
			reopened, err := client.Open(ctx, cfg)
			if err != nil {
				return err
			}
			conn = reopened
		}

		resp, err := conn.Execute(ctx, command)
		if err != nil {
			logger.Error().Err(err).Str("command", command).Msg("command failed")
			continue
		}
		if err := writeResponse(out, resp); err != nil {
			return err
		}
	}
}

// lineEditor reads with readline on a terminal and with a plain scanner
// otherwise.
type lineEditor struct {
	rl      *readline.Instance
	scanner *bufio.Scanner
}

func newLineEditor(in io.Reader) *lineEditor {
	if in != os.Stdin || !tools.StdinIsTerminal() {
		return &lineEditor{scanner: bufio.NewScanner(in)}
	}

	cfg := &readline.Config{
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, historyFileName)
	}

	rl, err := readline.NewFromConfig(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("readline unavailable, using basic input")
		return &lineEditor{scanner: bufio.NewScanner(in)}
	}
	return &lineEditor{rl: rl}
}

func (e *lineEditor) ReadLine(prompt string) (string, error) {
	if e.rl == nil {
		return e.scanLine()
	}

	e.rl.SetPrompt(prompt)
	line, err := e.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		e.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (e *lineEditor) scanLine() (string, error) {
	if !e.scanner.Scan() {
		if err := e.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return e.scanner.Text(), nil
}

func (e *lineEditor) Close() error {
	if e.rl != nil {
		return e.rl.Close()
	}
	return nil
}
