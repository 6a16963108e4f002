package console

import (
	"errors"
	"fmt"

	"github.com/Mmx233/rcon/config"
	"github.com/Mmx233/rcon/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configFile = tools.GetenvDefault(config.EnvPrefix+"CONFIG", "config.yaml")

// Commands returns the commands that talk to a server.
func Commands() []*cobra.Command {
	return []*cobra.Command{execCmd, shellCmd}
}

func init() {
	for _, cmd := range Commands() {
		cmd.Flags().StringVarP(&configFile, "config", "c", configFile, "path of config file")
	}
}

// loadConfig loads the client configuration and asks for whatever secret is
// still missing when running on a terminal.
func loadConfig() (*config.Client, error) {
	logger := log.With().Str("com", "console").Logger()

	logger.Debug().Str("config", configFile).Msg("loading configuration")
	cfg, err := config.LoadClientConfig(configFile)
	if err != nil {
		return nil, err
	}

	if cfg.Password != "" {
		return cfg, nil
	}
	if !tools.StdinIsTerminal() {
		if cfg.PasswordFile != "" {
			return nil, fmt.Errorf("%w: set %sPASSPHRASE", config.ErrPassphraseRequired, config.EnvPrefix)
		}
		return nil, errors.New("no password configured")
	}

	if cfg.PasswordFileEncrypted() {
		passphrase, err := tools.ReadSecret("Passphrase for " + cfg.PasswordFile + ": ")
		if err != nil {
			return nil, err
		}
		if err := cfg.ResolvePassword(passphrase); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg.Password, err = tools.ReadSecret("RCON password: ")
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
