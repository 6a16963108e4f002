package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/Mmx233/rcon/tools"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file and unmarshals it into the specified type.
// T must be a struct type that can be unmarshaled from YAML.
func LoadConfig[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// LoadClientConfig reads a client YAML configuration file, applies RCON_*
// environment overrides and defaults, resolves the password file and validates.
// An encrypted password file without RCON_PASSPHRASE is left unresolved so the
// caller can prompt for the passphrase.
func LoadClientConfig(path string) (*Client, error) {
	logger := log.With().Str("com", "config-loader").Logger()

	cfg, err := LoadConfig[Client](path)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client configuration validation failed: %w", err)
	}

	err = cfg.ResolvePassword(os.Getenv(EnvPrefix + "PASSPHRASE"))
	if errors.Is(err, ErrPassphraseRequired) {
		logger.Debug().Str("file", cfg.PasswordFile).Msg("password file is encrypted, passphrase not provided")
	} else if err != nil {
		return nil, err
	}

	logger.Debug().Str("server", cfg.Server.Address()).Msg("loaded client configuration")

	return cfg, nil
}

// ApplyEnv overrides fields from RCON_HOST, RCON_PORT and RCON_PASSWORD.
func (c *Client) ApplyEnv() error {
	c.Server.Host = tools.GetenvDefault(EnvPrefix+"HOST", c.Server.Host)
	c.Password = tools.GetenvDefault(EnvPrefix+"PASSWORD", c.Password)

	if port := os.Getenv(EnvPrefix + "PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid %sPORT %q: %w", EnvPrefix, port, err)
		}
		c.Server.Port = p
	}

	return nil
}
