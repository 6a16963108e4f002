package config

import (
	"fmt"
	"os"

	"github.com/Mmx233/rcon/examples"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	outputPath string

	Cmd = &cobra.Command{
		Use:   "config",
		Short: "Generate client configuration file",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
)

func init() {
	Cmd.Flags().StringVarP(&outputPath, "output", "o", "config.yaml", "output config file path")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "generate").Logger()

	if err := writeTemplate(outputPath); err != nil {
		return err
	}

	logger.Info().Str("file", outputPath).Msg("generated client configuration")
	return nil
}

// writeTemplate writes the embedded client template to path, refusing to
// overwrite an existing file.
func writeTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	}

	content, err := examples.ClientConfig()
	if err != nil {
		return fmt.Errorf("load client config template: %w", err)
	}

	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
