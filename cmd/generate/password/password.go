package password

import (
	"bytes"
	"fmt"
	"os"

	"github.com/Mmx233/rcon/config"
	"github.com/Mmx233/rcon/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	outputPath string
	force      bool

	Cmd = &cobra.Command{
		Use:   "password",
		Short: "Generate an age-encrypted password file",
		Long: "Prompt for the RCON password and a passphrase, then write the password encrypted with the passphrase.\n" +
			"Point password_file at the result; the passphrase is read from " + config.EnvPrefix + "PASSPHRASE or prompted for.",
		Args: cobra.NoArgs,
		RunE: runGenerate,
	}
)

func init() {
	Cmd.Flags().StringVarP(&outputPath, "output", "o", "rcon-password"+config.EncryptedSuffix, "output file path")
	Cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "generate").Logger()

	if !tools.StdinIsTerminal() {
		return fmt.Errorf("password generation needs an interactive terminal")
	}

	password, err := tools.ReadNewSecret("RCON password")
	if err != nil {
		return err
	}
	passphrase, err := tools.ReadNewSecret("Passphrase")
	if err != nil {
		return err
	}

	if err := writePasswordFile(outputPath, password, passphrase, force); err != nil {
		return err
	}

	logger.Info().Str("file", outputPath).Msg("generated encrypted password file")
	return nil
}

// writePasswordFile encrypts password for passphrase and writes it to path
// with owner-only permissions.
func writePasswordFile(path, password, passphrase string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s", path)
		}
	}

	var encrypted bytes.Buffer
	if err := config.EncryptPassword(&encrypted, password, passphrase); err != nil {
		return err
	}

	if err := os.WriteFile(path, encrypted.Bytes(), 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
