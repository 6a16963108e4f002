package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// EncryptedSuffix marks a password file as age-encrypted.
const EncryptedSuffix = ".age"

// ErrPassphraseRequired is returned when an encrypted password file is
// configured but no passphrase was supplied.
var ErrPassphraseRequired = errors.New("passphrase required for encrypted password file")

// scryptWorkFactor is the age scrypt cost used when encrypting.
var scryptWorkFactor = 18

// PasswordFileEncrypted reports whether the configured password file is age-encrypted.
func (c *Client) PasswordFileEncrypted() bool {
	return strings.HasSuffix(c.PasswordFile, EncryptedSuffix)
}

// ResolvePassword loads the password from PasswordFile when no inline
// password is set. The passphrase is only used for encrypted files.
func (c *Client) ResolvePassword(passphrase string) error {
	if c.Password != "" || c.PasswordFile == "" {
		return nil
	}

	var (
		password string
		err      error
	)
	if c.PasswordFileEncrypted() {
		if passphrase == "" {
			return ErrPassphraseRequired
		}
		password, err = LoadEncryptedPassword(c.PasswordFile, passphrase)
	} else {
		password, err = LoadPassword(c.PasswordFile)
	}
	if err != nil {
		return err
	}

	c.Password = password
	return nil
}

// LoadPassword reads a plain text password file. Surrounding whitespace is trimmed.
func LoadPassword(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadEncryptedPassword reads a password file encrypted with an age scrypt passphrase.
func LoadEncryptedPassword(path string, passphrase string) (string, error) {
	encData, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", fmt.Errorf("create identity: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(encData), identity)
	if err != nil {
		return "", fmt.Errorf("decrypt password file (wrong passphrase?): %w", err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read decrypted password: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

// EncryptPassword writes password to w, encrypted for passphrase.
func EncryptPassword(w io.Writer, password, passphrase string) error {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("create recipient: %w", err)
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	writer, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("create encryptor: %w", err)
	}
	if _, err := io.WriteString(writer, password); err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish encryption: %w", err)
	}
	return nil
}
