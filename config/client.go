package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

type Client struct {
	Server       Endpoint      `yaml:"server"`
	Password     string        `yaml:"password"`
	PasswordFile string        `yaml:"password_file"` // plain text, or age-encrypted when ending in .age
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default 5s
	DialTimeout  time.Duration `yaml:"dial_timeout"`  // default 5s

	// Reassemble enables multi-packet response reassembly, default true.
	Reassemble *bool `yaml:"reassemble"`

	// LogAuthPackets includes the plaintext password in trace packet logs.
	LogAuthPackets bool `yaml:"log_auth_packets"`
}

// Endpoint is the RCON server to connect to
type Endpoint struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns the endpoint in host:port form.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ReassembleEnabled reports whether multi-packet reassembly is on.
func (c *Client) ReassembleEnabled() bool {
	return c.Reassemble == nil || *c.Reassemble
}

// ValidateAddress validates that an address is in valid host:port format.
// Returns an error if the address is invalid.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format %q: %w", addr, err)
	}

	if host == "" {
		return fmt.Errorf("host cannot be empty in address %q", addr)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in address %q: %w", addr, err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d in address %q", port, addr)
	}

	return nil
}

// Validate checks the endpoint and the timeouts.
func (c *Client) Validate() error {
	if err := ValidateAddress(c.Server.Address()); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout cannot be negative, got %v", c.ReadTimeout)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("dial_timeout cannot be negative, got %v", c.DialTimeout)
	}
	return nil
}
