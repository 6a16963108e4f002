package config

import "time"

// Default connection values
const (
	// DefaultHost is used when the configuration names no server host
	DefaultHost = "127.0.0.1"

	// DefaultPort is the conventional RCON port (Minecraft's rcon.port default)
	DefaultPort = 25575

	// DefaultReadTimeout bounds every blocking read and write on a connection
	DefaultReadTimeout = 5 * time.Second

	// DefaultDialTimeout bounds establishing the TCP connection
	DefaultDialTimeout = 5 * time.Second
)

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Client) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.Reassemble == nil {
		enabled := true
		c.Reassemble = &enabled
	}
}
