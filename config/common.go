package config

const (
	EnvPrefix = "RCON_"
)
