package config

import (
	"fmt"
	"time"
)

// Identity modes control how a connection's client name is resolved.
const (
	// IdentityPerMessage re-registers the clientname of every frame to the connection.
	IdentityPerMessage = "message"
	// IdentityPerConnection binds the first frame's clientname for the connection lifetime.
	IdentityPerConnection = "connection"
)

// Config holds server configuration values.
type Config struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	MaxFrameSize  int           `mapstructure:"max_frame_size" yaml:"max_frame_size"`
	OutboundQueue int           `mapstructure:"outbound_queue" yaml:"outbound_queue"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	RateLimit     int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	IdentityMode  string        `mapstructure:"identity_mode" yaml:"identity_mode"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":1078",
		HTTPAddr:          ":8080",
		LogLevel:          "info",
		LogFormat:         "console",
		MaxFrameSize:      64 * 1024,
		OutboundQueue:     64,
		WriteTimeout:      10 * time.Second,
		IdentityMode:      IdentityPerMessage,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.MaxFrameSize != 0 {
		c.MaxFrameSize = other.MaxFrameSize
	}
	if other.OutboundQueue != 0 {
		c.OutboundQueue = other.OutboundQueue
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.IdleTimeout != 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if other.RateLimit != 0 {
		c.RateLimit = other.RateLimit
	}
	if other.IdentityMode != "" {
		c.IdentityMode = other.IdentityMode
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max_frame_size must be positive, got %d", c.MaxFrameSize)
	}
	if c.OutboundQueue <= 0 {
		return fmt.Errorf("outbound_queue must be positive, got %d", c.OutboundQueue)
	}
	if c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %d", c.RateLimit)
	}
	switch c.IdentityMode {
	case IdentityPerMessage, IdentityPerConnection:
	default:
		return fmt.Errorf("identity_mode must be %q or %q, got %q", IdentityPerMessage, IdentityPerConnection, c.IdentityMode)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}
