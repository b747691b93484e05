package config

import (
	"time"

	"github.com/yndnr/respkv/internal/server/respserver"
	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	RESP  RESPConfig  `koanf:"resp"`
	Admin AdminConfig `koanf:"admin"`
}

// RESPConfig configures the RESP protocol listener.
type RESPConfig struct {
	Addr string `koanf:"addr"`

	// Timeouts are disabled when zero.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RateLimit is commands per second per client IP; zero disables it.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// AdminConfig configures the admin HTTP server.
type AdminConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Addr      string `koanf:"addr"`
	WebSocket bool   `koanf:"websocket"`
}

// StorageSection configures the in-memory store.
type StorageSection struct {
	// SweepInterval is the period of the active expiry sweep.
	SweepInterval time.Duration `koanf:"sweep_interval"`
	// SweepBatch caps the keys removed by one sweep pass.
	SweepBatch int `koanf:"sweep_batch"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// RESPServerConfig converts the RESP section to the listener configuration.
func (c *ServerConfig) RESPServerConfig() *respserver.Config {
	return &respserver.Config{
		Address:      c.Server.RESP.Addr,
		ReadTimeout:  c.Server.RESP.ReadTimeout,
		WriteTimeout: c.Server.RESP.WriteTimeout,
		IdleTimeout:  c.Server.RESP.IdleTimeout,
		RateLimit:    c.Server.RESP.RateLimit,
		RateBurst:    c.Server.RESP.RateBurst,
	}
}

// LoggerConfig converts the log section to a logger configuration.
func (c *ServerConfig) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}
