package config

import (
	"time"

	"github.com/yndnr/respkv/internal/storage/memory"
)

// Default configuration values.
const (
	DefaultRESPAddr  = "127.0.0.1:6379"
	DefaultAdminAddr = "127.0.0.1:9121"

	DefaultSweepInterval = 100 * time.Millisecond
	DefaultSweepBatch    = memory.DefaultSweepBatch

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			RESP: RESPConfig{
				Addr: DefaultRESPAddr,
			},
			Admin: AdminConfig{
				Enabled:   true,
				Addr:      DefaultAdminAddr,
				WebSocket: true,
			},
		},
		Storage: StorageSection{
			SweepInterval: DefaultSweepInterval,
			SweepBatch:    DefaultSweepBatch,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
