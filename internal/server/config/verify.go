package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Verify validates the configuration. All problems are reported together.
func Verify(cfg *ServerConfig) error {
	var errs []error
	errs = append(errs, verifyServer(&cfg.Server)...)
	errs = append(errs, verifyStorage(&cfg.Storage)...)
	errs = append(errs, verifyLog(&cfg.Log)...)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func verifyServer(cfg *ServerSection) []error {
	var errs []error
	r := &cfg.RESP
	if err := verifyAddr(r.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.resp.addr: %w", err))
	}
	if r.ReadTimeout < 0 || r.WriteTimeout < 0 || r.IdleTimeout < 0 {
		errs = append(errs, errors.New("server.resp timeouts must not be negative"))
	}
	if r.RateLimit < 0 {
		errs = append(errs, errors.New("server.resp.rate_limit must not be negative"))
	}
	if r.RateBurst < 0 {
		errs = append(errs, errors.New("server.resp.rate_burst must not be negative"))
	}

	if cfg.Admin.Enabled {
		if err := verifyAddr(cfg.Admin.Addr); err != nil {
			errs = append(errs, fmt.Errorf("server.admin.addr: %w", err))
		} else if cfg.Admin.Addr == r.Addr {
			errs = append(errs, errors.New("server.admin.addr conflicts with server.resp.addr"))
		}
	}
	return errs
}

func verifyStorage(cfg *StorageSection) []error {
	var errs []error
	if cfg.SweepInterval <= 0 {
		errs = append(errs, errors.New("storage.sweep_interval must be positive"))
	}
	if cfg.SweepBatch < 1 {
		errs = append(errs, errors.New("storage.sweep_batch must be at least 1"))
	}
	return errs
}

func verifyLog(cfg *LogSection) []error {
	var errs []error
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console", "":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", cfg.Format))
	}
	return errs
}

func verifyAddr(addr string) error {
	if addr == "" {
		return errors.New("address is required")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if port == "" {
		return errors.New("port is required")
	}
	return nil
}
