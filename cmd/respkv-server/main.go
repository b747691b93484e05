package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/confloader"
	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/server/httpserver"
	"github.com/yndnr/respkv/internal/server/respserver"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// startupFlags are the command-line inputs to configuration.
// Precedence: Flag > Env > File > Default.
type startupFlags struct {
	configFile string
	envFile    string
	addr       string
	adminAddr  string
}

// overrides returns the flag values that replace loaded settings.
// Unset flags are empty and leave lower layers in place.
func (f startupFlags) overrides() map[string]any {
	return map[string]any{
		"server.resp.addr":  f.addr,
		"server.admin.addr": f.adminAddr,
	}
}

func run() error {
	var flags startupFlags
	flag.StringVar(&flags.configFile, "config", "", "Path to configuration file")
	flag.StringVar(&flags.envFile, "env-file", "", "Path to a dotenv file with RESPKV_ variables")
	flag.StringVar(&flags.addr, "addr", "", "RESP listen address (overrides server.resp.addr)")
	flag.StringVar(&flags.adminAddr, "admin-addr", "", "Admin HTTP listen address (overrides server.admin.addr)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("respkv-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogLogger := logger.Slog(log)

	log.Info("starting respkv-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", flags.configFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.New(memory.WithSweepBatch(cfg.Storage.SweepBatch))
	go store.RunExpiry(ctx, cfg.Storage.SweepInterval)

	registry := metric.NewRegistry()
	if err := registry.Register(metric.NewStoreCollector(store)); err != nil {
		return fmt.Errorf("register store metrics: %w", err)
	}

	respServer := respserver.New(cfg.RESPServerConfig(), store,
		respserver.WithLogger(slogLogger),
		respserver.WithMetrics(registry),
	)
	if err := respServer.Start(ctx); err != nil {
		return fmt.Errorf("start resp server: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout)

	// Hooks run in reverse order: admin first, then RESP, then expiry.
	shutdownHandler.OnShutdown(func(context.Context) error {
		cancel()
		return nil
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down RESP server")
		return respServer.Shutdown(ctx)
	})

	if cfg.Server.Admin.Enabled {
		adminServer := httpserver.New(cfg.Server.Admin.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Logger:    slogLogger,
			Metrics:   registry.Handler(),
			RESP:      respServer,
			WebSocket: cfg.Server.Admin.WebSocket,
		}))
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down admin server")
			return adminServer.Shutdown(ctx)
		})

		go func() {
			log.Info("admin server listening",
				"addr", cfg.Server.Admin.Addr,
				"websocket", cfg.Server.Admin.WebSocket)
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("admin server error", "error", err)
				shutdownHandler.Trigger()
			}
		}()
	}

	if flags.configFile != "" {
		watcher, err := watchConfig(flags, slogLogger)
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads defaults, then the config file, then the environment,
// then flag overrides.
func loadConfig(flags startupFlags) (*config.ServerConfig, error) {
	cfg := config.Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(flags.configFile),
		confloader.WithEnvFile(flags.envFile),
		confloader.WithOverrides(flags.overrides()),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	lc := cfg.LoggerConfig()
	lc.Output = os.Stdout
	log, err := logger.New(lc)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// watchConfig re-reads the config file on change. Only log.level is
// applied live; other settings need a restart.
func watchConfig(flags startupFlags, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(flags.configFile); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		reloadLogLevel(flags, log)
	})
	w.StartAsync()
	return w, nil
}

func reloadLogLevel(flags startupFlags, log *slog.Logger) {
	cfg, err := loadConfig(flags)
	if err != nil {
		log.Warn("ignoring invalid configuration change", "error", err)
		return
	}
	prev := logger.GetLevel()
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		log.Warn("ignoring log level change", "error", err)
		return
	}
	if now := logger.GetLevel(); now != prev {
		log.Info("log level changed", "from", prev, "to", now)
	}
}
