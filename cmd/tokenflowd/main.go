package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tokenflow/config"
	"tokenflow/core"
	"tokenflow/core/events"
	"tokenflow/core/genesis"
	"tokenflow/observability/logging"
	"tokenflow/observability/otel"
	"tokenflow/rpc"
	"tokenflow/storage"
	"tokenflow/storage/eventstore"
)

const (
	genesisPathEnv = "TOKENFLOW_GENESIS"
	envNameEnv     = "TOKENFLOW_ENV"
	serviceVersion = "0.1.0"
)

type options struct {
	configPath   string
	genesisPath  string
	allowMigrate bool
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON file (overrides TOKENFLOW_GENESIS and config GenesisFile)")
	allowMigrateFlag := flag.Bool("allow-migrate", false, "Allow starting with a mismatched state schema (manual migrations only)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{configPath: *configFile, genesisPath: *genesisFlag, allowMigrate: *allowMigrateFlag}, nil); err != nil {
		fmt.Fprintf(os.Stderr, "tokenflowd: %v\n", err)
		os.Exit(1)
	}
}

// run starts the daemon and blocks until ctx is cancelled. ready, when not
// nil, receives the RPC address once the listener accepts connections.
func run(ctx context.Context, opts options, ready chan<- string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if env := strings.TrimSpace(os.Getenv(envNameEnv)); env != "" {
		cfg.Environment = env
	}

	logger, logCloser := logging.Setup(logging.Options{
		Service:    cfg.Telemetry.ServiceName,
		Env:        cfg.Environment,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logCloser.Close()

	shutdownTelemetry, err := otel.Init(ctx, otel.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Metrics:        cfg.Telemetry.Enabled,
		Traces:         cfg.Telemetry.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	genesisPath, err := resolveGenesisPath(opts.genesisPath, cfg.GenesisFile, os.LookupEnv)
	if err != nil {
		return err
	}
	var gen *core.Genesis
	if genesisPath != "" {
		gen, err = genesis.Load(genesisPath)
		if err != nil {
			return fmt.Errorf("load genesis: %w", err)
		}
	}

	db, err := storage.NewLevelDB(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}

	var archive *eventstore.Store
	econOpts := []core.Option{
		core.WithLogger(logger),
		core.WithPauses(cfg.Pauses),
		core.WithAllowMigrate(cfg.AllowMigrate || opts.allowMigrate),
	}
	if cfg.EventStore.Driver != "" {
		archive, err = eventstore.Open(cfg.EventStore.Driver, cfg.EventStore.DSN, logger)
		if err != nil {
			db.Close()
			return fmt.Errorf("open event archive: %w", err)
		}
		defer archive.Close()
		econOpts = append(econOpts, core.WithEmitter(events.Multi(archive, logEmitter{logger})))
	} else {
		econOpts = append(econOpts, core.WithEmitter(logEmitter{logger}))
	}

	econ, err := core.New(db, gen, econOpts...)
	if err != nil {
		db.Close()
		return fmt.Errorf("open economy: %w", err)
	}
	defer econ.Close()

	root, height := econ.Head()
	logger.Info("economy ready", slog.Uint64("height", height), slog.String("root", root.Hex()))

	secret := cfg.JWTSecret()
	if secret == "" {
		logger.Warn("no RPC signing secret configured; mutating calls will be rejected",
			slog.String("env", cfg.RPC.JWTSecretEnv))
	}
	serverCfg := rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			HMACSecret: secret,
			Issuer:     cfg.RPC.Issuer,
			Audience:   cfg.RPC.Audience,
		},
		RateLimit: rpc.RateLimitConfig{
			PerSecond: cfg.RPC.RateLimitPerSecond,
			Burst:     cfg.RPC.Burst,
		},
		TrustProxyHeaders: cfg.RPC.TrustProxyHeaders,
		TrustedProxies:    append([]string{}, cfg.RPC.TrustedProxies...),
		ReadHeaderTimeout: time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
		Logger:            logger,
	}
	var server *rpc.Server
	if archive != nil {
		server = rpc.NewServer(econ, archive, serverCfg)
	} else {
		server = rpc.NewServer(econ, nil, serverCfg)
	}

	listener, err := net.Listen("tcp", cfg.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.RPCAddress, err)
	}
	rpcErrCh := make(chan error, 1)
	go func() {
		rpcErrCh <- server.Serve(listener)
		close(rpcErrCh)
	}()
	addr := listener.Addr().String()
	if err := waitForRPCStartup(addr, rpcErrCh, 5*time.Second); err != nil {
		return fmt.Errorf("rpc startup: %w", err)
	}
	if ready != nil {
		ready <- addr
	}

	select {
	case <-ctx.Done():
	case err, ok := <-rpcErrCh:
		if ok && err != nil {
			return fmt.Errorf("rpc server terminated: %w", err)
		}
		return errors.New("rpc server terminated")
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// logEmitter writes committed notifications to the process log.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	attrs := make([]any, 0, len(payload.Attributes)+1)
	attrs = append(attrs, slog.String("type", payload.Type))
	for key, value := range payload.Attributes {
		attrs = append(attrs, logging.MaskField(key, value))
	}
	l.logger.Debug("event", attrs...)
}

type envLookupFunc func(string) (string, bool)

func resolveGenesisPath(cliPath string, cfgPath string, lookup envLookupFunc) (string, error) {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed, nil
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed, nil
			}
		}
	}
	return strings.TrimSpace(cfgPath), nil
}

func waitForRPCStartup(addr string, errCh <-chan error, timeout time.Duration) error {
	dialAddr := dialAddressFor(addr)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("tcp", dialAddr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case err, ok := <-errCh:
			if !ok || err == nil {
				return fmt.Errorf("RPC server exited before startup confirmation")
			}
			return err
		case <-ticker.C:
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for RPC server to start on %s", addr)
		}
	}
}

func dialAddressFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
