// Command oracleschema-mcpd runs the Oracle schema-context MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oracleschema/mcp-server/internal/apperr"
	"github.com/oracleschema/mcp-server/internal/cache"
	"github.com/oracleschema/mcp-server/internal/config"
	"github.com/oracleschema/mcp-server/internal/connector"
	"github.com/oracleschema/mcp-server/internal/engine"
	"github.com/oracleschema/mcp-server/internal/logging"
	"github.com/oracleschema/mcp-server/internal/mcpserver"
)

const (
	serverName    = "oracleschema-mcpd"
	serverVersion = "0.1.0"

	// staleProbeInterval is the periodic MAX(LAST_DDL_TIME) check named in
	// spec.md §4.2's staleness policy; at most once every 5 minutes.
	staleProbeInterval = 5 * time.Minute
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	var development bool

	root := &cobra.Command{
		Use:   serverName,
		Short: "Schema-context MCP server for large Oracle databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), development)
		},
	}
	root.PersistentFlags().BoolVar(&development, "dev", false, "enable development-mode logging")

	root.AddCommand(newServeCmd(&development))
	root.AddCommand(newRebuildCacheCmd(&development))
	root.AddCommand(newInspectCmd(&development))
	return root
}

func newServeCmd(development *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *development)
		},
	}
}

func newRebuildCacheCmd(development *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-cache",
		Short: "Force a full catalog sweep and persist the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuildCache(cmd.Context(), *development)
		},
	}
}

func newInspectCmd(development *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print database vendor info and cache directory/fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), *development)
		},
	}
}

func bootstrap(ctx context.Context, development bool) (*config.Config, *connector.Connector, *cache.Cache, func(), error) {
	logger, err := logging.New(logging.Options{Development: development})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", zap.Error(err))
		return nil, nil, nil, nil, err
	}
	logger.Info("configuration loaded",
		zap.String("connection", config.Redacted(cfg.OracleConnectionString)),
		zap.String("target_schema", cfg.TargetSchema),
		zap.Bool("thick_mode", cfg.ThickMode),
		zap.Int("pool_size", cfg.PoolSize),
	)

	conn, err := connector.New(ctx, connector.Config{
		ConnectionString:   cfg.OracleConnectionString,
		ThickMode:          cfg.ThickMode,
		OracleClientLibDir: cfg.OracleClientLibDir,
		PoolSize:           cfg.PoolSize,
		PoolAcquireTimeout: cfg.PoolAcquireTimeout,
	})
	if err != nil {
		logger.Error("connecting to oracle failed", zap.Error(err))
		return nil, nil, nil, nil, err
	}

	c := cache.New(cache.Config{TargetSchema: cfg.TargetSchema, CacheDir: cfg.CacheDir}, conn)

	cleanup := func() {
		if err := conn.Close(); err != nil {
			logger.Warn("closing connector", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return cfg, conn, c, cleanup, nil
}

func runServe(ctx context.Context, development bool) error {
	_, conn, c, cleanup, err := bootstrap(ctx, development)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := c.LoadOrBuild(ctx); err != nil {
		zap.L().Error("initial cache population failed", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runStaleProbe(ctx, c)

	eng := engine.New(c, conn)
	srv := mcpserver.New(serverName, serverVersion, eng)

	zap.L().Info("serving mcp over stdio")
	return srv.Serve(ctx)
}

func runRebuildCache(ctx context.Context, development bool) error {
	_, _, c, cleanup, err := bootstrap(ctx, development)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := c.Rebuild(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("rebuilt=%v duration_ms=%d tables=%d\n", stats.Built, stats.DurationMS, stats.Tables)
	return nil
}

func runInspect(ctx context.Context, development bool) error {
	cfg, conn, c, cleanup, err := bootstrap(ctx, development)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := c.LoadOrBuild(ctx); err != nil {
		return err
	}

	info, err := conn.SessionInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("product=%s version=%s schema=%s mode=%s\n", info.Product, info.VersionBanner, info.CurrentSchema, info.ConnectionMode)
	fmt.Printf("cache_dir=%s tables=%d fingerprint=%x\n", cfg.CacheDir, c.Size(), c.Fingerprint())
	return nil
}

// runStaleProbe periodically checks whether the live catalog's generation
// counter has moved past the cached fingerprint, per spec.md §4.2's
// staleness policy point (c). It does so by calling Rebuild, whose
// fingerprint check skips the sweep when nothing changed; when the
// generation has moved, Rebuild runs a full sweep and the probe logs it.
func runStaleProbe(ctx context.Context, c *cache.Cache) {
	ticker := time.NewTicker(staleProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := c.Rebuild(ctx)
			if err != nil {
				zap.L().Warn("staleness probe rebuild failed", zap.Error(err))
				continue
			}
			if stats.Built {
				zap.L().Info("staleness probe detected newer catalog generation, rebuilt",
					zap.Int("tables", stats.Tables), zap.Int64("duration_ms", stats.DurationMS))
			}
		}
	}
}

// exitCodeFor maps a top-level error to the process exit codes named in
// spec.md §6: 0 clean shutdown, 1 configuration error, 2 database
// unreachable at startup, 3 irrecoverable I/O error on the cache directory.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch apperr.KindOf(err) {
	case apperr.ConnectionError:
		return 2
	case apperr.CacheIOError:
		return 3
	case apperr.InvalidArgument:
		return 1
	default:
		return 1
	}
}
