package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/deployconf/internal/config"
	"github.com/pendergraft/deployconf/internal/netconfig"
	"github.com/pendergraft/deployconf/internal/observability/metrics"
	"github.com/pendergraft/deployconf/internal/server"
	"github.com/pendergraft/deployconf/internal/storage"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "deployconf-server",
		Short:   "deployconf server - read-only HTTP view of deployment network config",
		Version: version,
	}

	// Default behavior (no subcommand) is to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe()
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSnapshotsCmd())
	rootCmd.AddCommand(newResolutionsCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

The network config is read from DEPLOYCONF_FILE, or from the first of
deployconf.toml, deployconf.yaml or deployconf.yml in the working directory.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newSnapshotsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List recorded config snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotsList(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of snapshots to show")
	return cmd
}

func newResolutionsCmd() *cobra.Command {
	var network string
	var limit int

	cmd := &cobra.Command{
		Use:   "resolutions",
		Short: "List the network resolution audit log",
		Long: `List the network resolution audit log, newest first.

EXAMPLES:
  deployconf-server resolutions
  deployconf-server resolutions --network sepolia --limit 100
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolutionsList(network, limit)
		},
	}

	cmd.Flags().StringVar(&network, "network", "", "only show resolutions of this network")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries to show")
	return cmd
}

// openStore opens and migrates the configured store with a quiet logger
func openStore(ctx context.Context) (storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.New(cfg.Storage, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return store, nil
}

func runSnapshotsList(limit int) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	snapshots, err := store.ListSnapshots(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots recorded")
		fmt.Println()
		fmt.Println("Snapshots are recorded each time deployconf-server starts with a new config.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPILER\tNETWORKS\tSOURCE\tCREATED")
	for _, s := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", shortID(s.ID), s.CompilerVersion, len(s.Networks), s.Source, s.CreatedAt)
	}
	return w.Flush()
}

func runResolutionsList(network string, limit int) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	resolutions, err := store.ListResolutions(ctx, storage.ResolutionFilter{Network: network, Limit: limit})
	if err != nil {
		return fmt.Errorf("listing resolutions: %w", err)
	}

	if len(resolutions) == 0 {
		fmt.Println("No resolutions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tCLIENT\tSNAPSHOT\tREQUEST\tCREATED")
	for _, r := range resolutions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Network, r.ClientIP, shortID(r.SnapshotID), r.RequestID, r.CreatedAt)
	}
	return w.Flush()
}

// shortID truncates an ID for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	if id == "" {
		return "-"
	}
	return id
}

// Server command

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg)
	logger.Info("starting deployconf-server", "version", version)

	metrics.Init(cfg.Metrics.Enabled, "deployconf-server")

	// Load the network config once; it is immutable for the server's lifetime
	path, data, networks, err := loadNetworks(cfg.Source.Path)
	if err != nil {
		return err
	}
	logger.Info("network config loaded",
		"source", path,
		"compiler_version", networks.CompilerVersion(),
		"networks", networks.Len(),
	)
	for name, verr := range networks.ValidateAll() {
		// Invalid profiles are reported on resolution, not at startup
		logger.Warn("network profile is invalid", "network", name, "error", verr)
	}

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	snap, err := store.RecordSnapshot(context.Background(), &storage.Snapshot{
		ContentHash:     storage.ContentHash(data),
		CompilerVersion: networks.CompilerVersion(),
		Networks:        networks.Names(),
		Source:          path,
	})
	if err != nil {
		metrics.SnapshotRecord("error")
		return fmt.Errorf("recording snapshot: %w", err)
	}
	metrics.SnapshotRecord("ok")
	logger.Info("config snapshot recorded", "snapshot_id", snap.ID, "content_hash", snap.ContentHash)

	srv := server.New(cfg, networks, store, snap.ID, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler:           srv.MetricsHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	errChan := make(chan error, 2)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	if metricsServer != nil {
		go func() {
			logger.Info("metrics listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// loadNetworks reads the config source and returns its path, raw bytes and
// the loaded store. An empty path searches the working directory.
func loadNetworks(path string) (string, []byte, *netconfig.Store, error) {
	if path == "" {
		found, err := netconfig.FindFile(".")
		if err != nil {
			return "", nil, nil, fmt.Errorf("no network config found (set DEPLOYCONF_FILE or add one of %v): %w", netconfig.DefaultFiles, err)
		}
		path = found
	}

	format, err := netconfig.FormatFromPath(path)
	if err != nil {
		return "", nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, nil, fmt.Errorf("reading network config: %w", err)
	}

	networks, err := netconfig.LoadBytes(data, format)
	if err != nil {
		return "", nil, nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return path, data, networks, nil
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
