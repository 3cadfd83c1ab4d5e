package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"nilor/internal/config"
	"nilor/internal/domain"
	"nilor/internal/handler"
	"nilor/internal/hub"
	"nilor/internal/live"
	"nilor/internal/metrics"
	"nilor/internal/repository"
	"nilor/internal/repository/file"
	"nilor/internal/repository/memory"
	"nilor/internal/repository/sqlite"
	"nilor/internal/service"
	"nilor/internal/watcher"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveOptions struct {
	configPath string
	addr       string
	backend    string
	path       string
	watch      string
	seed       uint64
	sample     bool
}

func newServeCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editor server",
		Long: `Loads the autosaved graph (or starts from the sample graph), then serves
the REST API, the /events stream, the /live websocket and /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	bindServeFlags(cmd, &opts)

	return cmd
}

func bindServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: search $NILOR_CONFIG, ./nilor.yaml, ~/.config/nilor)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&opts.backend, "storage", "", "Autosave backend: sqlite, file or memory")
	cmd.Flags().StringVar(&opts.path, "path", "", "Autosave database or file path")
	cmd.Flags().StringVar(&opts.watch, "watch", "", "Re-import this graph document whenever it changes")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Seed for generated ids, colors and positions (0 uses the clock)")
	cmd.Flags().BoolVar(&opts.sample, "sample", true, "Start from the sample graph when there is no autosave")
}

// loadServeConfig reads the config file and lays explicitly set flags over it
func loadServeConfig(cmd *cobra.Command, opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, _, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = opts.addr
	}
	if flags.Changed("storage") {
		cfg.Storage.Backend = opts.backend
		if !flags.Changed("path") {
			cfg.Storage.Path = ""
		}
	}
	if flags.Changed("path") {
		cfg.Storage.Path = opts.path
	}
	if flags.Changed("watch") {
		cfg.Editor.WatchFile = opts.watch
	}
	if flags.Changed("seed") {
		cfg.Editor.Seed = opts.seed
	}
	if flags.Changed("sample") {
		cfg.Editor.SampleGraph = opts.sample
	}

	// Re-run defaults so a backend switch picks up that backend's path
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	if err := checkWatchTarget(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkWatchTarget rejects watching the file backend's own autosave, which
// would reload every save
func checkWatchTarget(cfg *config.Config) error {
	if cfg.Editor.WatchFile == "" || cfg.Storage.Backend != config.BackendFile {
		return nil
	}
	watch, err := filepath.Abs(cfg.Editor.WatchFile)
	if err != nil {
		return err
	}
	store, err := filepath.Abs(cfg.Storage.Path)
	if err != nil {
		return err
	}
	if watch == store {
		return fmt.Errorf("cannot watch %s: it is the autosave file", cfg.Editor.WatchFile)
	}
	return nil
}

func openStore(cfg config.StorageConfig) (repository.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := sqlite.NewWithKey(cfg.Path, cfg.Key)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendFile:
		store, err := file.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func newGenerator(seed uint64) domain.Generator {
	if seed == 0 {
		return domain.NewTimeSeededGenerator()
	}
	return domain.NewRandomGenerator(seed)
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting nilor", zap.String("version", version), zap.String("config", cfg.Summary()))

	store, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	collector := metrics.NewCollector("nilor")
	eventBus := service.NewEventBus()

	opts := []service.Option{
		service.WithGenerator(newGenerator(cfg.Editor.Seed)),
		service.WithMetrics(collector),
		service.WithLogger(logger.Named("editor")),
	}
	if cfg.Editor.SampleGraph {
		opts = append(opts, service.WithSampleGraph())
	}
	editor := service.NewEditor(store, eventBus, opts...)

	// A broken autosave is not fatal: the session starts from the initial graph
	if err := editor.Load(ctx); err != nil {
		logger.Warn("starting without autosave", zap.Error(err))
	}

	// SSE hub
	sseHub := hub.New(logger.Named("hub"), cfg.Server.KeepAlive.Duration())
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	defer eventBus.Unsubscribe(eventChan)
	go func() {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(event)
			case <-ctx.Done():
				return
			}
		}
	}()

	if cfg.Editor.WatchFile != "" {
		reload := watcher.NewReloader(ctx, editor, cfg.Editor.WatchFile, logger.Named("watcher"))
		w := watcher.New(cfg.Editor.WatchFile, reload).WithLogger(logger.Named("watcher"))
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("file watch stopped", zap.Error(err))
			}
		}()
	}

	router := handler.NewRouter(handler.RouterConfig{
		Editor:         editor,
		Logger:         logger.Named("http"),
		Metrics:        collector,
		Events:         sseHub,
		Live:           live.NewServer(editor, logger.Named("live"), cfg.Server.AllowedOrigins),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// WriteTimeout stays unset: /events and /live hold their connections open
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}
