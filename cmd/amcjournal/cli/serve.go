package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"amcjournal/internal/api"
	"amcjournal/internal/jobstore"
	"amcjournal/internal/journal"
	"amcjournal/internal/journal/sqlitesink"
	"amcjournal/internal/journalcfg"
	"amcjournal/internal/logging"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the journal server and its read-only HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	filter := logging.NewComponentFilterHandler(slog.NewTextHandler(os.Stderr, nil), slog.LevelInfo)
	logger := slog.New(filter)

	cfg, err := journalcfg.Load(configPath)
	if err != nil {
		logger.Warn("config file not found, using defaults", "path", configPath, "error", err)
		cfg = journalcfg.Config{}.WithDefaults()
	}
	applied := applyLogLevels(filter, logger, nil, cfg.LogLevels)

	watcher, err := journalcfg.Watch(configPath, func(newCfg journalcfg.Config) {
		applied = applyLogLevels(filter, logger, applied, newCfg.LogLevels)
	})
	if err != nil {
		logger.Warn("config file watch failed, verbosity changes require a restart", "path", configPath, "error", err)
	} else {
		defer watcher.Close()
	}

	if err := os.MkdirAll(cfg.StorageRoot, 0o755); err != nil {
		return fmt.Errorf("create storage root %s: %w", cfg.StorageRoot, err)
	}

	sink, err := sqlitesink.Open(
		filepath.Join(cfg.StorageRoot, "chunk_index.db"),
		filepath.Join(cfg.StorageRoot, "chunks.dat"),
	)
	if err != nil {
		return fmt.Errorf("open persistence sink: %w", err)
	}
	// Ownership of sink transfers to ctrl once journal.New succeeds below
	// (ctrl.Close() closes it in turn); until then this is the only ref.
	sinkOwned := true
	defer func() {
		if sinkOwned {
			sink.Close()
		}
	}()

	jobs, err := jobstore.Open(filepath.Join(cfg.StorageRoot, "jobs.db"))
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer jobs.Close()

	ctrl, err := journal.New(journal.Config{
		MaxChunkBytes:      cfg.MaxChunkBytes,
		MaxChunkAge:        cfg.MaxChunkAge,
		MaxBufferedChunks:  cfg.MaxBufferedChunks,
		FinishDrainTimeout: cfg.FinishDrainTimeout,
		Sink:               sink,
	}, logger)
	if err != nil {
		return fmt.Errorf("construct journal controller: %w", err)
	}
	sinkOwned = false
	defer ctrl.Close()

	// Driver SDK loading is out of scope for this binary: a real deployment
	// wires concrete driver.Driver values in here, letting them register
	// variables while the controller is still Configuring, before this
	// call. With none wired, recording starts against an empty registry.
	if err := ctrl.StartRecording(); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	srv := api.New(ctrl, jobs, ctrl.VariableNames, logger)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Routes()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.FinishDrainTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}
	if err := ctrl.FinishRecording(shutdownCtx); err != nil {
		logger.Warn("finish recording error", "error", err)
	}
	return nil
}

// applyLogLevels reconciles filter's per-component levels against the
// latest config, clearing components that dropped out of levels since the
// previous call and setting the rest, so a config file edit can raise or
// lower one component's verbosity without restarting the process. It
// returns the set of components now configured, for the next call.
func applyLogLevels(filter *logging.ComponentFilterHandler, logger *slog.Logger, previous []string, levels map[string]string) []string {
	for _, component := range previous {
		if _, ok := levels[component]; !ok {
			filter.ClearLevel(component)
		}
	}

	current := make([]string, 0, len(levels))
	for component, name := range levels {
		level, err := journalcfg.ParseLevel(name)
		if err != nil {
			logger.Warn("ignoring log level", "component", component, "error", err)
			continue
		}
		filter.SetLevel(component, level)
		current = append(current, component)
	}
	return current
}
