package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/backup"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/drive"
)

const usage = `DittoDrive - virtual drive with periodic snapshot backups

Usage:
  dittodrive <command> [flags]

Commands:
  init    Write a default configuration file
  start   Restore the drive and run the backup scheduler

Run 'dittodrive <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	path := fs.String("config", "", "Write to this path instead of the default location")
	_ = fs.Parse(args)

	if *path != "" {
		if err := config.InitConfigToPath(*path, *force); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", *path)
		return nil
	}

	written, err := config.InitConfig(*force)
	if err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", written)
	return nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/dittodrive/config.yaml)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("DittoDrive starting: slot=%s object=%s interval=%s",
		cfg.Slot.Type, cfg.Object.Type, cfg.Backup.Interval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The scheduler does not exist yet when metrics are created; /healthz
	// reads it through this variable.
	var scheduler *backup.Scheduler
	var store *drive.Store
	metricsResult := config.InitializeMetrics(cfg, func() any {
		return healthStatus(scheduler, store)
	})

	localSlot, err := config.CreateSlot(ctx, &cfg.Slot)
	if err != nil {
		return err
	}
	defer func() {
		if err := localSlot.Close(); err != nil {
			logger.Error("Failed to close local slot: %v", err)
		}
	}()

	objects, err := config.CreateObjectStore(ctx, &cfg.Object, metricsResult.S3)
	if err != nil {
		return err
	}

	store = drive.New(drive.Config{Slot: localSlot})

	scheduler = backup.New(store, objects, backup.Config{
		Interval:        cfg.Backup.Interval,
		CycleTimeout:    cfg.Backup.CycleTimeout,
		Slot:            cfg.Backup.SlotID,
		DisplayName:     cfg.Backup.DisplayName,
		PublishInterval: cfg.Backup.PublishInterval,
		PublishBurst:    cfg.Backup.PublishBurst,
		Metrics:         metricsResult.Backup,
	})

	restoreCtx, restoreCancel := context.WithTimeout(ctx, cfg.Backup.CycleTimeout)
	outcome, err := scheduler.Restore(restoreCtx)
	restoreCancel()
	if err != nil {
		return fmt.Errorf("failed to initialize drive: %w", err)
	}
	st := store.Stats()
	logger.Info("Drive ready (%s): folders=%d files=%d trashed=%d", outcome, st.Folders, st.Files, st.Trashed)

	scheduler.Start()

	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("DittoDrive is running. Press Ctrl+C to stop.")
	sig := <-sigChan
	logger.Info("Received signal %s, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Backup scheduler did not stop cleanly: %v", err)
	}

	// Publish whatever is still dirty before exiting
	if store.Dirty() {
		if stats, err := scheduler.RunNow(shutdownCtx); err != nil {
			logger.Error("Final backup failed: %v", err)
		} else {
			logger.Info("Final backup completed: %s", stats.Summary())
		}
	}

	cancel()
	logger.Info("DittoDrive stopped")
	return nil
}

func healthStatus(scheduler *backup.Scheduler, store *drive.Store) any {
	status := map[string]any{"status": "starting"}
	if scheduler == nil || store == nil {
		return status
	}

	st := store.Stats()
	status["status"] = "ok"
	status["scheduler"] = scheduler.State().String()
	status["dirty"] = store.Dirty()
	status["folders"] = st.Folders
	status["files"] = st.Files
	status["trashed"] = st.Trashed
	return status
}
