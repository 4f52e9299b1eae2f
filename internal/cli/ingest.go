package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/pipeline"
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion and emit the resulting table",
		Long: `Run one ingestion from the configured source and hand the table to the
enabled emitters.

With --watch the ingestion is repeated whenever the config file changes or
the process receives SIGHUP, until SIGINT or SIGTERM.`,
		Example: `  flowbase ingest --source local --file ./data.csv --format csv
  flowbase ingest --source api --enable --url https://example.com/items
  flowbase ingest --source s3 --enable --bucket raw --prefix 2026/ --output rows.ndjson`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
	}

	// Source flags
	cmd.Flags().String("source", "", "source type (s3, local, api)")
	cmd.Flags().String("mode", "", "failure handling (compat, strict)")
	cmd.Flags().Bool("enable", false, "set ingestion.enabled (required for s3 and api)")
	cmd.Flags().String("file", "", "local file path (local source)")
	cmd.Flags().String("url", "", "endpoint URL (api source)")
	cmd.Flags().String("bucket", "", "bucket name (s3 source)")
	cmd.Flags().String("prefix", "", "key prefix (s3 source)")

	// Emitter flags
	cmd.Flags().StringP("output", "o", "", "write the table to this file instead of stdout")
	cmd.Flags().String("format", "", "output format (json, text, csv)")

	cmd.Flags().Bool("watch", false, "re-run on config change or SIGHUP")

	return cmd
}

func runIngest(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	log, closer := SetupLogging(effectiveLevel(opts.logLevel, cfg), cfg.Logging)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	if err := p.Start(ctx); err != nil {
		return err
	}
	defer p.Stop()

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return watchIngest(ctx, cmd, opts, p, log)
	}

	report, err := p.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed (%s): %w", report.Kind, err)
	}
	log.Infof("ingestion complete: run_id=%s rows=%d duration=%s", report.RunID, report.Rows, report.Duration)
	return nil
}

// loadConfig loads the configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyCLIOverrides(cmd, cfg)
	return cfg, nil
}

// watchIngest runs once, then again for every reload until ctx is done.
// Ingestion failures are logged and do not stop the loop.
func watchIngest(ctx context.Context, cmd *cobra.Command, opts *rootOptions, p *pipeline.Pipeline, log logger.ILogger) error {
	reloads := make(chan *config.Config, 1)
	g, gCtx := errgroup.WithContext(ctx)

	if opts.cfgFile != "" {
		watcher := config.NewConfigWatcher(opts.cfgFile, log)
		if err := watcher.Start(gCtx); err != nil {
			log.Warningf("failed to start config watcher: %v", err)
		} else {
			log.Infof("watching config: %s", opts.cfgFile)
			g.Go(func() error {
				return forwardChanges(gCtx, cmd, watcher, reloads, log)
			})
		}
	}

	g.Go(func() error {
		return handleHangup(gCtx, cmd, opts, reloads, log)
	})

	g.Go(func() error {
		runAndLog(gCtx, p, log)

		if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			log.Warningf("systemd notify failed: %v", err)
		} else if sent {
			log.Debug("notified systemd readiness")
		}

		for {
			select {
			case <-gCtx.Done():
				return nil
			case newCfg := <-reloads:
				if err := p.Reconfigure(gCtx, newCfg); err != nil {
					log.Errorf("reconfigure failed: %v", err)
					continue
				}
				runAndLog(gCtx, p, log)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("flowbase stopped")
	return err
}

func runAndLog(ctx context.Context, p *pipeline.Pipeline, log logger.ILogger) {
	report, err := p.RunOnce(ctx)
	if err != nil {
		log.Errorf("ingestion failed: run_id=%s kind=%s error=%v", report.RunID, report.Kind, err)
		return
	}
	log.Infof("ingestion complete: run_id=%s rows=%d duration=%s", report.RunID, report.Rows, report.Duration)
}

// forwardChanges relays watcher reloads, re-applying CLI overrides.
func forwardChanges(ctx context.Context, cmd *cobra.Command, w *config.ConfigWatcher, reloads chan *config.Config, log logger.ILogger) error {
	for {
		select {
		case newCfg := <-w.Changes():
			applyCLIOverrides(cmd, newCfg)
			offer(ctx, reloads, newCfg)
		case err := <-w.Errors():
			log.Errorf("config watcher error: %v", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// handleHangup reloads the configuration on SIGHUP.
func handleHangup(ctx context.Context, cmd *cobra.Command, opts *rootOptions, reloads chan *config.Config, log logger.ILogger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			log.Info("received SIGHUP, reloading config")
			newCfg, err := loadConfig(cmd, opts)
			if err != nil {
				log.Errorf("failed to reload config: %v", err)
				continue
			}
			offer(ctx, reloads, newCfg)
		case <-ctx.Done():
			return nil
		}
	}
}

// offer replaces any pending reload with cfg.
func offer(ctx context.Context, reloads chan *config.Config, cfg *config.Config) {
	select {
	case <-reloads:
	default:
	}
	select {
	case reloads <- cfg:
	case <-ctx.Done():
	}
}
