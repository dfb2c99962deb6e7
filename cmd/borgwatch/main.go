package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/borgwatch/borgwatch/internal/borg"
	"github.com/borgwatch/borgwatch/internal/collector"
	"github.com/borgwatch/borgwatch/internal/config"
	"github.com/borgwatch/borgwatch/internal/exporter"
	"github.com/borgwatch/borgwatch/internal/status"
)

func main() {
	var opts config.Options
	flag.IntVar(&opts.Port, "port", config.DefaultPort, "HTTP listen port for /metrics")
	flag.StringVar(&opts.Repositories, "repositories", "", "comma-separated borg repository paths")
	flag.StringVar(&opts.PassphraseFile, "passphrase-file", "", "file containing the borg passphrase")
	flag.StringVar(&opts.BorgmaticConfig, "borgmatic-config", "", "borgmatic config file providing repositories, passphrase and retention policy")
	flag.StringVar(&opts.BorgPath, "borg-path", "borg", "borg binary to invoke")
	flag.BoolVar(&opts.IEC, "iec", false, "pass --iec to borg")
	flag.BoolVar(&opts.FailFast, "fail-fast", true, "exit on any unexpected borg failure instead of skipping the repository")
	flag.IntVar(&opts.DeltaWindow, "delta-window", 0, "publish only the newest N archive delta pairs; 0 publishes all")
	flag.DurationVar(&opts.BorgTimeout, "borg-timeout", 0, "timeout per borg invocation; 0 waits indefinitely")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("borgwatch starting", "port", opts.Port)

	cfg, err := config.Resolve(opts)
	if err != nil {
		slog.Error("failed to resolve config", "err", err)
		os.Exit(1)
	}
	slog.Info("config resolved",
		"repositories", len(cfg.Repositories),
		"borgmatic_config", cfg.BorgmaticConfig,
		"fail_fast", cfg.FailFast,
		"delta_window", cfg.DeltaWindow,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exp := exporter.New(cfg.DeltaWindow)
	if cfg.HasRetention {
		exp.PublishRetention(cfg.Retention)
	}

	client := borg.NewClient(cfg.BorgPath, cfg.Passphrase, cfg.IEC, cfg.BorgTimeout)
	st := status.NewStore()

	coll := collector.New(collector.Options{
		Runner:       client,
		Exporter:     exp,
		Status:       st,
		Logger:       logger,
		Repositories: cfg.Repositories,
		FailFast:     cfg.FailFast,
	})

	// Watch the borgmatic config for changes; repository list, passphrase
	// and retention record swap in for the next cycle.
	go func() {
		err := config.Watch(ctx, opts, func(updated *config.Config) {
			coll.UpdateRepositories(updated.Repositories)
			client.SetPassphrase(updated.Passphrase)
			if updated.HasRetention {
				exp.PublishRetention(updated.Retention)
			}
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", coll.MetricsHandler())
	mux.Handle("/", status.NewHandler(st))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("borgwatch shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx) //nolint:errcheck
}
