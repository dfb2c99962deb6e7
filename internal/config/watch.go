package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the borgmatic config named in opts and calls onChange with
// the freshly resolved Config each time the file is written. It runs until
// ctx is cancelled and is a no-op error when opts has no borgmatic config.
//
// If a reload fails (unreadable file, invalid YAML, empty repository list),
// the error is logged and the previous configuration stays active — Watch
// does not call onChange.
func Watch(ctx context.Context, opts Options, onChange func(*Config)) error {
	if opts.BorgmaticConfig == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(opts.BorgmaticConfig); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", opts.BorgmaticConfig)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only reload on write or create events. Editors often write via
			// rename (atomic save), so also catch fsnotify.Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Resolve(opts)
			if err != nil {
				slog.Error("config: reload failed — keeping previous config",
					"path", opts.BorgmaticConfig, "err", err)
				continue
			}

			slog.Info("config: reloaded", "path", opts.BorgmaticConfig,
				"repositories", len(cfg.Repositories))
			onChange(cfg)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(opts.BorgmaticConfig)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
