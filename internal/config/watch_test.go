package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatch_NoBorgmaticConfigIsNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Watch(ctx, Options{}, func(*Config) {
		t.Error("onChange called without a watched file")
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeFile(t, "borgmatic.yaml", `location:
  repositories:
    - /backups/a
`)
	opts := Options{BorgmaticConfig: p}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 1)
	go func() {
		if err := Watch(ctx, opts, func(cfg *Config) {
			select {
			case changed <- cfg:
			default:
			}
		}); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()

	// Give the watcher a moment to register before rewriting the file.
	time.Sleep(100 * time.Millisecond)
	updated := `location:
  repositories:
    - /backups/a
    - /backups/b
retention:
  keep_daily: 7
`
	if err := os.WriteFile(p, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-changed:
		if len(cfg.Repositories) != 2 {
			t.Errorf("Repositories = %v, want 2 entries", cfg.Repositories)
		}
		if cfg.Retention.Daily != 7 {
			t.Errorf("Retention.Daily = %d, want 7", cfg.Retention.Daily)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed after rewriting the watched file")
	}
}

func TestWatch_KeepsPreviousConfigOnBadReload(t *testing.T) {
	p := writeFile(t, "borgmatic.yaml", `location:
  repositories:
    - /backups/a
`)
	opts := Options{BorgmaticConfig: p}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 1)
	go func() {
		_ = Watch(ctx, opts, func(cfg *Config) {
			select {
			case changed <- cfg:
			default:
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	// A file with no repositories fails Resolve; onChange must not fire.
	if err := os.WriteFile(p, []byte("retention:\n  keep_daily: 1\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-changed:
		t.Fatalf("onChange fired with invalid config: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}
