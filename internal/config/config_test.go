package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestResolve_FlagMode(t *testing.T) {
	passFile := writeFile(t, "passphrase", "hunter2\n")
	cfg, err := Resolve(Options{
		Repositories:   "/backups/a, /backups/b,",
		PassphraseFile: passFile,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(cfg.Repositories) != 2 {
		t.Fatalf("Repositories = %v, want 2 entries", cfg.Repositories)
	}
	if cfg.Repositories[1] != "/backups/b" {
		t.Errorf("Repositories[1] = %q, want /backups/b", cfg.Repositories[1])
	}
	if cfg.Passphrase != "hunter2" {
		t.Errorf("Passphrase = %q, want trimmed hunter2", cfg.Passphrase)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.BorgPath != "borg" {
		t.Errorf("BorgPath = %q, want borg", cfg.BorgPath)
	}
	if cfg.HasRetention {
		t.Error("flag mode must not report a retention policy")
	}
}

func TestResolve_Conflicts(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"both modes", Options{Repositories: "/a", PassphraseFile: "/p", BorgmaticConfig: "/b.yaml"}},
		{"borgmatic plus repositories", Options{Repositories: "/a", BorgmaticConfig: "/b.yaml"}},
		{"neither mode", Options{}},
		{"repositories without passphrase file", Options{Repositories: "/a"}},
		{"passphrase file without repositories", Options{PassphraseFile: "/p"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.opts)
			if !errors.Is(err, ErrConflict) {
				t.Errorf("err = %v, want ErrConflict", err)
			}
		})
	}
}

func TestResolve_UnreadablePassphraseFile(t *testing.T) {
	_, err := Resolve(Options{
		Repositories:   "/backups/a",
		PassphraseFile: filepath.Join(t.TempDir(), "missing"),
	})
	if err == nil {
		t.Fatal("Resolve succeeded with a missing passphrase file")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("unreadable file is not an option conflict")
	}
}

func TestResolve_BorgmaticClassic(t *testing.T) {
	p := writeFile(t, "borgmatic.yaml", `location:
  repositories:
    - /backups/a
    - /backups/b
storage:
  encryption_passphrase: "hunter2"
retention:
  keep_daily: 7
  keep_weekly: 4
  keep_monthly: 6
`)
	cfg, err := Resolve(Options{BorgmaticConfig: p})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(cfg.Repositories) != 2 {
		t.Fatalf("Repositories = %v, want 2 entries", cfg.Repositories)
	}
	if cfg.Passphrase != "hunter2" {
		t.Errorf("Passphrase = %q", cfg.Passphrase)
	}
	if !cfg.HasRetention {
		t.Fatal("borgmatic mode must report a retention policy")
	}
	want := RetentionPolicy{Daily: 7, Weekly: 4, Monthly: 6}
	if cfg.Retention != want {
		t.Errorf("Retention = %+v, want %+v", cfg.Retention, want)
	}
	if cfg.BorgmaticConfig != p {
		t.Errorf("BorgmaticConfig = %q, want %q", cfg.BorgmaticConfig, p)
	}
}

func TestResolve_BorgmaticFlattened(t *testing.T) {
	p := writeFile(t, "borgmatic.yaml", `repositories:
  - path: /backups/a
encryption_passphrase: "s3cret"
keep_daily: 14
keep_yearly: 2
`)
	cfg, err := Resolve(Options{BorgmaticConfig: p})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(cfg.Repositories) != 1 || cfg.Repositories[0] != "/backups/a" {
		t.Fatalf("Repositories = %v", cfg.Repositories)
	}
	if cfg.Passphrase != "s3cret" {
		t.Errorf("Passphrase = %q", cfg.Passphrase)
	}
	want := RetentionPolicy{Daily: 14, Yearly: 2}
	if cfg.Retention != want {
		t.Errorf("Retention = %+v, want %+v", cfg.Retention, want)
	}
}

func TestResolve_BorgmaticRetentionDefaultsZero(t *testing.T) {
	p := writeFile(t, "borgmatic.yaml", `location:
  repositories:
    - /backups/a
`)
	cfg, err := Resolve(Options{BorgmaticConfig: p})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Retention != (RetentionPolicy{}) {
		t.Errorf("Retention = %+v, want all zeroes", cfg.Retention)
	}
	if !cfg.HasRetention {
		t.Error("retention record should still be published with zero counts")
	}
}

func TestResolve_BorgmaticWithoutRepositories(t *testing.T) {
	p := writeFile(t, "borgmatic.yaml", `retention:
  keep_daily: 7
`)
	_, err := Resolve(Options{BorgmaticConfig: p})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict for an empty repository list", err)
	}
}

func TestResolve_BorgmaticInvalidYAML(t *testing.T) {
	p := writeFile(t, "borgmatic.yaml", "\t\tnot yaml")
	if _, err := Resolve(Options{BorgmaticConfig: p}); err == nil {
		t.Fatal("Resolve succeeded with invalid YAML")
	}
}

func TestResolve_NegativeDeltaWindow(t *testing.T) {
	passFile := writeFile(t, "passphrase", "x")
	_, err := Resolve(Options{
		Repositories:   "/backups/a",
		PassphraseFile: passFile,
		DeltaWindow:    -1,
	})
	if err == nil {
		t.Fatal("Resolve accepted a negative delta window")
	}
}
