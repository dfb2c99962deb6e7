package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the exporter's listen port when -port is not given.
const DefaultPort = 9611

// ErrConflict marks mutually exclusive or incomplete option combinations.
var ErrConflict = errors.New("config: conflicting options")

// Options carries the raw command-line values before resolution.
type Options struct {
	Port            int
	Repositories    string // comma-separated paths
	PassphraseFile  string
	BorgmaticConfig string
	BorgPath        string
	IEC             bool
	FailFast        bool
	DeltaWindow     int
	BorgTimeout     time.Duration
}

// RetentionPolicy holds borgmatic keep counts. Absent keys stay 0.
type RetentionPolicy struct {
	Hourly  int
	Daily   int
	Weekly  int
	Monthly int
	Yearly  int
}

// Config is the fully resolved exporter configuration.
type Config struct {
	Port         int
	Repositories []string
	Passphrase   string
	BorgPath     string
	IEC          bool
	FailFast     bool
	DeltaWindow  int
	BorgTimeout  time.Duration

	// BorgmaticConfig is the watched file path; empty in flag mode.
	BorgmaticConfig string
	Retention       RetentionPolicy
	// HasRetention reports whether a retention record should be published.
	HasRetention bool
}

// Resolve validates the option combination and loads whichever files the
// chosen mode requires.
func Resolve(opts Options) (*Config, error) {
	flagMode := opts.Repositories != "" || opts.PassphraseFile != ""
	borgmaticMode := opts.BorgmaticConfig != ""

	switch {
	case flagMode && borgmaticMode:
		return nil, fmt.Errorf("%w: -borgmatic-config cannot be combined with -repositories/-passphrase-file", ErrConflict)
	case !flagMode && !borgmaticMode:
		return nil, fmt.Errorf("%w: either -borgmatic-config or both -repositories and -passphrase-file are required", ErrConflict)
	}

	cfg := &Config{
		Port:        opts.Port,
		BorgPath:    opts.BorgPath,
		IEC:         opts.IEC,
		FailFast:    opts.FailFast,
		DeltaWindow: opts.DeltaWindow,
		BorgTimeout: opts.BorgTimeout,
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.BorgPath == "" {
		cfg.BorgPath = "borg"
	}
	if cfg.DeltaWindow < 0 {
		return nil, fmt.Errorf("config: -delta-window must be >= 0, got %d", opts.DeltaWindow)
	}

	if borgmaticMode {
		if err := cfg.loadBorgmatic(opts.BorgmaticConfig); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if opts.Repositories == "" {
		return nil, fmt.Errorf("%w: -repositories is required alongside -passphrase-file", ErrConflict)
	}
	if opts.PassphraseFile == "" {
		return nil, fmt.Errorf("%w: -passphrase-file is required alongside -repositories", ErrConflict)
	}

	for _, repo := range strings.Split(opts.Repositories, ",") {
		repo = strings.TrimSpace(repo)
		if repo != "" {
			cfg.Repositories = append(cfg.Repositories, repo)
		}
	}
	if len(cfg.Repositories) == 0 {
		return nil, fmt.Errorf("%w: -repositories is empty", ErrConflict)
	}

	passphrase, err := readPassphraseFile(opts.PassphraseFile)
	if err != nil {
		return nil, err
	}
	cfg.Passphrase = passphrase
	return cfg, nil
}

// readPassphraseFile returns the trimmed contents of the passphrase file.
func readPassphraseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: read passphrase file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// repoEntry accepts both the classic plain-string repository form and the
// modern `- path: /backups/repo` mapping form.
type repoEntry struct {
	Path string
}

func (r *repoEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&r.Path)
	case yaml.MappingNode:
		var m struct {
			Path string `yaml:"path"`
		}
		if err := value.Decode(&m); err != nil {
			return err
		}
		r.Path = m.Path
		return nil
	default:
		return fmt.Errorf("repository entry must be a string or a mapping with a path key")
	}
}

// borgmaticFile mirrors the parts of a borgmatic configuration this
// exporter consumes, in both the classic sectioned and flattened layouts.
type borgmaticFile struct {
	Location struct {
		Repositories []repoEntry `yaml:"repositories"`
	} `yaml:"location"`
	Storage struct {
		EncryptionPassphrase string `yaml:"encryption_passphrase"`
	} `yaml:"storage"`
	Retention struct {
		KeepHourly  int `yaml:"keep_hourly"`
		KeepDaily   int `yaml:"keep_daily"`
		KeepWeekly  int `yaml:"keep_weekly"`
		KeepMonthly int `yaml:"keep_monthly"`
		KeepYearly  int `yaml:"keep_yearly"`
	} `yaml:"retention"`

	// Flattened layout (borgmatic 1.8+).
	Repositories         []repoEntry `yaml:"repositories"`
	EncryptionPassphrase string      `yaml:"encryption_passphrase"`
	KeepHourly           int         `yaml:"keep_hourly"`
	KeepDaily            int         `yaml:"keep_daily"`
	KeepWeekly           int         `yaml:"keep_weekly"`
	KeepMonthly          int         `yaml:"keep_monthly"`
	KeepYearly           int         `yaml:"keep_yearly"`
}

// loadBorgmatic reads the borgmatic file and fills repositories, the
// passphrase, and the retention policy. Classic sections win over the
// flattened keys when both are present.
func (c *Config) loadBorgmatic(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read borgmatic config: %w", err)
	}

	var file borgmaticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse borgmatic config: %w", err)
	}

	entries := file.Location.Repositories
	if len(entries) == 0 {
		entries = file.Repositories
	}
	for _, e := range entries {
		if e.Path != "" {
			c.Repositories = append(c.Repositories, e.Path)
		}
	}
	if len(c.Repositories) == 0 {
		return fmt.Errorf("%w: borgmatic config %s lists no repositories", ErrConflict, path)
	}

	c.Passphrase = file.Storage.EncryptionPassphrase
	if c.Passphrase == "" {
		c.Passphrase = file.EncryptionPassphrase
	}

	c.Retention = RetentionPolicy{
		Hourly:  firstNonZero(file.Retention.KeepHourly, file.KeepHourly),
		Daily:   firstNonZero(file.Retention.KeepDaily, file.KeepDaily),
		Weekly:  firstNonZero(file.Retention.KeepWeekly, file.KeepWeekly),
		Monthly: firstNonZero(file.Retention.KeepMonthly, file.KeepMonthly),
		Yearly:  firstNonZero(file.Retention.KeepYearly, file.KeepYearly),
	}
	c.HasRetention = true
	c.BorgmaticConfig = path
	return nil
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}
