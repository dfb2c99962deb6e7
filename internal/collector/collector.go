package collector

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/borgwatch/borgwatch/internal/analytics"
	"github.com/borgwatch/borgwatch/internal/borg"
	"github.com/borgwatch/borgwatch/internal/exporter"
	"github.com/borgwatch/borgwatch/internal/report"
	"github.com/borgwatch/borgwatch/internal/status"
)

// Options configures a Collector.
type Options struct {
	Runner       borg.Runner
	Exporter     *exporter.Exporter
	Status       *status.Store
	Logger       *slog.Logger
	Repositories []string

	// FailFast exits the process on any unexpected borg or parse failure,
	// halting monitoring of all repositories. When false, the failure is
	// recorded and the remaining repositories are still collected.
	FailFast bool

	// Exit is called with code 1 in fail-fast mode; defaults to os.Exit.
	// Injectable so tests can observe the fail-fast path.
	Exit func(int)
}

// Collector runs collection cycles against the configured repositories.
type Collector struct {
	runner   borg.Runner
	exporter *exporter.Exporter
	status   *status.Store
	logger   *slog.Logger
	failFast bool
	exit     func(int)

	mu sync.Mutex // serializes whole cycles across overlapping scrapes

	cfgMu        sync.RWMutex
	repositories []string
}

// New returns a Collector for the given options.
func New(opts Options) *Collector {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exit := opts.Exit
	if exit == nil {
		exit = os.Exit
	}
	return &Collector{
		runner:       opts.Runner,
		exporter:     opts.Exporter,
		status:       opts.Status,
		logger:       logger,
		failFast:     opts.FailFast,
		exit:         exit,
		repositories: opts.Repositories,
	}
}

// UpdateRepositories swaps the repository list for subsequent cycles
// (config hot reload). A cycle already in flight keeps its snapshot.
func (c *Collector) UpdateRepositories(repositories []string) {
	c.cfgMu.Lock()
	c.repositories = repositories
	c.cfgMu.Unlock()
}

func (c *Collector) currentRepositories() []string {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	out := make([]string, len(c.repositories))
	copy(out, c.repositories)
	return out
}

// Collect runs one full cycle: every repository, sequentially. It blocks
// until the cycle finishes and produces no value; all output goes through
// the exporter and the status store.
func (c *Collector) Collect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, repo := range c.currentRepositories() {
		start := time.Now()
		c.collectRepository(ctx, repo)
		c.exporter.ObserveCollection(repo, time.Since(start))
	}
}

func (c *Collector) collectRepository(ctx context.Context, repo string) {
	out, err := c.runner.Info(ctx, repo)
	if errors.Is(err, borg.ErrRepositoryLocked) {
		c.logger.Warn("repository locked, publishing blocked state only",
			"repository", repo)
		c.exporter.SetLocked(repo, true)
		c.status.Put(status.Entry{Repository: repo, Outcome: status.OutcomeLocked})
		return
	}
	if err != nil {
		c.fail(repo, err)
		return
	}

	rep, err := report.Parse(out)
	if err != nil {
		c.fail(repo, err)
		return
	}

	if len(rep.Archives) == 0 {
		c.logger.Warn("repository has no archives, skipping",
			"repository", repo)
		c.status.Put(status.Entry{Repository: repo, Outcome: status.OutcomeEmpty})
		return
	}

	colliding := analytics.CollidingCount(rep.Archives)
	deltas := analytics.SequentialDeltas(rep.Archives)

	c.exporter.SetLocked(repo, false)
	c.exporter.PublishReport(rep, colliding, deltas)
	c.status.Put(status.Entry{
		Repository: repo,
		Outcome:    status.OutcomeOK,
		Archives:   len(rep.Archives),
		Colliding:  colliding,
	})
}

// fail handles an unexpected invocation or parse failure according to the
// fail-fast policy.
func (c *Collector) fail(repo string, err error) {
	c.logger.Error("collection failed", "repository", repo, "err", err)
	if c.failFast {
		c.exit(1)
		return
	}
	c.exporter.IncError(repo)
	c.status.Put(status.Entry{
		Repository: repo,
		Outcome:    status.OutcomeError,
		Error:      err.Error(),
	})
}

// MetricsHandler returns the /metrics handler: a full collection cycle
// followed by text exposition of the registry.
func (c *Collector) MetricsHandler() http.Handler {
	inner := promhttp.HandlerFor(c.exporter.Registry(), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Collect(r.Context())
		inner.ServeHTTP(w, r)
	})
}
