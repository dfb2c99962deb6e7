package exporter

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/borgwatch/borgwatch/internal/analytics"
	"github.com/borgwatch/borgwatch/internal/config"
	"github.com/borgwatch/borgwatch/internal/report"
)

const namespace = "borg"

// Lock states for the repository lock enumeration.
const (
	StateBlocked   = "blocked"
	StateUnblocked = "unblocked"
)

var lockStates = []string{StateBlocked, StateUnblocked}

var (
	repoLabels    = []string{"repository_id", "repository_name"}
	archiveLabels = []string{"repository_id", "repository_name", "archive_id", "archive_name"}
	deltaLabels   = []string{"repository_id", "repository_name", "archive_id", "archive_name", "time"}
)

// Exporter is the observation sink: a fixed catalog of named instruments
// on a private registry, plus the publish step filling them.
type Exporter struct {
	registry    *prometheus.Registry
	deltaWindow int

	lastModified      *prometheus.GaugeVec
	totalChunks       *prometheus.GaugeVec
	totalChunksSize   *prometheus.GaugeVec
	totalSize         *prometheus.GaugeVec
	totalUniqueChunks *prometheus.GaugeVec
	uniqueChunksSize  *prometheus.GaugeVec
	uniqueSize        *prometheus.GaugeVec
	archiveCount      *prometheus.GaugeVec

	lockState      *prometheus.GaugeVec
	encryptionMode *prometheus.GaugeVec

	lastArchiveTimestamp    *prometheus.GaugeVec
	lastArchiveDuration     *prometheus.GaugeVec
	lastArchiveCompressed   *prometheus.GaugeVec
	lastArchiveDeduplicated *prometheus.GaugeVec
	lastArchiveOriginal     *prometheus.GaugeVec
	lastArchiveFiles        *prometheus.GaugeVec
	lastArchiveColliding    *prometheus.GaugeVec

	deltaOriginalSize *prometheus.GaugeVec
	deltaThroughput   *prometheus.GaugeVec

	retentionInfo *prometheus.GaugeVec

	collectDuration *prometheus.GaugeVec
	collectErrors   *prometheus.CounterVec
}

// New builds the instrument catalog. deltaWindow bounds how many of the
// newest delta pairs are published per cycle; 0 publishes all of them.
func New(deltaWindow int) *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	repoGauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, repoLabels)
	}
	archiveGauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, archiveLabels)
	}
	deltaGauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, deltaLabels)
	}

	return &Exporter{
		registry:    reg,
		deltaWindow: deltaWindow,

		lastModified:      repoGauge("repository_last_modified_seconds", "Unix timestamp of the repository's last modification."),
		totalChunks:       repoGauge("repository_total_chunks", "Number of chunks in the repository."),
		totalChunksSize:   repoGauge("repository_total_chunks_size_bytes", "Compressed size of all chunks in the repository."),
		totalSize:         repoGauge("repository_total_size_bytes", "Original size of all chunks in the repository."),
		totalUniqueChunks: repoGauge("repository_total_unique_chunks", "Number of unique chunks in the repository."),
		uniqueChunksSize:  repoGauge("repository_unique_chunks_size_bytes", "Compressed size of the unique chunks in the repository."),
		uniqueSize:        repoGauge("repository_unique_size_bytes", "Original size of the unique chunks in the repository."),
		archiveCount:      repoGauge("repository_archives", "Number of archives in the repository."),

		lockState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "repository_locked",
			Help:      "Repository lock state; exactly one state series per repository is 1.",
		}, []string{"repository_name", "state"}),
		encryptionMode: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "repository_encryption_mode",
			Help:      "Repository encryption mode; exactly one mode series per repository is 1.",
		}, []string{"repository_id", "repository_name", "mode"}),

		lastArchiveTimestamp:    archiveGauge("last_archive_timestamp_seconds", "Unix timestamp of the latest archive's end."),
		lastArchiveDuration:     archiveGauge("last_archive_duration_seconds", "Duration of the latest archive's backup run, as reported."),
		lastArchiveCompressed:   archiveGauge("last_archive_compressed_size_bytes", "Compressed size of the latest archive."),
		lastArchiveDeduplicated: archiveGauge("last_archive_deduplicated_size_bytes", "Deduplicated size of the latest archive."),
		lastArchiveOriginal:     archiveGauge("last_archive_original_size_bytes", "Original size of the latest archive."),
		lastArchiveFiles:        archiveGauge("last_archive_files", "Number of files in the latest archive."),
		lastArchiveColliding:    archiveGauge("last_archive_colliding_archives", "Archives whose backup run overlapped in time with the latest archive's run, itself included."),

		deltaOriginalSize: deltaGauge("archive_original_size_delta_bytes", "Original-size difference between an archive and its predecessor."),
		deltaThroughput:   deltaGauge("archive_throughput_delta", "Throughput difference between an archive and its predecessor."),

		retentionInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "borgmatic_retention_info",
			Help:      "Borgmatic retention keep counts, carried as labels on a constant 1.",
		}, []string{"hourly", "daily", "weekly", "monthly", "yearly"}),

		collectDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collect_duration_seconds",
			Help:      "Duration of the last collection cycle for the repository.",
		}, []string{"repository_name"}),
		collectErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_errors_total",
			Help:      "Failed collection cycles per repository; locked cycles are not counted.",
		}, []string{"repository_name"}),
	}
}

// Registry exposes the private registry for the exposition handler and for
// test gathering.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// SetLocked publishes the lock enumeration for the repository. Only the
// configured path is available when the repository is locked, so the
// enumeration is labeled by repository_name alone.
func (e *Exporter) SetLocked(repositoryName string, blocked bool) {
	active := StateUnblocked
	if blocked {
		active = StateBlocked
	}
	for _, state := range lockStates {
		value := 0.0
		if state == active {
			value = 1
		}
		e.lockState.WithLabelValues(repositoryName, state).Set(value)
	}
}

// PublishRetention (re)publishes the borgmatic retention record. Previous
// label sets are dropped first so a reload never leaves a stale record.
func (e *Exporter) PublishRetention(policy config.RetentionPolicy) {
	e.retentionInfo.Reset()
	e.retentionInfo.WithLabelValues(
		strconv.Itoa(policy.Hourly),
		strconv.Itoa(policy.Daily),
		strconv.Itoa(policy.Weekly),
		strconv.Itoa(policy.Monthly),
		strconv.Itoa(policy.Yearly),
	).Set(1)
}

// ObserveCollection records the duration of a finished cycle.
func (e *Exporter) ObserveCollection(repositoryName string, d time.Duration) {
	e.collectDuration.WithLabelValues(repositoryName).Set(d.Seconds())
}

// IncError counts one failed (non-locked) cycle.
func (e *Exporter) IncError(repositoryName string) {
	e.collectErrors.WithLabelValues(repositoryName).Inc()
}

// PublishReport maps one parsed report and its derived analytics onto the
// catalog. Re-publishing identical input overwrites in place; only the
// per-archive delta series accumulate across archives, one series per
// distinct archive identity.
func (e *Exporter) PublishReport(rep *report.Report, colliding int, deltas []analytics.Delta) {
	id := rep.Repository.ID
	name := rep.Repository.Location
	repo := prometheus.Labels{"repository_id": id, "repository_name": name}

	e.lastModified.With(repo).Set(float64(rep.Repository.LastModified.Unix()))
	e.totalChunks.With(repo).Set(float64(rep.Cache.TotalChunks))
	e.totalChunksSize.With(repo).Set(float64(rep.Cache.TotalChunksSize))
	e.totalSize.With(repo).Set(float64(rep.Cache.TotalSize))
	e.totalUniqueChunks.With(repo).Set(float64(rep.Cache.TotalUniqueChunks))
	e.uniqueChunksSize.With(repo).Set(float64(rep.Cache.UniqueChunksSize))
	e.uniqueSize.With(repo).Set(float64(rep.Cache.UniqueSize))
	e.archiveCount.With(repo).Set(float64(len(rep.Archives)))

	for _, mode := range report.EncryptionModes {
		value := 0.0
		if mode == rep.EncryptionMode {
			value = 1
		}
		e.encryptionMode.WithLabelValues(id, name, mode).Set(value)
	}

	latest, ok := rep.Latest()
	if !ok {
		return
	}

	// Drop the previous latest-archive series before setting the current
	// one; the archive identity labels change whenever a new backup lands,
	// and latest-archive series must not accumulate per archive.
	for _, vec := range e.latestArchiveVecs() {
		vec.DeletePartialMatch(repo)
	}

	archive := prometheus.Labels{
		"repository_id":   id,
		"repository_name": name,
		"archive_id":      latest.ID,
		"archive_name":    latest.Name,
	}
	e.lastArchiveTimestamp.With(archive).Set(float64(latest.End.Unix()))
	e.lastArchiveDuration.With(archive).Set(latest.Duration)
	e.lastArchiveCompressed.With(archive).Set(float64(latest.CompressedSize))
	e.lastArchiveDeduplicated.With(archive).Set(float64(latest.DeduplicatedSize))
	e.lastArchiveOriginal.With(archive).Set(float64(latest.OriginalSize))
	e.lastArchiveFiles.With(archive).Set(float64(latest.Files))
	e.lastArchiveColliding.With(archive).Set(float64(colliding))

	if e.deltaWindow > 0 && len(deltas) > e.deltaWindow {
		deltas = deltas[len(deltas)-e.deltaWindow:]
	}
	for _, d := range deltas {
		labels := prometheus.Labels{
			"repository_id":   id,
			"repository_name": name,
			"archive_id":      d.ArchiveID,
			"archive_name":    d.ArchiveName,
			"time":            d.Timestamp.Format(time.RFC3339),
		}
		e.deltaOriginalSize.With(labels).Set(d.OriginalSizeDelta)
		e.deltaThroughput.With(labels).Set(d.ThroughputDelta)
	}
}

func (e *Exporter) latestArchiveVecs() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{
		e.lastArchiveTimestamp,
		e.lastArchiveDuration,
		e.lastArchiveCompressed,
		e.lastArchiveDeduplicated,
		e.lastArchiveOriginal,
		e.lastArchiveFiles,
		e.lastArchiveColliding,
	}
}
