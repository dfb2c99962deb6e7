package analytics

import (
	"time"

	"github.com/borgwatch/borgwatch/internal/report"
)

// Delta is one pairwise comparison between an archive and its predecessor.
type Delta struct {
	ArchiveID   string
	ArchiveName string

	// OriginalSizeDelta is this archive's original size minus the
	// predecessor's, in bytes.
	OriginalSizeDelta float64

	// ThroughputDelta compares this archive's duration-per-original-byte
	// against the predecessor's duration-per-compressed-byte. The two sides
	// use different size measures; that mirrors the established published
	// shape and must not be unified without coordinating with consumers.
	ThroughputDelta float64

	// Timestamp is the archive's start time, used as the series time label.
	Timestamp time.Time
}

// CollidingCount returns the number of archives whose backup run overlapped
// in time with the latest archive's run, the latest archive included.
//
// The scan walks backward from the second-to-last archive and stops at the
// first archive whose end does not exceed the latest archive's start.
// Because archives are time-ordered and overlaps cluster near the tail,
// everything older than the first non-overlap is assumed non-overlapping
// too; this keeps the scan O(overlap) instead of O(n).
//
// Returns 0 for an empty slice, otherwise at least 1 (the latest archive
// always collides with itself).
func CollidingCount(archives []report.Archive) int {
	if len(archives) == 0 {
		return 0
	}
	latest := archives[len(archives)-1]
	count := 1
	for i := len(archives) - 2; i >= 0; i-- {
		if !archives[i].End.After(latest.Start) {
			break
		}
		count++
	}
	return count
}

// SequentialDeltas returns one Delta per archive that has a predecessor,
// in archive order. A single-element (or empty) slice yields nil.
//
// Pairs where the archive's original size or the predecessor's compressed
// size is zero are skipped: no throughput can be computed for them, and
// emitting a partial entry would publish a misleading zero.
func SequentialDeltas(archives []report.Archive) []Delta {
	if len(archives) < 2 {
		return nil
	}
	out := make([]Delta, 0, len(archives)-1)
	for i := 1; i < len(archives); i++ {
		cur, prev := archives[i], archives[i-1]
		if cur.OriginalSize == 0 || prev.CompressedSize == 0 {
			continue
		}
		throughput := cur.Duration / float64(cur.OriginalSize)
		throughputBefore := prev.Duration / float64(prev.CompressedSize)
		out = append(out, Delta{
			ArchiveID:         cur.ID,
			ArchiveName:       cur.Name,
			OriginalSizeDelta: float64(cur.OriginalSize - prev.OriginalSize),
			ThroughputDelta:   throughput - throughputBefore,
			Timestamp:         cur.Start,
		})
	}
	return out
}
