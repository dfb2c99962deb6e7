package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/borgwatch/borgwatch/internal/report"
)

// baseTime is a fixed reference point so all test timings are deterministic.
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// at returns baseTime advanced by n seconds.
func at(n int) time.Time {
	return baseTime.Add(time.Duration(n) * time.Second)
}

// span builds an archive covering [start, end] seconds after baseTime.
func span(name string, start, end int) report.Archive {
	return report.Archive{
		ID:    name + "-id",
		Name:  name,
		Start: at(start),
		End:   at(end),
	}
}

// sized builds an archive with duration and size stats for delta tests.
func sized(name string, start int, duration float64, original, compressed int64) report.Archive {
	a := span(name, start, start+int(duration))
	a.Duration = duration
	a.OriginalSize = original
	a.CompressedSize = compressed
	return a
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// --- CollidingCount ---

func TestCollidingCount_Empty(t *testing.T) {
	if got := CollidingCount(nil); got != 0 {
		t.Errorf("CollidingCount(nil) = %d, want 0", got)
	}
}

func TestCollidingCount_SingleArchive(t *testing.T) {
	archives := []report.Archive{span("a", 0, 100)}
	if got := CollidingCount(archives); got != 1 {
		t.Errorf("CollidingCount = %d, want 1", got)
	}
}

func TestCollidingCount_OverlappingPair(t *testing.T) {
	// First ends at 100, which exceeds the latest's start at 50: both collide.
	archives := []report.Archive{
		span("a", 0, 100),
		span("b", 50, 150),
	}
	if got := CollidingCount(archives); got != 2 {
		t.Errorf("CollidingCount = %d, want 2", got)
	}
}

func TestCollidingCount_DisjointPair(t *testing.T) {
	archives := []report.Archive{
		span("a", 0, 10),
		span("b", 200, 300),
	}
	if got := CollidingCount(archives); got != 1 {
		t.Errorf("CollidingCount = %d, want 1", got)
	}
}

func TestCollidingCount_EarlyExitStopsAtFirstNonOverlap(t *testing.T) {
	// The first archive overlaps the latest's start, but the scan never
	// reaches it because the middle archive already ended before it.
	archives := []report.Archive{
		span("a", 0, 500), // would overlap, but unreachable past the gap
		span("b", 10, 20), // ends before latest.start — scan stops here
		span("c", 100, 200),
	}
	if got := CollidingCount(archives); got != 1 {
		t.Errorf("CollidingCount = %d, want 1 (scan must stop at first non-overlap)", got)
	}
}

func TestCollidingCount_ContiguousTailOverlaps(t *testing.T) {
	archives := []report.Archive{
		span("a", 0, 10),
		span("b", 20, 130),
		span("c", 50, 140),
		span("d", 100, 200),
	}
	// b and c both end after d's start at 100; a does not.
	if got := CollidingCount(archives); got != 3 {
		t.Errorf("CollidingCount = %d, want 3", got)
	}
}

func TestCollidingCount_BoundedByLength(t *testing.T) {
	archives := []report.Archive{
		span("a", 0, 1000),
		span("b", 10, 1000),
		span("c", 20, 1000),
	}
	got := CollidingCount(archives)
	if got < 1 || got > len(archives) {
		t.Fatalf("CollidingCount = %d, want within [1, %d]", got, len(archives))
	}
	if got != 3 {
		t.Errorf("CollidingCount = %d, want 3", got)
	}
}

// --- SequentialDeltas ---

func TestSequentialDeltas_SingleArchive(t *testing.T) {
	archives := []report.Archive{sized("a", 0, 60, 1000, 500)}
	if got := SequentialDeltas(archives); len(got) != 0 {
		t.Errorf("SequentialDeltas(single) len = %d, want 0", len(got))
	}
}

func TestSequentialDeltas_YieldsOnePerPair(t *testing.T) {
	archives := []report.Archive{
		sized("a", 0, 60, 1000, 500),
		sized("b", 100, 120, 4000, 800),
		sized("c", 300, 30, 3000, 600),
	}
	got := SequentialDeltas(archives)
	if len(got) != len(archives)-1 {
		t.Fatalf("len = %d, want %d", len(got), len(archives)-1)
	}

	// First pair: b against a.
	d := got[0]
	if d.ArchiveName != "b" {
		t.Errorf("ArchiveName = %q, want b", d.ArchiveName)
	}
	if d.OriginalSizeDelta != 3000 {
		t.Errorf("OriginalSizeDelta = %v, want 3000", d.OriginalSizeDelta)
	}
	// b's throughput uses its own original size; a's side uses a's
	// compressed size.
	want := 120.0/4000.0 - 60.0/500.0
	if !almostEqual(d.ThroughputDelta, want, 1e-9) {
		t.Errorf("ThroughputDelta = %v, want %v", d.ThroughputDelta, want)
	}
	if !d.Timestamp.Equal(at(100)) {
		t.Errorf("Timestamp = %v, want %v", d.Timestamp, at(100))
	}

	// Second pair: c against b, with a negative size delta.
	d = got[1]
	if d.OriginalSizeDelta != -1000 {
		t.Errorf("OriginalSizeDelta = %v, want -1000", d.OriginalSizeDelta)
	}
	want = 30.0/3000.0 - 120.0/800.0
	if !almostEqual(d.ThroughputDelta, want, 1e-9) {
		t.Errorf("ThroughputDelta = %v, want %v", d.ThroughputDelta, want)
	}
}

func TestSequentialDeltas_ZeroOriginalSizeSkipped(t *testing.T) {
	archives := []report.Archive{
		sized("a", 0, 60, 1000, 500),
		sized("b", 100, 120, 0, 800), // zero original size — no throughput
		sized("c", 300, 30, 3000, 600),
	}
	got := SequentialDeltas(archives)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (zero-size pair skipped)", len(got))
	}
	if got[0].ArchiveName != "c" {
		t.Errorf("surviving delta = %q, want c", got[0].ArchiveName)
	}
}

func TestSequentialDeltas_ZeroPredecessorCompressedSkipped(t *testing.T) {
	archives := []report.Archive{
		sized("a", 0, 60, 1000, 0), // zero compressed size on the predecessor
		sized("b", 100, 120, 4000, 800),
	}
	if got := SequentialDeltas(archives); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}
