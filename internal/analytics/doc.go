// Package analytics derives observations from an ordered archive sequence.
//
// Both functions are pure: they take the ascending archive slice from a
// parsed report and return values without touching any shared state, so
// every collection cycle recomputes from scratch.
//
// CollidingCount counts how many archives overlapped in time with the
// latest archive's backup run. SequentialDeltas computes per-archive
// original-size and throughput differences against the immediately
// preceding archive.
package analytics
