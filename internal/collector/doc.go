// Package collector orchestrates one collection cycle per scrape.
//
// For each configured repository, in order and one at a time, it invokes
// borg, parses the report, runs the analytics, and publishes through the
// exporter. A locked repository degrades to a blocked observation; an empty
// archive list is a warning and publishes nothing; any other failure is
// fatal for the whole process by default (fail-fast) or isolated to the
// repository when fail-fast is disabled.
//
// Collect serializes itself with a mutex so overlapping scrapes never
// interleave partial publishes for the same repository. The /metrics
// handler runs a full cycle before handing off to the exposition handler;
// the orchestrator's only output is sink state.
package collector
