// Package exporter owns the Prometheus instrument catalog and the publish
// step that maps a parsed report plus derived analytics onto it.
//
// Three observation kinds are used:
//   - gauges: last-value numbers overwritten on every collection cycle;
//   - enumeration states: GaugeVecs with an extra state/mode label where
//     exactly one series per entity is 1 and the rest are 0 (repository
//     lock state, encryption mode);
//   - an informational record: a constant-1 gauge whose labels carry the
//     borgmatic retention keep counts.
//
// Label groups are disjoint by scope: repository-scoped series carry
// {repository_id, repository_name}; archive-scoped series add
// {archive_id, archive_name}; per-archive delta series additionally carry
// a time label (RFC3339 of the archive's start).
//
// Delta gauges intentionally keep one series per historical archive so the
// full delta curve is scrapeable. Series are never pruned, so cardinality
// grows with archive count; a delta window (newest N pairs) can bound
// publication for large repositories.
//
// All instruments live on a private registry so tests and concurrent
// exporters never share state through the global default.
package exporter
