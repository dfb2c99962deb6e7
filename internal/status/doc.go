// Package status keeps the outcome of the most recent collection cycle per
// repository and serves it as a small JSON API (GET /api/v1/status and
// GET /healthz). Entries are overwritten by the collector on every cycle;
// no external HTTP framework is used.
package status
