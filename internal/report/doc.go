// Package report parses the JSON document produced by `borg info --json`
// into a validated in-memory model.
//
// Parse is purely structural: it extracts repository metadata, cache
// statistics, the encryption mode, and the ordered archive list, converting
// borg's ISO-8601 timestamps to time.Time. It performs no derived
// computation; that belongs to the analytics package.
//
// Any missing required field, unparseable timestamp, or unknown encryption
// mode is reported as a *MalformedReportError naming the offending field,
// so callers never see a bare type error from a half-decoded document.
//
// Archives are carried in the order borg emits them: chronologically
// ascending, oldest first. The last element is the latest archive.
package report
