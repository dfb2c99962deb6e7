package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// EncryptionModes is the fixed set of repository encryption modes borg
// reports. Anything else in encryption.mode is treated as malformed.
var EncryptionModes = []string{
	"none",
	"repokey",
	"keyfile",
	"authenticated",
	"repokey-blake2",
	"keyfile-blake2",
	"authenticated-blake2",
}

// Repository holds the repository-level metadata from the report.
type Repository struct {
	ID           string
	Location     string
	LastModified time.Time
}

// CacheStats holds the repository cache statistics (cache.stats in the
// report). All values are byte or item counts as reported by borg.
type CacheStats struct {
	TotalChunks       int64
	TotalChunksSize   int64 // total_csize
	TotalSize         int64
	TotalUniqueChunks int64
	UniqueChunksSize  int64 // unique_csize
	UniqueSize        int64
}

// Archive is one backup snapshot within the repository.
//
// Duration is reproduced exactly as borg reported it. It is usually
// End.Sub(Start) but is sourced independently and must not be recomputed.
type Archive struct {
	ID               string
	Name             string
	Start            time.Time
	End              time.Time
	Duration         float64 // seconds, as reported
	CompressedSize   int64
	DeduplicatedSize int64
	OriginalSize     int64
	Files            int64 // nfiles
}

// Report is the validated model of one `borg info --json` document.
// Archives are ascending by time; the last element is the latest archive.
type Report struct {
	Repository     Repository
	Cache          CacheStats
	EncryptionMode string
	Archives       []Archive
}

// Latest returns the most recent archive (the last element) and whether
// the report contains any archives at all.
func (r *Report) Latest() (Archive, bool) {
	if len(r.Archives) == 0 {
		return Archive{}, false
	}
	return r.Archives[len(r.Archives)-1], true
}

// MalformedReportError describes a report that could not be turned into a
// valid model: a missing required field, a wrong type, or an unparseable
// timestamp. Field is a dotted path into the JSON document.
type MalformedReportError struct {
	Field string
	Err   error
}

func (e *MalformedReportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("report: malformed field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("report: missing required field %q", e.Field)
}

func (e *MalformedReportError) Unwrap() error { return e.Err }

// malformed is shorthand for a missing-field error.
func malformed(field string) error {
	return &MalformedReportError{Field: field}
}

// rawReport mirrors the JSON layout emitted by borg. Required string fields
// are pointers so that absence is distinguishable from the empty string.
type rawReport struct {
	Repository *struct {
		ID           *string `json:"id"`
		Location     *string `json:"location"`
		LastModified *string `json:"last_modified"`
	} `json:"repository"`
	Cache *struct {
		Stats *struct {
			TotalChunks       int64 `json:"total_chunks"`
			TotalCSize        int64 `json:"total_csize"`
			TotalSize         int64 `json:"total_size"`
			TotalUniqueChunks int64 `json:"total_unique_chunks"`
			UniqueCSize       int64 `json:"unique_csize"`
			UniqueSize        int64 `json:"unique_size"`
		} `json:"stats"`
	} `json:"cache"`
	Encryption *struct {
		Mode *string `json:"mode"`
	} `json:"encryption"`
	Archives []rawArchive `json:"archives"`
}

type rawArchive struct {
	ID       *string `json:"id"`
	Name     *string `json:"name"`
	Start    *string `json:"start"`
	End      *string `json:"end"`
	Duration float64 `json:"duration"`
	Stats    *struct {
		CompressedSize int64 `json:"compressed_size"`
		DedupedSize    int64 `json:"deduplicated_size"`
		NFiles         int64 `json:"nfiles"`
		OriginalSize   int64 `json:"original_size"`
	} `json:"stats"`
}

// Parse decodes and validates a borg info JSON document.
func Parse(data []byte) (*Report, error) {
	var raw rawReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedReportError{Field: ".", Err: err}
	}

	if raw.Repository == nil {
		return nil, malformed("repository")
	}
	if raw.Repository.ID == nil {
		return nil, malformed("repository.id")
	}
	if raw.Repository.Location == nil {
		return nil, malformed("repository.location")
	}
	if raw.Repository.LastModified == nil {
		return nil, malformed("repository.last_modified")
	}
	lastModified, err := parseTime(*raw.Repository.LastModified)
	if err != nil {
		return nil, &MalformedReportError{Field: "repository.last_modified", Err: err}
	}

	if raw.Encryption == nil || raw.Encryption.Mode == nil {
		return nil, malformed("encryption.mode")
	}
	mode := *raw.Encryption.Mode
	if !validMode(mode) {
		return nil, &MalformedReportError{
			Field: "encryption.mode",
			Err:   fmt.Errorf("unknown mode %q", mode),
		}
	}

	out := &Report{
		Repository: Repository{
			ID:           *raw.Repository.ID,
			Location:     *raw.Repository.Location,
			LastModified: lastModified,
		},
		EncryptionMode: mode,
	}

	// Cache stats are best-effort: absent sections read as zeroes.
	if raw.Cache != nil && raw.Cache.Stats != nil {
		s := raw.Cache.Stats
		out.Cache = CacheStats{
			TotalChunks:       s.TotalChunks,
			TotalChunksSize:   s.TotalCSize,
			TotalSize:         s.TotalSize,
			TotalUniqueChunks: s.TotalUniqueChunks,
			UniqueChunksSize:  s.UniqueCSize,
			UniqueSize:        s.UniqueSize,
		}
	}

	out.Archives = make([]Archive, 0, len(raw.Archives))
	for i, a := range raw.Archives {
		arch, err := parseArchive(i, a)
		if err != nil {
			return nil, err
		}
		out.Archives = append(out.Archives, arch)
	}

	return out, nil
}

func parseArchive(i int, a rawArchive) (Archive, error) {
	field := func(name string) string {
		return fmt.Sprintf("archives[%d].%s", i, name)
	}
	if a.ID == nil {
		return Archive{}, malformed(field("id"))
	}
	if a.Name == nil {
		return Archive{}, malformed(field("name"))
	}
	if a.Start == nil {
		return Archive{}, malformed(field("start"))
	}
	if a.End == nil {
		return Archive{}, malformed(field("end"))
	}
	start, err := parseTime(*a.Start)
	if err != nil {
		return Archive{}, &MalformedReportError{Field: field("start"), Err: err}
	}
	end, err := parseTime(*a.End)
	if err != nil {
		return Archive{}, &MalformedReportError{Field: field("end"), Err: err}
	}

	out := Archive{
		ID:       *a.ID,
		Name:     *a.Name,
		Start:    start,
		End:      end,
		Duration: a.Duration,
	}
	// Per-archive stats are best-effort, like cache stats.
	if a.Stats != nil {
		out.CompressedSize = a.Stats.CompressedSize
		out.DeduplicatedSize = a.Stats.DedupedSize
		out.OriginalSize = a.Stats.OriginalSize
		out.Files = a.Stats.NFiles
	}
	return out, nil
}

func validMode(mode string) bool {
	for _, m := range EncryptionModes {
		if m == mode {
			return true
		}
	}
	return false
}

// timeLayouts are tried in order. Borg emits local ISO-8601 with
// microseconds; RFC3339 variants are accepted as fallbacks.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
