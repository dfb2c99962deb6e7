package status

import (
	"sort"
	"sync"
	"time"
)

// Outcome classifies how a collection cycle ended for one repository.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"     // report published
	OutcomeLocked Outcome = "locked" // repository locked, blocked state published
	OutcomeEmpty  Outcome = "empty"  // report had no archives, nothing published
	OutcomeError  Outcome = "error"  // invocation or parse failure
)

// Entry is the last recorded outcome for one repository.
type Entry struct {
	Repository  string    `json:"repository"`
	Outcome     Outcome   `json:"status"`
	Archives    int       `json:"archives"`
	Colliding   int       `json:"colliding"`
	Error       string    `json:"error,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
}

// Store is a thread-safe in-memory outcome store, keyed by repository path.
type Store struct {
	mu   sync.RWMutex
	data map[string]Entry
	now  func() time.Time // injectable for deterministic tests
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]Entry),
		now:  time.Now,
	}
}

// Put stores or replaces the entry for e.Repository, stamping CollectedAt.
func (s *Store) Put(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.CollectedAt = s.now()
	s.data[e.Repository] = e
}

// Get returns the entry for the repository and whether one exists.
func (s *Store) Get(repository string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[repository]
	return e, ok
}

// List returns all entries sorted by repository path for stable output.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Repository < out[j].Repository
	})
	return out
}
