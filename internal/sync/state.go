package sync

import (
	"sync"
	"time"
)

// RunType selects which orchestrator a run executes.
type RunType string

const (
	RunMovies  RunType = "movies"
	RunChanges RunType = "changes"
)

// Snapshot is a point-in-time copy of the live run state.
type Snapshot struct {
	IsRunning       bool       `json:"is_running"`
	Type            RunType    `json:"type,omitempty"`
	TotalProcessed  int        `json:"total_processed"`
	TotalInserted   int        `json:"total_inserted"`
	TotalUpdated    int        `json:"total_updated"`
	CurrentEndpoint string     `json:"current_endpoint,omitempty"`
	CurrentPage     int        `json:"current_page,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// State is the process-wide live view of the current (or most recent) run.
// All access goes through the mutex; the single-flight guard in the
// coordinator guarantees at most one writer of the counters at a time.
type State struct {
	mu sync.Mutex

	running         bool
	runType         RunType
	totalInserted   int
	totalUpdated    int
	currentEndpoint string
	currentPage     int
	startedAt       time.Time
	finishedAt      time.Time
	lastError       string
}

// tryBegin atomically admits a new run: it fails when one is already
// running, otherwise resets the counters and marks the state running.
// The check and the reset share one critical section so two concurrent
// starts cannot both win.
func (s *State) tryBegin(t RunType) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return time.Time{}, false
	}
	s.running = true
	s.runType = t
	s.totalInserted = 0
	s.totalUpdated = 0
	s.currentEndpoint = ""
	s.currentPage = 0
	s.startedAt = time.Now().UTC()
	s.finishedAt = time.Time{}
	s.lastError = ""
	return s.startedAt, true
}

// activeType reports the type of the run currently holding the slot.
func (s *State) activeType() RunType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runType
}

// recordProgress publishes cumulative counts and the checkpoint of the last
// committed batch. Called only after the batch transaction committed.
func (s *State) recordProgress(inserted, updated int, endpoint string, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalInserted = inserted
	s.totalUpdated = updated
	s.currentEndpoint = endpoint
	s.currentPage = page
}

func (s *State) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

func (s *State) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.finishedAt = time.Now().UTC()
}

// Snapshot returns a copy of the live state. seen reports whether any run
// has started since process boot (a zero snapshot is meaningless).
func (s *State) Snapshot() (snap Snapshot, seen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return Snapshot{}, false
	}
	snap = Snapshot{
		IsRunning:       s.running,
		Type:            s.runType,
		TotalProcessed:  s.totalInserted + s.totalUpdated,
		TotalInserted:   s.totalInserted,
		TotalUpdated:    s.totalUpdated,
		CurrentEndpoint: s.currentEndpoint,
		CurrentPage:     s.currentPage,
		Error:           s.lastError,
	}
	started := s.startedAt
	snap.StartedAt = &started
	if !s.finishedAt.IsZero() {
		finished := s.finishedAt
		snap.FinishedAt = &finished
	}
	return snap, true
}
