package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/store"
)

// ConflictError reports an admission rejection: a run is already active.
type ConflictError struct {
	Active RunType
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a %s sync is already running", e.Active)
}

// StartInfo is what a successful admission returns to the caller.
type StartInfo struct {
	Message   string
	Type      RunType
	StartedAt time.Time
}

// Coordinator admits at most one sync run at a time and executes admitted
// runs on a small fixed worker pool.
type Coordinator struct {
	log     *zap.Logger
	st      store.MovieStore
	full    *FullSync
	changes *ChangesSync
	state   *State
	events  *analytics.Publisher

	jobs chan func()
}

// coordinatorWorkers bounds how many background jobs run concurrently.
const coordinatorWorkers = 2

// NewCoordinator wires the orchestrators to a shared live state and starts
// the worker pool. events may be nil.
func NewCoordinator(log *zap.Logger, st store.MovieStore, full *FullSync, changes *ChangesSync, state *State, events *analytics.Publisher) *Coordinator {
	c := &Coordinator{
		log:     log,
		st:      st,
		full:    full,
		changes: changes,
		state:   state,
		events:  events,
		jobs:    make(chan func(), coordinatorWorkers),
	}
	for i := 0; i < coordinatorWorkers; i++ {
		go c.worker()
	}
	return c
}

func (c *Coordinator) worker() {
	for job := range c.jobs {
		job()
	}
}

// Start admits and schedules one run. It returns immediately; the run
// proceeds in the background. A ConflictError means another run holds the
// slot and nothing was scheduled.
func (c *Coordinator) Start(runType RunType, resume bool) (StartInfo, error) {
	startedAt, ok := c.state.tryBegin(runType)
	if !ok {
		return StartInfo{}, &ConflictError{Active: c.state.activeType()}
	}

	c.events.Publish(analytics.SubjectSyncStarted, "sync_started", map[string]any{
		"type":   string(runType),
		"resume": resume,
	})
	c.log.Info("sync run admitted", zap.String("type", string(runType)), zap.Bool("resume", resume))

	c.jobs <- func() {
		ctx := context.Background()
		var runErr error
		defer func() {
			if p := recover(); p != nil {
				runErr = fmt.Errorf("sync run panic: %v", p)
			}
			if runErr != nil {
				c.state.setError(runErr.Error())
				c.log.Error("sync run failed", zap.String("type", string(runType)), zap.Error(runErr))
			} else {
				c.log.Info("sync run completed", zap.String("type", string(runType)))
			}
			c.state.finish()

			snap, _ := c.state.Snapshot()
			c.events.Publish(analytics.SubjectSyncCompleted, "sync_completed", map[string]any{
				"type":           string(runType),
				"total_inserted": snap.TotalInserted,
				"total_updated":  snap.TotalUpdated,
				"failed":         runErr != nil,
			})
		}()

		switch runType {
		case RunChanges:
			runErr = c.changes.Run(ctx)
		default:
			runErr = c.full.Run(ctx, resume)
		}
	}

	msg := "Movie sync started in background"
	if runType == RunChanges {
		msg = "Changes sync started in background"
	}
	return StartInfo{Message: msg, Type: runType, StartedAt: startedAt}, nil
}

// Status returns the live run snapshot. seen is false until the first run.
func (c *Coordinator) Status() (Snapshot, bool) {
	return c.state.Snapshot()
}

// LastRun returns the most recent persisted sync log, nil when none exists.
func (c *Coordinator) LastRun(ctx context.Context) (*store.SyncLog, error) {
	return c.st.LatestSyncLog(ctx)
}
