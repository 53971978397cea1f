package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mlenz/conveyor/internal/handler"
	"github.com/mlenz/conveyor/internal/model"
	"github.com/mlenz/conveyor/internal/pool"
	"github.com/mlenz/conveyor/internal/store"
)

// DefaultTimeoutS is the default job timeout in seconds when none is specified.
const DefaultTimeoutS = 30

// ErrStopped is returned by Submit once Close has been initiated. The job
// record is marked failed so nothing is silently dropped, and the caller must
// surface the rejection.
var ErrStopped = errors.New("engine stopped, not accepting jobs")

// Engine orchestrates asynchronous job execution on the worker pool.
type Engine struct {
	store     store.Store
	registry  *handler.Registry
	pool      *pool.Pool
	logger    *slog.Logger
	broker    *Broker
	closeOnce sync.Once
}

// NewEngine creates a new execution engine on top of the given pool.
func NewEngine(s store.Store, reg *handler.Registry, p *pool.Pool, logger *slog.Logger) *Engine {
	return &Engine{
		store:    s,
		registry: reg,
		pool:     p,
		logger:   logger,
		broker:   NewBroker(),
	}
}

// Broker returns the engine's event broker for SSE subscription.
func (e *Engine) Broker() *Broker {
	return e.broker
}

// Pool returns the underlying worker pool for introspection.
func (e *Engine) Pool() *pool.Pool {
	return e.pool
}

// Submit persists the job as pending and dispatches its execution to the
// worker pool. The goroutine operates on a copy of the job to avoid data
// races with the caller. If the pool has stopped, the job is marked failed
// and ErrStopped is returned.
func (e *Engine) Submit(ctx context.Context, j *model.Job) error {
	if err := e.store.CreateJob(ctx, j); err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	jCopy := *j
	if !e.pool.Dispatch(func() { e.execute(&jCopy) }) {
		e.finishFailed(j.ID, nil, "dispatcher stopped before execution")
		e.broker.Close(j.ID)
		return ErrStopped
	}

	return nil
}

// Close stops the worker pool, draining every accepted job before returning.
// Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.logger.Info("engine draining", "workers", e.pool.Workers())
		e.pool.Stop()
		e.logger.Info("engine stopped")
	})
}

// execute runs the job lifecycle on a pool worker: pending→running→completed/failed.
func (e *Engine) execute(j *model.Job) {
	// Close the event stream when execution finishes, regardless of outcome.
	defer e.broker.Close(j.ID)

	// Transition to running.
	if err := e.store.UpdateJobStatus(context.Background(), j.ID, model.StatusRunning); err != nil {
		e.logger.Error("failed to transition to running", "job_id", j.ID, "error", err)
		e.finishFailed(j.ID, nil, fmt.Sprintf("failed to start: %v", err))
		return
	}
	e.broker.Publish(j.ID, Event{JobID: j.ID, Status: model.StatusRunning})

	// Capture start time immediately after the running transition so that
	// started_at stays consistent across success and failure paths.
	start := time.Now()

	// Determine timeout.
	timeoutS := DefaultTimeoutS
	if j.TimeoutS != nil && *j.TimeoutS > 0 {
		timeoutS = *j.TimeoutS
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutS)*time.Second)
	defer cancel()

	// Resolve handler.
	h, err := e.registry.Resolve(j.Kind)
	if err != nil {
		e.finishFailed(j.ID, &start, fmt.Sprintf("resolve handler: %v", err))
		return
	}

	result, err := h.Run(ctx, j)
	durationMS := int(time.Since(start).Milliseconds())

	if err != nil {
		errMsg := err.Error()
		if ctx.Err() == context.DeadlineExceeded {
			errMsg = fmt.Sprintf("job timed out after %ds", timeoutS)
		}
		e.finishFailed(j.ID, &start, errMsg)
		return
	}

	now := time.Now().UTC()
	completed := &model.Job{
		ID:         j.ID,
		Status:     model.StatusCompleted,
		Result:     result,
		DurationMS: &durationMS,
		StartedAt:  &start,
		FinishedAt: &now,
	}

	if err := e.store.UpdateJob(context.Background(), completed); err != nil {
		e.logger.Error("failed to update completed job", "job_id", j.ID, "error", err)
	}
	e.logger.Info("job completed", "job_id", j.ID, "kind", j.Kind, "duration_ms", durationMS)
	e.broker.Publish(j.ID, Event{JobID: j.ID, Status: model.StatusCompleted})
}

// finishFailed marks a job as failed with the given error message.
// startedAt may be nil if execution never started.
func (e *Engine) finishFailed(id string, startedAt *time.Time, errMsg string) {
	now := time.Now().UTC()
	var durationMS int
	if startedAt != nil {
		durationMS = int(time.Since(*startedAt).Milliseconds())
	}

	j := &model.Job{
		ID:         id,
		Status:     model.StatusFailed,
		Error:      errMsg,
		DurationMS: &durationMS,
		StartedAt:  startedAt,
		FinishedAt: &now,
	}

	if err := e.store.UpdateJob(context.Background(), j); err != nil {
		e.logger.Error("failed to update failed job", "job_id", id, "error", err)
	}
	e.logger.Warn("job failed", "job_id", id, "error", errMsg)
	e.broker.Publish(id, Event{JobID: id, Status: model.StatusFailed, Error: errMsg})
}
