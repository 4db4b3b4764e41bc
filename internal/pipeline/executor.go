package pipeline

import (
	"sync"

	"go.uber.org/zap"
)

// Executor runs upload processing tasks asynchronously, fire-and-forget,
// with at most one in-flight task per upload id. Completion is observable
// only through the upload's persisted status.
//
// The slot is claimed separately from launching so callers can order the
// claim before their own state changes: Acquire, mutate, then Launch, or
// Release if the mutation failed.
type Executor interface {
	// Acquire claims the slot for uploadID. It reports false when a task
	// for that id is already in flight.
	Acquire(uploadID int64) bool
	// Launch runs task on a goroutine and frees the slot when it returns.
	// The caller must hold the slot via Acquire.
	Launch(uploadID int64, task func())
	// Release frees a slot acquired but never launched.
	Release(uploadID int64)
}

type asyncExecutor struct {
	mu       sync.Mutex
	inFlight map[int64]struct{}
	log      *zap.SugaredLogger
}

func NewExecutor(log *zap.SugaredLogger) Executor {
	return &asyncExecutor{
		inFlight: make(map[int64]struct{}),
		log:      log,
	}
}

func (e *asyncExecutor) Acquire(uploadID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, running := e.inFlight[uploadID]; running {
		return false
	}
	e.inFlight[uploadID] = struct{}{}
	return true
}

func (e *asyncExecutor) Launch(uploadID int64, task func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Errorw("run panicked", "upload_id", uploadID, "panic", r)
			}
			e.Release(uploadID)
		}()
		task()
	}()
}

func (e *asyncExecutor) Release(uploadID int64) {
	e.mu.Lock()
	delete(e.inFlight, uploadID)
	e.mu.Unlock()
}
