// Package taskstore implements the in-memory Task store of §4.7: task
// creation, state transitions, and an opportunistic single-shot waiter
// mechanism so message/send can await a quick synchronous completion
// without polling.
package taskstore

import (
	"sync"
	"time"

	"github.com/cyberelf/ranch/a2a"
	"github.com/google/uuid"
)

// Store is the process-wide task map of §5 ("the task store is shared;
// its map is guarded by a short-held lock per operation"). The zero
// value is not usable; construct with New.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*entry
}

// entry pairs a stored Task with its waiters: channels closed exactly
// once, the moment the task reaches a terminal state, so that any
// number of concurrent waiters wake up together on a single state
// change (§5, "single-shot wakeup per waiter").
type entry struct {
	task      a2a.Task
	cancelled bool
	waiters   []chan struct{}
}

// New constructs an empty Store.
func New() *Store {
	return &Store{tasks: make(map[string]*entry)}
}

// Create inserts a new task in state queued and returns it. The id is
// a fresh UUID (§3.5).
func (s *Store) Create(contextID string) a2a.Task {
	t := a2a.Task{
		ID:        uuid.NewString(),
		ContextID: contextID,
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateQueued,
			Timestamp: now(),
		},
	}
	s.mu.Lock()
	s.tasks[t.ID] = &entry{task: t}
	s.mu.Unlock()
	return t
}

// Get returns the full stored task.
func (s *Store) Get(taskID string) (a2a.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return a2a.Task{}, false
	}
	return e.task, true
}

// Status returns just the lightweight TaskStatus view.
func (s *Store) Status(taskID string) (a2a.TaskStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return a2a.TaskStatus{}, false
	}
	return e.task.Status, true
}

// Transition moves taskID to state, recording an optional progress
// message, and wakes waiters if state is terminal. It is a no-op error if the task is already terminal or
// unknown.
func (s *Store) Transition(taskID string, state a2a.TaskState, msg *a2a.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return a2a.TaskNotFoundError(taskID)
	}
	if !e.task.Status.State.CanTransitionTo(state) {
		return a2a.WrapError(a2a.ErrValidation, nil, "task %q cannot transition from %s to %s", taskID, e.task.Status.State, state)
	}
	e.task.Status = a2a.TaskStatus{State: state, Message: msg, Timestamp: now()}
	if state.IsTerminal() {
		s.wake(e)
	}
	return nil
}

// SetResult transitions taskID to completed and attaches result.
func (s *Store) SetResult(taskID string, result a2a.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return a2a.TaskNotFoundError(taskID)
	}
	if !e.task.Status.State.CanTransitionTo(a2a.TaskStateCompleted) {
		return a2a.WrapError(a2a.ErrValidation, nil, "task %q cannot complete from %s", taskID, e.task.Status.State)
	}
	e.task.Status = a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: now()}
	e.task.Result = &result
	s.wake(e)
	return nil
}

// SetFailed transitions taskID to failed with reason as the status message.
func (s *Store) SetFailed(taskID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return a2a.TaskNotFoundError(taskID)
	}
	if !e.task.Status.State.CanTransitionTo(a2a.TaskStateFailed) {
		return a2a.WrapError(a2a.ErrValidation, nil, "task %q cannot fail from %s", taskID, e.task.Status.State)
	}
	failMsg := a2a.NewAgentText(uuid.NewString(), reason)
	e.task.Status = a2a.TaskStatus{State: a2a.TaskStateFailed, Message: &failMsg, Timestamp: now()}
	s.wake(e)
	return nil
}

// Cancel sets the cancellation flag and, if the task is still
// non-terminal, transitions it to cancelled. Terminal tasks are left
// untouched; the returned bool reports whether cancellation actually
// took effect (§4.7).
func (s *Store) Cancel(taskID string) (a2a.TaskStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return a2a.TaskStatus{}, false, a2a.TaskNotFoundError(taskID)
	}
	e.cancelled = true
	if e.task.Status.State.IsTerminal() {
		return e.task.Status, false, nil
	}
	e.task.Status = a2a.TaskStatus{State: a2a.TaskStateCancelled, Timestamp: now()}
	s.wake(e)
	return e.task.Status, true, nil
}

// IsCancelled reports whether task/cancel has been requested for
// taskID, regardless of whether the task has observed it yet. Hops in
// router.Route that poll a remote agent check this between hops
// (§5).
func (s *Store) IsCancelled(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[taskID]
	if !ok {
		return false
	}
	return e.cancelled
}

// Wait blocks until taskID reaches a terminal state or deadline
// elapses, whichever happens first. It returns the task's
// current status and whether it is terminal.
func (s *Store) Wait(taskID string, deadline time.Duration) (a2a.TaskStatus, bool) {
	s.mu.Lock()
	e, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return a2a.TaskStatus{}, false
	}
	if e.task.Status.State.IsTerminal() {
		status := e.task.Status
		s.mu.Unlock()
		return status, true
	}
	ch := make(chan struct{})
	e.waiters = append(e.waiters, ch)
	s.mu.Unlock()

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	status := e.task.Status
	return status, status.State.IsTerminal()
}

// wake closes every pending waiter channel exactly once. Callers must
// hold s.mu.
func (s *Store) wake(e *entry) {
	for _, ch := range e.waiters {
		close(ch)
	}
	e.waiters = nil
}

// now is a seam so tests can be deterministic about ordering without
// depending on wall-clock monotonicity guarantees across a fast test run.
var now = time.Now
