package taskstore

import (
	"testing"
	"time"

	"github.com/cyberelf/ranch/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStartsQueued(t *testing.T) {
	s := New()
	task := s.Create("ctx-1")
	assert.Equal(t, a2a.TaskStateQueued, task.Status.State)
	assert.NotEmpty(t, task.ID)

	got, ok := s.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, task.ID, got.ID)
}

func TestTransitionRejectsFromTerminal(t *testing.T) {
	s := New()
	task := s.Create("ctx-1")
	require.NoError(t, s.SetResult(task.ID, a2a.NewAgentText("m1", "done")))

	err := s.Transition(task.ID, a2a.TaskStateWorking, nil)
	require.Error(t, err)
	var aerr *a2a.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, a2a.ErrValidation, aerr.Kind)
}

func TestSetResultCompletesTask(t *testing.T) {
	s := New()
	task := s.Create("ctx-1")
	result := a2a.NewAgentText("m1", "42")
	require.NoError(t, s.SetResult(task.ID, result))

	got, ok := s.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	require.NotNil(t, got.Result)
	assert.Equal(t, "42", got.Result.Text())
}

func TestSetFailedRecordsReason(t *testing.T) {
	s := New()
	task := s.Create("ctx-1")
	require.NoError(t, s.SetFailed(task.ID, "boom"))

	status, ok := s.Status(task.ID)
	require.True(t, ok)
	assert.Equal(t, a2a.TaskStateFailed, status.State)
	require.NotNil(t, status.Message)
	assert.Equal(t, "boom", status.Message.Text())
}

func TestCancelNonTerminalTakesEffect(t *testing.T) {
	s := New()
	task := s.Create("ctx-1")

	status, took, err := s.Cancel(task.ID)
	require.NoError(t, err)
	assert.True(t, took)
	assert.Equal(t, a2a.TaskStateCancelled, status.State)
	assert.True(t, s.IsCancelled(task.ID))
}

func TestCancelTerminalDoesNotOverride(t *testing.T) {
	s := New()
	task := s.Create("ctx-1")
	require.NoError(t, s.SetResult(task.ID, a2a.NewAgentText("m1", "done")))

	status, took, err := s.Cancel(task.ID)
	require.NoError(t, err)
	assert.False(t, took)
	assert.Equal(t, a2a.TaskStateCompleted, status.State)
	assert.True(t, s.IsCancelled(task.ID))
}

func TestUnknownTaskOperationsFail(t *testing.T) {
	s := New()
	_, ok := s.Get("missing")
	assert.False(t, ok)

	err := s.SetFailed("missing", "nope")
	require.Error(t, err)
	var aerr *a2a.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, a2a.ErrTaskNotFound, aerr.Kind)
}

func TestWaitWakesOnCompletion(t *testing.T) {
	s := New()
	task := s.Create("ctx-1")

	done := make(chan a2a.TaskStatus, 1)
	go func() {
		status, _ := s.Wait(task.ID, 2*time.Second)
		done <- status
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.SetResult(task.ID, a2a.NewAgentText("m1", "ok")))

	select {
	case status := <-done:
		assert.Equal(t, a2a.TaskStateCompleted, status.State)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not wake up after completion")
	}
}

func TestWaitTimesOutOnSlowTask(t *testing.T) {
	s := New()
	task := s.Create("ctx-1")

	status, terminal := s.Wait(task.ID, 20*time.Millisecond)
	assert.False(t, terminal)
	assert.Equal(t, a2a.TaskStateQueued, status.State)
}

func TestWaitReturnsImmediatelyForAlreadyTerminalTask(t *testing.T) {
	s := New()
	task := s.Create("ctx-1")
	require.NoError(t, s.SetResult(task.ID, a2a.NewAgentText("m1", "ok")))

	status, terminal := s.Wait(task.ID, time.Second)
	assert.True(t, terminal)
	assert.Equal(t, a2a.TaskStateCompleted, status.State)
}
