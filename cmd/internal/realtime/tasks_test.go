package realtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskRunnerExecutes(t *testing.T) {
	t.Parallel()

	tr := NewTaskRunner(testLogger(), 2, 16)
	defer tr.Close()

	done := make(chan struct{})
	tr.Submit("probe", func(context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestTaskRunnerSurvivesFailingTask(t *testing.T) {
	t.Parallel()

	tr := NewTaskRunner(testLogger(), 1, 16)
	defer tr.Close()

	var ran atomic.Int32
	tr.Submit("fails", func(context.Context) error {
		ran.Add(1)
		return errors.New("boom")
	})

	done := make(chan struct{})
	tr.Submit("after", func(context.Context) error {
		ran.Add(1)
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after a failing task")
	}
	if got := ran.Load(); got != 2 {
		t.Fatalf("ran=%d want=2", got)
	}
}

func TestTaskRunnerSubmitAfterClose(t *testing.T) {
	t.Parallel()

	tr := NewTaskRunner(testLogger(), 1, 4)
	tr.Close()

	// Must not panic or block.
	tr.Submit("late", func(context.Context) error { return nil })
	tr.Close()
}
