package besteffort

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunAttemptsEveryTaskAndLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var ran atomic.Int32
	outcomes := Run(context.Background(), zap.New(core),
		Task{Name: "log", Run: func(context.Context) error {
			ran.Add(1)
			return errors.New("tracker offline")
		}},
		Task{Name: "learn", Run: func(context.Context) error {
			ran.Add(1)
			return nil
		}},
	)
	require.Len(t, outcomes, 2)
	assert.EqualValues(t, 2, ran.Load())
	assert.Equal(t, "log", outcomes[0].Name)
	assert.EqualError(t, outcomes[0].Err, "tracker offline")
	assert.NoError(t, outcomes[1].Err)

	failed := outcomes.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "log", failed[0].Name)
	assert.Equal(t, 1, logs.FilterMessage("best-effort task failed").Len())
}

func TestRunIsConcurrent(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	task := func(context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	}
	done := make(chan Outcomes, 1)
	go func() {
		done <- Run(context.Background(), nil, Task{Name: "a", Run: task}, Task{Name: "b", Run: task})
	}()
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("tasks did not start concurrently")
		}
	}
	close(release)
	outcomes := <-done
	assert.Empty(t, outcomes.Failed())
}

func TestRunRecoversPanicsAndMissingBodies(t *testing.T) {
	outcomes := Run(context.Background(), nil,
		Task{Name: "boom", Run: func(context.Context) error { panic("bad") }},
		Task{Name: "empty"},
	)
	require.Len(t, outcomes.Failed(), 2)
	assert.Contains(t, outcomes[0].Err.Error(), "panicked")
	assert.Contains(t, outcomes[1].Err.Error(), "no body")
}
