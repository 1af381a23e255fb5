package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type testSketch struct {
	setupErr   error
	setups     int
	controls   int
	haltAt     int
	sleep      time.Duration
	timestamps []time.Time
}

func (s *testSketch) Setup(SetupContext) error {
	s.setups++
	return s.setupErr
}

func (s *testSketch) Control(cc ControlContext) error {
	s.controls++
	s.timestamps = append(s.timestamps, cc.Time())
	if s.haltAt > 0 && s.controls == s.haltAt {
		cc.Halt(nil)
	}
	cc.Clock().Sleep(s.sleep)
	return nil
}

func newTestLoop(sketches ...Sketch) *Loop {
	l := &Loop{Clock: NewManualClock(testEpoch)}
	return l.AddSketch(sketches...)
}

func TestLoopSetupOnce(t *testing.T) {
	s := &testSketch{}
	l := newTestLoop(s)
	require.Equal(t, LoopIdle, l.State())
	require.NoError(t, l.StepN(context.Background(), 3))
	require.Equal(t, 1, s.setups)
	require.Equal(t, 3, s.controls)
	require.Equal(t, uint64(3), l.Iteration())
	require.Equal(t, LoopRunning, l.State())
}

func TestLoopSetupFailureHalts(t *testing.T) {
	s := &testSketch{setupErr: errors.New("no device")}
	l := newTestLoop(s)
	err := l.Step(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrHalted))
	require.True(t, l.Halted())
	require.Contains(t, err.Error(), "no device")

	// never runs again
	require.Error(t, l.StepN(context.Background(), 5))
	require.Equal(t, 1, s.setups)
	require.Zero(t, s.controls)
	require.Zero(t, l.Iteration())
}

func TestLoopHaltFromControl(t *testing.T) {
	s := &testSketch{haltAt: 2}
	other := &testSketch{}
	l := newTestLoop(s, other)
	err := l.StepN(context.Background(), 10)
	require.True(t, errors.Is(err, ErrHalted))
	require.Equal(t, "halted", err.Error())
	require.Equal(t, 2, s.controls)
	// the rest of the halting iteration is skipped
	require.Equal(t, 1, other.controls)
	require.Equal(t, err, l.Err())
}

func TestLoopHaltErrorReturned(t *testing.T) {
	cause := errors.New("bus off")
	l := newTestLoop()
	l.AddController(ControlFunc(func(ControlContext) error {
		return Halt(cause)
	}))
	err := l.Step(context.Background())
	require.True(t, errors.Is(err, ErrHalted))
	require.True(t, errors.Is(err, cause))
	require.Equal(t, "halted: bus off", err.Error())
}

func TestLoopControlErrorsKeepRunning(t *testing.T) {
	calls := 0
	l := newTestLoop()
	l.AddController(ControlFunc(func(ControlContext) error {
		calls++
		return errors.New("transient")
	}))
	require.NoError(t, l.StepN(context.Background(), 3))
	require.Equal(t, 3, calls)
	require.False(t, l.Halted())
}

func TestLoopIterationTime(t *testing.T) {
	s := &testSketch{sleep: 2 * time.Millisecond}
	l := newTestLoop(s)
	require.NoError(t, l.StepN(context.Background(), 3))
	require.Equal(t, []time.Time{
		testEpoch,
		testEpoch.Add(2 * time.Millisecond),
		testEpoch.Add(4 * time.Millisecond),
	}, s.timestamps)
}

func TestLoopRunStopsOnHalt(t *testing.T) {
	s := &testSketch{haltAt: 5}
	started := make(chan struct{})
	l := newTestLoop(s)
	l.AddRunnable(RunFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	err := l.Run(context.Background())
	require.True(t, errors.Is(err, ErrHalted))
	<-started
	require.Equal(t, 5, s.controls)
}

func TestLoopRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := newTestLoop()
	l.AddController(ControlFunc(func(cc ControlContext) error {
		if cc.Iteration() == 3 {
			cancel()
		}
		return nil
	}))
	require.Equal(t, context.Canceled, l.Run(ctx))
	require.Equal(t, uint64(3), l.Iteration())
}

func TestRunnerAggregatesErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	r := NewRunner().Go(
		RunFunc(func(context.Context) error { return errA }),
		RunFunc(func(context.Context) error { return context.Canceled }),
		NamedRun("b", RunFunc(func(context.Context) error { return errB })),
	)
	err := r.Wait()
	require.Error(t, err)
	var agg *AggregatedError
	require.True(t, errors.As(err, &agg))
	require.ElementsMatch(t, []error{errA, errB}, agg.Errors)
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(testEpoch)
	c.Sleep(5 * time.Microsecond)
	c.Advance(-time.Second)
	require.Equal(t, testEpoch.Add(5*time.Microsecond), c.Now())
}

type namedSketch struct {
	testSketch
}

func (s *namedSketch) Name() string { return "cancounter" }

func TestLoopSetupHaltKeepsContext(t *testing.T) {
	cause := errors.New("CAN begin: no transceiver")
	s := &namedSketch{testSketch{setupErr: Halt(cause)}}
	l := newTestLoop(s)
	err := l.Step(context.Background())
	require.True(t, errors.Is(err, ErrHalted))
	require.True(t, errors.Is(err, cause))
	require.Equal(t, "halted: setup cancounter: CAN begin: no transceiver", err.Error())
}

func blockingRunnable(release <-chan struct{}) Runnable {
	return RunFunc(func(context.Context) error {
		<-release
		return nil
	})
}

func TestLoopRunWithForcedExit(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	s := &testSketch{haltAt: 2}
	l := newTestLoop(s)
	l.AddRunnable(blockingRunnable(release))
	r := NewRunner()
	close(r.exitCh)
	err := l.RunWith(r)
	require.True(t, errors.Is(err, ErrHalted))
	require.Equal(t, 2, s.controls)
}

func TestLoopRunWithCanceledForcedExit(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	l := newTestLoop()
	l.AddController(ControlFunc(func(ControlContext) error {
		cancel()
		return nil
	}))
	l.AddRunnable(blockingRunnable(release))
	r := NewRunnerWith(ctx)
	close(r.exitCh)
	require.Equal(t, ErrForcedExit, l.RunWith(r))
}

func TestLoopRunWithStopsRunnables(t *testing.T) {
	stopped := make(chan struct{})
	s := &testSketch{haltAt: 3}
	l := newTestLoop(s)
	l.AddRunnable(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	}))
	err := l.RunWith(NewRunner())
	require.True(t, errors.Is(err, ErrHalted))
	select {
	case <-stopped:
	default:
		t.Fatal("runnable still running after the loop returned")
	}
}
