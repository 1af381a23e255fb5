package framework

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Loop runs sketches: every Setup hook once, then every loop hook
// repeatedly on a single goroutine until the context is done or a
// sketch halts the loop.
type Loop struct {
	Clock Clock
	// Interval is an optional extra delay between iterations.
	// Sketches usually do their own waiting.
	Interval time.Duration

	sketches    []Sketch
	controllers []Controller
	runners     []Runnable

	state     LoopState
	iteration uint64
	haltErr   error
	lock      sync.Mutex
}

type loopSetup struct {
	ctx   context.Context
	clock Clock
}

type loopIteration struct {
	loopSetup
	time      time.Time
	iteration uint64
	halt      error
}

// NewLoop creates a Loop on the system clock.
func NewLoop() *Loop {
	return &Loop{Clock: SystemClock{}}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddSketch registers sketches. Setup hooks run in registration order.
func (l *Loop) AddSketch(sketches ...Sketch) *Loop {
	l.sketches = append(l.sketches, sketches...)
	for _, s := range sketches {
		if runner, ok := s.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddController registers controllers which run after all sketches
// in each iteration.
func (l *Loop) AddController(ctls ...Controller) *Loop {
	l.controllers = append(l.controllers, ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions started alongside the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// State gets the lifecycle state.
func (l *Loop) State() LoopState {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.state
}

// Halted indicates the loop reached the terminal state.
func (l *Loop) Halted() bool {
	return l.State() == LoopHalted
}

// Err returns the halt error, nil unless halted.
func (l *Loop) Err() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.haltErr
}

// Iteration returns the number of completed iterations.
func (l *Loop) Iteration() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.iteration
}

func (l *Loop) clock() Clock {
	if l.Clock == nil {
		l.Clock = SystemClock{}
	}
	return l.Clock
}

func (l *Loop) enterHalted(cause error) error {
	herr, ok := cause.(*HaltError)
	switch {
	case ok:
	case cause == ErrHalted:
		herr = &HaltError{}
	default:
		herr = &HaltError{Cause: cause}
	}
	l.lock.Lock()
	l.state, l.haltErr = LoopHalted, herr
	l.lock.Unlock()
	glog.Errorf("loop %v", herr)
	return herr
}

// Setup runs the initialization hooks once. Any failure is fatal:
// the loop enters the halted state.
func (l *Loop) Setup(ctx context.Context) error {
	switch l.State() {
	case LoopHalted:
		return l.Err()
	case LoopRunning:
		return nil
	}
	sctx := &loopSetup{ctx: ctx, clock: l.clock()}
	for n, s := range l.sketches {
		if err := s.Setup(sctx); err != nil {
			// any setup failure halts, an explicit Halt adds nothing
			if herr, ok := err.(*HaltError); ok && herr.Cause != nil {
				err = herr.Cause
			}
			return l.enterHalted(fmt.Errorf("setup %s: %w", nameOf(s, n), err))
		}
	}
	l.lock.Lock()
	l.state = LoopRunning
	l.lock.Unlock()
	return nil
}

// Step runs a single iteration, running Setup first if needed.
// It returns the halt error once the loop is halted.
func (l *Loop) Step(ctx context.Context) error {
	if err := l.Setup(ctx); err != nil {
		return err
	}
	l.lock.Lock()
	l.iteration++
	iter := &loopIteration{
		loopSetup: loopSetup{ctx: ctx, clock: l.clock()},
		iteration: l.iteration,
	}
	l.lock.Unlock()
	iter.time = iter.clock.Now()

	for n, s := range l.sketches {
		iter.control(s, nameOf(s, n))
	}
	for n, ctl := range l.controllers {
		iter.control(ctl, nameOf(ctl, n))
	}
	if iter.halt != nil {
		return l.enterHalted(iter.halt)
	}
	return nil
}

// StepN runs up to n iterations and stops early when halted.
func (l *Loop) StepN(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := l.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	return l.RunWith(NewRunnerWith(ctx))
}

// RunWith runs the loop until the context of r is done or the loop
// halts. Runnables are stopped when the loop returns and waited for,
// unless r is forced to exit.
func (l *Loop) RunWith(r *Runner) error {
	ctx, cancel := context.WithCancel(r.Context)
	defer cancel()
	runner := r.With(ctx).Go(l.runners...)

	err := l.loop(ctx)
	cancel()
	if werr := runner.Wait(); werr != nil && errors.Is(err, context.Canceled) {
		err = werr
	}
	return err
}

func (l *Loop) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := l.Step(ctx); err != nil {
			return err
		}
		if l.Interval > 0 {
			l.clock().Sleep(l.Interval)
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail() {
	if err := l.RunWith(NewRunner().HandleSignals()); err != nil && !errors.Is(err, context.Canceled) {
		glog.Exit(err)
	}
}

func (t *loopSetup) Context() context.Context {
	return t.ctx
}

func (t *loopSetup) Clock() Clock {
	return t.clock
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) Iteration() uint64 {
	return t.iteration
}

func (t *loopIteration) Halt(cause error) {
	if t.halt == nil {
		if cause == nil {
			cause = ErrHalted
		}
		t.halt = cause
	}
}

func (t *loopIteration) control(ctl Controller, name string) {
	if t.halt != nil {
		return
	}
	err := ctl.Control(t)
	if err == nil {
		return
	}
	if errors.Is(err, ErrHalted) {
		t.Halt(err)
		return
	}
	glog.Errorf("%s: control error: %v", name, err)
}

func nameOf(v interface{}, n int) string {
	if named, ok := v.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("#%d", n)
}
