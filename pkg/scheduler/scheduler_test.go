package scheduler

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/ripple/internal/errors"
)

type testJob struct {
	id   uint64
	name string
	log  *[]uint64
	fn   func() error
	runs int
}

func (j *testJob) ID() uint64   { return j.id }
func (j *testJob) Name() string { return j.name }

func (j *testJob) Run() error {
	j.runs++
	if j.log != nil {
		*j.log = append(*j.log, j.id)
	}
	if j.fn != nil {
		return j.fn()
	}
	return nil
}

func newTestScheduler(opts ...Option) (*Scheduler, *Microtasks) {
	mt := &Microtasks{}
	return New(append([]Option{WithHost(mt)}, opts...)...), mt
}

func TestEnqueueDefersUntilDrain(t *testing.T) {
	s, mt := newTestScheduler()
	var log []uint64
	job := &testJob{id: 1, log: &log}

	s.Enqueue(job)
	assert.Equal(t, Collecting, s.State())
	assert.Equal(t, 0, job.runs, "job must not run synchronously")
	assert.Equal(t, 1, mt.Len())

	mt.Drain()
	assert.Equal(t, 1, job.runs)
	assert.Equal(t, Idle, s.State())
}

func TestEnqueueDeduplicates(t *testing.T) {
	s, mt := newTestScheduler()
	job := &testJob{id: 1}

	for i := 0; i < 5; i++ {
		s.Enqueue(job)
	}
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 1, mt.Len(), "only one flush may be requested")

	mt.Drain()
	assert.Equal(t, 1, job.runs)
}

func TestFlushRunsInIDOrder(t *testing.T) {
	s, mt := newTestScheduler()
	var log []uint64
	a := &testJob{id: 1, log: &log}
	b := &testJob{id: 2, log: &log}
	c := &testJob{id: 3, log: &log}

	s.Enqueue(c)
	s.Enqueue(a)
	s.Enqueue(b)
	mt.Drain()

	assert.Equal(t, []uint64{1, 2, 3}, log)
}

func TestReentrantEnqueueSmallerID(t *testing.T) {
	s, mt := newTestScheduler()
	var log []uint64
	first := &testJob{id: 1, log: &log}
	third := &testJob{id: 3, log: &log}
	second := &testJob{id: 2, log: &log}
	// Job 3 invalidates job 1, which already ran in this flush.
	third.fn = func() error {
		s.Enqueue(first)
		return nil
	}

	s.Enqueue(third)
	s.Enqueue(second)
	s.Enqueue(first)
	mt.Drain()

	assert.Equal(t, []uint64{1, 2, 3, 1}, log)
	assert.Equal(t, 2, first.runs)
	assert.Equal(t, Idle, s.State())
}

func TestReentrantEnqueueSmallerIDNotYetQueued(t *testing.T) {
	s, mt := newTestScheduler()
	var log []uint64
	low := &testJob{id: 1, log: &log}
	high := &testJob{id: 5, log: &log}
	high.fn = func() error {
		s.Enqueue(low)
		return nil
	}

	s.Enqueue(high)

	// One deferred flush covers both jobs.
	assert.Equal(t, 1, mt.Drain())
	assert.Equal(t, []uint64{5, 1}, log)
	assert.Equal(t, 1, low.runs)
}

func TestReentrantEnqueueLargerIDSlotsInOrder(t *testing.T) {
	s, mt := newTestScheduler()
	var log []uint64
	j2 := &testJob{id: 2, log: &log}
	j3 := &testJob{id: 3, log: &log}
	j5 := &testJob{id: 5, log: &log}
	j2.fn = func() error {
		s.Enqueue(j3)
		return nil
	}

	s.Enqueue(j5)
	s.Enqueue(j2)
	mt.Drain()

	assert.Equal(t, []uint64{2, 3, 5}, log)
}

func TestEnqueueAfterFlushStartsNewCycle(t *testing.T) {
	s, mt := newTestScheduler()
	job := &testJob{id: 1}

	s.Enqueue(job)
	mt.Drain()
	require.Equal(t, Idle, s.State())

	s.Enqueue(job)
	assert.Equal(t, Collecting, s.State())
	mt.Drain()
	assert.Equal(t, 2, job.runs)
}

func TestFailureIsolation(t *testing.T) {
	var reported []error
	s, mt := newTestScheduler(WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))
	var log []uint64
	ok1 := &testJob{id: 1, log: &log}
	failing := &testJob{id: 2, name: "broken", log: &log, fn: func() error {
		return fmt.Errorf("bad value")
	}}
	panicking := &testJob{id: 3, log: &log, fn: func() error {
		panic("boom")
	}}
	ok2 := &testJob{id: 4, log: &log}

	for _, j := range []*testJob{ok2, panicking, failing, ok1} {
		s.Enqueue(j)
	}
	mt.Drain()

	assert.Equal(t, []uint64{1, 2, 3, 4}, log)
	require.Len(t, reported, 2)
	assert.True(t, errors.HasCode(reported[0], "R001"))
	assert.Contains(t, reported[0].Error(), "broken")
	assert.Contains(t, reported[1].Error(), "boom")
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 0, s.Pending())
}

func TestUpdateLoopLimit(t *testing.T) {
	var reported []error
	s, mt := newTestScheduler(
		WithMaxUpdateCount(3),
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
	)
	var loop *testJob
	loop = &testJob{id: 1, fn: func() error {
		s.Enqueue(loop)
		return nil
	}}

	s.Enqueue(loop)
	mt.Drain()

	assert.Equal(t, 3, loop.runs)
	require.Len(t, reported, 1)
	assert.True(t, errors.HasCode(reported[0], "R003"))
	assert.Equal(t, Idle, s.State())
}

func TestNextTickRunsAfterFlush(t *testing.T) {
	s, mt := newTestScheduler()
	var order []string
	job := &testJob{id: 1, fn: func() error {
		order = append(order, "job")
		return nil
	}}

	s.Enqueue(job)
	s.NextTick(func() { order = append(order, "tick") })
	mt.Drain()

	assert.Equal(t, []string{"job", "tick"}, order)
}

func TestNextTickQueuedDuringDrainRunsLater(t *testing.T) {
	s, mt := newTestScheduler()
	var order []string
	s.NextTick(func() {
		order = append(order, "a")
		s.NextTick(func() { order = append(order, "c") })
	})
	s.NextTick(func() { order = append(order, "b") })

	assert.Equal(t, 2, mt.Drain())
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestNextTickPanicReported(t *testing.T) {
	var reported []error
	s, mt := newTestScheduler(WithErrorHandler(func(err error) { reported = append(reported, err) }))
	ran := false
	s.NextTick(func() { panic(stderrors.New("tick failed")) })
	s.NextTick(func() { ran = true })
	mt.Drain()

	assert.True(t, ran)
	require.Len(t, reported, 1)
	assert.True(t, errors.HasCode(reported[0], "R004"))
}

func TestObserver(t *testing.T) {
	var started, finished []int
	var failed int
	obs := ObserverFuncs{
		OnFlushStarted: func(p int) { started = append(started, p) },
		OnJobFinished: func(_ Job, _ time.Duration, err error) {
			if err != nil {
				failed++
			}
		},
		OnFlushFinished: func(ran int, _ time.Duration) { finished = append(finished, ran) },
	}
	s, mt := newTestScheduler(WithObserver(obs), WithObserver(Observers{obs}))

	s.Enqueue(&testJob{id: 1})
	s.Enqueue(&testJob{id: 2, fn: func() error { return fmt.Errorf("x") }})
	mt.Drain()

	assert.Equal(t, []int{2, 2}, started)
	assert.Equal(t, []int{2, 2}, finished)
	assert.Equal(t, 2, failed)
}

func TestObserverPanicDoesNotStopScheduler(t *testing.T) {
	panicked := false
	obs := ObserverFuncs{OnJobFinished: func(Job, time.Duration, error) {
		if !panicked {
			panicked = true
			panic("observer failed")
		}
	}}
	var log []uint64
	s, mt := newTestScheduler(WithObserver(obs))

	s.Enqueue(&testJob{id: 1, log: &log})
	s.Enqueue(&testJob{id: 2, log: &log})
	mt.Drain()
	assert.Equal(t, []uint64{1, 2}, log)
	assert.Equal(t, Idle, s.State())

	s.Enqueue(&testJob{id: 3, log: &log})
	mt.Drain()
	assert.Equal(t, []uint64{1, 2, 3}, log)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 0, s.Pending())
}

func TestErrorHandlerPanicDoesNotStopScheduler(t *testing.T) {
	s, mt := newTestScheduler(WithErrorHandler(func(error) { panic("handler failed") }))
	var log []uint64
	s.Enqueue(&testJob{id: 1, log: &log, fn: func() error { return fmt.Errorf("bad") }})
	s.Enqueue(&testJob{id: 2, log: &log})
	mt.Drain()

	s.Enqueue(&testJob{id: 3, log: &log})
	mt.Drain()
	assert.Equal(t, []uint64{1, 2, 3}, log)
	assert.Equal(t, Idle, s.State())
}

func TestReturnedCodedErrorIsNotModified(t *testing.T) {
	var reported []error
	s, mt := newTestScheduler(WithErrorHandler(func(err error) { reported = append(reported, err) }))
	shared := errors.New("R005")
	s.Enqueue(&testJob{id: 1, name: "closer", fn: func() error { return shared }})
	mt.Drain()

	require.Len(t, reported, 1)
	assert.Contains(t, reported[0].Error(), "closer")
	assert.Empty(t, shared.Detail)
	assert.Empty(t, ErrLoopClosed.Detail)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "collecting", Collecting.String())
	assert.Equal(t, "flushing", Flushing.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestDefaultHostIsMicrotasks(t *testing.T) {
	s := New()
	mt, ok := s.Host().(*Microtasks)
	require.True(t, ok)
	job := &testJob{id: 7}
	s.Enqueue(job)
	mt.Drain()
	assert.Equal(t, 1, job.runs)
}

func TestMicrotasksDrainIncludesNested(t *testing.T) {
	var mt Microtasks
	var order []int
	mt.Defer(func() {
		order = append(order, 1)
		mt.Defer(func() { order = append(order, 3) })
	})
	mt.Defer(func() { order = append(order, 2) })

	assert.Equal(t, 3, mt.Drain())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, mt.Len())
}
