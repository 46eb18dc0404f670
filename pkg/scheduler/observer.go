package scheduler

import "time"

// Observer is notified about flush activity. Methods are called on the
// scheduler's goroutine and must not block.
type Observer interface {
	// FlushStarted is called before the first job of a flush runs.
	FlushStarted(pending int)

	// JobFinished is called after each job, with its error if it failed.
	JobFinished(job Job, d time.Duration, err error)

	// FlushFinished is called once the queue is empty.
	FlushFinished(ran int, d time.Duration)
}

// Observers fans out to several observers in order.
type Observers []Observer

func (obs Observers) FlushStarted(pending int) {
	for _, o := range obs {
		o.FlushStarted(pending)
	}
}

func (obs Observers) JobFinished(job Job, d time.Duration, err error) {
	for _, o := range obs {
		o.JobFinished(job, d, err)
	}
}

func (obs Observers) FlushFinished(ran int, d time.Duration) {
	for _, o := range obs {
		o.FlushFinished(ran, d)
	}
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnFlushStarted  func(pending int)
	OnJobFinished   func(job Job, d time.Duration, err error)
	OnFlushFinished func(ran int, d time.Duration)
}

func (f ObserverFuncs) FlushStarted(pending int) {
	if f.OnFlushStarted != nil {
		f.OnFlushStarted(pending)
	}
}

func (f ObserverFuncs) JobFinished(job Job, d time.Duration, err error) {
	if f.OnJobFinished != nil {
		f.OnJobFinished(job, d, err)
	}
}

func (f ObserverFuncs) FlushFinished(ran int, d time.Duration) {
	if f.OnFlushFinished != nil {
		f.OnFlushFinished(ran, d)
	}
}
