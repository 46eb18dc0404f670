// Package scheduler batches invalidated computation units and runs them in a
// single, ordered flush.
//
// A Scheduler moves through three states per cycle:
//
//	Idle → Collecting → Flushing → Idle
//
// Enqueue adds a Job to the pending set (a job already pending is ignored)
// and, the first time in a cycle, asks the Host to defer a flush. During the
// flush jobs run in ascending ID order. A job that enqueues another job while
// the flush is in progress gets that job slotted into the remaining queue by
// ID, so it still runs in the same pass.
//
// Failures are isolated per job: a job that returns an error or panics is
// reported through the error handler and the flush continues with the next
// job.
//
// # Hosts
//
// The Host decides when deferred work runs. Microtasks is a plain FIFO that
// the caller drains explicitly, which is what tests use. Loop is a
// single-goroutine task runner that drains microtasks after every task, so a
// burst of synchronous mutations inside one task is observed as one flush.
//
// # Thread Safety
//
// A Scheduler is not safe for concurrent use. Drive it from one goroutine,
// typically a Loop.
package scheduler
