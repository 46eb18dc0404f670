package scheduler

// Microtasks is a FIFO Host that runs nothing until Drain is called.
type Microtasks struct {
	tasks []func()
}

// Defer queues fn.
func (m *Microtasks) Defer(fn func()) {
	m.tasks = append(m.tasks, fn)
}

// Drain runs queued tasks until none remain, including tasks deferred while
// draining. It returns the number of tasks run.
func (m *Microtasks) Drain() int {
	n := 0
	for len(m.tasks) > 0 {
		fn := m.tasks[0]
		m.tasks[0] = nil
		m.tasks = m.tasks[1:]
		fn()
		n++
	}
	m.tasks = nil
	return n
}

// Len returns the number of queued tasks.
func (m *Microtasks) Len() int {
	return len(m.tasks)
}
