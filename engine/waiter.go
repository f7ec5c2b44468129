package engine

// Waiter reports completion of engine work started by Reset or Free.
type Waiter struct {
	done chan struct{}
	err  error
}

func newWaiter() *Waiter {
	return &Waiter{done: make(chan struct{})}
}

func (w *Waiter) finish(err error) {
	w.err = err
	close(w.done)
}

// Wait blocks until the work has settled and returns its outcome.
func (w *Waiter) Wait() error {
	<-w.done
	return w.err
}

