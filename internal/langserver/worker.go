package langserver

import (
	"fmt"

	"github.com/chazu/loxvm/internal/alloc"
)

// request is a unit of work to run on the worker goroutine.
type request struct {
	fn   func(*alloc.Allocator) any
	done chan response
}

type response struct {
	value any
	err   error
}

// Worker serializes compile requests through a single goroutine, each
// against its own scratch Allocator, so concurrent LSP notifications
// (open/change arriving back to back) never race on compiler state.
type Worker struct {
	requests chan request
	quit     chan struct{}
}

// NewWorker creates a Worker and starts its processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn against a fresh Allocator, recovering from panics so
// one bad document never kills the worker goroutine.
func (w *Worker) execute(fn func(*alloc.Allocator) any) response {
	var result response
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(alloc.New())
	}()
	return result
}

// Do submits fn for execution on the worker goroutine and blocks until
// it completes.
func (w *Worker) Do(fn func(*alloc.Allocator) any) (any, error) {
	req := request{fn: fn, done: make(chan response, 1)}
	w.requests <- req
	result := <-req.done
	return result.value, result.err
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}
