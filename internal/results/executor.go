package results

import (
	"log"
	"runtime/debug"
	"sync"
)

// Executor is the owning context of a controller. Do schedules fn and reports
// whether it was accepted. Accepted functions must run one at a time in
// submission order.
type Executor interface {
	Do(fn func()) bool
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(fn func()) bool

func (f ExecutorFunc) Do(fn func()) bool { return f(fn) }

// serialQueue runs tasks on one goroutine
type serialQueue struct {
	tasks     chan func()
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newSerialQueue() *serialQueue {
	q := &serialQueue{
		tasks: make(chan func(), 256),
		quit:  make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *serialQueue) Do(fn func()) bool {
	select {
	case <-q.quit:
		return false
	default:
	}
	select {
	case q.tasks <- fn:
		return true
	case <-q.quit:
		return false
	}
}

// stop ends the goroutine after running what was already queued
func (q *serialQueue) stop() {
	q.closeOnce.Do(func() {
		close(q.quit)
	})
	q.wg.Wait()
}

func (q *serialQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case fn := <-q.tasks:
			q.call(fn)
		case <-q.quit:
			for {
				select {
				case fn := <-q.tasks:
					q.call(fn)
				default:
					return
				}
			}
		}
	}
}

func (q *serialQueue) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("results: task panic: %v\nStack: %s", r, debug.Stack())
		}
	}()
	fn()
}
