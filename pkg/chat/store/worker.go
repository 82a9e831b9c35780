package store

import (
	"context"
	"sync"
	"time"

	"tarik-chat-be/pkg/chat/persistence"
)

type writeJob struct {
	ctx     context.Context
	snap    persistence.Snapshot
	change  persistence.Change
	barrier bool
	pending *Pending
}

// writeQueue runs jobs one at a time in submission order. Enqueue never
// blocks on the backend.
type writeQueue struct {
	mu      sync.Mutex
	jobs    []writeJob
	wake    chan struct{}
	closed  bool
	stopped chan struct{}
	run     func(job writeJob) error
}

func newWriteQueue(run func(job writeJob) error) *writeQueue {
	q := &writeQueue{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		run:     run,
	}
	go q.loop()
	return q
}

func (q *writeQueue) enqueue(job writeJob) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *writeQueue) loop() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wake
			continue
		}
		job := q.jobs[0]
		q.jobs[0] = writeJob{}
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		if job.barrier {
			job.pending.resolve(nil)
			continue
		}
		job.pending.resolve(q.run(job))
	}
}

// close stops accepting jobs and waits until queued ones ran or timeout passed.
func (q *writeQueue) close(timeout time.Duration) {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	select {
	case <-q.stopped:
	case <-time.After(timeout):
	}
}
