package store

import "context"

// Pending resolves once the persistence write for a mutation was attempted.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolvedPending(err error) *Pending {
	p := newPending()
	p.resolve(err)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait returns the write result, or ctx.Err() if ctx ends first. The write
// itself is not cancelled.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
