package raster

import (
	"fmt"
	"sync"
)

// Pool is a bounded free-list of open source-dataset handle sets (one
// Reader per source path), so concurrent batches each borrow their own set
// instead of contending over one shared handle. Acquire opens a fresh set
// when the free-list is empty and fewer than max are already open;
// otherwise it blocks until one is released.
type Pool struct {
	paths []string
	max   int

	mu   sync.Mutex
	cond *sync.Cond
	free [][]*Reader
	open int
}

// NewPool creates a pool over the given source paths. max bounds how many
// concurrently-open handle sets the pool will allow; 0 means unbounded.
func NewPool(paths []string, max int) *Pool {
	p := &Pool{paths: paths, max: max}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Acquire returns a handle set, reusing one from the free-list if
// available. If none is free and the pool is already at its max of
// concurrently-open handle sets, Acquire blocks until one is Released.
func (p *Pool) Acquire() ([]*Reader, error) {
	p.mu.Lock()
	for {
		if n := len(p.free); n > 0 {
			set := p.free[n-1]
			p.free = p.free[:n-1]
			p.mu.Unlock()
			return set, nil
		}
		if p.max <= 0 || p.open < p.max {
			p.open++
			break
		}
		p.cond.Wait()
	}
	p.mu.Unlock()

	set := make([]*Reader, len(p.paths))
	for i, path := range p.paths {
		r, err := Open(path)
		if err != nil {
			for _, opened := range set[:i] {
				opened.Close()
			}
			p.mu.Lock()
			p.open--
			p.cond.Signal()
			p.mu.Unlock()
			return nil, fmt.Errorf("raster: opening source %s: %w", path, err)
		}
		set[i] = r
	}
	return set, nil
}

// Release returns a handle set to the free-list for reuse, waking any
// Acquire call blocked on the pool's max.
func (p *Pool) Release(set []*Reader) {
	p.mu.Lock()
	p.free = append(p.free, set)
	p.mu.Unlock()
	p.cond.Signal()
}

// Close closes every handle currently sitting idle in the free-list.
// Handles still checked out to in-flight batches are the caller's
// responsibility to Release before shutdown.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, set := range p.free {
		for _, r := range set {
			if err := r.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	p.free = nil
	return firstErr
}
