package pyramid

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

// Batch is one unit of work dispatched to a worker: either a single
// below-MAX_ZOOM parent tile, or a group of max-zoom siblings sharing a
// warp-zoom ancestor (spec.md §4.3/§4.4).
type Batch = []tilecoord.Tile

// deque is a worker's local LIFO task queue. The owner pushes/pops at the
// tail; thieves pop from the head, so stealing takes the oldest (least
// cache-hot) work while the owner keeps draining its own most-recent
// pushes first.
type deque struct {
	mu    sync.Mutex
	items []Batch
}

func (d *deque) pushBack(b Batch) {
	d.mu.Lock()
	d.items = append(d.items, b)
	d.mu.Unlock()
}

func (d *deque) popBack() (Batch, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.items)
	if n == 0 {
		return nil, false
	}
	b := d.items[n-1]
	d.items = d.items[:n-1]
	return b, true
}

func (d *deque) popFront() (Batch, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return nil, false
	}
	b := d.items[0]
	d.items = d.items[1:]
	return b, true
}

func (d *deque) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// Pool is the work-stealing worker pool of spec.md §4.4/§5: N workers, each
// owning a LIFO deque, stealing round-robin from peers when their own
// deque runs dry, and exiting only once no deque holds work and no worker
// is mid-task.
//
// Termination detection: outstanding counts every Batch that exists in any
// deque or is currently being processed. A push increments it; a finished
// task (after any follow-on batch it produced has already been re-pushed)
// decrements it. outstanding reaching zero while every deque is observed
// empty is sufficient to conclude no further work can appear, because a
// worker only decrements after any task it generates has already been
// pushed (and thus already counted). This handshake has no counterpart in
// the example corpus — it is built directly on sync/atomic and sync.Mutex
// (see DESIGN.md).
type Pool struct {
	deques      []*deque
	outstanding atomic.Int64
	n           int
}

// NewPool creates a pool of n worker deques.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{deques: make([]*deque, n), n: n}
	for i := range p.deques {
		p.deques[i] = &deque{}
	}
	return p
}

// Seed pushes each worker's initial batches (may be empty) onto its own
// deque before Run starts.
func (p *Pool) Seed(perWorker [][]Batch) {
	for i, batches := range perWorker {
		if i >= p.n {
			break
		}
		for _, b := range batches {
			p.deques[i].pushBack(b)
			p.outstanding.Add(1)
		}
	}
}

// Process is called once per drained batch. It must process the batch (the
// caller-supplied fn), then report any follow-on batch to enqueue next
// (typically onto the same worker's own deque) via the returned bool/Batch.
type Process func(worker int, batch Batch) (next Batch, hasNext bool)

// Run drives all workers to completion, blocking until the pool is
// quiescent (every deque empty, no batch in flight).
func (p *Pool) Run(fn Process) {
	var wg sync.WaitGroup
	wg.Add(p.n)
	for w := 0; w < p.n; w++ {
		go func(id int) {
			defer wg.Done()
			p.runWorker(id, fn)
		}(w)
	}
	wg.Wait()
}

func (p *Pool) runWorker(id int, fn Process) {
	backoff := time.Microsecond
	for {
		batch, ok := p.deques[id].popBack()
		if !ok {
			batch, ok = p.steal(id)
		}
		if !ok {
			if p.outstanding.Load() == 0 {
				return
			}
			runtime.Gosched()
			time.Sleep(backoff)
			if backoff < time.Millisecond {
				backoff *= 2
			}
			continue
		}
		backoff = time.Microsecond

		next, hasNext := fn(id, batch)
		if hasNext {
			p.deques[id].pushBack(next)
			p.outstanding.Add(1)
		}
		p.outstanding.Add(-1)
	}
}

// steal tries every other worker's deque, starting just after id and
// wrapping around, taking the first available batch from the head.
func (p *Pool) steal(id int) (Batch, bool) {
	for i := 1; i < p.n; i++ {
		victim := (id + i) % p.n
		if b, ok := p.deques[victim].popFront(); ok {
			return b, true
		}
	}
	return nil, false
}
