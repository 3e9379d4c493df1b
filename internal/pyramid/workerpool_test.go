package pyramid

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

func TestPoolRunDrainsSeededWorkWithoutDoubleProcessing(t *testing.T) {
	const nWorkers = 4
	const nBatches = 50

	pool := NewPool(nWorkers)

	perWorker := make([][]Batch, nWorkers)
	for i := 0; i < nBatches; i++ {
		b := Batch{{Zoom: 0, X: uint32(i), Y: 0}}
		w := i % nWorkers
		perWorker[w] = append(perWorker[w], b)
	}
	pool.Seed(perWorker)

	var seen sync.Map
	var processedCount atomic.Int64

	pool.Run(func(worker int, batch Batch) (Batch, bool) {
		for _, t := range batch {
			if _, dup := seen.LoadOrStore(t, true); dup {
				panic("tile processed twice")
			}
		}
		processedCount.Add(1)
		return nil, false
	})

	if got := processedCount.Load(); got != nBatches {
		t.Fatalf("processed %d batches, want %d", got, nBatches)
	}
}

func TestPoolStealingAllowsUnbalancedSeedToFinish(t *testing.T) {
	pool := NewPool(3)

	perWorker := make([][]Batch, 3)
	for i := 0; i < 30; i++ {
		perWorker[0] = append(perWorker[0], Batch{{Zoom: 0, X: uint32(i), Y: 0}})
	}
	pool.Seed(perWorker)

	var count atomic.Int64
	pool.Run(func(worker int, batch Batch) (Batch, bool) {
		count.Add(1)
		return nil, false
	})

	if got := count.Load(); got != 30 {
		t.Fatalf("processed %d tiles, want 30 (stealing should have fanned out the work)", got)
	}
}

func TestPoolChainsFollowOnBatches(t *testing.T) {
	pool := NewPool(2)
	root := tilecoord.Tile{Zoom: 0, X: 0, Y: 0}
	pool.Seed([][]Batch{{{root}}})

	var processed []tilecoord.Tile
	var mu sync.Mutex
	depth := 0

	pool.Run(func(worker int, batch Batch) (Batch, bool) {
		mu.Lock()
		processed = append(processed, batch...)
		d := depth
		depth++
		mu.Unlock()

		if d < 3 {
			return Batch{{Zoom: uint8(d + 1), X: 0, Y: 0}}, true
		}
		return nil, false
	})

	if len(processed) != 4 {
		t.Fatalf("processed %d batches across the chain, want 4", len(processed))
	}
}
