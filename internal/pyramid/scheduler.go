// Package pyramid implements the tile-generation engine: scheduling state,
// the work-stealing worker pool, the per-batch tile processor, the decoded
// child-buffer cache, and the resume-from-archive path (spec.md §3, §4.3–
// §4.6).
package pyramid

import (
	"sync"

	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

// State tracks which tiles are pending, waiting for pickup, or already
// committed, and dispenses ready-to-process batches in an order that keeps
// siblings together for megatile batching. See spec.md §3/§4.3.
//
// Lock order when a caller needs both State and a Cache: State first, then
// Cache (spec.md §9's "scheduler → decoded cache → extents").
type State struct {
	mu sync.Mutex

	pending   map[tilecoord.Tile]struct{}
	waiting   map[tilecoord.Tile]struct{}
	processed map[tilecoord.Tile]struct{}
	stack     []tilecoord.Tile // pending_vec: LIFO of ready-to-dispatch tiles

	maxZoom  uint8
	warpZoom int // Z, the warp zoom offset used for megatile grouping
}

// NewState builds scheduler state from a coverage plan's pending closure.
// maxZoom and warpZoom parametrize the megatile grouping policy used by
// Next.
func NewState(pending map[tilecoord.Tile]struct{}, maxZoom uint8, warpZoom int) *State {
	cloned := make(map[tilecoord.Tile]struct{}, len(pending))
	for t := range pending {
		cloned[t] = struct{}{}
	}
	return &State{
		pending:   cloned,
		waiting:   make(map[tilecoord.Tile]struct{}),
		processed: make(map[tilecoord.Tile]struct{}),
		maxZoom:   maxZoom,
		warpZoom:  warpZoom,
	}
}

// Processed marks t as committed: removed from pending/waiting, added to
// processed. If t's parent becomes fully released (none of its four
// children remain pending) and isn't already tracked, the parent is pushed
// onto the ready stack.
func (s *State) Processed(t tilecoord.Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processedLocked(t)
}

func (s *State) processedLocked(t tilecoord.Tile) {
	delete(s.pending, t)
	delete(s.waiting, t)
	s.processed[t] = struct{}{}

	parent, ok := t.Parent()
	if !ok {
		return
	}
	if _, ok := s.waiting[parent]; ok {
		return
	}
	if _, ok := s.processed[parent]; ok {
		return
	}
	for _, c := range parent.Children() {
		if _, stillPending := s.pending[c]; stillPending {
			return
		}
	}
	s.stack = append(s.stack, parent)
	s.waiting[parent] = struct{}{}
}

// Next pops the top of the ready stack and returns a dispatch batch. Below
// MAX_ZOOM it always returns a singleton batch (parents are cheap and
// ungrouped). At MAX_ZOOM it greedily pulls further tiles off the top that
// share the same warp-zoom ancestor as the first, forming one megatile
// group. Returns ok=false when the stack is empty.
func (s *State) Next() (batch []tilecoord.Tile, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked()
}

func (s *State) nextLocked() ([]tilecoord.Tile, bool) {
	if len(s.stack) == 0 {
		return nil, false
	}
	n := len(s.stack)
	first := s.stack[n-1]
	s.stack = s.stack[:n-1]

	if first.Zoom != s.maxZoom {
		return []tilecoord.Tile{first}, true
	}

	group := ancestorKey(first, s.warpZoom)
	batch := []tilecoord.Tile{first}
	for len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		if top.Zoom != s.maxZoom || ancestorKey(top, s.warpZoom) != group {
			break
		}
		batch = append(batch, top)
		s.stack = s.stack[:len(s.stack)-1]
	}
	return batch, true
}

// ancestorKey walks up to k parents (or to zoom 0, whichever comes first)
// and returns the tile reached, used as the megatile grouping key. Capping
// at zoom 0 lets small rasters whose max zoom is shallower than the warp
// zoom offset still group every leaf into one megatile.
func ancestorKey(t tilecoord.Tile, k int) tilecoord.Tile {
	cur := t
	for i := 0; i < k; i++ {
		p, ok := cur.Parent()
		if !ok {
			break
		}
		cur = p
	}
	return cur
}

// SeedGroups partitions a Morton-sorted leaf list into contiguous groups
// that share the same warp-zoom ancestor, for the initial per-worker seed
// (spec.md §4.3 "Initial seed"). Leaves must already be sorted by Morton
// code (as coverage.Plan produces).
func SeedGroups(leaves []tilecoord.Tile, warpZoom int) [][]tilecoord.Tile {
	var groups [][]tilecoord.Tile
	var cur []tilecoord.Tile
	var curKey tilecoord.Tile
	haveKey := false

	for _, t := range leaves {
		key := ancestorKey(t, warpZoom)
		if haveKey && key == curKey {
			cur = append(cur, t)
			continue
		}
		if len(cur) > 0 {
			groups = append(groups, cur)
		}
		cur = []tilecoord.Tile{t}
		curKey = key
		haveKey = true
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// Seed assigns the first nWorkers groups directly to worker deques
// (returned as one batch slice per worker) and pushes the remaining
// leaves onto the ready stack as individual tiles, to be drawn later via
// Next. Must be called before any worker starts.
func (s *State) Seed(groups [][]tilecoord.Tile, nWorkers int) [][]tilecoord.Tile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nWorkers < 1 {
		nWorkers = 1
	}

	assigned := make([][]tilecoord.Tile, nWorkers)
	i := 0
	for ; i < len(groups) && i < nWorkers; i++ {
		assigned[i] = groups[i]
	}

	// Remaining groups: push their tiles onto the stack in reverse so that
	// popping preserves the original (Morton) order as much as the
	// megatile-grouping policy in Next allows.
	for g := len(groups) - 1; g >= i; g-- {
		group := groups[g]
		for j := len(group) - 1; j >= 0; j-- {
			s.stack = append(s.stack, group[j])
		}
	}

	return assigned
}

// Done reports whether every tile in the original plan has been processed.
func (s *State) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) == 0 && len(s.stack) == 0
}
