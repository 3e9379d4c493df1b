package pyramid

import (
	"fmt"
	"time"

	"github.com/tilekiln/mbtiler/internal/raster"
	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

// EncodedTile is one record crossing the sink channel to the archive writer.
// Alpha is nil for the PNG schema (no alpha column); for JPEG it is an
// empty-but-non-nil slice when the tile's alpha channel was fully opaque.
type EncodedTile struct {
	Tile  tilecoord.Tile
	Main  []byte
	Alpha []byte
}

// Sink receives encoded tiles for commit to the archive.
type Sink interface {
	Send(EncodedTile)
}

// ResumeState is the outcome of a resume lookup for a single tile.
type ResumeState int

const (
	ResumeNotFound ResumeState = iota
	ResumeEmpty
	ResumeComputed
)

// ResumeResult is what a Resumer reports for one tile.
type ResumeResult struct {
	State  ResumeState
	Buffer Buffer
}

// Resumer optionally lets the processor check an existing archive before
// computing a tile.
type Resumer interface {
	Lookup(t tilecoord.Tile) (ResumeResult, error)
}

// Encoder performs the processor's common-tail encoding step: PNG encodes
// the whole buffer; JPEG splits into opaque channels + a separately
// entropy-coded alpha blob.
type Encoder interface {
	Encode(buf Buffer) (main, alpha []byte, err error)
	HasAlphaColumn() bool
}

// Config parametrizes a Processor.
type Config struct {
	TileSize       int
	BandCount      int
	MaxZoom        uint8
	WarpZoomOffset int
	Transform      raster.Transform
	InsertEmpty    bool
}

// Processor executes dispatched batches: the max-zoom regime (warp a
// megatile, slice sectors) or the downsample regime (compose four
// children).
type Processor struct {
	cfg      Config
	pool     *raster.Pool
	srcCache *raster.TileCache
	children *ChildCache
	sched    *State
	sink     Sink
	extents  *Extents
	resumer  Resumer // nil when not resuming
	enc      Encoder
	tel      Telemetry
}

// Telemetry is the subset of the telemetry package's recorder the
// processor pushes phase durations and per-tile trace events to. Defined
// here (rather than imported) so pyramid has no dependency on telemetry's
// concrete type; telemetry.Recorder satisfies it.
type Telemetry interface {
	Observe(phase string, nanos int64)
	Trace(step rune)
}

// NewProcessor builds a Processor. resumer may be nil.
func NewProcessor(cfg Config, pool *raster.Pool, srcCache *raster.TileCache, children *ChildCache, sched *State, sink Sink, extents *Extents, resumer Resumer, enc Encoder, tel Telemetry) *Processor {
	return &Processor{
		cfg:      cfg,
		pool:     pool,
		srcCache: srcCache,
		children: children,
		sched:    sched,
		sink:     sink,
		extents:  extents,
		resumer:  resumer,
		enc:      enc,
		tel:      tel,
	}
}

// ProcessBatch executes one dispatched batch and returns the scheduler's
// next-ready batch (if any) to chain onto the calling worker's own deque.
func (p *Processor) ProcessBatch(batch Batch) (Batch, bool, error) {
	if len(batch) == 0 {
		return nil, false, fmt.Errorf("pyramid: empty batch")
	}

	if batch[0].Zoom == p.cfg.MaxZoom {
		if err := p.processMaxZoomBatch(batch); err != nil {
			return nil, false, err
		}
	} else {
		if err := p.processParent(batch[0]); err != nil {
			return nil, false, err
		}
	}

	for _, t := range batch {
		p.sched.Processed(t)
	}
	return p.sched.Next()
}

// megatileHops returns the number of parent hops actually available between
// a leaf at leafZoom and its warp-ancestor: min(warpZoomOffset, leafZoom).
// A raster whose max zoom is shallower than the configured warp offset has
// no ancestor that many levels up, so both the megatile's side length and
// SliceMegatile's sector exponent must use this capped value rather than
// the raw configured offset — otherwise the slice lands on the wrong
// quadrant of the warped square.
func megatileHops(leafZoom uint8, warpZoomOffset int) int {
	if int(leafZoom) < warpZoomOffset {
		return int(leafZoom)
	}
	return warpZoomOffset
}

// processMaxZoomBatch resolves resume lookups first, then (if anything
// remains unresolved) runs one megatile warp shared by the whole batch,
// sliced per tile.
func (p *Processor) processMaxZoomBatch(batch Batch) error {
	resolved := make(map[tilecoord.Tile]bool, len(batch))

	if p.resumer != nil {
		for _, t := range batch {
			selectStart := time.Now()
			res, err := p.resumer.Lookup(t)
			p.tel.Observe("select", time.Since(selectStart).Nanoseconds())
			if err != nil {
				return fmt.Errorf("pyramid: resume lookup %v: %w", t, err)
			}
			switch res.State {
			case ResumeComputed:
				p.children.Insert(t, res.Buffer)
				p.extents.Update(t)
				resolved[t] = true
				p.tel.Trace('⬤')
			case ResumeEmpty:
				resolved[t] = true
				p.tel.Trace('◯')
			}
		}
	}

	pending := make([]tilecoord.Tile, 0, len(batch))
	for _, t := range batch {
		if !resolved[t] {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	hops := megatileHops(pending[0].Zoom, p.cfg.WarpZoomOffset)
	ancestor, ok := pending[0].Ancestor(hops)
	if !ok {
		ancestor = tilecoord.Tile{Zoom: 0, X: 0, Y: 0}
	}
	side := p.cfg.TileSize << uint(hops)
	bounds := ancestor.Bounds(side)

	handles, err := p.pool.Acquire()
	if err != nil {
		return err
	}

	p.tel.Trace('W')
	warpStart := time.Now()
	mega, err := raster.Warp(handles, bounds, side, p.cfg.BandCount, p.cfg.Transform, p.srcCache)
	p.tel.Observe("warp", time.Since(warpStart).Nanoseconds())
	p.pool.Release(handles)
	if err != nil {
		return fmt.Errorf("pyramid: warp ancestor %v: %w", ancestor, err)
	}

	megaBuf := Buffer{Pix: mega, Side: side, BandCount: p.cfg.BandCount}

	for _, t := range pending {
		sector, nonEmpty := SliceMegatile(megaBuf, hops, p.cfg.TileSize, t)
		if err := p.finishTile(t, sector, nonEmpty); err != nil {
			return err
		}
	}
	return nil
}

// processParent resolves a parent tile's resume lookup, then composes
// whichever of its four children are available in the decoded-child cache.
func (p *Processor) processParent(t tilecoord.Tile) error {
	if p.resumer != nil {
		selectStart := time.Now()
		res, err := p.resumer.Lookup(t)
		p.tel.Observe("select", time.Since(selectStart).Nanoseconds())
		if err != nil {
			return fmt.Errorf("pyramid: resume lookup %v: %w", t, err)
		}
		switch res.State {
		case ResumeComputed:
			for _, c := range t.Children() {
				p.children.Evict(c)
			}
			p.children.Insert(t, res.Buffer)
			p.extents.Update(t)
			p.tel.Trace('⬤')
			return nil
		case ResumeEmpty:
			for _, c := range t.Children() {
				p.children.Evict(c)
			}
			p.tel.Trace('◯')
			return nil
		}
	}

	p.tel.Trace('C')
	var kids [4]*Buffer
	anyPresent := false
	for i, c := range t.Children() {
		if buf, ok := p.children.Take(c); ok {
			b := buf
			kids[i] = &b
			anyPresent = true
		}
	}

	if !anyPresent {
		return p.finishTile(t, Buffer{}, false)
	}

	composeStart := time.Now()
	composed := Compose(kids, p.cfg.TileSize, p.cfg.BandCount)
	p.tel.Observe("compose", time.Since(composeStart).Nanoseconds())
	return p.finishTile(t, composed, true)
}

// finishTile runs the common tail shared by both regimes: encode, extents
// update, sink send, decoded-cache insert.
func (p *Processor) finishTile(t tilecoord.Tile, buf Buffer, nonEmpty bool) error {
	if !nonEmpty {
		p.tel.Trace('◯')
		if p.cfg.InsertEmpty {
			insertStart := time.Now()
			p.sink.Send(EncodedTile{Tile: t})
			p.tel.Observe("insert", time.Since(insertStart).Nanoseconds())
		}
		return nil
	}

	p.tel.Trace('⬤')

	encodeStart := time.Now()
	main, alpha, err := p.enc.Encode(buf)
	p.tel.Observe("encode", time.Since(encodeStart).Nanoseconds())
	if err != nil {
		return fmt.Errorf("pyramid: encoding %v: %w", t, err)
	}

	p.extents.Update(t)
	insertStart := time.Now()
	p.sink.Send(EncodedTile{Tile: t, Main: main, Alpha: alpha})
	p.tel.Observe("insert", time.Since(insertStart).Nanoseconds())
	p.children.Insert(t, buf)
	return nil
}
