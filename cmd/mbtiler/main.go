// Command mbtiler builds an MBTiles (SQLite) raster tile pyramid from one
// or more GeoTIFF/COG source files, warping max-zoom megatiles and
// Lanczos-downsampling parents via a work-stealing worker pool.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tilekiln/mbtiler/internal/archive"
	"github.com/tilekiln/mbtiler/internal/coverage"
	"github.com/tilekiln/mbtiler/internal/encode"
	"github.com/tilekiln/mbtiler/internal/pyramid"
	"github.com/tilekiln/mbtiler/internal/raster"
	"github.com/tilekiln/mbtiler/internal/telemetry"
	"github.com/tilekiln/mbtiler/internal/tilecoord"
)

func main() {
	var (
		maxZoom     int
		tileSize    int
		threads     int
		format      string
		quality     int
		warpOffset  int
		resume      bool
		clipPath    string
		transform   string
		srcWKT      string
		dstWKT      string
		insertEmpty bool
		debug       bool
		bandCount   int
	)

	flag.IntVar(&maxZoom, "max-zoom", -1, "Maximum (leaf) zoom level; required")
	flag.IntVar(&tileSize, "tile-size", 256, "Output tile side length in pixels")
	flag.IntVar(&threads, "threads", runtime.NumCPU(), "Number of worker-pool threads")
	flag.StringVar(&format, "format", "jpeg", "Archive tile schema: jpeg, png")
	flag.IntVar(&quality, "quality", 85, "JPEG quality (1-100)")
	flag.IntVar(&warpOffset, "warp-zoom-offset", 3, "Zoom levels per warped megatile (side = tile-size << offset)")
	flag.BoolVar(&resume, "resume", false, "Skip tiles already present in the target archive")
	flag.StringVar(&clipPath, "clip", "", "Path to a GeoJSON clipping polygon (WGS84)")
	flag.StringVar(&transform, "transform", "", "PROJ pipeline string for the warp transform")
	flag.StringVar(&srcWKT, "src-wkt", "", "Source CRS WKT (alternative to -transform)")
	flag.StringVar(&dstWKT, "dst-wkt", "", "Destination CRS WKT (alternative to -transform)")
	flag.BoolVar(&insertEmpty, "insert-empty", true, "Write a row for tiles with no data (vs. leaving the position absent)")
	flag.BoolVar(&debug, "debug", false, "Print per-tile trace characters and verbose phase timings")
	flag.IntVar(&bandCount, "band-count", 4, "Pixel band count: 4 (RGBA) or 2 (gray+alpha)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mbtiler [flags] <source.tif...> <output.mbtiles>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || maxZoom < 0 {
		flag.Usage()
		os.Exit(1)
	}

	sourcePaths := args[:len(args)-1]
	targetPath := args[len(args)-1]
	if !strings.HasSuffix(targetPath, ".mbtiles") {
		log.Fatal("output file must have a .mbtiles extension")
	}

	sources, err := raster.OpenAll(sourcePaths)
	if err != nil {
		log.Fatalf("opening sources: %v", err)
	}
	defer func() {
		for _, s := range sources {
			s.Close()
		}
	}()

	var xform raster.Transform
	switch {
	case transform != "":
		xform = raster.PipelineTransform(transform)
	case srcWKT != "" || dstWKT != "":
		xform = raster.WKTTransform(srcWKT, dstWKT)
	}

	var clip *coverage.ClipPolygon
	if clipPath != "" {
		clip, err = coverage.LoadClipPolygon(clipPath)
		if err != nil {
			log.Fatalf("loading clip polygon: %v", err)
		}
	}

	merged := raster.MergedBoundsWGS84(sources)
	footprint := wgs84BoundsToMercator(merged)

	plan, err := coverage.Plan(footprint, maxZoom, tileSize, clip)
	if err != nil {
		log.Fatalf("planning coverage: %v", err)
	}
	if len(plan.Leaves) == 0 {
		log.Fatal("no tiles intersect the source coverage and clip polygon")
	}
	log.Printf("planned %d max-zoom tile(s), %d tile(s) total in the pending closure", len(plan.Leaves), len(plan.Pending))

	codec := encode.NewCodec(format, quality)

	writer, err := archive.NewWriter(targetPath, codec.HasAlphaColumn(), "Tiles", formatName(format), uint8(maxZoom), threads)
	if err != nil {
		log.Fatalf("creating archive: %v", err)
	}

	var resumer *archive.Resumer
	noResume := new(atomic.Bool)
	noResume.Store(!resume)
	if resume {
		resumer, err = archive.NewResumer(targetPath, codec, codec.HasAlphaColumn(), bandCount, tileSize)
		if err != nil {
			log.Fatalf("opening archive for resume: %v", err)
		}
		defer resumer.Close()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		go func() {
			for range hup {
				noResume.Store(true)
				log.Print("SIGHUP received: resume lookups disabled for the remainder of this run")
			}
		}()
	}

	srcPaths := make([]string, len(sources))
	for i, s := range sources {
		srcPaths[i] = s.Path()
	}
	rasterPool := raster.NewPool(srcPaths, threads*2)
	defer rasterPool.Close()

	srcCache := raster.NewTileCache(threads * 64)
	children := pyramid.NewChildCache()
	ext := pyramid.NewExtents()
	sched := pyramid.NewState(plan.Pending, uint8(maxZoom), warpOffset)

	rec := telemetry.NewRecorder(int64(len(plan.Pending)), debug)

	cfg := pyramid.Config{
		TileSize:       tileSize,
		BandCount:      bandCount,
		MaxZoom:        uint8(maxZoom),
		WarpZoomOffset: warpOffset,
		Transform:      xform,
		InsertEmpty:    insertEmpty,
	}

	var activeResumer pyramid.Resumer
	if resume {
		activeResumer = gatedResumer{r: resumer, disabled: noResume}
	}

	proc := pyramid.NewProcessor(cfg, rasterPool, srcCache, children, sched, writer, ext, activeResumer, codec, rec)

	pool := pyramid.NewPool(threads)
	groups := pyramid.SeedGroups(plan.Leaves, warpOffset)
	assigned := sched.Seed(groups, threads)

	perWorker := make([][]pyramid.Batch, len(assigned))
	for i, g := range assigned {
		if len(g) > 0 {
			perWorker[i] = []pyramid.Batch{g}
		}
	}
	pool.Seed(perWorker)

	start := time.Now()
	errCh := make(chan error, 1)
	pool.Run(func(worker int, batch pyramid.Batch) (pyramid.Batch, bool) {
		next, ok, err := proc.ProcessBatch(batch)
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return nil, false
		}
		return next, ok
	})

	select {
	case err := <-errCh:
		log.Fatalf("processing: %v", err)
	default:
	}

	if err := writer.Close(ext); err != nil {
		log.Fatalf("closing archive: %v", err)
	}

	log.Printf("wrote %d tile(s) to %s in %v", len(plan.Pending), targetPath, time.Since(start).Round(time.Millisecond))
}

func formatName(format string) string {
	if format == "png" {
		return "png"
	}
	return "jpeg"
}

func wgs84BoundsToMercator(b raster.Bounds) tilecoord.BBox {
	proj := &raster.WebMercatorProj{}
	minX, minY := proj.FromWGS84(b.MinLon, b.MinLat)
	maxX, maxY := proj.FromWGS84(b.MaxLon, b.MaxLat)
	return tilecoord.BBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// gatedResumer wraps a Resumer so a SIGHUP can disable resume mid-run
// without tearing down the already-open read connection.
type gatedResumer struct {
	r        *archive.Resumer
	disabled *atomic.Bool
}

func (g gatedResumer) Lookup(t tilecoord.Tile) (pyramid.ResumeResult, error) {
	if g.disabled.Load() {
		return pyramid.ResumeResult{State: pyramid.ResumeNotFound}, nil
	}
	return g.r.Lookup(t)
}

