package filter

// Filters map one or more input images to an output image. Most of
// them compute each output pixel independently, and so implement
// RegionFilter; Run then fans the output out to a pool of goroutines
// as horizontal bands.

import(
	"image"
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

var(
	// workers is how many goroutines Run uses. Values < 2 run inline.
	workers atomic.Int32

	// Verbose > 0 logs the no-op paths (too few inputs, unusable shapes).
	Verbose = 0

	// Bands smaller than this many pixels aren't worth a goroutine.
	minBandPixels = 4096
)

func init() {
	workers.Store(int32(runtime.GOMAXPROCS(0)))
}

// SetWorkers sets how many goroutines every Run call uses, for the
// whole process; n < 1 means one per CPU. Meant to be called once at
// startup, but safe to call while filters are running.
func SetWorkers(n int) {
	if n < 1 {
		n = runtime.GOMAXPROCS(0)
	}
	workers.Store(int32(n))
}

func NumWorkers() int { return int(workers.Load()) }

// A Filter produces `out` from `ins`. The output follows the
// provide-or-allocate rule: a non-nil `out` of the right shape is
// written in place, anything else is replaced by a fresh image. If
// fewer than MinInputImages() usable inputs are given, `out` is
// returned untouched. Inputs are never modified.
//
// Filters may cache scratch images between calls, so an instance
// must not be shared between goroutines.
type Filter interface {
	MinInputImages() int
	Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image
}

// A RegionFilter computes each output pixel independently from the
// inputs, so any set of disjoint boxes can be processed concurrently.
type RegionFilter interface {
	MinInputImages() int

	// OutputShape returns the shape of the output for these inputs,
	// or ok=false if the inputs can't be processed.
	OutputShape(ins []*fimage.Image) (w, h, c int, ok bool)

	// ProcessRegion writes the output pixels inside `box`. The output
	// must not alias any input.
	ProcessRegion(out *fimage.Image, ins []*fimage.Image, box image.Rectangle)
}

// Run is the Process implementation shared by all region filters.
func Run(f RegionFilter, out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	if !enoughInputs(f.MinInputImages(), ins) {
		if Verbose > 0 {
			log.Printf("filter %T: need %d inputs, got %d, skipping\n", f, f.MinInputImages(), len(ins))
		}
		return out
	}

	w, h, c, ok := f.OutputShape(ins)
	if !ok {
		if Verbose > 0 {
			log.Printf("filter %T: unusable inputs %v, skipping\n", f, ins)
		}
		return out
	}

	out = fimage.Allocate(out, w, h, c)
	if out == nil {
		return nil
	}

	nWorkers := NumWorkers()
	processConcurrently(f, out, ins, splitIntoBands(out.Rect(), nWorkers), nWorkers)
	return out
}

func enoughInputs(min int, ins []*fimage.Image) bool {
	if len(ins) < min {
		return false
	}
	for i:=0; i<min; i++ {
		if ins[i] == nil {
			return false
		}
	}
	return true
}

// splitIntoBands cuts r into horizontal bands, a few per worker so a
// slow band doesn't leave the others idle.
func splitIntoBands(r image.Rectangle, nWorkers int) []image.Rectangle {
	nBands := nWorkers * 4
	if maxBands := (r.Dx() * r.Dy()) / minBandPixels; nBands > maxBands {
		nBands = maxBands
	}
	if nBands > r.Dy() {
		nBands = r.Dy()
	}
	if nBands < 1 {
		nBands = 1
	}

	bands := make([]image.Rectangle, 0, nBands)
	for i:=0; i<nBands; i++ {
		y0 := r.Min.Y + (r.Dy() * i) / nBands
		y1 := r.Min.Y + (r.Dy() * (i+1)) / nBands
		bands = append(bands, image.Rect(r.Min.X, y0, r.Max.X, y1))
	}
	return bands
}

// processConcurrently uses a pool of goroutines to run the filter
// over each box. Boxes are disjoint, so workers never write the same
// output pixel.
func processConcurrently(f RegionFilter, out *fimage.Image, ins []*fimage.Image, boxes []image.Rectangle, nWorkers int) {
	if nWorkers > len(boxes) {
		nWorkers = len(boxes)
	}
	if nWorkers < 2 {
		for _, box := range boxes {
			f.ProcessRegion(out, ins, box)
		}
		return
	}

	var wg sync.WaitGroup
	jobsChan := make(chan image.Rectangle, len(boxes))

	for i:=0; i<nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for box := range jobsChan {
				f.ProcessRegion(out, ins, box)
			}
		}()
	}

	for _, box := range boxes {
		jobsChan<- box
	}
	close(jobsChan)
	wg.Wait()
}
