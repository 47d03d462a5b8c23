package estack

import(
	"fmt"
	"image"
	"log"
	"math"
	"runtime"
	"sync"

	"golang.org/x/image/draw"      // replace by "image/draw" at some point
	"golang.org/x/image/math/f64"  // replace by "image/math/f64" at some point

	"github.com/abworrall/hdr-fusion/pkg/emath"
	"github.com/abworrall/hdr-fusion/pkg/filter"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

// An AlignmentTransform maps a pixel location in a later layer to a
// pixel location in the base layer, that corresponds to the same
// point in the scene.
//
// If you shoot from a tripod, this is all redundant.
type AlignmentTransform struct {
	Name            string

	TranslateByX    float64
	TranslateByY    float64
	RotationCenterX float64
	RotationCenterY float64
	RotateByDeg     float64

	ErrorMetric     float64
}

func (xform AlignmentTransform)String() string {
	str := fmt.Sprintf("Align[%s (%6.2f,%6.2f)", xform.Name, xform.TranslateByX, xform.TranslateByY)
	if xform.RotateByDeg != 0.0 {
		str += fmt.Sprintf(", %5.2fdeg", xform.RotateByDeg)
	}
	if xform.ErrorMetric != 0.0 {
		str += fmt.Sprintf(", err:%8.5f", xform.ErrorMetric)
	}
	return str + "]"
}

func (xform AlignmentTransform)IsIdentity() bool {
	return xform.TranslateByX == 0.0 && xform.TranslateByY == 0.0 && xform.RotateByDeg == 0.0
}

func (at AlignmentTransform)ToMatrix() emath.Aff3 {
	m := emath.Identity().Translate(at.TranslateByX, at.TranslateByY)

	if at.RotateByDeg != 0 {
		mR := emath.RotateAbout(at.RotateByDeg, at.RotationCenterX, at.RotationCenterY)
		m = mR.Mult(m)
	}

	return m
}

// XFormImage resamples `src` with Catmull-Rom interpolation. The
// warp goes through 16 bits per channel, so values are clipped to
// [0,1]; pixels mapped from outside `src` come out black.
func (xform AlignmentTransform)XFormImage(src *fimage.Image) *fimage.Image {
	if xform.IsIdentity() {
		return src
	}
	ldr := src.ToLDR()
	dst := image.NewRGBA64(ldr.Bounds())
	draw.CatmullRom.Transform(dst, f64.Aff3(xform.ToMatrix()), ldr, ldr.Bounds(), draw.Src, nil)
	return fimage.FromImage(dst)
}

// AlignLayer sets up l2.Image to be pixel-aligned with base.Image:
// using a transform from the config if there is one for this layer,
// else searching for one if the config asks for that.
func AlignLayer(cfg Config, base, l2 *Layer) {
	xform := AlignmentTransform{
		Name:            l2.Filename(),
		RotationCenterX: float64(base.LoadedImage.Width) / 2.0,
		RotationCenterY: float64(base.LoadedImage.Height) / 2.0,
	}

	if xf, exists := cfg.Alignments[xform.Name]; exists {
		if cfg.Verbosity > 0 {
			log.Printf("Using alignment from config file: %s\n", xf)
		}
		xform = xf
	} else if cfg.DoFineAlignment {
		xform = AlignLayerFine(cfg, base, l2, xform)
		if cfg.Alignments != nil {
			cfg.Alignments[xform.Name] = xform
		}
	}

	l2.AlignmentTransform = xform
	l2.Image = xform.XFormImage(l2.LoadedImage)
}

// AlignLayerFine tries a range of translations in parallel, first in
// whole pixels then in fractions of a pixel, and returns the one that
// fits best (i.e. has lowest error metric).
func AlignLayerFine(cfg Config, base, l2 *Layer, baseXform AlignmentTransform) AlignmentTransform {
	best := baseXform
	xforms := []AlignmentTransform{}

	if cfg.Verbosity > 0 {
		log.Printf("Align finetune: orig  %s\n", baseXform)
	}

	// Step 1. Whole-pixel translations
	width := float64(cfg.MaxShift)
	for x:=-1*width; x<=width; x += 1.0 {
		for y:=-1*width; y<=width; y += 1.0 {
			xform := best
			xform.TranslateByX += x
			xform.TranslateByY += y
			xforms = append(xforms, xform)
		}
	}
	best = scoreXFormsConcurrently(cfg, base, l2, xforms, best, "pass1a")

	// Step 2. Fractional pixel translations in a much smaller area. This
	// relies on Catmull Rom interpolation.
	xforms = xforms[:0]
	for i:=-4; i<=4; i++ {
		for j:=-4; j<=4; j++ {
			xform := best
			xform.TranslateByX += float64(i) * 0.25
			xform.TranslateByY += float64(j) * 0.25
			xforms = append(xforms, xform)
		}
	}
	best = scoreXFormsConcurrently(cfg, base, l2, xforms, best, "pass1b")

	if cfg.Verbosity > 0 {
		log.Printf("Align finetune: final %s\n", best)
	}
	return best
}

type fineTuneJob struct {
	// Inputs for the job
	Index       int
	XForm       AlignmentTransform

	// Output
	ErrorMetric float64
}

// scoreXFormsConcurrently uses a pool of goroutines to compute the
// error metrics for each of the proposed transforms, and returns the
// one with the lowest error (the earliest one, on a tie). If no
// transform could be scored at all, `current` is kept.
func scoreXFormsConcurrently(cfg Config, base, l2 *Layer, xforms []AlignmentTransform, current AlignmentTransform, name string) AlignmentTransform {
	var wg sync.WaitGroup
	jobsChan    := make(chan fineTuneJob, len(xforms))
	resultsChan := make(chan fineTuneJob, len(xforms))

	baseLum := luminance(base.Image)

	// Kick off worker pool
	nWorkers := runtime.GOMAXPROCS(0)
	for i:=0; i<nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				job.ErrorMetric = ImgDiff(baseLum, luminance(job.XForm.XFormImage(l2.LoadedImage)))
				resultsChan<- job
			}
		}()
	}

	// Feed in jobs
	for i, xform := range xforms {
		jobsChan<- fineTuneJob{Index: i, XForm: xform}
	}

	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	// results processor
	bestResult := fineTuneJob{Index: len(xforms), ErrorMetric: math.MaxFloat64}
	for result := range resultsChan {
		if result.ErrorMetric < bestResult.ErrorMetric ||
			(result.ErrorMetric == bestResult.ErrorMetric && result.Index < bestResult.Index) {
			bestResult = result
		}
	}

	if bestResult.ErrorMetric == math.MaxFloat64 {
		if cfg.Verbosity > 0 {
			log.Printf(" -- %s: no well exposed pixels in common, keeping %s\n", name, current)
		}
		return current
	}

	xform := bestResult.XForm
	xform.ErrorMetric = bestResult.ErrorMetric

	if cfg.Verbosity > 0 {
		log.Printf(" -- %s: %s (%d tried)\n", name, xform, len(xforms))
	}

	return xform
}

func luminance(img *fimage.Image) *fimage.Image {
	if img.Channels < 3 {
		return (&filter.FilterChannelMean{}).Process(nil, img)
	}
	return filter.NewFilterLuminance(filter.LumCIE).Process(nil, img)
}

// ImgDiff compares two luminance images, and returns an error metric;
// the less similar, the higher the value. Pixels too dim or too bright
// in either image are ignored, so we only compare the pixels both
// exposures captured well. The second image is scaled to match the
// first over those pixels, to cancel out the exposure difference.
func ImgDiff(lum1, lum2 *fimage.Image) float64 {
	const tooLow, tooHigh = 0.02, 0.98

	ok := func(v float32) bool { return v > tooLow && v < tooHigh }

	sum1, sum2, n := 0.0, 0.0, 0
	for i, v1 := range lum1.Data {
		if v2 := lum2.Data[i]; ok(v1) && ok(v2) {
			sum1 += float64(v1)
			sum2 += float64(v2)
			n++
		}
	}
	if n == 0 || sum2 == 0.0 {
		return math.MaxFloat64
	}

	scale := sum1 / sum2
	totErr := 0.0
	for i, v1 := range lum1.Data {
		if v2 := lum2.Data[i]; ok(v1) && ok(v2) {
			totErr += math.Abs(float64(v1) - scale*float64(v2))
		}
	}

	return totErr / float64(n)
}
