package fusion

// Exposure fusion (Mertens, Kautz & Van Reeth 2007): blends a stack of
// differently exposed LDR images directly into one well exposed image,
// weighting each exposure per pixel by its contrast, saturation and
// well-exposedness, and blending across a Laplacian pyramid so the
// seams between exposures don't show.

import(
	"log"
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/abworrall/hdr-fusion/pkg/filter"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
	"github.com/abworrall/hdr-fusion/pkg/pyramid"
)

var(
	ErrTooFewImages  = errors.New("fusion: need at least 2 images")
	ErrShapeMismatch = errors.New("fusion: images differ in shape")

	// Verbose > 0 logs each pass.
	Verbose = 0
)

type Options struct {
	WC          float64  // contrast exponent
	WE          float64  // well-exposedness exponent
	WS          float64  // saturation exponent
	LimitLevel  int      // pyramids stop this many levels short of 1 pixel
	Concurrent  bool     // build each exposure's weight and image pyramids in parallel
}

func DefaultOptions() Options {
	return Options{WC: 1.0, WE: 1.0, WS: 1.0, LimitLevel: 1}
}

// ExposureFusion holds the scratch images and pyramids of a fusion,
// and keeps them between calls: fusing a sequence of same-shaped
// stacks (e.g. video frames) reallocates nothing after the first.
// Not safe for concurrent use.
type ExposureFusion struct {
	Options

	lumRGB     *filter.FilterLuminance
	lumMean    *filter.FilterChannelMean
	weights    *filter.FilterExposureFusionWeights
	normalize  *filter.FilterOperator

	lumImg     *fimage.Image
	weightImg  *fimage.Image
	normImg    *fimage.Image
	acc        *fimage.Image
	unweighted []bool  // pixels where every exposure had zero (or NaN) weight

	weightPyr  *pyramid.Pyramid  // 1 channel, gaussian
	imagePyr   *pyramid.Pyramid  // n channels, laplacian
	outputPyr  *pyramid.Pyramid  // n channels, laplacian
}

func New(opts Options) *ExposureFusion {
	return &ExposureFusion{
		Options:   opts,
		lumRGB:    filter.NewFilterLuminance(filter.LumCIE),
		lumMean:   &filter.FilterChannelMean{},
		weights:   filter.NewFilterExposureFusionWeights(opts.WC, opts.WE, opts.WS),
		normalize: filter.NewFilterOperator(filter.OpDiv),
	}
}

// Fuse is a one-shot fusion with the given exponents.
func Fuse(images []*fimage.Image, wC, wE, wS float64) (*fimage.Image, error) {
	opts := DefaultOptions()
	opts.WC, opts.WE, opts.WS = wC, wE, wS
	return New(opts).Fuse(images, nil)
}

// Fuse blends the exposures into `out` (provide-or-allocate). All
// images must share one shape. With fewer than 2 images, or mismatched
// shapes, `out` is returned unchanged along with an error.
//
// Every output pixel is a sum over exposures, always taken in input
// order, so results don't depend on the worker count.
func (ef *ExposureFusion)Fuse(images []*fimage.Image, out *fimage.Image) (*fimage.Image, error) {
	if len(images) < 2 {
		return out, ErrTooFewImages
	}
	for _, img := range images {
		if img == nil || !img.SameShape(images[0]) {
			return out, errors.Wrapf(ErrShapeMismatch, "want %s, got %s", images[0], img)
		}
	}
	w, h, c := images[0].Width, images[0].Height, images[0].Channels

	// Pass 1: sum the weights of all exposures
	ef.acc = fimage.Allocate(ef.acc, w, h, 1).SetValue(0)
	for _, img := range images {
		ef.acc.Add(ef.weightMap(img))
	}

	// Where no exposure got any weight, fall back to an even mix of
	// them all, so the pixel stays inside the range of the inputs
	if cap(ef.unweighted) < w*h {
		ef.unweighted = make([]bool, w*h)
	}
	ef.unweighted = ef.unweighted[:w*h]
	nUnweighted := 0
	for i, v := range ef.acc.Data {
		ef.unweighted[i] = v <= 0.0 || math.IsNaN(float64(v))
		if ef.unweighted[i] {
			ef.acc.Data[i] = 1.0
			nUnweighted++
		}
	}

	if Verbose > 0 {
		log.Printf("fusion: pass 1 over %d exposures of %s done, %d pixels unweighted\n", len(images), images[0], nUnweighted)
	}

	// Pass 2: blend each exposure into the output pyramid, weighted by
	// its normalized weights
	ef.ensurePyramids(w, h, c)
	ef.outputPyr.SetValue(0)

	for _, img := range images {
		ef.normImg = ef.normalize.Process(ef.normImg, ef.weightMap(img), ef.acc)
		if nUnweighted > 0 {
			even := 1.0 / float32(len(images))
			for i, u := range ef.unweighted {
				if u {
					ef.normImg.Data[i] = even
				}
			}
		}
		if err := ef.updatePyramids(ef.normImg, img); err != nil {
			return out, err
		}
		ef.imagePyr.Multiply(ef.weightPyr)
		ef.outputPyr.Add(ef.imagePyr)
	}

	out = ef.outputPyr.Reconstruct(out)
	out.FloorAt(0)

	if Verbose > 0 {
		log.Printf("fusion: pass 2 done, %s\n", ef.outputPyr)
	}

	return out, nil
}

// weightMap computes the (unnormalized) weights of one exposure into
// the shared scratch image.
func (ef *ExposureFusion)weightMap(img *fimage.Image) *fimage.Image {
	if img.Channels >= 3 {
		ef.lumImg = ef.lumRGB.Process(ef.lumImg, img)
	} else {
		ef.lumImg = ef.lumMean.Process(ef.lumImg, img)
	}
	ef.weightImg = ef.weights.Process(ef.weightImg, ef.lumImg, img)
	return ef.weightImg
}

func (ef *ExposureFusion)ensurePyramids(w, h, c int) {
	fits := func(p *pyramid.Pyramid, nc int) bool {
		return p != nil && p.Width() == w && p.Height() == h && p.Channels() == nc && p.LimitLevel == ef.LimitLevel
	}

	if !fits(ef.weightPyr, 1) {
		ef.weightPyr = pyramid.NewShape(w, h, 1, false, ef.LimitLevel)
	}
	if !fits(ef.imagePyr, c) {
		ef.imagePyr = pyramid.NewShape(w, h, c, true, ef.LimitLevel)
	}
	if !fits(ef.outputPyr, c) {
		ef.outputPyr = pyramid.NewShape(w, h, c, true, ef.LimitLevel)
	}
}

func (ef *ExposureFusion)updatePyramids(weights, img *fimage.Image) error {
	if !ef.Concurrent {
		if err := ef.weightPyr.Update(weights); err != nil {
			return err
		}
		return ef.imagePyr.Update(img)
	}

	// The two pyramids share no state, so they can be built side by side
	var wg sync.WaitGroup
	var errW, errI error
	wg.Add(2)
	go func() {
		defer wg.Done()
		errW = ef.weightPyr.Update(weights)
	}()
	go func() {
		defer wg.Done()
		errI = ef.imagePyr.Update(img)
	}()
	wg.Wait()

	if errW != nil {
		return errW
	}
	return errI
}

// EstimateBytes is roughly how much memory fusing n exposures of
// w x h x c needs, counting pyramids and their scratch.
func EstimateBytes(w, h, c, n int) uint64 {
	const floatBytes = 4
	pixels := uint64(w) * uint64(h)

	inputs := pixels * uint64(c*n) * floatBytes
	maps := 4 * pixels * floatBytes                           // lum, weights, normalized, acc
	pyramids := pixels * uint64(2*c+1) * floatBytes * 4 / 3   // image, output, weight
	scratch := 3 * pyramids                                   // blurred, upsampled, blur tmp per level

	return inputs + maps + pyramids + scratch
}

// FuseFrames fuses multi-frame buffers frame by frame: frame f of the
// output is the fusion of frame f of each input. All inputs must have
// the same shape and frame count. The pyramids are built once and
// updated in place for every frame.
func (ef *ExposureFusion)FuseFrames(videos []*fimage.Image, out *fimage.Image) (*fimage.Image, error) {
	if len(videos) < 2 {
		return out, ErrTooFewImages
	}
	for _, v := range videos {
		if v == nil || !v.SameShape(videos[0]) || v.Frames != videos[0].Frames {
			return out, ErrShapeMismatch
		}
	}

	v0 := videos[0]
	if out == nil || !out.SameShape(v0) || out.Frames != v0.Frames {
		out = fimage.NewFrames(v0.Width, v0.Height, v0.Channels, v0.Frames)
	}

	frames := make([]*fimage.Image, len(videos))
	var fused *fimage.Image
	for f:=0; f<v0.Frames; f++ {
		for i, v := range videos {
			frames[i] = v.Frame(f)
		}
		var err error
		if fused, err = ef.Fuse(frames, fused); err != nil {
			return out, errors.Wrapf(err, "frame %d", f)
		}
		out.Frame(f).CopyFrom(fused)
	}

	return out, nil
}
