package filter

import(
	"image"
	"math"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

const(
	// Spread of the well-exposedness gaussian, centred on mid gray
	ExposednessSigma = 0.2

	// Contrast and saturation are floored at this before being raised
	// to their exponents, so flat or gray pixels still get a weight
	// ranked by their exposedness rather than collapsing to zero.
	WeightTermEpsilon = 1e-6
)

// FilterExposureFusionWeights computes the Mertens quality measure of
// one exposure. Inputs are the exposure's luminance (1 channel) and
// the exposure itself (any channel count, same size); the output is
// a 1 channel weight map:
//
//   contrast^WC * exposedness^WE * saturation^WS
//
// where contrast is |4-neighbour laplacian| of the luminance,
// exposedness is a gaussian around 0.5 of the luminance, and
// saturation is the std deviation of the pixel's channels.
type FilterExposureFusionWeights struct {
	WC float64
	WE float64
	WS float64
}

// NewFilterExposureFusionWeights replaces non-positive exponents with 1.
func NewFilterExposureFusionWeights(wC, wE, wS float64) *FilterExposureFusionWeights {
	sanitize := func(w float64) float64 {
		if w > 0.0 {
			return w
		}
		return 1.0
	}
	return &FilterExposureFusionWeights{
		WC: sanitize(wC),
		WE: sanitize(wE),
		WS: sanitize(wS),
	}
}

func (f *FilterExposureFusionWeights)MinInputImages() int { return 2 }

func (f *FilterExposureFusionWeights)Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	return Run(f, out, ins...)
}

func (f *FilterExposureFusionWeights)OutputShape(ins []*fimage.Image) (int, int, int, bool) {
	lum, col := ins[0], ins[1]
	return lum.Width, lum.Height, 1, lum.SameSize(col)
}

func (f *FilterExposureFusionWeights)ProcessRegion(out *fimage.Image, ins []*fimage.Image, box image.Rectangle) {
	lum, col := ins[0], ins[1]
	twoSigmaSq := 2.0 * ExposednessSigma * ExposednessSigma

	for y:=box.Min.Y; y<box.Max.Y; y++ {
		for x:=box.Min.X; x<box.Max.X; x++ {
			L := float64(lum.Pix(x, y)[0])

			laplacian := float64(lum.At1(x-1, y, 0) + lum.At1(x+1, y, 0) + lum.At1(x, y-1, 0) + lum.At1(x, y+1, 0)) - 4.0*L
			contrast := math.Abs(laplacian)

			exposedness := math.Exp(-1.0 * (L-0.5)*(L-0.5) / twoSigmaSq)

			saturation := stdDev(col.Pix(x, y))

			w := math.Pow(contrast + WeightTermEpsilon, f.WC) *
				math.Pow(exposedness, f.WE) *
				math.Pow(saturation + WeightTermEpsilon, f.WS)

			out.Pix(x, y)[0] = float32(w)
		}
	}
}

// stdDev is the population standard deviation of the samples; 0 for a single sample.
func stdDev(p []float32) float64 {
	if len(p) < 2 {
		return 0.0
	}
	mean := 0.0
	for _, v := range p {
		mean += float64(v)
	}
	mean /= float64(len(p))

	variance := 0.0
	for _, v := range p {
		d := float64(v) - mean
		variance += d*d
	}
	return math.Sqrt(variance / float64(len(p)))
}
