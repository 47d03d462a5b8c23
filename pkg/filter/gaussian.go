package filter

import(
	"image"
	"math"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

// GaussianKernel1D returns a normalized kernel of radius ceil(3*sigma).
func GaussianKernel1D(sigma float64) []float32 {
	if sigma <= 0.0 {
		return []float32{1.0}
	}
	radius := int(math.Ceil(3.0 * sigma))
	kernel := make([]float32, 2*radius+1)

	sum := 0.0
	for i:=-radius; i<=radius; i++ {
		v := math.Exp(-1.0 * float64(i*i) / (2.0 * sigma * sigma))
		kernel[i+radius] = float32(v)
		sum += v
	}
	for i := range kernel {
		kernel[i] /= float32(sum)
	}
	return kernel
}

// FilterGaussian1D convolves every channel with a gaussian along one
// axis, with clamp-to-edge addressing.
type FilterGaussian1D struct {
	Sigma      float64
	Vertical   bool

	kernel   []float32
}

func NewFilterGaussian1D(sigma float64, vertical bool) *FilterGaussian1D {
	return &FilterGaussian1D{
		Sigma:    sigma,
		Vertical: vertical,
		kernel:   GaussianKernel1D(sigma),
	}
}

func (f *FilterGaussian1D)MinInputImages() int { return 1 }

func (f *FilterGaussian1D)Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	return Run(f, out, ins...)
}

func (f *FilterGaussian1D)OutputShape(ins []*fimage.Image) (int, int, int, bool) {
	return ins[0].Width, ins[0].Height, ins[0].Channels, true
}

func (f *FilterGaussian1D)ProcessRegion(out *fimage.Image, ins []*fimage.Image, box image.Rectangle) {
	in := ins[0]
	radius := len(f.kernel) / 2
	dx, dy := 1, 0
	if f.Vertical {
		dx, dy = 0, 1
	}

	for y:=box.Min.Y; y<box.Max.Y; y++ {
		for x:=box.Min.X; x<box.Max.X; x++ {
			p := out.Pix(x, y)
			for c := range p {
				sum := float32(0)
				for k, kv := range f.kernel {
					off := k - radius
					sum += kv * in.At1(x + off*dx, y + off*dy, c)
				}
				p[c] = sum
			}
		}
	}
}

// FilterGaussian2D is a separable gaussian blur: a horizontal pass
// into a cached scratch image, then a vertical pass into the output.
type FilterGaussian2D struct {
	Sigma    float64

	x       *FilterGaussian1D
	y       *FilterGaussian1D
	tmp     *fimage.Image
}

func NewFilterGaussian2D(sigma float64) *FilterGaussian2D {
	return &FilterGaussian2D{
		Sigma: sigma,
		x:     NewFilterGaussian1D(sigma, false),
		y:     NewFilterGaussian1D(sigma, true),
	}
}

func (f *FilterGaussian2D)MinInputImages() int { return 1 }

func (f *FilterGaussian2D)Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	if !enoughInputs(1, ins) {
		return out
	}
	f.tmp = f.x.Process(f.tmp, ins[0])
	return f.y.Process(out, f.tmp)
}
