package filter

import(
	"image"
	"math"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

type SampleMode int

const(
	SampleNearest SampleMode = iota
	SampleBilinear
)

// FilterSampler resamples an image. Output pixel (x,y) reads the
// input at (x*ScaleX, y*ScaleY), so pixel 0 of both images sit on the
// same spot; with ScaleX=2 a nearest sampler picks the even columns.
// Reads past the edge are clamped.
//
// Width/Height set the output size; when zero it is derived as
// ceil(in/scale).
type FilterSampler struct {
	Mode    SampleMode
	ScaleX  float64
	ScaleY  float64
	Width   int
	Height  int
}

// NewDownSampler2 halves an image by point sampling the even coordinates.
func NewDownSampler2() *FilterSampler {
	return &FilterSampler{Mode: SampleNearest, ScaleX: 2.0, ScaleY: 2.0}
}

// NewUpSampler2 doubles an image bilinearly into a w x h output; it is
// the phase-matched inverse of NewDownSampler2.
func NewUpSampler2(w, h int) *FilterSampler {
	return &FilterSampler{Mode: SampleBilinear, ScaleX: 0.5, ScaleY: 0.5, Width: w, Height: h}
}

// HalfSize is the size NewDownSampler2 produces.
func HalfSize(n int) int {
	return (n + 1) / 2
}

func (f *FilterSampler)MinInputImages() int { return 1 }

func (f *FilterSampler)Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	return Run(f, out, ins...)
}

func (f *FilterSampler)OutputShape(ins []*fimage.Image) (int, int, int, bool) {
	in := ins[0]
	if f.ScaleX <= 0.0 || f.ScaleY <= 0.0 {
		return 0, 0, 0, false
	}
	w, h := f.Width, f.Height
	if w <= 0 {
		w = int(math.Ceil(float64(in.Width) / f.ScaleX))
	}
	if h <= 0 {
		h = int(math.Ceil(float64(in.Height) / f.ScaleY))
	}
	if w < 1 { w = 1 }
	if h < 1 { h = 1 }
	return w, h, in.Channels, true
}

func (f *FilterSampler)ProcessRegion(out *fimage.Image, ins []*fimage.Image, box image.Rectangle) {
	in := ins[0]

	for y:=box.Min.Y; y<box.Max.Y; y++ {
		fy := float64(y) * f.ScaleY
		for x:=box.Min.X; x<box.Max.X; x++ {
			fx := float64(x) * f.ScaleX
			p := out.Pix(x, y)

			if f.Mode == SampleNearest {
				copy(p, in.PixClamped(int(math.Floor(fx + 0.5)), int(math.Floor(fy + 0.5))))
				continue
			}

			x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
			tx, ty := float32(fx - float64(x0)), float32(fy - float64(y0))
			p00 := in.PixClamped(x0,   y0)
			p10 := in.PixClamped(x0+1, y0)
			p01 := in.PixClamped(x0,   y0+1)
			p11 := in.PixClamped(x0+1, y0+1)
			for c := range p {
				top := p00[c] + (p10[c] - p00[c])*tx
				bot := p01[c] + (p11[c] - p01[c])*tx
				p[c] = top + (bot - top)*ty
			}
		}
	}
}
