package pyramid

// Gaussian and Laplacian image pyramids.
//
// Each level is built from the one above it by a gaussian blur
// (sigma 1, clamp-to-edge) followed by picking the even pixels. The
// upsampler is bilinear, phase matched so coarse pixel i lands on
// fine pixel 2i. Reconstruction uses exactly the same upsampler as
// construction, so a Laplacian pyramid reconstructs its source up to
// float rounding.

import(
	"errors"
	"fmt"
	"log"

	"github.com/abworrall/hdr-fusion/pkg/emath"
	"github.com/abworrall/hdr-fusion/pkg/filter"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

const BlurSigma = 1.0

var(
	ErrShapeMismatch = errors.New("pyramid: image shape does not match pyramid")

	// Verbose > 0 logs the no-op paths.
	Verbose = 0
)

// A Pyramid owns its level images. Stack[0] is full resolution; the
// last entry is always the coarsest gaussian level (the DC residual),
// so a pyramid of NumLevels() n holds n band levels plus that.
//
// In Gaussian mode Stack[i] for i < n is the blurred level i, while
// Stack[n] is the plain downsample of the blurred level n-1 and gets
// no blur of its own.
//
// All filters and scratch images are kept per level, so once built,
// Update and Reconstruct allocate no new images.
type Pyramid struct {
	Stack       []*fimage.Image
	LapGauss    bool   // true: Laplacian (band-pass) levels; false: Gaussian (blurred) levels
	LimitLevel  int

	blurs     []*filter.FilterGaussian2D  // one per level, so each keeps its own scratch
	down        *filter.FilterSampler
	ups       []*filter.FilterSampler     // ups[i] upsamples level i+1 to the size of level i

	// per-level scratch, reused by Update and Reconstruct
	blurred   []*fimage.Image
	trackerUp []*fimage.Image
	trackerRec []*fimage.Image
}

// NumLevelsFor returns how many band levels a w x h image gets:
// max(floor(log2(min(w,h))) - limitLevel, 1).
func NumLevelsFor(w, h, limitLevel int) int {
	minDim := w
	if h < minDim { minDim = h }
	n := emath.Log2Floor(minDim) - limitLevel
	if n < 1 {
		n = 1
	}
	return n
}

func newPyramid(w, h int, lapGauss bool, limitLevel int) *Pyramid {
	n := NumLevelsFor(w, h, limitLevel)
	p := &Pyramid{
		Stack:      make([]*fimage.Image, n+1),
		LapGauss:   lapGauss,
		LimitLevel: limitLevel,
		blurs:      make([]*filter.FilterGaussian2D, n),
		down:       filter.NewDownSampler2(),
		blurred:    make([]*fimage.Image, n),
		trackerUp:  make([]*fimage.Image, n),
	}
	p.ups = make([]*filter.FilterSampler, n)
	for i := range p.blurs {
		p.blurs[i] = filter.NewFilterGaussian2D(BlurSigma)
		p.ups[i] = filter.NewUpSampler2(w, h)
		w, h = filter.HalfSize(w), filter.HalfSize(h)
	}
	return p
}

// New builds a pyramid from `src`. It returns nil for a nil source.
func New(src *fimage.Image, lapGauss bool, limitLevel int) *Pyramid {
	if src == nil {
		return nil
	}
	p := newPyramid(src.Width, src.Height, lapGauss, limitLevel)
	p.compute(src)
	return p
}

// NewShape allocates a zeroed pyramid with the level shapes that New
// would produce for a w x h x c source.
func NewShape(w, h, c int, lapGauss bool, limitLevel int) *Pyramid {
	if w < 1 || h < 1 || c < 1 {
		return nil
	}
	p := newPyramid(w, h, lapGauss, limitLevel)
	for i := range p.Stack {
		p.Stack[i] = fimage.New(w, h, c)
		w, h = filter.HalfSize(w), filter.HalfSize(h)
	}
	return p
}

func (p *Pyramid)String() string {
	mode := "gaussian"
	if p.LapGauss {
		mode = "laplacian"
	}
	str := fmt.Sprintf("Pyramid[%s, %d levels:", mode, p.NumLevels())
	for _, l := range p.Stack {
		str += fmt.Sprintf(" %dx%d", l.Width, l.Height)
	}
	return str + "]"
}

// NumLevels is the number of band levels, not counting the coarsest residual.
func (p *Pyramid)NumLevels() int { return len(p.Stack) - 1 }

func (p *Pyramid)Level(i int) *fimage.Image {
	if i < 0 || i >= len(p.Stack) {
		return nil
	}
	return p.Stack[i]
}

// Width etc. describe the full resolution level.
func (p *Pyramid)Width() int    { return p.Stack[0].Width }
func (p *Pyramid)Height() int   { return p.Stack[0].Height }
func (p *Pyramid)Channels() int { return p.Stack[0].Channels }

// compute fills the stack from `src`, reusing every level and
// scratch image that already has the right shape.
func (p *Pyramid)compute(src *fimage.Image) {
	cur := src
	for i:=0; i<p.NumLevels(); i++ {
		p.blurred[i] = p.blurs[i].Process(p.blurred[i], cur)

		// The next level down is kept as the next stack entry, which
		// is also the input for the following iteration
		p.Stack[i+1] = p.down.Process(p.Stack[i+1], p.blurred[i])

		if p.LapGauss {
			// band = cur - up(down(blur(cur)))
			p.trackerUp[i] = p.ups[i].Process(p.trackerUp[i], p.Stack[i+1])
			p.Stack[i] = fimage.AllocateLike(p.Stack[i], cur).CopyFrom(cur).Sub(p.trackerUp[i])
		} else {
			p.Stack[i] = fimage.AllocateLike(p.Stack[i], cur).CopyFrom(p.blurred[i])
		}

		cur = p.Stack[i+1]
	}
}

// Update refills the levels in place from a new source, which must
// have the same shape as the one the pyramid was built from.
func (p *Pyramid)Update(src *fimage.Image) error {
	if src == nil || !src.SameShape(p.Stack[0]) {
		if Verbose > 0 {
			log.Printf("pyramid.Update: %s does not fit %s\n", src, p)
		}
		return ErrShapeMismatch
	}
	p.compute(src)
	return nil
}

// SameShape is true if both pyramids have the same number of levels,
// and each pair of levels has the same shape.
func (p *Pyramid)SameShape(o *Pyramid) bool {
	if o == nil || len(p.Stack) != len(o.Stack) {
		return false
	}
	for i := range p.Stack {
		if !p.Stack[i].SameShape(o.Stack[i]) {
			return false
		}
	}
	return true
}

// sameLayout is SameShape, but allows `o` to have 1 channel per level
// (for broadcasting weights).
func (p *Pyramid)sameLayout(o *Pyramid) bool {
	if o == nil || len(p.Stack) != len(o.Stack) {
		return false
	}
	for i := range p.Stack {
		if !p.Stack[i].SameSize(o.Stack[i]) {
			return false
		}
		if c := o.Stack[i].Channels; c != 1 && c != p.Stack[i].Channels {
			return false
		}
	}
	return true
}

func (p *Pyramid)SetValue(v float32) *Pyramid {
	for _, l := range p.Stack {
		l.SetValue(v)
	}
	return p
}

// Add adds `o` level by level. No-op if the pyramids differ in shape.
func (p *Pyramid)Add(o *Pyramid) *Pyramid {
	if !p.SameShape(o) {
		p.logMismatch("Add", o)
		return p
	}
	for i, l := range p.Stack {
		l.Add(o.Stack[i])
	}
	return p
}

// Multiply multiplies level by level. A pyramid with 1 channel levels
// is broadcast across the channels of p. No-op on any other mismatch.
func (p *Pyramid)Multiply(o *Pyramid) *Pyramid {
	if !p.sameLayout(o) {
		p.logMismatch("Multiply", o)
		return p
	}
	for i, l := range p.Stack {
		l.Mul(o.Stack[i])
	}
	return p
}

// Blend sets each level to lerp(level, other.level, weight.level).
// Weights are expected in [0,1] and aren't clamped.
func (p *Pyramid)Blend(o, weights *Pyramid) *Pyramid {
	if !p.SameShape(o) || !p.sameLayout(weights) {
		p.logMismatch("Blend", o)
		return p
	}
	for i, l := range p.Stack {
		l.Lerp(o.Stack[i], weights.Stack[i])
	}
	return p
}

// Reconstruct collapses the pyramid into `out` (provide-or-allocate),
// from the coarsest level upwards. Pyramids with fewer than 2 stack
// entries return `out` untouched.
func (p *Pyramid)Reconstruct(out *fimage.Image) *fimage.Image {
	n := len(p.Stack)
	if n < 2 {
		return out
	}
	if len(p.trackerRec) != n-1 {
		p.trackerRec = make([]*fimage.Image, n-1)
	}

	cur := p.Stack[n-1]
	for i:=n-2; i>=0; i-- {
		level := p.Stack[i]
		up := p.ups[i]

		if i == 0 {
			out = up.Process(out, cur)
			if out == nil {
				return nil
			}
			return out.Add(level)
		}

		p.trackerRec[i] = up.Process(p.trackerRec[i], cur)
		p.trackerRec[i].Add(level)
		cur = p.trackerRec[i]
	}
	return out
}

func (p *Pyramid)logMismatch(op string, o *Pyramid) {
	if Verbose > 0 {
		log.Printf("pyramid.%s: %s does not match %v, skipping\n", op, p, o)
	}
}
