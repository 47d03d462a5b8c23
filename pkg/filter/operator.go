package filter

import(
	"image"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

type Op int

const(
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMin
	OpMax
)

// FilterOperator combines two images elementwise into a new one:
// out = ins[0] op ins[1]. The second operand may have 1 channel, in
// which case it is broadcast. Division by zero yields the dividend.
type FilterOperator struct {
	Op Op
}

func NewFilterOperator(op Op) *FilterOperator { return &FilterOperator{Op: op} }

func (f *FilterOperator)MinInputImages() int { return 2 }

func (f *FilterOperator)Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	return Run(f, out, ins...)
}

func (f *FilterOperator)OutputShape(ins []*fimage.Image) (int, int, int, bool) {
	a, b := ins[0], ins[1]
	ok := a.SameShape(b) || (a.SameSize(b) && b.Channels == 1)
	return a.Width, a.Height, a.Channels, ok
}

func (f *FilterOperator)apply(a, b float32) float32 {
	switch f.Op {
	case OpAdd: return a + b
	case OpSub: return a - b
	case OpMul: return a * b
	case OpDiv:
		if b == 0.0 {
			return a
		}
		return a / b
	case OpMin:
		if b < a { return b }
		return a
	case OpMax:
		if b > a { return b }
		return a
	}
	return a
}

func (f *FilterOperator)ProcessRegion(out *fimage.Image, ins []*fimage.Image, box image.Rectangle) {
	a, b := ins[0], ins[1]
	for y:=box.Min.Y; y<box.Max.Y; y++ {
		for x:=box.Min.X; x<box.Max.X; x++ {
			pa, pb, po := a.Pix(x, y), b.Pix(x, y), out.Pix(x, y)
			for c := range po {
				if b.Channels == 1 {
					po[c] = f.apply(pa[c], pb[0])
				} else {
					po[c] = f.apply(pa[c], pb[c])
				}
			}
		}
	}
}
