package filter

import(
	"image"

	"github.com/abworrall/hdr-fusion/pkg/ecolor"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

// FilterColorConv converts the first three channels of an image to
// (or, with Inverse set, from) a color space; any further channels
// are copied through.
type FilterColorConv struct {
	Space    ecolor.ColorSpace
	Inverse  bool
}

func NewFilterColorConv(space ecolor.ColorSpace, inverse bool) *FilterColorConv {
	return &FilterColorConv{Space: space, Inverse: inverse}
}

func (f *FilterColorConv)MinInputImages() int { return 1 }

func (f *FilterColorConv)Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	return Run(f, out, ins...)
}

func (f *FilterColorConv)OutputShape(ins []*fimage.Image) (int, int, int, bool) {
	in := ins[0]
	return in.Width, in.Height, in.Channels, f.Space != nil && in.Channels >= 3
}

func (f *FilterColorConv)ProcessRegion(out *fimage.Image, ins []*fimage.Image, box image.Rectangle) {
	in := ins[0]
	for y:=box.Min.Y; y<box.Max.Y; y++ {
		for x:=box.Min.X; x<box.Max.X; x++ {
			po := out.Pix(x, y)
			copy(po, in.Pix(x, y))
			if f.Inverse {
				f.Space.Inverse(po, po)
			} else {
				f.Space.Direct(po, po)
			}
		}
	}
}
