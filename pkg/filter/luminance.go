package filter

import(
	"fmt"
	"image"

	"github.com/abworrall/hdr-fusion/pkg/ecolor"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

type LuminanceMode int

const(
	LumCIE LuminanceMode = iota
	LumMean
	LumWard
)

func (m LuminanceMode)String() string {
	switch m {
	case LumCIE:  return "cie"
	case LumMean: return "mean"
	case LumWard: return "ward"
	}
	return fmt.Sprintf("LuminanceMode(%d)", int(m))
}

func (m LuminanceMode)Weights() ecolor.LuminanceWeights {
	switch m {
	case LumMean: return ecolor.MeanLuminance
	case LumWard: return ecolor.WardLuminance
	}
	return ecolor.CIELuminance
}

// FilterLuminance turns an RGB image (first three channels) into a 1
// channel luminance image. Inputs with fewer than 3 channels are
// rejected.
type FilterLuminance struct {
	Mode LuminanceMode
}

func NewFilterLuminance(mode LuminanceMode) *FilterLuminance {
	return &FilterLuminance{Mode: mode}
}

func (f *FilterLuminance)MinInputImages() int { return 1 }

func (f *FilterLuminance)Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	return Run(f, out, ins...)
}

func (f *FilterLuminance)OutputShape(ins []*fimage.Image) (int, int, int, bool) {
	in := ins[0]
	return in.Width, in.Height, 1, in.Channels >= 3
}

func (f *FilterLuminance)ProcessRegion(out *fimage.Image, ins []*fimage.Image, box image.Rectangle) {
	in := ins[0]
	weights := f.Mode.Weights()
	for y:=box.Min.Y; y<box.Max.Y; y++ {
		for x:=box.Min.X; x<box.Max.X; x++ {
			out.Pix(x, y)[0] = weights.Apply(in.Pix(x, y))
		}
	}
}

// FilterChannelMean averages all the channels of each pixel into a 1
// channel image; it accepts any channel count.
type FilterChannelMean struct{}

func (f *FilterChannelMean)MinInputImages() int { return 1 }

func (f *FilterChannelMean)Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	return Run(f, out, ins...)
}

func (f *FilterChannelMean)OutputShape(ins []*fimage.Image) (int, int, int, bool) {
	return ins[0].Width, ins[0].Height, 1, true
}

func (f *FilterChannelMean)ProcessRegion(out *fimage.Image, ins []*fimage.Image, box image.Rectangle) {
	in := ins[0]
	for y:=box.Min.Y; y<box.Max.Y; y++ {
		for x:=box.Min.X; x<box.Max.X; x++ {
			sum := float32(0)
			for _, v := range in.Pix(x, y) {
				sum += v
			}
			out.Pix(x, y)[0] = sum / float32(in.Channels)
		}
	}
}
