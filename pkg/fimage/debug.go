package fimage

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg"

	"github.com/abworrall/hdr-fusion/pkg/emath"
)

func (img *Image)Stats() string {
	min, max := img.MinVal(nil), img.MaxVal(nil)
	return fmt.Sprintf("%s vals{%v,%v}", img, min, max)
}

// Percentiles returns the values of channel `ch` at the two given
// percentiles (fractions in [0,1]), ignoring samples that are exactly
// zero.
func (img *Image)Percentiles(ch int, minPrct, maxPrct float64) (float32, float32) {
	vals := []float64{}
	for i:=ch; i<len(img.Data); i+=img.Channels {
		if v := img.Data[i]; v != 0.0 {
			vals = append(vals, float64(v))
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}

	sort.Float64s(vals)

	iMin := int(minPrct * float64(len(vals)))
	iMax := int(maxPrct * float64(len(vals)))
	if iMin < 0          { iMin = 0 }
	if iMin >= len(vals) { iMin = len(vals)-1 }
	if iMax < 0          { iMax = 0 }
	if iMax >= len(vals) { iMax = len(vals)-1 }

	return float32(vals[iMin]), float32(vals[iMax])
}

// DumpPNG saves channel `ch` as a simple grayscale, stretched over the
// range of values in that channel and gamma encoded so it looks normal
// to human vision, with a title drawn in the corner.
func (img *Image)DumpPNG(ch int, title, filename string) error {
	min, max := img.MinVal(nil)[ch], img.MaxVal(nil)[ch]
	span := float64(max - min)
	if span == 0 {
		span = 1
	}

	out := image.NewRGBA64(img.Rect())
	for y:=0; y<img.Height; y++ {
		for x:=0; x<img.Width; x++ {
			v := float64(img.Pix(x, y)[ch] - min) / span
			gray := uint16(math.Min(emath.GammaExpand_F64(v), 1.0) * 65535.0)
			out.SetRGBA64(x, y, color.RGBA64{gray, gray, gray, 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(out)
	dc.SetRGB(1, 0, 0)
	dc.DrawString(title, 10, 20)
	return dc.SavePNG(filename)
}
