package tonemap

import(
	"image"
	"math"

	"github.com/mdouchement/hdr"

	"github.com/abworrall/hdr-fusion/pkg/ecolor"
	"github.com/abworrall/hdr-fusion/pkg/filter"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
	"github.com/abworrall/hdr-fusion/pkg/fusion"
)

// MidGray is where the mean luminance of the HDR image lands in the
// 0 stop virtual exposure.
const MidGray = 0.18

// ExposureFusionTMO tone maps an HDR image by bracketing it: it makes
// virtual LDR exposures a stop apart, then fuses them.
type ExposureFusionTMO struct {
	Stops       int
	Options     fusion.Options

	Input       hdr.Image
	Exposures []*fimage.Image  // the virtual exposures, darkest first; filled by Perform
}

func NewExposureFusionTMO(img hdr.Image, stops int, opts fusion.Options) *ExposureFusionTMO {
	if stops < 0 {
		stops = 0
	}
	return &ExposureFusionTMO{Stops: stops, Options: opts, Input: img}
}

// Implement mdouchement/hdr/tmo:ToneMappingOperator
func (op *ExposureFusionTMO)Perform() image.Image {
	src, ok := op.Input.(*fimage.Image)
	if !ok || src.Channels < 3 {
		src = fimage.FromImage(op.Input)
	}

	lum := filter.NewFilterLuminance(filter.LumCIE).Process(nil, src)
	key := 1.0
	if mean := float64(lum.MeanVal(nil)[0]); mean > 0.0 {
		key = MidGray / mean
	}

	encode := filter.NewFilterColorConv(ecolor.SRGB{}, false)
	op.Exposures = op.Exposures[:0]
	for f:=-op.Stops; f<=op.Stops; f++ {
		scale := float32(key * math.Pow(2.0, float64(f)))
		exp := src.Clone().MulScalar(scale).FloorAt(0.0).CeilingAt(1.0)
		op.Exposures = append(op.Exposures, encode.Process(nil, exp))
	}

	out, err := fusion.New(op.Options).Fuse(op.Exposures, nil)
	if err != nil {
		// a single exposure has nothing to fuse with
		out = op.Exposures[len(op.Exposures)/2]
	}

	return out.CeilingAt(1.0).ToLDR()
}
