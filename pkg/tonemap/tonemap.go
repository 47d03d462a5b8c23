package tonemap

import(
	"fmt"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/tmo"

	"github.com/abworrall/hdr-fusion/pkg/fattal02"
	"github.com/abworrall/hdr-fusion/pkg/fusion"
)

var(
	Names = []string{"drago03", "durand", "fattal02", "fusion", "icam06", "linear", "reinhard05"}
)

func ListTonemappers() string {
	return fmt.Sprintf("%v", Names)
}

type Options struct {
	Verbosity  int
	Stops      int             // fusion: virtual exposures run from -Stops to +Stops
	Fusion     fusion.Options  // fusion: weights and pyramid depth
}

func DefaultOptions() Options {
	return Options{
		Stops:  2,
		Fusion: fusion.DefaultOptions(),
	}
}

// New sets up the named tone mapper over `img`. The library operators
// get their parameters tweaked: by default they almost always
// overexpose the small but important bright areas.
func New(name string, img hdr.Image, opts Options) (tmo.ToneMappingOperator, error) {
	switch name {
	case "drago03":
		op := tmo.NewDefaultDrago03(img)
		op.Bias = 1.0            // Otherwise image overexposes, blows out the highlights
		return op, nil

	case "durand":
		return tmo.NewDefaultDurand(img), nil

	case "fattal02":
		op := fattal02.NewDefaultFattal02(img)
		op.WhitePoint  = 0.00001 // We want as close to zero overexposed pixels as we can get
		op.GammaExpand = true    // image comes out too dark otherwise
		if opts.Verbosity > 1 {
			op.DumpGrids = true
		}
		return op, nil

	case "fusion":
		return NewExposureFusionTMO(img, opts.Stops, opts.Fusion), nil

	case "icam06":
		op := tmo.NewDefaultICam06(img)
		op.Contrast    = 0.65
		op.MaxClipping = 0.99999 // Otherwise image overexposes, blows out the highlights
		return op, nil

	case "linear":
		return tmo.NewLinear(img), nil

	case "reinhard05":
		op := tmo.NewDefaultReinhard05(img)
		op.Chromatic  = 0.005
		op.Light      = 0.005    // Otherwise image overexposes, blows out the highlights
		return op, nil
	}

	return nil, fmt.Errorf("tonemapper '%s' not recognized, wanted %s", name, ListTonemappers())
}
