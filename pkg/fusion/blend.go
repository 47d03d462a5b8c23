package fusion

import(
	"github.com/abworrall/hdr-fusion/pkg/fimage"
	"github.com/abworrall/hdr-fusion/pkg/pyramid"
)

// Blend does a Burt-Adelson multiresolution blend of two images,
// using a 1 channel mask in [0,1] (0 keeps `a`, 1 takes `b`). The
// mask is smoothed by its gaussian pyramid, so hard mask edges give
// soft seams. Mismatched inputs leave `out` untouched.
func Blend(a, b, mask *fimage.Image, limitLevel int, out *fimage.Image) *fimage.Image {
	if !a.SameShape(b) || !a.SameSize(mask) || mask.Channels != 1 {
		return out
	}

	pa := pyramid.New(a, true, limitLevel)
	pb := pyramid.New(b, true, limitLevel)
	pm := pyramid.New(mask, false, limitLevel)

	return pa.Blend(pb, pm).Reconstruct(out)
}
