package estack

import(
	"fmt"
	"path/filepath"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

// A Layer is one exposure of the stack.
type Layer struct {
	LoadFilename       string
	LoadedImage       *fimage.Image  // The original photo
	ExposureValue                    // From EXIF, if HasExposureValue
	HasExposureValue   bool

	AlignmentTransform               // How to map a point in this layer onto the base layer

	// _This_ image is aligned across layers, so a pixel at [x,y] relates to the same point on every layer
	Image             *fimage.Image

	meanLum            float32
}

func NewLayer(filename string, img *fimage.Image) Layer {
	return Layer{
		LoadFilename: filename,
		LoadedImage:  img,
		Image:        img,
		meanLum:      meanLuminance(img),
	}
}

func (l Layer)String() string {
	ev := "no EV"
	if l.HasExposureValue {
		ev = l.ExposureValue.String()
	}
	return fmt.Sprintf("%s: %s, %s, mean lum %.3f, %s", l.Filename(), l.LoadedImage, ev, l.meanLum, l.AlignmentTransform)
}

func (l Layer)Filename() string {
	return filepath.Base(l.LoadFilename)
}

func meanLuminance(img *fimage.Image) float32 {
	if img == nil {
		return 0
	}
	return luminance(img).MeanVal(nil)[0]
}

// brighterThan orders layers brightest first: by EV when both know
// it, else by how bright the pixels are.
func (l Layer)brighterThan(o Layer) bool {
	if l.HasExposureValue && o.HasExposureValue {
		return l.EV < o.EV
	}
	return l.meanLum > o.meanLum
}
