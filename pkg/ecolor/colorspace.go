package ecolor

// Color spaces, as pairs of pure per-pixel functions. Every space
// maps to and from linear sRGB(D65), which is what the fusion code
// treats as "the" RGB.

import(
	"fmt"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/hdr-fusion/pkg/emath"
)

// A ColorSpace converts 3 channel pixels. Direct goes from linear
// sRGB into the space, Inverse comes back. Both read `in` and write
// `out`, which may be the same slice.
type ColorSpace interface {
	Name() string
	Direct(in, out []float32)
	Inverse(in, out []float32)
}

var(
	// Translates XYZ(D50) to sRGB(D65)
	//
	// http://www.brucelindbloom.com/index.html?Eqn_RGB_XYZ_Matrix.html
	//
	// This bundles in the Bradford chromatic adaptation from D50 to
	// D65, so colors from D50 pipelines (DNG, ICC PCS) don't shift.
	XYZD50_to_linear_sRGBD65 = emath.Mat3{
		 3.1338561, -1.6168667, -0.4906146,
		-0.9787684,  1.9161415,  0.0334540,
		 0.0719453, -0.2289914,  1.4052427,
	}

	linear_sRGBD65_to_XYZD50 = emath.Mat3{
		 0.4360747,  0.3850649,  0.1430804,
		 0.2225045,  0.7168786,  0.0606169,
		 0.0139322,  0.0971045,  0.7141733,
	}

	spaces = map[string]ColorSpace{}
)

func register(cs ColorSpace) { spaces[cs.Name()] = cs }

func init() {
	register(SRGB{})
	register(XYZ{})
	register(XYZD50{})
	register(Lab{})
	register(Luv{})
}

// Lookup finds a color space by name.
func Lookup(name string) (ColorSpace, error) {
	if cs, exists := spaces[strings.ToLower(name)]; exists {
		return cs, nil
	}
	return nil, fmt.Errorf("no colorspace '%s', wanted %s", name, ListSpaces())
}

func ListSpaces() string {
	names := []string{}
	for name := range spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%v", names)
}

func f3(p []float32) (float64, float64, float64) {
	return float64(p[0]), float64(p[1]), float64(p[2])
}

func set3(p []float32, a, b, c float64) {
	p[0], p[1], p[2] = float32(a), float32(b), float32(c)
}

// SRGB is the gamma encoded sRGB space; HDR values above 1 are
// encoded with the same curve.
type SRGB struct{}

func (SRGB)Name() string { return "srgb" }

func (SRGB)Direct(in, out []float32) {
	r, g, b := f3(in)
	set3(out, emath.GammaExpand_F64(r), emath.GammaExpand_F64(g), emath.GammaExpand_F64(b))
}

func (SRGB)Inverse(in, out []float32) {
	r, g, b := f3(in)
	set3(out, emath.GammaLinearize_F64(r), emath.GammaLinearize_F64(g), emath.GammaLinearize_F64(b))
}

// XYZ is CIE 1931 XYZ, D65 white.
type XYZ struct{}

func (XYZ)Name() string { return "xyz" }

func (XYZ)Direct(in, out []float32) {
	x, y, z := colorful.LinearRgbToXyz(f3(in))
	set3(out, x, y, z)
}

func (XYZ)Inverse(in, out []float32) {
	r, g, b := colorful.XyzToLinearRgb(f3(in))
	set3(out, r, g, b)
}

// XYZD50 is CIE XYZ with a D50 white, as used by DNG and ICC.
type XYZD50 struct{}

func (XYZD50)Name() string { return "xyzd50" }

func (XYZD50)Direct(in, out []float32) {
	v := linear_sRGBD65_to_XYZD50.Apply(emath.Vec3{float64(in[0]), float64(in[1]), float64(in[2])})
	set3(out, v[0], v[1], v[2])
}

func (XYZD50)Inverse(in, out []float32) {
	v := XYZD50_to_linear_sRGBD65.Apply(emath.Vec3{float64(in[0]), float64(in[1]), float64(in[2])})
	set3(out, v[0], v[1], v[2])
}

// Lab is CIE L*a*b*, D65 white, with L in [0,1].
type Lab struct{}

func (Lab)Name() string { return "lab" }

func (Lab)Direct(in, out []float32) {
	l, a, b := colorful.XyzToLab(colorful.LinearRgbToXyz(f3(in)))
	set3(out, l, a, b)
}

func (Lab)Inverse(in, out []float32) {
	r, g, b := colorful.XyzToLinearRgb(colorful.LabToXyz(f3(in)))
	set3(out, r, g, b)
}

// Luv is CIE L*u*v*, D65 white.
type Luv struct{}

func (Luv)Name() string { return "luv" }

func (Luv)Direct(in, out []float32) {
	l, u, v := colorful.XyzToLuv(colorful.LinearRgbToXyz(f3(in)))
	set3(out, l, u, v)
}

func (Luv)Inverse(in, out []float32) {
	r, g, b := colorful.XyzToLinearRgb(colorful.LuvToXyz(f3(in)))
	set3(out, r, g, b)
}
