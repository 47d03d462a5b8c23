package ecolor

// LuminanceWeights are the per-channel weights that turn an RGB
// triple into a single luminance value.
type LuminanceWeights [3]float32

var(
	// CIE Y from linear sRGB primaries (rounded, Rec.709)
	CIELuminance  = LuminanceWeights{0.213, 0.715, 0.072}

	// Greg Ward's weights, as used in Radiance
	WardLuminance = LuminanceWeights{0.265, 0.670, 0.065}

	MeanLuminance = LuminanceWeights{1.0/3.0, 1.0/3.0, 1.0/3.0}
)

func (w LuminanceWeights)Apply(p []float32) float32 {
	return w[0]*p[0] + w[1]*p[1] + w[2]*p[2]
}
