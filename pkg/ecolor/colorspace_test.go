package ecolor

import(
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorSpacesRoundTrip(t *testing.T) {
	colors := [][]float32{
		{0.18, 0.18, 0.18},
		{0.9, 0.2, 0.05},
		{0.1, 0.6, 0.8},
		{1.0, 1.0, 1.0},
	}

	for _, name := range []string{"srgb", "xyz", "xyzd50", "lab", "luv"} {
		cs, err := Lookup(name)
		require.NoError(t, err)

		for _, c := range colors {
			p := append([]float32{}, c...)
			cs.Direct(p, p)
			cs.Inverse(p, p)
			for i := range c {
				assert.InDelta(t, c[i], p[i], 1e-3, "%s: %v -> %v", name, c, p)
			}
		}
	}
}

func TestXYZWhite(t *testing.T) {
	p := []float32{1, 1, 1}
	XYZ{}.Direct(p, p)
	assert.InDelta(t, 1.0, p[1], 1e-3)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("cmyk")
	assert.Error(t, err)
}

func TestLuminanceWeightsSumToOne(t *testing.T) {
	for _, w := range []LuminanceWeights{CIELuminance, WardLuminance, MeanLuminance} {
		assert.InDelta(t, 1.0, w.Apply([]float32{1, 1, 1}), 1e-6)
	}
}
