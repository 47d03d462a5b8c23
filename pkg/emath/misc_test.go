package emath

import(
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGammaRoundTrip(t *testing.T) {
	for _, v := range []float64{0.0, 0.001, 0.0031308, 0.04, 0.18, 0.5, 0.9, 1.0} {
		assert.InDelta(t, v, GammaLinearize_F64(GammaExpand_F64(v)), 1e-9, "value %f", v)
	}
}

func TestLog2Floor(t *testing.T) {
	tests := []struct{
		n    int
		want int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 1}, {4, 2}, {15, 3}, {16, 4}, {1023, 9}, {1024, 10},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Log2Floor(tc.n), "n=%d", tc.n)
	}
}

func TestAffineRotateAboutKeepsCenter(t *testing.T) {
	m := RotateAbout(37.0, 10, 20)
	x, y := m.Apply(10, 20)
	assert.InDelta(t, 10.0, x, 1e-9)
	assert.InDelta(t, 20.0, y, 1e-9)

	// a quarter turn about the origin takes +x to +y
	x, y = RotateAbout(90, 0, 0).Apply(1, 0)
	assert.InDelta(t, 0.0, x, 1e-9)
	assert.InDelta(t, 1.0, y, 1e-9)
}

func TestMat3Apply(t *testing.T) {
	m := Mat3{2, 0, 0,  0, 3, 0,  1, 0, 1}
	assert.Equal(t, Vec3{2, 6, 4}, m.Apply(Vec3{1, 2, 3}))

	v := Vec3{0.5, 1.5, 3}
	v.CeilingAt(1.0)
	assert.Equal(t, Vec3{0.5, 1, 1}, v)
}

func TestAffineTranslate(t *testing.T) {
	m := Identity().Translate(3, -4)
	assert.Equal(t, Aff3{1, 0, 3, 0, 1, -4}, m)
}
