package pde

import(
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

func smoothField(w, h int) *fimage.Image {
	img := fimage.New(w, h, 1)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			img.Pix(x, y)[0] = float32(math.Sin(float64(x)*0.3) + 0.5*math.Cos(float64(y)*0.2) + 0.01*float64(x*y))
		}
	}
	return img
}

func TestDCTTwiceIsScaledIdentity(t *testing.T) {
	g := newGrid(5, 4)
	for i := range g.v {
		g.v[i] = float64(i%7) - 2.5
	}

	back := dct2D(dct2D(g))
	scale := float64(2*(g.w-1) * 2*(g.h-1))
	for i := range g.v {
		assert.InDelta(t, g.v[i], back.v[i]/scale, 1e-9)
	}
}

func TestSolveRecoversField(t *testing.T) {
	for _, dims := range [][2]int{{17, 13}, {32, 32}, {2, 9}} {
		U := smoothField(dims[0], dims[1])
		F := Laplacian(U)

		got := SolvePoisson(F, false)
		require.Equal(t, U.Width, got.Width)
		require.Equal(t, U.Height, got.Height)

		// the solution is only defined up to a constant
		maxU := U.MaxVal(nil)[0]
		for i := range U.Data {
			assert.InDelta(t, U.Data[i]-maxU, got.Data[i], 1e-3, "%v at %d", dims, i)
		}
	}
}

func TestSolutionMaxIsZero(t *testing.T) {
	got := SolvePoisson(Laplacian(smoothField(12, 10)), true)
	assert.InDelta(t, 0.0, got.MaxVal(nil)[0], 1e-6)
}

func TestAdjustBoundKeepsLaplacianConsistent(t *testing.T) {
	// an arbitrary F has no exact solution; with the boundary adjusted,
	// the laplacian of the result matches F in the interior
	F := fimage.New(9, 9, 1)
	F.Pix(4, 4)[0] = 1.0

	U := SolvePoisson(F, true)
	lap := Laplacian(U)
	for y:=1; y<8; y++ {
		for x:=1; x<8; x++ {
			assert.InDelta(t, F.Pix(x, y)[0], lap.Pix(x, y)[0], 1e-3, "(%d,%d)", x, y)
		}
	}
}

func TestTinyImages(t *testing.T) {
	got := SolvePoisson(fimage.New(1, 5, 1).SetValue(3), false)
	require.NotNil(t, got)
	assert.Equal(t, []float32{0, 0, 0, 0, 0}, got.Data)
}
