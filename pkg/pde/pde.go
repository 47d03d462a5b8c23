package pde

// Solves the Poisson equation  laplace(U) = F  with Neumann
// boundaries, by diagonalizing the laplacian with a 2D type-I
// discrete cosine transform. Same approach as pde_fft.cpp in PFSTMO,
// with gonum's DCT in place of FFTW's REDFT00 (both are unnormalized:
// applying one twice scales by 2(n-1)).

import(
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

// grid is a w x h row-major float64 buffer; the solver works in
// float64 since the eigenvalues near (0,0) are tiny.
type grid struct {
	w, h  int
	v   []float64
}

func newGrid(w, h int) *grid                { return &grid{w: w, h: h, v: make([]float64, w*h)} }
func (g *grid)get(x, y int) float64          { return g.v[y*g.w + x] }
func (g *grid)set(x, y int, val float64)     { g.v[y*g.w + x] = val }
func (g *grid)mul(x, y int, f float64)       { g.v[y*g.w + x] *= f }

func gridFromImage(img *fimage.Image) *grid {
	g := newGrid(img.Width, img.Height)
	for i := range g.v {
		g.v[i] = float64(img.Data[i*img.Channels])
	}
	return g
}

func (g *grid)toImage() *fimage.Image {
	img := fimage.New(g.w, g.h, 1)
	for i, val := range g.v {
		img.Data[i] = float32(val)
	}
	return img
}

// dct2D runs a DCT-I over every row, then over every column.
func dct2D(in *grid) *grid {
	out := newGrid(in.w, in.h)

	rowT := fourier.NewDCT(in.w)
	row := make([]float64, in.w)
	for y:=0; y<in.h; y++ {
		rowT.Transform(row, in.v[y*in.w : (y+1)*in.w])
		copy(out.v[y*in.w:], row)
	}

	colT := fourier.NewDCT(in.h)
	col := make([]float64, in.h)
	colOut := make([]float64, in.h)
	for x:=0; x<in.w; x++ {
		for y:=0; y<in.h; y++ {
			col[y] = out.get(x, y)
		}
		colT.Transform(colOut, col)
		for y:=0; y<in.h; y++ {
			out.set(x, y, colOut[y])
		}
	}

	return out
}

// returns T = EVy A EVx^tr
// note, modifies input data
func transformEv2Normal(A *grid) *grid {
	width, height := A.w, A.h

	// the DCT is not exactly the transform needed, so scale the input
	for y:=1; y<height-1; y++ {
		for x:=1; x<width-1; x++ {
			A.mul(x, y, 0.25)
		}
	}
	for x:=1; x<width-1; x++ {
		A.mul(x, 0,        0.5)
		A.mul(x, height-1, 0.5)
	}
	for y:=1; y<height-1; y++ {
		A.mul(0,       y, 0.5)
		A.mul(width-1, y, 0.5)
	}

	return dct2D(A)
}

// returns T = EVy^-1 * A * (EVx^-1)^tr
func transformNormal2Ev(A *grid) *grid {
	width, height := A.w, A.h
	T := dct2D(A)

	// scale the output to get the right transform
	scale := 1.0 / float64((height-1)*(width-1))
	for i := range T.v {
		T.v[i] *= scale
	}
	for x:=0; x<width; x++ {
		T.mul(x, 0,        0.5)
		T.mul(x, height-1, 0.5)
	}
	for y:=0; y<height; y++ {
		T.mul(0,       y, 0.5)
		T.mul(width-1, y, 0.5)
	}

	return T
}

// lambda returns the eigenvalues of the 1D laplace operator
func lambda(n int) []float64 {
	v := make([]float64, n)
	for i:=0; i<n; i++ {
		u := math.Sin(float64(i) / float64(2*(n-1)) * math.Pi)
		v[i] = -4.0 * u * u
	}
	return v
}

// makeCompatibleBoundary adjusts the boundary of F so that a solution exists.
func makeCompatibleBoundary(F *grid) {
	width, height := F.w, F.h

	sum := 0.0
	for y:=1; y<height-1; y++ {
		for x:=1; x<width-1; x++ {
			sum += F.get(x, y)
		}
	}
	for x:=1; x<width-1; x++ {
		sum += 0.5 * (F.get(x, 0) + F.get(x, height-1))
	}
	for y:=1; y<height-1; y++ {
		sum += 0.5 * (F.get(0, y) + F.get(width-1, y))
	}
	sum += 0.25 * (F.get(0, 0) + F.get(0, height-1) + F.get(width-1, 0) + F.get(width-1, height-1))

	add := -1.0 * sum / float64(height+width-3)

	for x:=0; x<width; x++ {
		F.set(x, 0,        F.get(x, 0)        + add)
		F.set(x, height-1, F.get(x, height-1) + add)
	}
	for y:=1; y<height-1; y++ {
		F.set(0, y,        F.get(0, y)        + add)
		F.set(width-1, y,  F.get(width-1, y)  + add)
	}
}

// SolvePoisson solves laplace(U) = F, reading F from channel 0.
//
// If adjustBound is set, the boundary values of F are shifted so that
// the equation has an exact solution; otherwise the least squares
// solution is returned. Since U is only defined up to a constant, the
// returned U has its maximum at 0 (handy when it is exponentiated).
// Images smaller than 2x2 give an all zero U.
func SolvePoisson(Fimg *fimage.Image, adjustBound bool) *fimage.Image {
	width, height := Fimg.Width, Fimg.Height
	if width < 2 || height < 2 {
		return fimage.New(width, height, 1)
	}

	F := gridFromImage(Fimg)
	if adjustBound {
		makeCompatibleBoundary(F)
	}

	Ftr := transformNormal2Ev(F)

	// in the eigenvector space the solution is very simple
	Utr := newGrid(width, height)
	l1 := lambda(height)
	l2 := lambda(width)
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			if x == 0 && y == 0 {
				Utr.set(x, y, 0.0) // any value ok, only adds a const to the solution
			} else {
				Utr.set(x, y, Ftr.get(x, y) / (l1[y] + l2[x]))
			}
		}
	}

	U := transformEv2Normal(Utr)

	max := math.Inf(-1)
	for _, val := range U.v {
		if val > max {
			max = val
		}
	}
	for i := range U.v {
		U.v[i] -= max
	}

	return U.toImage()
}

// Laplacian applies the discrete laplacian that SolvePoisson inverts:
// the 5 point stencil, with mirrored (U(-1) = U(1)) boundaries.
func Laplacian(Uimg *fimage.Image) *fimage.Image {
	U := gridFromImage(Uimg)
	out := newGrid(U.w, U.h)

	mirror := func(i, n int) int {
		if i < 0    { return 1 }
		if i >= n   { return n-2 }
		return i
	}

	for y:=0; y<U.h; y++ {
		for x:=0; x<U.w; x++ {
			val := U.get(mirror(x-1, U.w), y) + U.get(mirror(x+1, U.w), y) +
				U.get(x, mirror(y-1, U.h)) + U.get(x, mirror(y+1, U.h)) - 4.0*U.get(x, y)
			out.set(x, y, val)
		}
	}
	return out.toImage()
}
