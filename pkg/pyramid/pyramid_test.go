package pyramid

import(
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"

	"github.com/abworrall/hdr-fusion/pkg/filter"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

func noise(w, h, c int, seed uint32) *fimage.Image {
	rng := fastrand.RNG{}
	rng.Seed(seed)
	img := fimage.New(w, h, c)
	for i := range img.Data {
		img.Data[i] = float32(rng.Uint32n(10000)) / 10000.0
	}
	return img
}

func maxAbsDiff(a, b *fimage.Image) float64 {
	max := 0.0
	for i := range a.Data {
		if d := math.Abs(float64(a.Data[i] - b.Data[i])); d > max {
			max = d
		}
	}
	return max
}

func TestNumLevelsFor(t *testing.T) {
	tests := []struct{
		w, h, limit int
		want        int
	}{
		{16, 16, 0, 4},
		{16, 16, 1, 3},
		{64, 32, 1, 4},
		{4, 4, 1, 1},
		{4, 4, 5, 1},
		{1, 1, 0, 1},
		{37, 23, 0, 4},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NumLevelsFor(tc.w, tc.h, tc.limit), "%dx%d limit %d", tc.w, tc.h, tc.limit)
	}
}

func TestNumLevelsMonotonicInLimit(t *testing.T) {
	for _, dim := range []int{1, 2, 5, 16, 100, 1024} {
		prev := math.MaxInt32
		for limit := 0; limit < 12; limit++ {
			n := NumLevelsFor(dim, dim, limit)
			assert.True(t, n >= 1)
			assert.True(t, n <= prev, "dim %d limit %d", dim, limit)
			prev = n
		}
	}
}

func TestLevelShapes(t *testing.T) {
	p := New(noise(37, 23, 3, 1), true, 0)
	require.NotNil(t, p)
	require.Equal(t, 4, p.NumLevels())
	require.Equal(t, 5, len(p.Stack))

	wantW := []int{37, 19, 10, 5, 3}
	wantH := []int{23, 12, 6, 3, 2}
	for i, l := range p.Stack {
		assert.Equal(t, wantW[i], l.Width, "level %d", i)
		assert.Equal(t, wantH[i], l.Height, "level %d", i)
		assert.Equal(t, 3, l.Channels)
	}

	shaped := NewShape(37, 23, 3, true, 0)
	assert.True(t, shaped.SameShape(p))
}

func TestLaplacianRoundTrip(t *testing.T) {
	for _, dim := range []int{16, 32, 64} {
		src := noise(dim, dim, 3, uint32(dim))
		p := New(src, true, 1)
		out := p.Reconstruct(nil)
		require.NotNil(t, out)
		require.True(t, out.SameShape(src))
		assert.True(t, maxAbsDiff(src, out) < 1e-3, "dim %d: err %g", dim, maxAbsDiff(src, out))
	}
}

func TestLaplacianRoundTripOddSize(t *testing.T) {
	src := noise(37, 23, 2, 5)
	out := New(src, true, 0).Reconstruct(nil)
	assert.True(t, maxAbsDiff(src, out) < 1e-3)
}

func TestLaplacianOfConstant(t *testing.T) {
	src := fimage.New(32, 32, 1).SetValue(0.4)
	p := New(src, true, 1)
	for i:=0; i<p.NumLevels(); i++ {
		for _, v := range p.Stack[i].Data {
			assert.InDelta(t, 0.0, v, 1e-6)
		}
	}
	for _, v := range p.Stack[p.NumLevels()].Data {
		assert.InDelta(t, 0.4, v, 1e-6)
	}
}

func TestGaussianOfConstant(t *testing.T) {
	src := fimage.New(20, 12, 2).SetValue(0.7)
	p := New(src, false, 0)
	for _, l := range p.Stack {
		for _, v := range l.Data {
			assert.InDelta(t, 0.7, v, 1e-6)
		}
	}
}

func TestUpdateReusesLevels(t *testing.T) {
	p := New(noise(32, 32, 3, 1), true, 1)
	levels := append([]*fimage.Image{}, p.Stack...)

	next := noise(32, 32, 3, 2)
	require.NoError(t, p.Update(next))
	for i := range levels {
		assert.True(t, levels[i] == p.Stack[i], "level %d was reallocated", i)
	}

	fresh := New(next, true, 1)
	for i := range p.Stack {
		assert.Equal(t, fresh.Stack[i].Data, p.Stack[i].Data)
	}

	out := p.Reconstruct(nil)
	assert.True(t, maxAbsDiff(next, out) < 1e-3)
}

func TestUpdateAllocationsDontDependOnSize(t *testing.T) {
	old := filter.NumWorkers()
	filter.SetWorkers(1)
	defer filter.SetWorkers(old)

	allocs := func(w, limit int) float64 {
		src := noise(w, w, 3, 1)
		p := New(src, true, limit)
		out := p.Reconstruct(nil)
		return testing.AllocsPerRun(5, func() {
			p.Update(src)
			p.Reconstruct(out)
		})
	}

	// same number of levels, 4x the pixels
	small, large := allocs(64, 2), allocs(128, 3)
	assert.Equal(t, small, large)
}

func TestUpdateShapeMismatch(t *testing.T) {
	p := New(noise(16, 16, 3, 1), true, 1)
	before := p.Stack[0].Clone()

	assert.Equal(t, ErrShapeMismatch, p.Update(noise(16, 16, 1, 2)))
	assert.Equal(t, ErrShapeMismatch, p.Update(noise(17, 16, 3, 2)))
	assert.Equal(t, ErrShapeMismatch, p.Update(nil))
	assert.Equal(t, before.Data, p.Stack[0].Data)
}

func TestSetValueAddMultiply(t *testing.T) {
	a := NewShape(16, 16, 3, true, 1).SetValue(2)
	b := NewShape(16, 16, 3, true, 1).SetValue(3)
	w := NewShape(16, 16, 1, false, 1).SetValue(0.5)

	a.Add(b)
	for _, l := range a.Stack {
		assert.Equal(t, float32(5), l.Data[len(l.Data)-1])
	}

	a.Multiply(w)
	for _, l := range a.Stack {
		for _, v := range l.Data {
			assert.Equal(t, float32(2.5), v)
		}
	}
}

func TestMismatchIsNoop(t *testing.T) {
	a := NewShape(16, 16, 3, true, 1).SetValue(1)
	other := NewShape(16, 16, 3, true, 0).SetValue(5)
	twoChan := NewShape(16, 16, 2, true, 1).SetValue(5)

	a.Add(other).Multiply(other).Multiply(twoChan).Add(nil).Blend(other, twoChan)
	for _, l := range a.Stack {
		for _, v := range l.Data {
			assert.Equal(t, float32(1), v)
		}
	}
}

func TestBlend(t *testing.T) {
	srcA := noise(32, 32, 3, 1)
	srcB := noise(32, 32, 3, 2)

	zero := NewShape(32, 32, 1, false, 1).SetValue(0)
	one := NewShape(32, 32, 1, false, 1).SetValue(1)

	pa := New(srcA, true, 1)
	pa.Blend(New(srcB, true, 1), zero)
	assert.True(t, maxAbsDiff(srcA, pa.Reconstruct(nil)) < 1e-3)

	pa = New(srcA, true, 1)
	pa.Blend(New(srcB, true, 1), one)
	assert.True(t, maxAbsDiff(srcB, pa.Reconstruct(nil)) < 1e-3)
}

func TestReconstructReusesOutput(t *testing.T) {
	src := noise(16, 16, 1, 3)
	p := New(src, true, 1)
	out := fimage.New(16, 16, 1)
	got := p.Reconstruct(out)
	assert.True(t, got == out)
}

func TestNilSource(t *testing.T) {
	assert.Nil(t, New(nil, true, 0))
	assert.Nil(t, NewShape(0, 4, 1, true, 0))
}
