package fimage

import(
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(w, h, c int) *Image {
	img := New(w, h, c)
	for i := range img.Data {
		img.Data[i] = float32(i) / float32(len(img.Data))
	}
	return img
}

func TestNewRejectsBadDims(t *testing.T) {
	assert.Nil(t, New(0, 4, 3))
	assert.Nil(t, New(4, -1, 3))
	assert.Nil(t, New(4, 4, 0))

	img := New(5, 3, 2)
	require.NotNil(t, img)
	assert.Equal(t, 5*3*2, len(img.Data))
	assert.Equal(t, 1, img.Frames)
}

func TestAllocateReusesMatchingShape(t *testing.T) {
	out := New(8, 8, 3)
	out.Data[0] = 42

	same := Allocate(out, 8, 8, 3)
	assert.True(t, same == out)
	assert.Equal(t, float32(42), same.Data[0])

	other := Allocate(out, 8, 8, 1)
	assert.False(t, other == out)
	assert.Equal(t, 1, other.Channels)

	fresh := Allocate(nil, 2, 3, 4)
	require.NotNil(t, fresh)
	assert.Equal(t, 24, len(fresh.Data))
}

func TestPixLayout(t *testing.T) {
	img := New(4, 3, 3)
	img.Pix(2, 1)[1] = 7
	assert.Equal(t, float32(7), img.Data[(1*4+2)*3+1])

	// clamp to edge
	img.Pix(3, 2)[0] = 9
	assert.Equal(t, float32(9), img.PixClamped(10, 10)[0])
	assert.Equal(t, float32(9), img.At1(4, 5, 0))
}

func TestFrameViewSharesData(t *testing.T) {
	vid := NewFrames(2, 2, 1, 3)
	f1 := vid.Frame(1)
	require.NotNil(t, f1)
	f1.SetValue(5)

	assert.Equal(t, float32(0), vid.Data[0])
	assert.Equal(t, float32(5), vid.Data[4])
	assert.Equal(t, float32(0), vid.Data[8])
	assert.Nil(t, vid.Frame(3))
}

func TestAlgebra(t *testing.T) {
	a := New(2, 2, 3).SetValue(2)
	b := New(2, 2, 3).SetValue(0.5)

	a.Add(b)
	assert.Equal(t, float32(2.5), a.Data[0])
	a.Sub(b).Sub(b)
	assert.Equal(t, float32(1.5), a.Data[5])
	a.Mul(b)
	assert.Equal(t, float32(0.75), a.Data[11])
	a.Div(b)
	assert.Equal(t, float32(1.5), a.Data[3])

	a.MulScalar(2).AddScalar(-1)
	assert.Equal(t, float32(2), a.Data[7])
}

func TestMulBroadcastsSingleChannel(t *testing.T) {
	img := ramp(3, 2, 3)
	want := img.Clone()
	w := New(3, 2, 1)
	for i := range w.Data {
		w.Data[i] = float32(i)
	}

	img.Mul(w)
	for i := 0; i < 6; i++ {
		for c := 0; c < 3; c++ {
			assert.InDelta(t, want.Data[i*3+c]*float32(i), img.Data[i*3+c], 1e-6)
		}
	}
}

func TestMismatchedOperandIsNoop(t *testing.T) {
	img := ramp(4, 4, 3)
	want := img.Clone()

	img.Add(New(4, 4, 2).SetValue(1))
	img.Mul(New(3, 4, 1).SetValue(3))
	img.Add(nil)
	img.CopyFrom(New(2, 2, 3))

	assert.Equal(t, want.Data, img.Data)
}

func TestDivByZeroKeepsDividend(t *testing.T) {
	img := New(1, 1, 2).SetValue(3)
	img.Div(New(1, 1, 2))
	assert.Equal(t, []float32{3, 3}, img.Data)
}

func TestLerp(t *testing.T) {
	a := New(2, 1, 2).SetValue(1)
	b := New(2, 1, 2).SetValue(3)
	w := New(2, 1, 1)
	w.Data[0], w.Data[1] = 0.0, 0.25

	a.Lerp(b, w)
	assert.Equal(t, []float32{1, 1, 1.5, 1.5}, a.Data)
}

func TestReductions(t *testing.T) {
	img := New(3, 3, 2)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			p := img.Pix(x, y)
			p[0] = float32(x + y*3)
			p[1] = -float32(x + y*3)
		}
	}

	assert.Equal(t, []float32{8, 0}, img.MaxVal(nil))
	assert.Equal(t, []float32{0, -8}, img.MinVal(nil))
	assert.Equal(t, []float32{4, -4}, img.MeanVal(nil))

	box := image.Rect(1, 1, 3, 3)
	assert.Equal(t, []float32{8, -4}, img.MaxVal(&box))
	assert.Equal(t, []float32{6, -6}, img.MeanVal(&box))
}

func TestFloorCeiling(t *testing.T) {
	img := New(4, 1, 1)
	copy(img.Data, []float32{-1, 0.5, 2, -0.0001})
	img.FloorAt(0).CeilingAt(1)
	assert.Equal(t, []float32{0, 0.5, 1, 0}, img.Data)
}

func TestHDRInterface(t *testing.T) {
	img := New(2, 2, 3)
	copy(img.Pix(1, 0), []float32{1.5, 2.5, 3.5})

	assert.Equal(t, 4, img.Size())
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	r, g, b, _ := img.HDRAt(1, 0).HDRRGBA()
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, []float64{r, g, b})

	gray := New(1, 1, 1).SetValue(0.25)
	r, g, b, _ = gray.HDRAt(0, 0).HDRRGBA()
	assert.Equal(t, []float64{0.25, 0.25, 0.25}, []float64{r, g, b})
}

func TestFromImageLDR(t *testing.T) {
	src := image.NewRGBA64(image.Rect(10, 10, 12, 11))
	src.SetRGBA64(11, 10, color.RGBA64{0xFFFF, 0, 0x8000, 0xFFFF})

	img := FromImage(src)
	require.NotNil(t, img)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 1, img.Height)
	p := img.Pix(1, 0)
	assert.InDelta(t, 1.0, p[0], 1e-6)
	assert.InDelta(t, 0.0, p[1], 1e-6)
	assert.InDelta(t, 0.5, p[2], 1e-4)
}

func TestFromImageKeepsHDRRange(t *testing.T) {
	img := New(2, 2, 3).SetValue(12.5)
	back := FromImage(img)
	assert.Equal(t, img.Data, back.Data)

	_, isHDR := back.At(0, 0).(hdrcolor.Color)
	assert.True(t, isHDR)
}

func TestToLDRClamps(t *testing.T) {
	img := New(1, 1, 3)
	copy(img.Data, []float32{-1, 0.5, 4})
	c := img.ToLDR().RGBA64At(0, 0)
	assert.Equal(t, uint16(0), c.R)
	assert.Equal(t, uint16(0x8000), c.G)
	assert.Equal(t, uint16(0xFFFF), c.B)
}

func TestPercentiles(t *testing.T) {
	img := New(10, 1, 1)
	for i := range img.Data {
		img.Data[i] = float32(i + 1)
	}
	lo, hi := img.Percentiles(0, 0.1, 0.9)
	assert.Equal(t, float32(2), lo)
	assert.Equal(t, float32(10), hi)
}

func TestWriteReadPNG(t *testing.T) {
	img := New(4, 3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			copy(img.Pix(x, y), []float32{float32(x) / 3, float32(y) / 2, 1})
		}
	}

	filename := filepath.Join(t.TempDir(), "ramp.png")
	require.NoError(t, img.Write(filename))

	back, err := Read(filename)
	require.NoError(t, err)
	assert.True(t, img.SameShape(back))
	for i := range img.Data {
		assert.InDelta(t, img.Data[i], back.Data[i], 1.0/255.0)
	}
}

func TestUnknownExtension(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.xyz"))
	assert.Error(t, err)

	err = New(1, 1, 3).Write(filepath.Join(t.TempDir(), "nope.xyz"))
	assert.Error(t, err)
}

func TestWriteReadRadianceHDR(t *testing.T) {
	img := New(8, 8, 3)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := 0.1 + float32(x*8+y)/16.0
			copy(img.Pix(x, y), []float32{v, v, v})
		}
	}

	filename := filepath.Join(t.TempDir(), "ramp.hdr")
	require.NoError(t, img.Write(filename))

	back, err := Read(filename)
	require.NoError(t, err)
	require.True(t, img.SameShape(back))
	for i := range img.Data {
		assert.InEpsilon(t, img.Data[i], back.Data[i], 0.01)
	}
}
