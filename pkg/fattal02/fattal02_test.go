package fattal02

import(
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

// twoZones is a gray scene with a 1000:1 contrast between its halves,
// plus a gentle ramp so there are some gradients to attenuate.
func twoZones(w, h int) *fimage.Image {
	img := fimage.New(w, h, 3)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v := float32(0.01)
			if x >= w/2 {
				v = 10.0
			}
			v *= 1.0 + float32(y)/float32(h)
			copy(img.Pix(x, y), []float32{v, v, v})
		}
	}
	return img
}

func TestPerform(t *testing.T) {
	f02 := NewDefaultFattal02(twoZones(64, 48))
	out := f02.Perform()
	require.NotNil(t, out)
	assert.Equal(t, image.Rect(0, 0, 64, 48), out.Bounds())
	assert.Equal(t, 3, f02.NumLevels())

	ldr, ok := out.(*image.RGBA64)
	require.True(t, ok)

	dark   := ldr.RGBA64At(8, 24)
	bright := ldr.RGBA64At(56, 24)
	assert.True(t, bright.R > dark.R, "bright %d, dark %d", bright.R, dark.R)
	assert.True(t, bright.R > 0x4000)
}

func TestAttenuationShrinksLargeGradients(t *testing.T) {
	f02 := NewDefaultFattal02(twoZones(64, 64))
	f02.Perform()

	// at the boundary between the zones, phi < 1; in flat areas phi > 1
	edge := f02.attenuation.Pix(32, 32)[0]
	assert.True(t, edge < 1.0, "phi at edge %f", edge)
	assert.False(t, f02.u.HasNaN())
}

func TestFlatImage(t *testing.T) {
	f02 := NewDefaultFattal02(fimage.New(16, 16, 3).SetValue(0.5))
	out := f02.Perform()
	require.NotNil(t, out)
	assert.False(t, f02.outputLum.HasNaN())
}

func TestTinyImage(t *testing.T) {
	f02 := NewDefaultFattal02(fimage.New(3, 2, 3).SetValue(0.5))
	out := f02.Perform()
	require.NotNil(t, out)
	assert.Equal(t, 1, f02.NumLevels())
}
