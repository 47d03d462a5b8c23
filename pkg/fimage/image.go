package fimage

// A float32 raster with an arbitrary number of interleaved channels,
// that all the filters, pyramids and fusers work on.

import(
	"fmt"
	"image"
	"image/color"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"
)

// Image is a row-major, channel-interleaved float32 raster. The
// sample for channel c of pixel (x,y) in frame f lives at
//   Data[f*FrameSize() + (y*Width + x)*Channels + c]
//
// Values are unconstrained: HDR data may be > 1, and intermediate
// Laplacian residuals may be negative.
type Image struct {
	Width      int
	Height     int
	Channels   int
	Frames     int       // >1 for video buffers; filters work on one frame at a time, see Frame()

	Data     []float32
}

var _ hdr.Image = &Image{}

// New allocates a zeroed single-frame image. It returns nil if any
// dimension is not positive.
func New(w, h, c int) *Image {
	return NewFrames(w, h, c, 1)
}

func NewFrames(w, h, c, frames int) *Image {
	if w < 1 || h < 1 || c < 1 || frames < 1 {
		return nil
	}
	return &Image{
		Width:    w,
		Height:   h,
		Channels: c,
		Frames:   frames,
		Data:     make([]float32, w*h*c*frames),
	}
}

// Allocate is the provide-or-allocate rule used by every producer: if
// `out` already has the requested shape it is returned as is (contents
// untouched), else a fresh zeroed image is returned.
func Allocate(out *Image, w, h, c int) *Image {
	if out != nil && out.Width == w && out.Height == h && out.Channels == c && out.Frames == 1 {
		return out
	}
	return New(w, h, c)
}

// AllocateLike is Allocate, using the shape of `like`.
func AllocateLike(out, like *Image) *Image {
	return Allocate(out, like.Width, like.Height, like.Channels)
}

func (img *Image)String() string {
	if img == nil {
		return "fimage[nil]"
	}
	str := fmt.Sprintf("fimage[%dx%dx%d", img.Width, img.Height, img.Channels)
	if img.Frames > 1 {
		str += fmt.Sprintf(", %d frames", img.Frames)
	}
	return str + "]"
}

func (img *Image)FrameSize() int               { return img.Width * img.Height * img.Channels }
func (img *Image)Stride() int                  { return img.Width * img.Channels }
func (img *Image)Offset(x, y int) int          { return (y*img.Width + x) * img.Channels }
func (img *Image)Rect() image.Rectangle        { return image.Rect(0, 0, img.Width, img.Height) }

// Pix returns the channel samples of pixel (x,y) in frame 0, sharing storage with the image.
func (img *Image)Pix(x, y int) []float32 {
	i := img.Offset(x, y)
	return img.Data[i : i+img.Channels]
}

// PixClamped is Pix with clamp-to-edge addressing.
func (img *Image)PixClamped(x, y int) []float32 {
	return img.Pix(clamp(x, 0, img.Width-1), clamp(y, 0, img.Height-1))
}

// At1 returns one sample with clamp-to-edge addressing.
func (img *Image)At1(x, y, c int) float32 {
	return img.Data[img.Offset(clamp(x, 0, img.Width-1), clamp(y, 0, img.Height-1)) + c]
}

func (img *Image)Set1(x, y, c int, v float32) {
	img.Data[img.Offset(x, y) + c] = v
}

// SameShape compares width, height and channels (not frames).
func (img *Image)SameShape(o *Image) bool {
	if img == nil || o == nil {
		return false
	}
	return img.Width == o.Width && img.Height == o.Height && img.Channels == o.Channels
}

// SameSize compares width and height only.
func (img *Image)SameSize(o *Image) bool {
	if img == nil || o == nil {
		return false
	}
	return img.Width == o.Width && img.Height == o.Height
}

// Frame returns a single-frame view of frame i; the view shares Data
// with img. Returns nil if i is out of range.
func (img *Image)Frame(i int) *Image {
	if i < 0 || i >= img.Frames {
		return nil
	}
	n := img.FrameSize()
	return &Image{
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
		Frames:   1,
		Data:     img.Data[i*n : (i+1)*n : (i+1)*n],
	}
}

func (img *Image)Clone() *Image {
	c := *img
	c.Data = make([]float32, len(img.Data))
	copy(c.Data, img.Data)
	return &c
}

// CopyFrom copies the samples of `o` into img. No-op if the shapes differ.
func (img *Image)CopyFrom(o *Image) *Image {
	if !img.SameShape(o) || len(img.Data) != len(o.Data) {
		return img
	}
	copy(img.Data, o.Data)
	return img
}

// Implement image.Image
func (img *Image)ColorModel() color.Model       { return hdrcolor.RGBModel }
func (img *Image)Bounds() image.Rectangle       { return img.Rect() }
func (img *Image)At(x, y int) color.Color       { return img.HDRAt(x, y) }

// Implement hdr.Image. Images with fewer than 3 channels read as gray.
func (img *Image)HDRAt(x, y int) hdrcolor.Color {
	p := img.Pix(x, y)
	if img.Channels < 3 {
		return hdrcolor.RGB{R: float64(p[0]), G: float64(p[0]), B: float64(p[0])}
	}
	return hdrcolor.RGB{R: float64(p[0]), G: float64(p[1]), B: float64(p[2])}
}
func (img *Image)Size() int                     { return img.Width * img.Height }

// FromImage converts any image.Image into a 3 channel float image. HDR
// sources keep their full range; LDR sources are scaled into [0,1].
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	img := New(bounds.Dx(), bounds.Dy(), 3)
	if img == nil {
		return nil
	}

	hdrSrc, isHDR := src.(hdr.Image)
	for y:=0; y<img.Height; y++ {
		for x:=0; x<img.Width; x++ {
			p := img.Pix(x, y)
			if isHDR {
				r, g, b, _ := hdrSrc.HDRAt(x + bounds.Min.X, y + bounds.Min.Y).HDRRGBA()
				p[0], p[1], p[2] = float32(r), float32(g), float32(b)
			} else {
				r, g, b, _ := src.At(x + bounds.Min.X, y + bounds.Min.Y).RGBA()
				p[0] = float32(r) / float32(0xFFFF)
				p[1] = float32(g) / float32(0xFFFF)
				p[2] = float32(b) / float32(0xFFFF)
			}
		}
	}
	return img
}

// ToLDR clamps to [0,1] and quantizes to 16 bits per channel.
func (img *Image)ToLDR() *image.RGBA64 {
	out := image.NewRGBA64(img.Rect())
	for y:=0; y<img.Height; y++ {
		for x:=0; x<img.Width; x++ {
			r, g, b, _ := img.HDRAt(x, y).HDRRGBA()
			out.SetRGBA64(x, y, color.RGBA64{
				R: quantize16(r),
				G: quantize16(g),
				B: quantize16(b),
				A: 0xFFFF,
			})
		}
	}
	return out
}

func quantize16(v float64) uint16 {
	if v <= 0.0 || v != v {
		return 0
	} else if v >= 1.0 {
		return 0xFFFF
	}
	return uint16(v * float64(0xFFFF) + 0.5)
}

func clamp(v, lo, hi int) int {
	if v < lo { return lo }
	if v > hi { return hi }
	return v
}
