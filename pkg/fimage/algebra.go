package fimage

import(
	"image"
	"math"
)

// Elementwise arithmetic. The image operators accept an operand of
// the same shape, or a 1-channel operand of the same size, which is
// broadcast across every channel. Any other operand is ignored, and
// the receiver is returned unchanged.

type binaryOp func(a, b float32) float32

func (img *Image)apply(o *Image, op binaryOp) *Image {
	if img == nil || o == nil {
		return img
	}

	switch {
	case img.SameShape(o) && len(img.Data) == len(o.Data):
		for i := range img.Data {
			img.Data[i] = op(img.Data[i], o.Data[i])
		}

	case img.SameSize(o) && o.Channels == 1 && o.Frames == img.Frames:
		nc := img.Channels
		for i := range o.Data {
			b := o.Data[i]
			p := img.Data[i*nc : i*nc+nc]
			for c := range p {
				p[c] = op(p[c], b)
			}
		}
	}

	return img
}

func (img *Image)Add(o *Image) *Image { return img.apply(o, func(a, b float32) float32 { return a + b }) }
func (img *Image)Sub(o *Image) *Image { return img.apply(o, func(a, b float32) float32 { return a - b }) }
func (img *Image)Mul(o *Image) *Image { return img.apply(o, func(a, b float32) float32 { return a * b }) }

// Div divides elementwise; a zero divisor leaves the dividend as is.
func (img *Image)Div(o *Image) *Image {
	return img.apply(o, func(a, b float32) float32 {
		if b == 0.0 {
			return a
		}
		return a / b
	})
}

func (img *Image)AddScalar(v float32) *Image {
	for i := range img.Data {
		img.Data[i] += v
	}
	return img
}

func (img *Image)MulScalar(v float32) *Image {
	for i := range img.Data {
		img.Data[i] *= v
	}
	return img
}

// Lerp sets img = img + (o-img)*w, with w broadcast like Mul. Used
// for blending; a w of 0 keeps img, 1 takes o.
func (img *Image)Lerp(o, w *Image) *Image {
	if !img.SameShape(o) || !img.SameSize(w) {
		return img
	}
	if w.Channels != 1 && w.Channels != img.Channels {
		return img
	}

	nc := img.Channels
	for i := 0; i < img.Width*img.Height; i++ {
		for c := 0; c < nc; c++ {
			wv := w.Data[i*w.Channels]
			if w.Channels == nc {
				wv = w.Data[i*nc + c]
			}
			a := img.Data[i*nc + c]
			img.Data[i*nc + c] = a + (o.Data[i*nc + c] - a)*wv
		}
	}
	return img
}

func (img *Image)SetValue(v float32) *Image {
	for i := range img.Data {
		img.Data[i] = v
	}
	return img
}

func (img *Image)FloorAt(min float32) *Image {
	for i, v := range img.Data {
		if v < min { img.Data[i] = min }
	}
	return img
}

func (img *Image)CeilingAt(max float32) *Image {
	for i, v := range img.Data {
		if v > max { img.Data[i] = max }
	}
	return img
}

// ApplyFunc runs f over every sample.
func (img *Image)ApplyFunc(f func(float32) float32) *Image {
	for i, v := range img.Data {
		img.Data[i] = f(v)
	}
	return img
}

func (img *Image)HasNaN() bool {
	for _, v := range img.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return true
		}
	}
	return false
}

// {{{ reductions

// The reductions return one value per channel, over the pixels of
// `box` (clipped to the image); a nil box means the whole image.

func (img *Image)reduce(box *image.Rectangle, init float32, f func(acc, v float32) float32) []float32 {
	r := img.Rect()
	if box != nil {
		r = box.Intersect(r)
	}
	ret := make([]float32, img.Channels)
	for c := range ret {
		ret[c] = init
	}
	for y:=r.Min.Y; y<r.Max.Y; y++ {
		for x:=r.Min.X; x<r.Max.X; x++ {
			for c, v := range img.Pix(x, y) {
				ret[c] = f(ret[c], v)
			}
		}
	}
	return ret
}

func (img *Image)MaxVal(box *image.Rectangle) []float32 {
	return img.reduce(box, -math.MaxFloat32, func(acc, v float32) float32 {
		if v > acc { return v }
		return acc
	})
}

func (img *Image)MinVal(box *image.Rectangle) []float32 {
	return img.reduce(box, math.MaxFloat32, func(acc, v float32) float32 {
		if v < acc { return v }
		return acc
	})
}

func (img *Image)MeanVal(box *image.Rectangle) []float32 {
	r := img.Rect()
	if box != nil {
		r = box.Intersect(r)
	}
	n := float32(r.Dx() * r.Dy())
	sums := img.reduce(&r, 0, func(acc, v float32) float32 { return acc + v })
	if n > 0 {
		for c := range sums {
			sums[c] /= n
		}
	}
	return sums
}

// }}}
