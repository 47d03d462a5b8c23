package fattal02

// Implement Fattal '02, "Gradient Domain High Dynamic Range Compression"

import(
	"fmt"
	"image"
	"math"

	"github.com/mdouchement/hdr"

	"github.com/abworrall/hdr-fusion/pkg/emath"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
	"github.com/abworrall/hdr-fusion/pkg/filter"
	"github.com/abworrall/hdr-fusion/pkg/pde"
	"github.com/abworrall/hdr-fusion/pkg/pyramid"
)

// Fattal02 follows the PFSTMO implementation, working on float32
// images and solving the PDE with a DCT.
type Fattal02 struct {
	// Algo parameters
	DetailLevel    int
	Noise          float64
	Alpha          float64
	Beta           float64
	Gamma          float64
	BlackPoint     float64
	WhitePoint     float64
	Saturation     float64

	// Our extra params
	GammaExpand    bool        // whether to perform sRGB gamma expansion on final output
	DumpGrids      bool        // whether to write greyscale image files for the intermediate grids

	Input          hdr.Image   // HDR image
	Output         image.Image // LDR image

	// intermediate images; they are all single channel, relating to
	// luminance, and are calculated in this order.
	rgb            *fimage.Image    //           the input, as three float channels
	lum            *fimage.Image    //           luminance
	logLuminance   *fimage.Image    // H,        luminance in log space: log(lum)
	pyramid      []*fimage.Image    //           the Gaussian pyramid of H
	gradients    []*fimage.Image    //           the gradients corresponding to each layer in the pyramid
	avgGrad      []float64          //           (and the average gradient for each layer)
	attenuation    *fimage.Image    // PHI (FI), the 2D gradient attentuation function
	divG           *fimage.Image    // DivG
	u              *fimage.Image    // U,        the solution to the PDE: laplace(U) = DivG
	outputLum      *fimage.Image    // L,        the exponentiated luminance, after all the gradient attenutation magic
}

func (f02 *Fattal02)Width()     int { return f02.Input.Bounds().Dx() }
func (f02 *Fattal02)Height()    int { return f02.Input.Bounds().Dy() }
func (f02 *Fattal02)NumLevels() int { return len(f02.pyramid) }

func NewDefaultFattal02(img hdr.Image) *Fattal02 {
	return &Fattal02{
		// The PFSTMO parameters - see https://www.mankier.com/1/pfstmo_fattal02
		// These are the default values when using the FFT solver
		DetailLevel: 3,
		Noise:       0.002,
		Alpha:       1.0,
		Beta:        0.9,
		Gamma:       0.8,
		BlackPoint:  0.1,
		WhitePoint:  0.5,
		Saturation:  0.8,

		Input:       img,
	}
}

// Implement mdouchement/hdr/tmo:ToneMappingOperator
func (f02 *Fattal02)Perform() image.Image {
	f02.CreateLogLuminance()
	f02.CreateGaussianPyramid()
	f02.CalculateGradients()
	f02.CalculateAttenuationMatrix()
	f02.CalculateDivergence()

	f02.u = pde.SolvePoisson(f02.divG, false)
	f02.maybeDump(f02.u, "006-solved-PDE", "006-solved-PDE.png")

	f02.CreateExponentiatedLuminance()
	f02.FillOutputImage()

	return f02.Output
}

func (f02 *Fattal02)maybeDump(img *fimage.Image, comment, filename string) {
	if f02.DumpGrids {
		img.DumpPNG(0, comment, filename)
	}
}

func (f02 *Fattal02)CreateLogLuminance() {
	if fi, ok := f02.Input.(*fimage.Image); ok && fi.Channels >= 3 {
		f02.rgb = fi
	} else {
		f02.rgb = fimage.FromImage(f02.Input)
	}
	f02.lum = filter.NewFilterLuminance(filter.LumCIE).Process(nil, f02.rgb)

	minLum := float64(f02.lum.MinVal(nil)[0])
	maxLum := float64(f02.lum.MaxVal(nil)[0])
	span := maxLum - minLum
	if span <= 0.0 {
		span = 1.0
	}

	// black values = log(0+0.0001) = -9.2
	H := f02.lum.Clone().ApplyFunc(func(lum float32) float32 {
		return float32(math.Log(100.0 * (float64(lum)-minLum)/span + 0.0001))
	})

	f02.maybeDump(f02.lum, "001-luminance", "001-luminance.png")
	f02.maybeDump(H, "001-log(luminance)", "001-logLuminance.png")
	f02.logLuminance = H
}

// CreateGaussianPyramid halves H until the smallest side would drop below 8.
func (f02 *Fattal02)CreateGaussianPyramid() {
	nLevels := pyramid.NumLevelsFor(f02.Width(), f02.Height(), 2)

	blur := filter.NewFilterGaussian2D(pyramid.BlurSigma)
	down := filter.NewDownSampler2()

	f02.pyramid = make([]*fimage.Image, nLevels)
	f02.pyramid[0] = f02.logLuminance.Clone()
	for k:=1; k<nLevels; k++ {
		f02.pyramid[k] = down.Process(nil, blur.Process(nil, f02.pyramid[k-1]))
		f02.maybeDump(f02.pyramid[k], "", fmt.Sprintf("002-pyramid%02d.png", k))
	}
}

func (f02 *Fattal02)CalculateGradients() {
	f02.gradients = make([]*fimage.Image, f02.NumLevels())
	f02.avgGrad =   make([]float64,       f02.NumLevels())

	for k:=0; k<f02.NumLevels(); k++ {
		f02.gradients[k], f02.avgGrad[k] = gradientMagnitude(f02.pyramid[k], k)
		f02.maybeDump(f02.gradients[k], "", fmt.Sprintf("003-gradient%02d.png", k))
	}
}

// gradientMagnitude uses central differences, scaled for the pyramid
// depth. Note this implicitly assumes that H(-1)=H(0); the PDE solver
// assumes H(-1)=H(1), but the difference isn't visible.
func gradientMagnitude(H *fimage.Image, depth int) (*fimage.Image, float64) {
	G := fimage.New(H.Width, H.Height, 1)
	divider := math.Pow(2.0, float64(depth)+1)
	avgGrad := 0.0

	for y:=0; y<H.Height; y++ {
		for x:=0; x<H.Width; x++ {
			gx := float64(H.At1(x-1, y, 0) - H.At1(x+1, y, 0)) / divider
			gy := float64(H.At1(x, y+1, 0) - H.At1(x, y-1, 0)) / divider
			g := math.Sqrt(gx*gx + gy*gy)
			G.Pix(x, y)[0] = float32(g)
			avgGrad += g
		}
	}

	return G, avgGrad / float64(H.Width*H.Height)
}

func (f02 *Fattal02)CalculateAttenuationMatrix() {
	nLevels := f02.NumLevels()
	phi := make([]*fimage.Image, nLevels)
	blur := filter.NewFilterGaussian2D(pyramid.BlurSigma)

	// Initialize topmost layer in phi
	phi[nLevels-1] = fimage.AllocateLike(nil, f02.gradients[nLevels-1]).SetValue(1.0)

	// Walk down the pyramid from the top layer
	for k:=nLevels-1; k>=0; k-- {
		// only apply gradients to levels>=detail_level but at least to the coarsest
		if k >= f02.DetailLevel || k == nLevels-1 {
			a := f02.Alpha * f02.avgGrad[k]
			grads := f02.gradients[k].Data
			for i, grad64 := range grads {
				grad := float64(grad64)
				value := 1.0
				if grad > 1e-4 && a > 0.0 {
					value = a/(grad+f02.Noise) * math.Pow((grad+f02.Noise)/a, f02.Beta)
				}
				phi[k].Data[i] *= float32(value)
			}
		}

		// create next level down, by upsampling curr level
		if k > 0 {
			next := f02.gradients[k-1]
			upsampled := filter.NewUpSampler2(next.Width, next.Height).Process(nil, phi[k])
			phi[k-1] = blur.Process(nil, upsampled)
		}

		f02.maybeDump(phi[k], "", fmt.Sprintf("004-attenuation%02d.png", k))
	}

	f02.attenuation = phi[0]
}

func (f02 *Fattal02)CalculateDivergence() {
	width  := f02.Width()
	height := f02.Height()

	H      := f02.logLuminance
	PHI    := f02.attenuation
	Gx     := fimage.New(width, height, 1)
	Gy     := fimage.New(width, height, 1)

	at := func(img *fimage.Image, x, y int) float64 { return float64(img.Data[y*width + x]) }

	// the fft solver solves the Poisson pde but with slightly different
	// boundary conditions, so we need to adjust the assembly of the right hand
	// side accordingly (basically fft solver assumes U(-1) = U(1), whereas zero
	// Neumann conditions assume U(-1)=U(0)), see also divergence calculation
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			// sets index+1 based on the boundary assumption H(N+1)=H(N-1)
			yp1 := y+1
			xp1 := x+1
			if y+1 >= height { yp1 = height-2 }
			if x+1 >= width  { xp1 = width -2 }
			if yp1 < 0 { yp1 = 0 }
			if xp1 < 0 { xp1 = 0 }

			// forward differences in H, so need to use between-points approx of PHI
			gx := (at(H,xp1,y) - at(H,x,y)) * 0.5*(at(PHI,xp1,y) + at(PHI,x,y))
			gy := (at(H,x,yp1) - at(H,x,y)) * 0.5*(at(PHI,x,yp1) + at(PHI,x,y))

			Gx.Data[y*width + x] = float32(gx)
			Gy.Data[y*width + x] = float32(gy)
		}
	}

	f02.maybeDump(Gx, "005-divGx", "005-divGx.png")
	f02.maybeDump(Gy, "005-divGy", "005-divGy.png")

	// calculate divergence
	divG := fimage.New(width, height, 1)
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			val := at(Gx,x,y) + at(Gy,x,y)
			if x>0 { val -= at(Gx,x-1,y) }
			if y>0 { val -= at(Gy,x,y-1) }
			if x==0 { val += at(Gx,x,y) } // for fftsolver
			if y==0 { val += at(Gy,x,y) } // for fftsolver

			divG.Data[y*width + x] = float32(val)
		}
	}

	f02.maybeDump(divG, "005-divG", "005-divG.png")
	f02.divG = divG
}

func (f02 *Fattal02)CreateExponentiatedLuminance() {
	gamma := f02.Gamma
	L := f02.u.Clone().ApplyFunc(func(u float32) float32 {
		return float32(math.Exp(gamma * float64(u)) - 1e-4)
	})

	// remove percentile of min and max values and renormalize
	cutMin := 0.01 * f02.BlackPoint
	cutMax := 1.0 - 0.01 * f02.WhitePoint
	minLum, maxLum := L.Percentiles(0, cutMin, cutMax)
	span := maxLum - minLum
	if span <= 0.0 {
		span = 1.0
	}

	L.ApplyFunc(func(v float32) float32 {
		val := (v - minLum) / span
		if val <= 0.0 {
			val = 1e-4
		}
		return val
	})

	f02.maybeDump(L, "007-exponentiated", "007-exponentiated.png")
	f02.outputLum = L
}

// Now we have the final adjusted luminance values in `f02.outputLum`,
// complete the tonemapping of the input image by adjusting the
// original RGB values with the new luminance
func (f02 *Fattal02)FillOutputImage() {
	const epsilon = 1e-4
	out := fimage.New(f02.Width(), f02.Height(), 3)

	// C_out = (C_in / L_before)^s * L_after  (C are colours, L are luminances, s is magic number)
	for i:=0; i<out.Size(); i++ {
		lBefore := math.Max(float64(f02.lum.Data[i]), epsilon)
		lAfter  := math.Max(float64(f02.outputLum.Data[i]), epsilon)
		in      := f02.rgb.Data[i*f02.rgb.Channels:]

		var c emath.Vec3
		for ch:=0; ch<3; ch++ {
			c[ch] = math.Pow(math.Max(float64(in[ch]) / lBefore, 0.0), f02.Saturation) * lAfter
		}
		if f02.GammaExpand {
			c = emath.GammaExpand_sRGB(c)
		}
		c.CeilingAt(1.0) // Clipping, else high vals wraparound

		for ch:=0; ch<3; ch++ {
			out.Data[i*3 + ch] = float32(c[ch])
		}
	}

	f02.Output = out.ToLDR()
}
