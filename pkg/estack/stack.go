package estack

import(
	"fmt"
	"image"
	"log"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/pbnjay/memory"

	"github.com/abworrall/hdr-fusion/pkg/ecolor"
	"github.com/abworrall/hdr-fusion/pkg/filter"
	"github.com/abworrall/hdr-fusion/pkg/fimage"
	"github.com/abworrall/hdr-fusion/pkg/fusion"
	"github.com/abworrall/hdr-fusion/pkg/tonemap"
)

// A Stack of exposures of one scene, to be fused. The layers are
// sorted brightest first.
type Stack struct {
	Config

	Layers  []Layer
	Fused   *fimage.Image  // The fusion result, in the same encoding as the inputs
}

func NewStack() Stack {
	return Stack{Config: NewConfig()}
}

func (s Stack)String() string {
	str := fmt.Sprintf("Stack[%d layers]\n", len(s.Layers))
	for _, l := range s.Layers {
		str += fmt.Sprintf(" -- %s\n", l)
	}
	return str
}

func (s *Stack)AddLayer(l Layer) {
	s.Layers = append(s.Layers, l)
	sort.SliceStable(s.Layers, func(i, j int) bool { return s.Layers[i].brighterThan(s.Layers[j]) })
}

// Align maps every layer onto the middle one, which has the most
// well exposed pixels in common with the others.
func (s *Stack)Align() {
	if len(s.Layers) < 2 {
		return
	}
	if s.Verbosity > 0 {
		log.Printf("Aligning image layers")
	}

	base := len(s.Layers) / 2
	for i := range s.Layers {
		if i != base {
			AlignLayer(s.Config, &s.Layers[base], &s.Layers[i])
		}
	}
}

func (s *Stack)images() []*fimage.Image {
	ret := []*fimage.Image{}
	for _, l := range s.Layers {
		ret = append(ret, l.Image)
	}
	return ret
}

// useConcurrency is true if there is plenty of RAM for building two
// pyramids at once.
func useConcurrency(w, h, c, n int) bool {
	need := fusion.EstimateBytes(w, h, c, n)
	return 4*need < memory.TotalMemory()
}

func (s *Stack)Fuse() error {
	if len(s.Layers) < 2 {
		return fmt.Errorf("fuse: need at least 2 layers, have %d", len(s.Layers))
	}
	images := s.images()
	if s.LinearizeInputs {
		decode := filter.NewFilterColorConv(ecolor.SRGB{}, true)
		for i := range images {
			images[i] = decode.Process(nil, images[i])
		}
	}

	im := images[0]
	opts := s.FusionOptions()
	opts.Concurrent = useConcurrency(im.Width, im.Height, im.Channels, len(images))

	if s.Verbosity > 0 {
		log.Printf("Fusing %d layers of %s (wC=%.2f, wE=%.2f, wS=%.2f, concurrent=%v)\n",
			len(images), im, opts.WC, opts.WE, opts.WS, opts.Concurrent)
	}

	fused, err := fusion.New(opts).Fuse(images, nil)
	if err != nil {
		return fmt.Errorf("fuse: %v", err)
	}
	s.Fused = fused

	if s.Verbosity > 0 {
		log.Printf("Fused: %s\n", fused.Stats())
	}
	return nil
}

// Display is the fused image, sRGB encoded.
func (s *Stack)Display() *fimage.Image {
	if s.LinearizeInputs {
		return filter.NewFilterColorConv(ecolor.SRGB{}, false).Process(nil, s.Fused)
	}
	return s.Fused
}

// Linear is the fused image, with sRGB encoding undone.
func (s *Stack)Linear() *fimage.Image {
	if s.LinearizeInputs {
		return s.Fused
	}
	return filter.NewFilterColorConv(ecolor.SRGB{}, true).Process(nil, s.Fused)
}

// WriteOutputs writes the display image to OutputFilename, and the
// linear one to HDRFilename, if they're set.
func (s *Stack)WriteOutputs() error {
	if s.Fused == nil {
		return fmt.Errorf("write: nothing fused yet")
	}
	if s.OutputFilename != "" {
		if err := s.Display().Write(s.OutputFilename); err != nil {
			return fmt.Errorf("write '%s': %v", s.OutputFilename, err)
		}
		log.Printf("Wrote %s\n", s.OutputFilename)
	}
	if s.HDRFilename != "" {
		if err := s.WriteHDR(s.HDRFilename); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stack)WriteHDR(filename string) error {
	if s.Fused == nil {
		return fmt.Errorf("write: nothing fused yet")
	}
	if err := s.Linear().Write(filename); err != nil {
		return fmt.Errorf("write HDR '%s': %v", filename, err)
	}
	log.Printf("Wrote %s\n", filename)
	return nil
}

// TonemapWith runs one tone mapper over the linear fused image.
func (s *Stack)TonemapWith(name string) (image.Image, error) {
	if s.Fused == nil {
		return nil, fmt.Errorf("tonemap: nothing fused yet")
	}
	op, err := tonemap.New(name, s.Linear(), s.TonemapOptions())
	if err != nil {
		return nil, err
	}
	return op.Perform(), nil
}

// Tonemap writes tmo-<name>.png for the configured tone mapper, or for
// all of them.
func (s *Stack)Tonemap() error {
	if s.Tonemapper == "" {
		return nil
	}
	names := []string{s.Tonemapper}
	if s.Tonemapper == "all" {
		names = tonemap.Names
	}

	for _, name := range names {
		log.Printf("Tonemapping: %s", name)
		img, err := s.TonemapWith(name)
		if err != nil {
			return err
		}
		filename := fmt.Sprintf("tmo-%s.png", name)
		if err := imaging.Save(img, filename); err != nil {
			return fmt.Errorf("write '%s': %v", filename, err)
		}
	}
	return nil
}
