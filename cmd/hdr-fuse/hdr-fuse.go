package main

import(
	"flag"
	"log"

	"github.com/abworrall/hdr-fusion/pkg/estack"
	"github.com/abworrall/hdr-fusion/pkg/filter"
	"github.com/abworrall/hdr-fusion/pkg/rest"
	"github.com/abworrall/hdr-fusion/pkg/tonemap"
)

var(
	fVerbosity int
	fOutputFilename string
	fHDRFilename string
	fWeightContrast float64
	fWeightExposedness float64
	fWeightSaturation float64
	fLimitLevel int
	fTonemapper string
	fMaxWidth int
	fLinearize bool
	fAlign bool
	fWorkers int
	fServe string
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fOutputFilename, "o", "fused.png", "where to write the fused image")
	flag.StringVar(&fHDRFilename, "hdr", "", "also write the linear fused image here (.hdr, .pfm)")

	flag.Float64Var(&fWeightContrast, "wc", 1.0, "exponent for the contrast weight")
	flag.Float64Var(&fWeightExposedness, "we", 1.0, "exponent for the well-exposedness weight")
	flag.Float64Var(&fWeightSaturation, "ws", 1.0, "exponent for the saturation weight")
	flag.IntVar(&fLimitLevel, "limit", 1, "stop the pyramids this many levels short of 1 pixel")

	flag.StringVar(&fTonemapper, "tonemapper", "", "also tonemap the fused image: all, or one of "+tonemap.ListTonemappers())
	flag.IntVar(&fMaxWidth, "maxwidth", 0, "scale inputs down to this width first (0 = don't)")
	flag.BoolVar(&fLinearize, "linearize", false, "undo the sRGB encoding of the inputs before fusing")
	flag.BoolVar(&fAlign, "align", false, "search for translations that align the exposures (slow)")
	flag.IntVar(&fWorkers, "workers", 0, "goroutines per filter (0 = one per CPU)")
	flag.StringVar(&fServe, "serve", "", "run the HTTP API on this address (e.g. :8080) instead")
	flag.Parse()

	log.Printf("hdr-fuse starting\n")
}

// applyFlags copies the flags given on the command line over the
// config, so they win over any .yaml file loaded with the inputs.
func applyFlags(c *estack.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":          c.Verbosity = fVerbosity
		case "o":          c.OutputFilename = fOutputFilename
		case "hdr":        c.HDRFilename = fHDRFilename
		case "wc":         c.WeightContrast = fWeightContrast
		case "we":         c.WeightExposedness = fWeightExposedness
		case "ws":         c.WeightSaturation = fWeightSaturation
		case "limit":      c.LimitLevel = fLimitLevel
		case "tonemapper": c.Tonemapper = fTonemapper
		case "maxwidth":   c.MaxWidth = fMaxWidth
		case "linearize":  c.LinearizeInputs = fLinearize
		case "align":      c.DoFineAlignment = fAlign
		case "workers":    c.Workers = fWorkers
		}
	})
}

func main() {
	if fServe != "" {
		cfg := estack.NewConfig()
		applyFlags(&cfg)
		filter.SetWorkers(cfg.Workers)
		log.Fatal(rest.Serve(fServe, cfg))
	}

	s := estack.NewStack()
	applyFlags(&s.Config)
	if err := s.LoadFilesAndDirs(flag.Args()...); err != nil {
		log.Fatal(err)
	}
	applyFlags(&s.Config)
	filter.SetWorkers(s.Workers)

	if s.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", s.Config.AsYaml())
		log.Printf("%s", s)
	}

	s.Align()
	if err := s.Fuse(); err != nil {
		log.Fatal(err)
	}
	if err := s.WriteOutputs(); err != nil {
		log.Fatal(err)
	}
	if err := s.Tonemap(); err != nil {
		log.Fatal(err)
	}
}
