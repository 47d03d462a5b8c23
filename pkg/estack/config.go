package estack

import(
	"fmt"
	"io/ioutil"
	"log"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/hdr-fusion/pkg/fusion"
	"github.com/abworrall/hdr-fusion/pkg/tonemap"
)

type Config struct {
	Verbosity          int
	Workers            int      // goroutines per filter, set process wide at startup; 0 means GOMAXPROCS

	WeightContrast     float64  // wC
	WeightExposedness  float64  // wE
	WeightSaturation   float64  // wS
	LimitLevel         int      // pyramids stop this many levels short of 1 pixel

	Tonemapper         string   // a name from tonemap.Names, "all", or "" for none
	TonemapStops       int      // for the fusion tonemapper
	OutputFilename     string
	HDRFilename        string   // if set, the fused result is also written here (.hdr, .pfm)

	MaxWidth           int      // inputs wider than this are scaled down
	LinearizeInputs    bool     // sRGB decode the inputs before fusion

	DoFineAlignment    bool     // search for alignments not given below
	MaxShift           int      // how far (in pixels) the search explores

	Alignments         map[string]AlignmentTransform  // keyed by layer filename
}

func NewConfig() Config {
	return Config{
		WeightContrast:    1.0,
		WeightExposedness: 1.0,
		WeightSaturation:  1.0,
		LimitLevel:        1,
		TonemapStops:      2,
		OutputFilename:    "fused.png",
		MaxShift:          4,
		Alignments:        map[string]AlignmentTransform{},
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	if c.Alignments == nil {
		c.Alignments = map[string]AlignmentTransform{}
	}
	return c, err
}

func loadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read '%s': %v", filename, err)
	}
	return newConfigFromYaml(contents)
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

func (c Config)FusionOptions() fusion.Options {
	opts := fusion.DefaultOptions()
	opts.WC = c.WeightContrast
	opts.WE = c.WeightExposedness
	opts.WS = c.WeightSaturation
	opts.LimitLevel = c.LimitLevel
	return opts
}

func (c Config)TonemapOptions() tonemap.Options {
	opts := tonemap.DefaultOptions()
	opts.Verbosity = c.Verbosity
	opts.Stops = c.TonemapStops
	opts.Fusion = c.FusionOptions()
	return opts
}
