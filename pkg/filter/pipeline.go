package filter

import "github.com/abworrall/hdr-fusion/pkg/fimage"

// A Pipeline chains filters: the first gets all the inputs, each
// later one gets the previous output. Intermediate images are kept
// between calls and reused.
type Pipeline struct {
	Filters   []Filter

	scratch []*fimage.Image
}

func NewPipeline(filters ...Filter) *Pipeline {
	return &Pipeline{Filters: filters}
}

func (p *Pipeline)Add(f Filter) *Pipeline {
	p.Filters = append(p.Filters, f)
	return p
}

func (p *Pipeline)MinInputImages() int {
	if len(p.Filters) == 0 {
		return 1
	}
	return p.Filters[0].MinInputImages()
}

func (p *Pipeline)Process(out *fimage.Image, ins ...*fimage.Image) *fimage.Image {
	if len(p.Filters) == 0 || !enoughInputs(p.MinInputImages(), ins) {
		return out
	}
	if len(p.scratch) != len(p.Filters)-1 {
		p.scratch = make([]*fimage.Image, len(p.Filters)-1)
	}

	cur := ins
	for i, f := range p.Filters {
		if i == len(p.Filters)-1 {
			return f.Process(out, cur...)
		}
		p.scratch[i] = f.Process(p.scratch[i], cur...)
		if p.scratch[i] == nil {
			return out
		}
		cur = []*fimage.Image{p.scratch[i]}
	}
	return out
}
