package estack

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/abworrall/hdr-fusion/pkg/fimage"
)

// LoadFilesAndDirs loads every image it finds, recursing into
// directories. A .yaml file replaces the config.
func (s *Stack)LoadFilesAndDirs(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load '%s': %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir '%s': %v", arg, err)
			}
			for _, content := range contents {
				if err := s.LoadFilesAndDirs(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load '%s': %v", arg, err)
				}
			}

		default: // is a file, load it
			if err := s.loadFile(arg); err != nil {
				return fmt.Errorf("loadfile '%s': %v", arg, err)
			}
		}
	}

	return nil
}

func (s *Stack)loadFile(filename string) error {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {

	case ".yaml":
		cfg, err := loadConfig(filename)
		if err != nil {
			return fmt.Errorf("loading '%s' as config YAML failed: %v", filename, err)
		}
		s.Config = cfg
		log.Printf("Loaded base configuration from %s\n", filename)

	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".hdr", ".pfm":
		layer, err := s.loadLayer(filename)
		if err != nil {
			return err
		}
		s.AddLayer(layer)
		if s.Verbosity > 0 {
			log.Printf("Loaded %s\n", layer)
		}
	}

	return nil
}

func (s *Stack)loadLayer(filename string) (Layer, error) {
	img, err := fimage.Read(filename)
	if err != nil {
		return Layer{}, fmt.Errorf("image read '%s': %v", filename, err)
	}

	img = s.maybeShrink(img)
	l := NewLayer(filename, img)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".tif", ".tiff":
		if ev, err := readExposureValue(filename); err != nil {
			if s.Verbosity > 0 {
				log.Printf("No exposure info, will order by brightness: %v\n", err)
			}
		} else {
			l.ExposureValue = ev
			l.HasExposureValue = true
		}
	}

	return l, nil
}

// maybeShrink scales `img` down to MaxWidth, keeping the aspect ratio.
// Resizing goes through 16 bits per channel, so it's meant for LDR inputs.
func (s *Stack)maybeShrink(img *fimage.Image) *fimage.Image {
	if s.MaxWidth <= 0 || img.Width <= s.MaxWidth {
		return img
	}
	small := imaging.Resize(img.ToLDR(), s.MaxWidth, 0, imaging.Lanczos)
	return fimage.FromImage(small)
}
