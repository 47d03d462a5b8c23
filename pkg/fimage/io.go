package fimage

import(
	"bufio"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/mdouchement/hdr/codec/pfm"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
)

// ErrUnknownFormat is returned for file extensions we can't map to a codec.
var ErrUnknownFormat = errors.New("fimage: unknown image format")

// Read loads an image, picking the codec from the file extension:
//   .hdr          Radiance RGBE
//   .pfm          portable float map
//   .tif, .tiff   TIFF (8/16 bit)
//   .png, .jpg    via imaging, honouring EXIF orientation
// HDR formats keep their range; LDR formats are scaled into [0,1].
func Read(filename string) (*Image, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".png", ".jpg", ".jpeg":
		src, err := imaging.Open(filename, imaging.AutoOrientation(true))
		if err != nil {
			return nil, errors.Wrapf(err, "fimage: open %s", filename)
		}
		return FromImage(src), nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "fimage: open %s", filename)
	}
	defer f.Close()

	img, err := Decode(bufio.NewReader(f), ext)
	if err != nil {
		return nil, errors.Wrapf(err, "fimage: read %s", filename)
	}
	return img, nil
}

// Decode reads from a stream, with the format named by a file extension (".hdr", ".tif", ...).
func Decode(r io.Reader, ext string) (*Image, error) {
	var src image.Image
	var err error

	switch strings.ToLower(ext) {
	case ".hdr":
		src, err = rgbe.Decode(r)
	case ".pfm":
		src, err = pfm.Decode(r)
	case ".tif", ".tiff":
		src, err = tiff.Decode(r)
	case ".png", ".jpg", ".jpeg":
		src, err = imaging.Decode(r, imaging.AutoOrientation(true))
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "extension %q", ext)
	}

	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return FromImage(src), nil
}

// Write saves the image, picking the codec from the file extension.
// LDR formats are clamped to [0,1].
func (img *Image)Write(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	w, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "fimage: create %s", filename)
	}
	bw := bufio.NewWriter(w)

	if err := img.Encode(bw, ext); err != nil {
		w.Close()
		return errors.Wrapf(err, "fimage: write %s", filename)
	}
	if err := bw.Flush(); err != nil {
		w.Close()
		return errors.Wrapf(err, "fimage: flush %s", filename)
	}
	return w.Close()
}

func (img *Image)Encode(w io.Writer, ext string) error {
	switch strings.ToLower(ext) {
	case ".hdr":
		return rgbe.Encode(w, img)
	case ".pfm":
		return pfm.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img.ToLDR(), &tiff.Options{Compression: tiff.Deflate})
	case ".png":
		return imaging.Encode(w, img.ToLDR(), imaging.PNG)
	case ".jpg", ".jpeg":
		return imaging.Encode(w, img.ToLDR(), imaging.JPEG, imaging.JPEGQuality(95))
	}
	return errors.Wrapf(ErrUnknownFormat, "extension %q", ext)
}
