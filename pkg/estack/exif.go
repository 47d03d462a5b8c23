package estack

import(
	"fmt"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// readExposureValue pulls ISO, f-number and shutter speed out of the
// EXIF metadata of a JPEG or TIFF.
func readExposureValue(filename string) (ExposureValue, error) {
	ev := ExposureValue{}

	reader, err := os.Open(filename)
	if err != nil {
		return ev, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return ev, fmt.Errorf("exif parsing '%s': %v", filename, err)
	}

	if tag,err := ex.Get(exif.ISOSpeedRatings); err != nil {
		return ev, fmt.Errorf("exif ISO '%s': %v", filename, err)
	} else if val,err := tag.Int(0); err != nil {
		return ev, fmt.Errorf("exif ISO '%s': %v", filename, err)
	} else {
		ev.ISO = val
	}

	if tag,err := ex.Get(exif.FNumber); err != nil {
		return ev, fmt.Errorf("exif FNumber '%s': %v", filename, err)
	} else if num,denom,err := tag.Rat2(0); err != nil {
		return ev, fmt.Errorf("exif FNumber '%s': %v", filename, err)
	} else if denom == 0 {
		return ev, fmt.Errorf("exif FNumber '%s': zero denominator", filename)
	} else {
		ev.ApertureX10 = int((num*10 + denom/2) / denom)
	}

	if tag,err := ex.Get(exif.ExposureTime); err != nil {
		return ev, fmt.Errorf("exif ExposureTime '%s': %v", filename, err)
	} else if num,denom,err := tag.Rat2(0); err != nil {
		return ev, fmt.Errorf("exif ExposureTime '%s': %v", filename, err)
	} else {
		ev.ShutterSpeed = rational{num, denom}
	}

	// Note: we ignore Exposure Compensation, as it is informational. The
	// Fstop/Speed/ISO triple fully defines how much light would expose a pixel.

	if err := ev.Validate(); err != nil {
		return ev, fmt.Errorf("image '%s' EV: %v", filename, err)
	}
	return ev, nil
}
