package estack

import(
	"fmt"
	"math"
)

type rational [2]int64

func (r rational)Float() float64 {
	if r[1] == 0 {
		return 0.0
	}
	return float64(r[0]) / float64(r[1])
}

// An ExposureValue details how a photograph was exposed. Only the
// differences between the EVs of a stack matter: a layer with EV one
// less than another had twice as much light reach the sensor.
type ExposureValue struct {
	ISO           int       // 100, 800, etc.
	ApertureX10   int       // f/5.6 is the integer 56.
	ShutterSpeed  rational  // 1/500, 1/1000, etc.

	// https://en.wikipedia.org/wiki/Exposure_value, normalized to ISO 100.
	EV            float64
}

func (ev ExposureValue)String() string {
	s := fmt.Sprintf("f/%.1f", float32(ev.ApertureX10)/10.0)
	if ev.ShutterSpeed[1] != 1 {
		s += fmt.Sprintf(", %d/%4d", ev.ShutterSpeed[0], ev.ShutterSpeed[1])
	} else {
		s += fmt.Sprintf(", %d", ev.ShutterSpeed[0])
	}
	s += fmt.Sprintf(", ISO%d", ev.ISO)
	return s + fmt.Sprintf(", EV %5.2f", ev.EV)
}

// Validate checks the triple looks like a real exposure, and fills in EV.
func (ev *ExposureValue)Validate() error {
	if ev.ISO <= 0 || ev.ApertureX10 <= 0 || ev.ShutterSpeed[0] <= 0 || ev.ShutterSpeed[1] <= 0 {
		return fmt.Errorf("exposure info incomplete: %v", ev)
	}

	n := float64(ev.ApertureX10) / 10.0
	t := ev.ShutterSpeed.Float()
	ev.EV = math.Log2(n*n/t) - math.Log2(float64(ev.ISO)/100.0)

	if ev.EV < -10 || ev.EV > 25 {
		return fmt.Errorf("exposure info looks suspicious, EV=%.2f: %v", ev.EV, ev)
	}
	return nil
}

// StopsBrighterThan is how many stops more light this exposure captured.
func (ev ExposureValue)StopsBrighterThan(o ExposureValue) float64 {
	return o.EV - ev.EV
}
