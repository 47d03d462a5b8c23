package emath

// Affine transforms for image alignment, and the 3x3 matrices used
// for color transforms.

import(
	"fmt"
	"math"
	"golang.org/x/image/math/f64"  // Will be "image/math/f64" at some point, hopefully make this file redundant
)

// Use a local type so we can hang methods off it. The layout is
// row-major, with the implicit last row [0 0 1].
type Aff3 f64.Aff3

// p.Mult(q) applies q first, then p.
func (p Aff3)Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0,   0, 1, 0}
}

func (m1 Aff3)Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx,   0, 1, ty})
}

func (m1 Aff3)Rotate(thetaDeg float64) Aff3 {
	cosTheta := math.Cos(thetaDeg * math.Pi / 180.0)
	sinTheta := math.Sin(thetaDeg * math.Pi / 180.0)
	return m1.Mult(Aff3{cosTheta, -1*sinTheta, 0,    sinTheta, cosTheta, 0})
}

func RotateAbout(thetaDeg, x, y float64) Aff3 {
	// Remember they compose back to front - rightmost operations performed first
	return Identity().Translate(x, y).Rotate(thetaDeg).Translate(-1*x, -1*y)
}

// Apply maps the point (x,y).
func (m Aff3)Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

type Vec3 f64.Vec3
type Mat3 f64.Mat3

func (m Mat3)Apply(v Vec3) Vec3 {
	var out Vec3
	for r:=0; r<3; r++ {
		out[r] = m[3*r+0]*v[0] + m[3*r+1]*v[1] + m[3*r+2]*v[2]
	}
	return out
}

func (m Mat3)String() string {
	str := ""
	for r:=0; r<3; r++ {
		str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*r+0], m[3*r+1], m[3*r+2])
	}
	return str
}

func (v Vec3)String() string {
	return fmt.Sprintf("[%12.10f, %12.10f, %12.10f]", v[0], v[1], v[2])
}

func (v *Vec3)CeilingAt(max float64) {
	for i := range v {
		if v[i] > max { v[i] = max }
	}
}
