// Package math provides the vector and matrix types used for scene node transforms.
package math

import "math"

// Vec3 is a 3D vector. Node transforms store translation, Euler rotation
// in degrees and scaling as Vec3.
type Vec3 struct {
	X, Y, Z float64
}

// V3 builds a Vec3 from components.
func V3(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

// One is the unit scaling vector.
func One() Vec3 {
	return Vec3{1, 1, 1}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Length returns the magnitude.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns a unit vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Array returns the components as a fixed array, the form used in
// diagnostics and scene documents.
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// FromArray builds a Vec3 from a fixed array.
func FromArray(a [3]float64) Vec3 {
	return Vec3{a[0], a[1], a[2]}
}

// ApproxEqual reports whether every component differs by at most eps.
func (v Vec3) ApproxEqual(other Vec3, eps float64) bool {
	return math.Abs(v.X-other.X) <= eps &&
		math.Abs(v.Y-other.Y) <= eps &&
		math.Abs(v.Z-other.Z) <= eps
}
