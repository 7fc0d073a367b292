package math

import "math"

// Mat4 is a 4x4 matrix in column-major order.
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float64

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float64) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// Scale returns a scale matrix.
func Scale(x, y, z float64) Mat4 {
	return Mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

// RotateX returns a rotation matrix around the X axis.
// angle is in radians.
func RotateX(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat4{
		1, 0, 0, 0,
		0, c, s, 0,
		0, -s, c, 0,
		0, 0, 0, 1,
	}
}

// RotateY returns a rotation matrix around the Y axis.
// angle is in radians.
func RotateY(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// RotateZ returns a rotation matrix around the Z axis.
// angle is in radians.
func RotateZ(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat4{
		c, s, 0, 0,
		-s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// RotateEulerXYZ returns the rotation for Euler angles given in degrees,
// applied X first, then Y, then Z.
func RotateEulerXYZ(deg Vec3) Mat4 {
	return RotateZ(Radians(deg.Z)).Mul(RotateY(Radians(deg.Y))).Mul(RotateX(Radians(deg.X)))
}

// Compose builds a local transform from translation, Euler rotation in
// degrees and scaling: T * R * S.
func Compose(translation, rotation, scaling Vec3) Mat4 {
	return Translate(translation.X, translation.Y, translation.Z).
		Mul(RotateEulerXYZ(rotation)).
		Mul(Scale(scaling.X, scaling.Y, scaling.Z))
}

// Mul multiplies this matrix by another (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			result[col*4+row] =
				m[0*4+row]*other[col*4+0] +
					m[1*4+row]*other[col*4+1] +
					m[2*4+row]*other[col*4+2] +
					m[3*4+row]*other[col*4+3]
		}
	}
	return result
}

// TransformVec3 transforms a point by this matrix (assumes w=1).
func (m Mat4) TransformVec3(v Vec3) Vec3 {
	x := m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]
	y := m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]
	z := m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]
	w := m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// EulerXYZ extracts Euler angles in degrees from the rotation part of a
// matrix built by RotateEulerXYZ. The matrix must not carry scale.
func (m Mat4) EulerXYZ() Vec3 {
	sy := -m[2]
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	y := math.Asin(sy)
	if math.Abs(math.Cos(y)) < 1e-9 {
		// Gimbal lock: fold X into Z.
		return Vec3{0, Degrees(y), Degrees(math.Atan2(-m[4], m[5]))}
	}
	x := math.Atan2(m[6], m[10])
	z := math.Atan2(m[1], m[0])
	return Vec3{Degrees(x), Degrees(y), Degrees(z)}
}

// FromMat3x3 creates a Mat4 from a column-major 3x3 rotation matrix.
func FromMat3x3(m3 [9]float64) Mat4 {
	return Mat4{
		m3[0], m3[1], m3[2], 0,
		m3[3], m3[4], m3[5], 0,
		m3[6], m3[7], m3[8], 0,
		0, 0, 0, 1,
	}
}

// ApproxEqual reports whether every element differs by at most eps.
func (m Mat4) ApproxEqual(other Mat4, eps float64) bool {
	for i := range m {
		if math.Abs(m[i]-other[i]) > eps {
			return false
		}
	}
	return true
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
