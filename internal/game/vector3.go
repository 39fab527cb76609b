package game

import "math"

// Vec3 is a 3D vector with fixed-precision arithmetic so the server and the
// client mirror compute bit-identical trajectories from the same seed.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// fix rounds to 4 decimal places.
func fix(n float64) float64 {
	if math.IsNaN(n) {
		return 0
	}
	return math.Round(n*10000) / 10000
}

func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: fix(x), Y: fix(y), Z: fix(z)}
}

func (v Vec3) Plus(o Vec3) Vec3 {
	return Vec3{X: fix(v.X + o.X), Y: fix(v.Y + o.Y), Z: fix(v.Z + o.Z)}
}

func (v Vec3) Minus(o Vec3) Vec3 {
	return Vec3{X: fix(v.X - o.X), Y: fix(v.Y - o.Y), Z: fix(v.Z - o.Z)}
}

func (v Vec3) Times(s float64) Vec3 {
	return Vec3{X: fix(v.X * s), Y: fix(v.Y * s), Z: fix(v.Z * s)}
}

func (v Vec3) Magnitude() float64 {
	return fix(math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z))
}

// GroundDistance is the horizontal distance to another point, ignoring height.
func (v Vec3) GroundDistance(o Vec3) float64 {
	dx := o.X - v.X
	dz := o.Z - v.Z
	return fix(math.Sqrt(dx*dx + dz*dz))
}

// GroundSpeed is the horizontal speed, ignoring the vertical component.
func (v Vec3) GroundSpeed() float64 {
	return fix(math.Sqrt(v.X*v.X + v.Z*v.Z))
}

func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

func clamp(val, min, max float64) float64 {
	return math.Max(min, math.Min(max, val))
}

func distance2D(x1, z1, x2, z2 float64) float64 {
	return math.Sqrt((x2-x1)*(x2-x1) + (z2-z1)*(z2-z1))
}
