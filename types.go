package unten

import (
	"fmt"
	"math"
)

// UnitID identifies a single rail unit (or any other entity) in the world.
// Zero is never a valid ID.
type UnitID uint64

func (u UnitID) String() string {
	return fmt.Sprintf("<u:%d>", uint64(u))
}

// Vec3 is a point or direction in world space. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

func (v Vec3) SqrLen() float64 { return v.Dot(v) }

func (v Vec3) Len() float64 { return math.Sqrt(v.SqrLen()) }

// Normalize returns v with length 1, or the zero vector if v is zero.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// Forward is the direction a zero Yaw faces.
var Forward = Vec3{Z: 1}

// Yaw is a rotation about the Y axis in degrees, clockwise when seen from above.
type Yaw float64

// Apply rotates v by y.
func (y Yaw) Apply(v Vec3) Vec3 {
	rad := float64(y) * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Vec3{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	}
}

// Forward returns the unit vector a body with this yaw faces.
func (y Yaw) Forward() Vec3 { return y.Apply(Forward) }

// YawOf returns the yaw that faces dir. The Y component is ignored.
func YawOf(dir Vec3) Yaw {
	return Yaw(math.Atan2(dir.X, dir.Z) * 180 / math.Pi)
}

// Transform places local coordinates in the world.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Yaw  `json:"rotation"`
}

// Point converts a local point to world space.
func (t Transform) Point(local Vec3) Vec3 {
	return t.Position.Add(t.Rotation.Apply(local))
}
