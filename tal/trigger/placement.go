package trigger

import (
	"fmt"
	"math"
	"strings"

	"nyiyui.ca/hato/unten"
)

// TemplateType is a kind of prefabricated structure that template triggers are placed relative to.
type TemplateType string

const (
	TrainStation      TemplateType = "TrainStation"
	BarricadeTunnel   TemplateType = "BarricadeTunnel"
	LootTunnel        TemplateType = "LootTunnel"
	Intersection      TemplateType = "Intersection"
	LargeIntersection TemplateType = "LargeIntersection"
	Unsupported       TemplateType = "Unsupported"
)

var templateTypes = []TemplateType{TrainStation, BarricadeTunnel, LootTunnel, Intersection, LargeIntersection}

// ParseTemplateType returns Unsupported for names that aren't a known template type.
func ParseTemplateType(s string) TemplateType {
	for _, t := range templateTypes {
		if strings.EqualFold(string(t), s) {
			return t
		}
	}
	return Unsupported
}

// dimensions is each template type's extent (width, height, length) around its origin.
var dimensions = map[TemplateType]unten.Vec3{
	TrainStation:      {X: 108, Y: 8.5, Z: 216},
	BarricadeTunnel:   {X: 16.5, Y: 8.5, Z: 216},
	LootTunnel:        {X: 16.5, Y: 8.5, Z: 216},
	Intersection:      {X: 216, Y: 8.5, Z: 216},
	LargeIntersection: {X: 216, Y: 8.5, Z: 216},
}

// Occurrence is one placed copy of a template.
type Occurrence struct {
	Name      string          `json:"name"`
	Type      TemplateType    `json:"type"`
	Transform unten.Transform `json:"transform"`
}

func (o Occurrence) String() string {
	return fmt.Sprintf("%s@%s", o.Type, o.Transform.Position)
}

// Local converts a world point to the occurrence's frame.
func (o Occurrence) Local(point unten.Vec3) unten.Vec3 {
	return (-o.Transform.Rotation).Apply(point.Sub(o.Transform.Position))
}

// Contains reports whether point lies within the occurrence's extent.
func (o Occurrence) Contains(point unten.Vec3) bool {
	dim, ok := dimensions[o.Type]
	if !ok {
		return false
	}
	l := o.Local(point)
	return math.Abs(l.X) <= dim.X/2 && math.Abs(l.Y) <= dim.Y && math.Abs(l.Z) <= dim.Z/2
}

// Placer enumerates the occurrences of each template type in the world.
type Placer interface {
	Occurrences(t TemplateType) []Occurrence
}

// Occurrences is a fixed list of occurrences.
type Occurrences []Occurrence

func (os Occurrences) Occurrences(t TemplateType) []Occurrence {
	var res []Occurrence
	for _, o := range os {
		if o.Type == t {
			res = append(res, o)
		}
	}
	return res
}

// FindOccurrence returns the occurrence of any type containing point.
func FindOccurrence(p Placer, point unten.Vec3) (Occurrence, bool) {
	for _, t := range templateTypes {
		for _, o := range p.Occurrences(t) {
			if o.Contains(point) {
				return o, true
			}
		}
	}
	return Occurrence{}, false
}

// resolve places d in the world. occ is nil for map triggers.
func resolve(d *Definition, occ *Occurrence) unten.Transform {
	local := unten.Transform{Position: d.Position, Rotation: unten.Yaw(d.RotationAngle)}
	if occ == nil {
		return local
	}
	return unten.Transform{
		Position: occ.Transform.Point(local.Position),
		Rotation: occ.Transform.Rotation + local.Rotation,
	}
}
