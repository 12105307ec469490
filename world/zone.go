package world

import (
	"math"
	"sort"

	"golang.org/x/exp/slices"
	"nyiyui.ca/hato/unten"
)

type ZoneID int

// bodyHeight is how far a rail unit's body extends above the track.
const bodyHeight = 2

// Zone is a sphere that reports entities entering and leaving it.
// Each entity is reported once per continuous overlap.
type Zone struct {
	ID ZoneID
	// Anchor, if non-zero, is the unit the zone moves with. Offset is along the anchor's forward axis.
	Anchor unten.UnitID
	Offset float64
	// Point is the centre of a zone without an anchor.
	Point  unten.Vec3
	Radius float64
	// Interest is a mask of the kinds the zone reports.
	Interest Kind
	Enabled  bool
	// Ignore, if set, excludes entities from the zone.
	Ignore  func(u *Unit) bool
	OnEnter func(u *Unit)
	OnExit  func(u *Unit)

	contents map[unten.UnitID]struct{}
}

// Contains reports whether id is currently inside z.
func (z *Zone) Contains(id unten.UnitID) bool {
	_, ok := z.contents[id]
	return ok
}

// AddZone registers a copy of z and returns it.
func (w *World) AddZone(z Zone) *Zone {
	w.nextZoneID++
	z.ID = w.nextZoneID
	z.contents = map[unten.UnitID]struct{}{}
	zp := &z
	w.zones[z.ID] = zp
	return zp
}

// RemoveZone unregisters a zone. Removing a missing zone does nothing.
func (w *World) RemoveZone(id ZoneID) {
	delete(w.zones, id)
}

// Zone returns the zone with id, or nil.
func (w *World) Zone(id ZoneID) *Zone {
	return w.zones[id]
}

// SetZoneEnabled enables or disables a zone. A disabled zone forgets its contents without reporting exits.
func (w *World) SetZoneEnabled(id ZoneID, enabled bool) {
	z := w.zones[id]
	if z == nil {
		return
	}
	z.Enabled = enabled
	if !enabled {
		z.contents = map[unten.UnitID]struct{}{}
	}
}

// Center returns the current centre of z.
func (w *World) Center(z *Zone) unten.Vec3 {
	if z.Anchor == 0 {
		return z.Point
	}
	a := w.units[z.Anchor]
	if a == nil {
		return z.Point
	}
	return w.Position(a).Add(w.Forward(a).Scale(z.Offset))
}

func (w *World) overlaps(z *Zone, center unten.Vec3, u *Unit) bool {
	if u.Kind&z.Interest == 0 || u.ID == z.Anchor {
		return false
	}
	if z.Ignore != nil && z.Ignore(u) {
		return false
	}
	p := w.Position(u)
	if u.Kind != KindRailUnit {
		return p.Sub(center).SqrLen() <= z.Radius*z.Radius
	}
	// a rail unit is a line along its forward axis
	half := u.Model.Length / 2
	fwd := w.Forward(u)
	t := math.Max(-half, math.Min(half, center.Sub(p).Dot(fwd)))
	closest := p.Add(fwd.Scale(t))
	closest.Y = math.Max(closest.Y, math.Min(closest.Y+bodyHeight, center.Y))
	return closest.Sub(center).SqrLen() <= z.Radius*z.Radius
}

// CheckZones compares every enabled zone's overlaps with its contents, reporting entries and exits.
// Callbacks may mutate the world.
func (w *World) CheckZones() {
	ids := make([]ZoneID, 0, len(w.zones))
	for id := range w.zones {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		z := w.zones[id]
		if z == nil || !z.Enabled {
			continue
		}
		center := w.Center(z)
		var entered, exited []unten.UnitID
		for _, u := range w.Units() {
			in := w.overlaps(z, center, u)
			_, had := z.contents[u.ID]
			if in && !had {
				entered = append(entered, u.ID)
			}
		}
		for uid := range z.contents {
			u := w.units[uid]
			if u == nil || !w.overlaps(z, center, u) {
				exited = append(exited, uid)
			}
		}
		slices.Sort(exited)
		for _, uid := range exited {
			delete(z.contents, uid)
			if u := w.units[uid]; u != nil && z.OnExit != nil {
				z.OnExit(u)
			}
		}
		for _, uid := range entered {
			if w.zones[id] != z || !z.Enabled {
				break
			}
			u := w.units[uid]
			if u == nil {
				continue
			}
			z.contents[uid] = struct{}{}
			if z.OnEnter != nil {
				z.OnEnter(u)
			}
		}
	}
}
