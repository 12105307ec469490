// Package world models the rail units, obstacles and proximity zones the automation drives.
//
// Entities are plain data keyed by unten.UnitID. The World is not safe for concurrent use; it is stepped and mutated from the scheduler's goroutine only.
package world

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/tal/cars"
	"nyiyui.ca/hato/unten/tal/layout"
)

var ErrNotFound = errors.New("entity not found")

// Kind classifies entities for zone interest and obstacle handling.
type Kind int

const (
	KindRailUnit Kind = 1 << iota
	KindJunk
	KindLoot
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindRailUnit:
		return "rail-unit"
	case KindJunk:
		return "junk"
	case KindLoot:
		return "loot"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Obstacle reports whether entities of this kind are cleared from a train's path.
func (k Kind) Obstacle() bool { return k == KindJunk || k == KindLoot }

// End is one end of a rail unit.
type End int

const (
	Front End = iota
	Rear
)

func (e End) Other() End { return 1 - e }

func (e End) String() string {
	if e == Rear {
		return "rear"
	}
	return "front"
}

// Coupling is one coupling point of a rail unit.
type Coupling struct {
	// Partner is the unit coupled here, or zero.
	Partner    unten.UnitID
	PartnerEnd End
	// Allowed is whether the coupling may be linked or unlinked by anyone other than the automation.
	Allowed bool
}

// Unit is a rail unit, or (for Kind other than KindRailUnit) a stationary entity.
type Unit struct {
	ID    unten.UnitID
	Kind  Kind
	Alias string
	Model cars.Kind
	// Track is the unit's centre. Ascending is whether the unit's front faces towards the segment's finish.
	// Only rail units have one.
	Track layout.Position
	// Point is the position of entities that are not on track.
	Point unten.Vec3
	// TrackSpeed is the speed along the unit's own forward axis.
	TrackSpeed     float64
	Throttle       Throttle
	TrackSelection layout.TrackSelection
	Couplings      [2]Coupling
	// Owner is the player who owns the unit, or zero.
	Owner uint64
	// Scripted is whether a world event drives this unit.
	Scripted     bool
	Invulnerable bool
	// Conductor is whether a synthetic conductor occupies the driver seat.
	Conductor bool
	Destroyed bool
}

// World holds every entity and zone.
type World struct {
	Layout     *layout.Layout
	units      map[unten.UnitID]*Unit
	nextID     unten.UnitID
	zones      map[ZoneID]*Zone
	nextZoneID ZoneID
	onDestroy  []func(u *Unit)
	// Accel is how quickly trains reach their target speed, in speed per second.
	Accel float64
}

func New(y *layout.Layout) *World {
	return &World{
		Layout: y,
		units:  map[unten.UnitID]*Unit{},
		zones:  map[ZoneID]*Zone{},
		Accel:  4,
	}
}

func (w *World) newID() unten.UnitID {
	w.nextID++
	return w.nextID
}

// Get returns the entity with id, or nil if it doesn't exist (or was destroyed).
func (w *World) Get(id unten.UnitID) *Unit {
	return w.units[id]
}

// Units returns every live entity, ordered by ID.
func (w *World) Units() []*Unit {
	res := make([]*Unit, 0, len(w.units))
	for _, u := range w.units {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Spawn places a rail unit of spec at pos. pos.Ascending is the direction the unit faces (before spec.Reverse is applied).
// All couplings start allowed.
func (w *World) Spawn(spec cars.Spec, pos layout.Position) (*Unit, error) {
	if pos.SegmentI < 0 || pos.SegmentI >= len(w.Layout.Segments) {
		return nil, fmt.Errorf("spawn %s: segment %d doesn't exist", spec.Alias, pos.SegmentI)
	}
	if spec.Reverse {
		pos.Ascending = !pos.Ascending
	}
	pos.IsForward = true
	u := &Unit{
		ID:    w.newID(),
		Kind:  KindRailUnit,
		Alias: spec.Alias,
		Model: spec.Kind,
		Track: pos,
	}
	u.Couplings[Front].Allowed = true
	u.Couplings[Rear].Allowed = true
	w.units[u.ID] = u
	zap.S().Debugw("spawned unit", "id", u.ID, "alias", spec.Alias, "track", pos)
	return u, nil
}

// AddEntity places a non-rail entity (e.g. junk or loot) at point.
func (w *World) AddEntity(kind Kind, point unten.Vec3) *Unit {
	u := &Unit{ID: w.newID(), Kind: kind, Point: point}
	w.units[u.ID] = u
	return u
}

// OnDestroy registers fn to be called whenever an entity is destroyed, after it has been decoupled.
func (w *World) OnDestroy(fn func(u *Unit)) {
	w.onDestroy = append(w.onDestroy, fn)
}

// Destroy removes an entity from the world. Destroying a missing entity returns ErrNotFound.
func (w *World) Destroy(id unten.UnitID) error {
	u, ok := w.units[id]
	if !ok {
		return fmt.Errorf("destroy %s: %w", id, ErrNotFound)
	}
	for e := Front; e <= Rear; e++ {
		w.decouple(u, e)
	}
	delete(w.units, id)
	for _, z := range w.zones {
		if z.Anchor == id {
			w.RemoveZone(z.ID)
			continue
		}
		delete(z.contents, id)
	}
	u.Destroyed = true
	zap.S().Debugw("destroyed unit", "id", id, "alias", u.Alias)
	for _, fn := range w.onDestroy {
		fn(u)
	}
	return nil
}

// Position returns the world position of an entity.
func (w *World) Position(u *Unit) unten.Vec3 {
	if u.Kind != KindRailUnit {
		return u.Point
	}
	return w.Layout.PointAt(u.Track)
}

// Forward returns the direction an entity's front faces.
func (w *World) Forward(u *Unit) unten.Vec3 {
	if u.Kind != KindRailUnit {
		return unten.Forward
	}
	return w.Layout.Tangent(u.Track)
}

// Velocity returns the world velocity of a rail unit.
func (w *World) Velocity(u *Unit) unten.Vec3 {
	return w.Forward(u).Scale(u.TrackSpeed)
}
