package trigger

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/sched"
	"nyiyui.ca/hato/unten/tal/cars"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/world"
)

const (
	// zoneRadius is the radius of a trigger's detection sphere.
	zoneRadius = 1
	// trackSearchRadius is how far from a trigger its track position may be.
	trackSearchRadius = 2
)

// zoneOffset lifts the detection sphere above the trigger's position.
var zoneOffset = unten.Vec3{Y: 0.9}

// Instance is one placement of a trigger in the world: a map trigger has one, a template trigger one per occurrence.
type Instance struct {
	c *Controller
	// occ is nil for map triggers.
	occ       *Occurrence
	transform unten.Transform
	zone      *world.Zone
	track     layout.Position
	onTrack   bool
	handled   map[unten.UnitID]struct{}
	spawns    [][]unten.UnitID
	spawnTask *sched.Task
}

func (in *Instance) Definition() *Definition { return in.c.def }

func (in *Instance) Controller() *Controller { return in.c }

// Occurrence returns the template occurrence the instance is placed in, if any.
func (in *Instance) Occurrence() (Occurrence, bool) {
	if in.occ == nil {
		return Occurrence{}, false
	}
	return *in.occ, true
}

func (in *Instance) WorldPosition() unten.Vec3 { return in.transform.Position }

func (in *Instance) WorldRotation() unten.Yaw { return in.transform.Rotation }

// Track returns the track position nearest the instance, facing its rotation.
func (in *Instance) Track() (layout.Position, bool) { return in.track, in.onTrack }

// DidSpawn reports whether the instance spawned unit id.
func (in *Instance) DidSpawn(id unten.UnitID) bool {
	for _, ids := range in.spawns {
		for _, sid := range ids {
			if sid == id {
				return true
			}
		}
	}
	return false
}

// SpawnedTrains returns the number of spawned trains with a unit still alive.
func (in *Instance) SpawnedTrains() int {
	in.prune()
	return len(in.spawns)
}

func (in *Instance) m() *Manager { return in.c.m }

func (in *Instance) place() {
	in.transform = resolve(in.c.def, in.occ)
	in.track, in.onTrack = in.m().w.Layout.FindNear(in.transform.Position, trackSearchRadius)
	if in.onTrack {
		in.track = in.m().w.Layout.Facing(in.track, in.transform.Rotation.Forward())
	}
}

func (in *Instance) create() {
	in.handled = map[unten.UnitID]struct{}{}
	in.place()
	in.zone = in.m().w.AddZone(world.Zone{
		Point:    in.transform.Position.Add(zoneOffset),
		Radius:   zoneRadius,
		Interest: world.KindRailUnit,
		Enabled:  in.c.def.Enabled,
		OnEnter:  in.enter,
		OnExit:   in.exit,
	})
	if in.c.def.Enabled && in.c.def.IsSpawner() {
		in.startSpawning()
	}
}

func (in *Instance) enter(u *world.Unit) {
	if _, ok := in.handled[u.ID]; ok {
		return
	}
	in.handled[u.ID] = struct{}{}
	if in.m().handler == nil {
		return
	}
	in.m().handler.HandleTrigger(in, u)
}

func (in *Instance) exit(u *world.Unit) {
	delete(in.handled, u.ID)
}

func (in *Instance) onMove() {
	in.place()
	in.zone.Point = in.transform.Position.Add(zoneOffset)
}

func (in *Instance) onEnabledToggled() {
	in.m().w.SetZoneEnabled(in.zone.ID, in.c.def.Enabled)
	in.handled = map[unten.UnitID]struct{}{}
	if in.c.def.Enabled {
		if in.c.def.IsSpawner() {
			in.startSpawning()
		}
		return
	}
	in.killTrains()
	in.stopSpawning()
}

func (in *Instance) onSpawnerToggled() {
	if in.c.def.IsSpawner() && in.c.def.Enabled {
		in.startSpawning()
		return
	}
	in.killTrains()
	in.stopSpawning()
}

func (in *Instance) respawn() {
	if !in.c.def.IsSpawner() || !in.c.def.Enabled {
		return
	}
	in.killTrains()
	in.spawnTrain()
}

func (in *Instance) destroy() {
	in.m().w.RemoveZone(in.zone.ID)
	in.stopSpawning()
	in.killTrains()
}

func (in *Instance) startSpawning() {
	if in.spawnTask.Active() {
		return
	}
	m := in.m()
	interval := m.conf.Config.SpawnInterval.Duration()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	initial := time.Duration(m.rand.Int63n(int64(time.Second)))
	in.spawnTask = m.s.Every(initial, interval, in.spawnTrain)
}

func (in *Instance) stopSpawning() {
	in.spawnTask.Cancel()
	in.spawnTask = nil
}

func (in *Instance) prune() {
	w := in.m().w
	kept := in.spawns[:0]
	for _, ids := range in.spawns {
		alive := ids[:0]
		for _, id := range ids {
			if w.Get(id) != nil {
				alive = append(alive, id)
			}
		}
		if len(alive) > 0 {
			kept = append(kept, alive)
		}
	}
	in.spawns = kept
}

func (in *Instance) killTrains() {
	m := in.m()
	for _, ids := range in.spawns {
		for _, id := range ids {
			if m.w.Get(id) == nil {
				continue
			}
			if err := m.w.Destroy(id); err != nil {
				zap.S().Warnw("failed to destroy spawned unit", "id", id, "err", err)
			}
		}
	}
	in.spawns = nil
}

func (in *Instance) spawnTrain() {
	m := in.m()
	def := in.c.def
	if in.SpawnedTrains() >= m.conf.Config.MaxSpawnedTrains {
		return
	}
	if !in.onTrack {
		zap.S().Warnw("spawner is not near any track", "id", def.ID, "position", in.transform.Position)
		return
	}
	sel := ApplyTrackSelection(layout.TrackDefault, def.Instructions().TrackSelection)
	cursor := in.track
	var ids []unten.UnitID
	var prev *world.Unit
	var prevSpec cars.Spec
	for _, alias := range def.Units {
		spec, ok := m.conf.Config.Cars.Find(alias)
		if !ok {
			zap.S().Warnw("spawner lists an unknown unit", "id", def.ID, "alias", alias)
			continue
		}
		if prev != nil {
			gap := prevSpec.Kind.Length/2 + spec.Kind.Length/2
			cursor, _ = m.w.Layout.Walk(cursor, -gap, sel)
			cursor.IsForward = true
		}
		u, err := m.w.Spawn(spec, cursor)
		if err != nil {
			zap.S().Errorw("failed to spawn unit", "id", def.ID, "alias", alias, "err", err)
			break
		}
		if prev != nil {
			if err := m.w.Couple(prev.ID, trainRear(prevSpec), u.ID, trainFront(spec)); err != nil {
				zap.S().Errorw("failed to couple spawned units", "err", err)
			}
		}
		ids = append(ids, u.ID)
		m.spawned[u.ID] = in
		prev, prevSpec = u, spec
	}
	if len(ids) == 0 {
		return
	}
	in.spawns = append(in.spawns, ids)
	zap.S().Infow("spawned train", "trigger", def.ID, "units", ids)
}

// trainFront is the end of a unit facing the front of the train it was spawned in.
func trainFront(s cars.Spec) world.End {
	if s.Reverse {
		return world.Rear
	}
	return world.Front
}

func trainRear(s cars.Spec) world.End { return trainFront(s).Other() }

func newRand() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }
