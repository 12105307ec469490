package train

import (
	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/world"
)

const (
	collisionRadius = 2
	// sameDirection is the minimum dot product of two headings considered to travel the same way.
	sameDirection = 0.01
	// probeDistance is how far ahead of a train the point used to tell which of two units is ahead lies.
	probeDistance = 100
)

// addZones places a collision zone at each outer end of the train.
func (t *Train) addZones(units []*world.Unit) {
	f := world.Facings(units)
	last := len(units) - 1
	ends := []struct {
		u      *world.Unit
		offset float64
	}{
		{units[0], f[0] * units[0].Model.Length / 2},
		{units[last], -f[last] * units[last].Model.Length / 2},
	}
	for _, end := range ends {
		anchor := end.u
		var z *world.Zone
		z = t.m.w.AddZone(world.Zone{
			Anchor:   anchor.ID,
			Offset:   end.offset,
			Radius:   collisionRadius,
			Interest: world.KindRailUnit | world.KindJunk | world.KindLoot,
			Enabled:  true,
			Ignore: func(u *world.Unit) bool {
				return t.m.byUnit[u.ID] == t
			},
			OnEnter: func(u *world.Unit) { t.encounter(z, anchor.ID, u) },
			OnExit: func(u *world.Unit) {
				delete(t.collided[z.ID], u.ID)
			},
		})
		t.collided[z.ID] = map[unten.UnitID]struct{}{}
		t.zones = append(t.zones, z)
	}
}

// unitForward is the direction an unautomated unit travels in.
func (m *Manager) unitForward(u *world.Unit) unten.Vec3 {
	f := m.w.Forward(u)
	if u.TrackSpeed < 0 {
		return f.Neg()
	}
	return f
}

func (t *Train) encounter(z *world.Zone, anchorID unten.UnitID, u *world.Unit) {
	m := t.m
	if t.killed {
		return
	}
	if u.Kind.Obstacle() {
		id := u.ID
		m.s.After(0, func() {
			if m.w.Get(id) == nil {
				return
			}
			zap.S().Warnw("automated train destroyed an obstacle in its path", "train", t.ID, "entity", id, "kind", u.Kind, "position", m.w.Position(u))
			if err := m.w.Destroy(id); err != nil {
				zap.S().Errorw("failed to destroy obstacle", "entity", id, "err", err)
			}
		})
		return
	}
	if u.Kind != world.KindRailUnit {
		return
	}
	if _, ok := t.collided[z.ID][u.ID]; ok {
		return
	}
	t.collided[z.ID][u.ID] = struct{}{}
	anchor := m.w.Get(anchorID)
	if anchor == nil {
		return
	}

	other := m.byUnit[u.ID]
	forward := t.Forward()
	otherForward := m.unitForward(u)
	if other != nil {
		otherForward = other.Forward()
	}

	if forward.Dot(otherForward) >= sameDirection {
		probe := m.w.Position(anchor).Add(forward.Scale(probeDistance))
		otherAhead := probe.Sub(m.w.Position(u)).SqrLen() < probe.Sub(m.w.Position(anchor)).SqrLen()
		ahead, behind := t, other
		if otherAhead {
			ahead, behind = other, t
		}
		if ahead != nil {
			ahead.DepartEarly()
		} else if m.conf.Config.BulldozeOffendingUnits {
			zap.S().Warnw("destroying unautomated train blocking an automated train", "train", t.ID, "unit", u.ID)
			m.destroyUnautomated(u)
			return
		}
		if behind != nil {
			behind.StartChilling()
		}
		return
	}

	if other == nil {
		if m.conf.Config.BulldozeOffendingUnits {
			zap.S().Warnw("destroying unautomated train in head-on collision with an automated train", "train", t.ID, "unit", u.ID)
			m.destroyUnautomated(u)
			return
		}
		t.StartChilling()
		return
	}
	// both sides may see the same collision in the same tick
	if t.destroying || other.destroying {
		return
	}
	loser, winner := other, t
	if anchor.TrackSpeed < u.TrackSpeed {
		loser, winner = t, other
	}
	zap.S().Warnw("destroying automated train after head-on collision", "train", loser.ID, "lead", loser.Lead(), "with", winner.ID)
	loser.scheduleDestroy()
}

func (m *Manager) destroyUnautomated(u *world.Unit) {
	for _, c := range m.w.TrainOf(u.ID) {
		if err := m.w.Destroy(c.ID); err != nil {
			zap.S().Errorw("failed to destroy unit", "id", c.ID, "err", err)
		}
	}
}
