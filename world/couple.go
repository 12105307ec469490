package world

import (
	"fmt"

	"nyiyui.ca/hato/unten"
)

// Couple links end ea of unit a to end eb of unit b.
func (w *World) Couple(a unten.UnitID, ea End, b unten.UnitID, eb End) error {
	ua, ub := w.units[a], w.units[b]
	if ua == nil || ub == nil {
		return fmt.Errorf("couple %s/%s: %w", a, b, ErrNotFound)
	}
	if a == b {
		return fmt.Errorf("couple %s: cannot couple a unit to itself", a)
	}
	if ua.Couplings[ea].Partner != 0 || ub.Couplings[eb].Partner != 0 {
		return fmt.Errorf("couple %s %s/%s %s: already coupled", a, ea, b, eb)
	}
	ua.Couplings[ea].Partner, ua.Couplings[ea].PartnerEnd = b, eb
	ub.Couplings[eb].Partner, ub.Couplings[eb].PartnerEnd = a, ea
	return nil
}

// Uncouple unlinks end e of unit id. It fails if the coupling isn't allowed to be unlinked.
func (w *World) Uncouple(id unten.UnitID, e End) error {
	u := w.units[id]
	if u == nil {
		return fmt.Errorf("uncouple %s: %w", id, ErrNotFound)
	}
	if !u.Couplings[e].Allowed {
		return fmt.Errorf("uncouple %s %s: not allowed", id, e)
	}
	w.decouple(u, e)
	return nil
}

func (w *World) decouple(u *Unit, e End) {
	c := u.Couplings[e]
	if c.Partner == 0 {
		return
	}
	if p := w.units[c.Partner]; p != nil {
		p.Couplings[c.PartnerEnd].Partner = 0
	}
	u.Couplings[e].Partner = 0
}

// SetAllowed sets whether each coupling of unit id may be linked or unlinked manually.
func (w *World) SetAllowed(id unten.UnitID, front, rear bool) {
	u := w.units[id]
	if u == nil {
		return
	}
	u.Couplings[Front].Allowed = front
	u.Couplings[Rear].Allowed = rear
}

// TrainOf returns every unit coupled (directly or not) to id, in coupling order.
// The first unit is the one reached by following front couplings from id.
// It returns nil if id doesn't exist.
func (w *World) TrainOf(id unten.UnitID) []*Unit {
	u := w.units[id]
	if u == nil {
		return nil
	}
	// find the extremal unit towards id's front
	cur, exit := u, Front
	seen := map[unten.UnitID]bool{cur.ID: true}
	for {
		c := cur.Couplings[exit]
		next := w.units[c.Partner]
		if c.Partner == 0 || next == nil || seen[next.ID] {
			break
		}
		seen[next.ID] = true
		cur, exit = next, c.PartnerEnd.Other()
	}
	res := []*Unit{cur}
	seen = map[unten.UnitID]bool{cur.ID: true}
	exit = exit.Other()
	for {
		c := cur.Couplings[exit]
		next := w.units[c.Partner]
		if c.Partner == 0 || next == nil || seen[next.ID] {
			break
		}
		seen[next.ID] = true
		res = append(res, next)
		cur, exit = next, c.PartnerEnd.Other()
	}
	return res
}

// SameFacing reports whether two units of a train face the same way (judged by the dot product of their forward vectors).
func (w *World) SameFacing(a, b *Unit) bool {
	return w.Forward(a).Dot(w.Forward(b)) >= 0
}

// Facings returns, for each unit of train, +1 if its front points towards train[0]'s free end and -1 otherwise.
// Unlike SameFacing this follows the couplings, so it is exact.
func Facings(train []*Unit) []float64 {
	res := make([]float64, len(train))
	for i, u := range train {
		if i == 0 {
			res[i] = 1
			if len(train) > 1 && u.Couplings[Front].Partner == train[1].ID {
				res[i] = -1
			}
			continue
		}
		if u.Couplings[Front].Partner == train[i-1].ID {
			res[i] = 1
		} else {
			res[i] = -1
		}
	}
	return res
}

// Primary returns the unit at the front of train in its direction of travel.
// A stationary train is judged by the direction its engines drive towards.
func (w *World) Primary(train []*Unit) *Unit {
	if len(train) == 0 {
		return nil
	}
	f := Facings(train)
	speed := f[0] * train[0].TrackSpeed
	if speed == 0 {
		speed = drive(train, f)
	}
	if speed < 0 {
		return train[len(train)-1]
	}
	return train[0]
}

// Owned reports whether any unit of train has an owner.
func Owned(train []*Unit) bool {
	for _, u := range train {
		if u.Owner != 0 {
			return true
		}
	}
	return false
}
