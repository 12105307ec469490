package train

import (
	"errors"

	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
)

// currentData is what would be saved for t now.
func (t *Train) currentData() UnitData {
	ts := t.trackSelection
	return UnitData{
		Route:          t.data.Route,
		Throttle:       t.DepartureThrottle(),
		TrackSelection: &ts,
	}
}

func (m *Manager) persist(t *Train) {
	d := t.currentData()
	for _, e := range t.engines {
		if old, ok := m.saved[e.id]; ok && old.equal(d) {
			continue
		}
		m.saved[e.id] = d
		if m.conf.Persister == nil {
			continue
		}
		if err := m.conf.Persister.SaveUnit(e.id, d); err != nil {
			zap.S().Errorw("failed to save unit data", "id", e.id, "err", err)
		}
	}
}

func (m *Manager) forget(id unten.UnitID) {
	if _, ok := m.saved[id]; !ok {
		return
	}
	delete(m.saved, id)
	if m.conf.Persister == nil {
		return
	}
	if err := m.conf.Persister.DeleteUnit(id); err != nil {
		zap.S().Errorw("failed to delete unit data", "id", id, "err", err)
	}
}

// SaveChanged persists the data of every train whose throttle, track selection or route changed since it was last saved.
// Trains on spawned units aren't saved.
func (m *Manager) SaveChanged() {
	for _, t := range m.Trains() {
		if t.spawned {
			continue
		}
		m.persist(t)
	}
}

// Restore re-automates the engines in saved after a settle delay. Saved data for units no longer in the world is deleted.
func (m *Manager) Restore(saved map[unten.UnitID]UnitData) {
	for id, d := range saved {
		id, d := id, d
		if m.w.Get(id) == nil {
			zap.S().Infow("trimming data of missing unit", "id", id)
			m.saved[id] = d
			m.forget(id)
			continue
		}
		m.saved[id] = d
		m.s.After(m.settleDelay(), func() {
			u := m.w.Get(id)
			if u == nil {
				m.forget(id)
				return
			}
			_, err := m.Compose(u, nil, &d, true)
			switch {
			case err == nil:
			case errors.Is(err, ErrAlreadyAutomated):
				// another engine of the same train was restored first
			default:
				zap.S().Warnw("failed to restore train", "id", id, "err", err)
			}
		})
	}
}
