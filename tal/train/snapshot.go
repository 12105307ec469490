package train

import (
	"time"

	"github.com/google/uuid"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/tal/layout"
	"nyiyui.ca/hato/unten/world"
)

// Snapshot is the state of every automated train at one instant.
type Snapshot struct {
	Time   time.Duration   `json:"time"`
	Trains []TrainSnapshot `json:"trains"`
}

type TrainSnapshot struct {
	ID             uuid.UUID             `json:"id"`
	Lead           unten.UnitID          `json:"lead"`
	Units          []unten.UnitID        `json:"units"`
	Route          string                `json:"route,omitempty"`
	State          string                `json:"state"`
	Throttle       world.Throttle        `json:"throttle"`
	Departure      world.Throttle        `json:"departure"`
	TrackSelection layout.TrackSelection `json:"track-selection"`
	Counts         bool                  `json:"counts"`
	Position       unten.Vec3            `json:"position"`
	Track          layout.Position       `json:"track"`
	Speed          float64               `json:"speed"`
}

func (t *Train) Snapshot() TrainSnapshot {
	s := TrainSnapshot{
		ID:             t.ID,
		Lead:           t.Lead(),
		Units:          t.Units(),
		Route:          t.data.Route,
		State:          t.StateName(),
		Throttle:       t.Throttle(),
		Departure:      t.DepartureThrottle(),
		TrackSelection: t.trackSelection,
		Counts:         t.counts,
	}
	if l := t.lead(); l != nil {
		s.Position = t.m.w.Position(l)
		s.Track = l.Track
		s.Speed = l.TrackSpeed
	}
	return s
}

func (m *Manager) Snapshot() Snapshot {
	s := Snapshot{Time: m.s.Now()}
	for _, t := range m.Trains() {
		s.Trains = append(s.Trains, t.Snapshot())
	}
	return s
}

// Publish sends a snapshot to subscribers, if any sender is configured.
func (m *Manager) Publish() {
	if m.conf.Snapshots == nil {
		return
	}
	m.conf.Snapshots.Send(m.Snapshot())
}
