package trigger

import (
	"fmt"
	"strings"

	"nyiyui.ca/hato/unten"
)

// Snapshot describes one trigger instance for viewers.
type Snapshot struct {
	Namespace  Namespace  `json:"namespace"`
	ID         int        `json:"id"`
	Template   string     `json:"template,omitempty"`
	Occurrence string     `json:"occurrence,omitempty"`
	Route      string     `json:"route,omitempty"`
	Enabled    bool       `json:"enabled"`
	Position   unten.Vec3 `json:"position"`
	Rotation   float64    `json:"rotation"`
	OnTrack    bool       `json:"on-track"`
	// Color is the trigger's colour for a viewer following no route.
	Color   string `json:"color"`
	Summary string `json:"summary"`
	Spawned int    `json:"spawned,omitempty"`
}

// Summary is a short description of what the trigger does.
func (d *Definition) Summary() string {
	var parts []string
	if d.IsSpawner() {
		parts = append(parts, "spawn "+strings.Join(d.Units, "+"))
	}
	if d.AddConductor {
		parts = append(parts, "conductor")
	}
	if d.Destroy {
		parts = append(parts, "destroy")
	}
	if d.Brake {
		parts = append(parts, "brake")
	}
	in := d.Instructions()
	if in.Speed != nil {
		parts = append(parts, "speed "+in.Speed.String())
	}
	if in.Direction != nil {
		parts = append(parts, "dir "+in.Direction.String())
	}
	if in.TrackSelection != nil {
		parts = append(parts, "track "+in.TrackSelection.String())
	}
	if len(d.Commands) > 0 {
		parts = append(parts, fmt.Sprintf("%d commands", len(d.Commands)))
	}
	return strings.Join(parts, ", ")
}

func (in *Instance) Snapshot() Snapshot {
	d := in.c.def
	s := Snapshot{
		Namespace: d.Namespace(),
		ID:        d.ID,
		Template:  d.Template,
		Route:     d.Route,
		Enabled:   d.Enabled,
		Position:  in.transform.Position,
		Rotation:  float64(in.transform.Rotation),
		OnTrack:   in.onTrack,
		Color:     d.Color("").Hex(),
		Summary:   d.Summary(),
		Spawned:   in.SpawnedTrains(),
	}
	if occ, ok := in.Occurrence(); ok {
		s.Occurrence = occ.Name
	}
	return s
}

// Snapshot describes every instance, in controller order.
func (m *Manager) Snapshot() []Snapshot {
	var res []Snapshot
	for _, c := range m.Controllers() {
		for _, in := range c.instances {
			res = append(res, in.Snapshot())
		}
	}
	return res
}

// Publish sends a snapshot to subscribers, if any sender is configured.
func (m *Manager) Publish() {
	if m.conf.Snapshots == nil {
		return
	}
	m.conf.Snapshots.Send(m.Snapshot())
}
