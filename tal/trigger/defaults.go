package trigger

import "nyiyui.ca/hato/unten"

const (
	templateHeight   = 0.29
	stationStop      = 15
	quickStop        = 5
	defaultFindRange = 3
)

func stop(id int, t TemplateType, x, z float64, duration float64) Definition {
	return Definition{
		ID:             id,
		Template:       string(t),
		Position:       unten.Vec3{X: x, Y: templateHeight, Z: z},
		Enabled:        true,
		Brake:          true,
		Speed:          SpeedZero.String(),
		StopDuration:   duration,
		DepartureSpeed: SpeedHi.String(),
	}
}

func slow(id int, t TemplateType, x, z float64) Definition {
	return Definition{
		ID:       id,
		Template: string(t),
		Position: unten.Vec3{X: x, Y: templateHeight, Z: z},
		Enabled:  true,
		Brake:    true,
		Speed:    SpeedMed.String(),
	}
}

func depart(id int, x, z float64) Definition {
	return Definition{
		ID:             id,
		Template:       string(TrainStation),
		Position:       unten.Vec3{X: x, Y: templateHeight, Z: z},
		Enabled:        true,
		AddConductor:   true,
		Direction:      DirectionFwd.String(),
		Speed:          SpeedHi.String(),
		TrackSelection: TrackSelectionLeft.String(),
	}
}

// DefaultTemplateDefinitions returns the template triggers installed when none are saved.
func DefaultTemplateDefinitions() []Definition {
	return []Definition{
		stop(1, TrainStation, 4.5, 52, stationStop),
		depart(2, 45, 18),
		stop(3, TrainStation, -4.5, -11, stationStop),
		depart(4, -45, -18),
		slow(5, BarricadeTunnel, -4.45, -31),
		stop(6, BarricadeTunnel, -4.5, -1, quickStop),
		slow(7, BarricadeTunnel, 4.45, 39),
		stop(8, BarricadeTunnel, 4.5, 9, quickStop),
		stop(9, LootTunnel, 3, 35, quickStop),
		stop(10, LootTunnel, -3, -35, quickStop),
		stop(11, Intersection, 35, -3, quickStop),
	}
}

var relocations = []struct{ from, to unten.Vec3 }{
	{unten.Vec3{Z: -84}, unten.Vec3{X: 45, Z: 18}},
	{unten.Vec3{Z: 84}, unten.Vec3{X: -45, Z: -18}},
}

// Migrate moves station triggers saved at positions older versions used. It returns whether anything changed.
func Migrate(defs []Definition) bool {
	changed := false
	for i := range defs {
		d := &defs[i]
		if ParseTemplateType(d.Template) != TrainStation {
			continue
		}
		for _, r := range relocations {
			if d.Position.X == r.from.X && d.Position.Z == r.from.Z {
				d.Position.X, d.Position.Z = r.to.X, r.to.Z
				changed = true
				break
			}
		}
	}
	return changed
}
