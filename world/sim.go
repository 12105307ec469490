package world

import (
	"math"
	"time"

	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/tal/layout"
)

// drive returns the speed a train's engines pull it towards, along train[0]'s free end.
func drive(train []*Unit, f []float64) float64 {
	sum, n := 0.0, 0
	for i, u := range train {
		if !u.Model.Engine {
			continue
		}
		sum += f[i] * u.Throttle.Fraction() * u.Model.MaxSpeed
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func swapSelection(ts layout.TrackSelection) layout.TrackSelection {
	switch ts {
	case layout.TrackLeft:
		return layout.TrackRight
	case layout.TrackRight:
		return layout.TrackLeft
	}
	return ts
}

// Step advances every train by dt and then updates zone contents.
func (w *World) Step(dt time.Duration) {
	secs := dt.Seconds()
	done := map[unten.UnitID]bool{}
	for _, u := range w.Units() {
		if u.Kind != KindRailUnit || done[u.ID] {
			continue
		}
		train := w.TrainOf(u.ID)
		for _, t := range train {
			done[t.ID] = true
		}
		w.move(train, secs)
	}
	w.CheckZones()
}

func (w *World) move(train []*Unit, secs float64) {
	f := Facings(train)
	speed := f[0] * train[0].TrackSpeed
	target := drive(train, f)
	step := w.Accel * secs
	switch {
	case math.Abs(target-speed) <= step:
		speed = target
	case target > speed:
		speed += step
	default:
		speed -= step
	}
	for i, u := range train {
		u.TrackSpeed = f[i] * speed
	}
	if speed == 0 {
		return
	}
	primary := w.Primary(train)
	var pf float64
	for i, u := range train {
		if u == primary {
			pf = f[i]
		}
	}
	sel := layout.TrackDefault
	if primary.Model.Engine {
		sel = primary.TrackSelection
	}
	for i, u := range train {
		s := sel
		if f[i] != pf {
			s = swapSelection(s)
		}
		u.Track, _ = w.Layout.Walk(u.Track, u.TrackSpeed*secs, s)
		u.Track.IsForward = true
	}
}
