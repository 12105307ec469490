package world

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"nyiyui.ca/hato/unten"
	"nyiyui.ca/hato/unten/tal/cars"
	"nyiyui.ca/hato/unten/tal/layout"
)

func newWorld(t *testing.T) *World {
	y, err := layout.InitTestbench1()
	if err != nil {
		t.Fatalf("InitTestbench1: %s", err)
	}
	return New(y)
}

func mustSpawn(t *testing.T, w *World, alias string, seg int, d float64) *Unit {
	spec, ok := cars.Default().Find(alias)
	if !ok {
		t.Fatalf("unknown alias %s", alias)
	}
	u, err := w.Spawn(spec, layout.Position{SegmentI: seg, Distance: d, Ascending: true})
	if err != nil {
		t.Fatalf("Spawn: %s", err)
	}
	return u
}

func ids(us []*Unit) []unten.UnitID {
	res := make([]unten.UnitID, len(us))
	for i, u := range us {
		res[i] = u.ID
	}
	return res
}

func TestTrainOf(t *testing.T) {
	w := newWorld(t)
	a := mustSpawn(t, w, "Workcart", 1, 60)
	b := mustSpawn(t, w, "WagonA", 1, 48)
	c := mustSpawn(t, w, "Workcart_R", 1, 30)
	if err := w.Couple(a.ID, Rear, b.ID, Front); err != nil {
		t.Fatalf("Couple: %s", err)
	}
	if err := w.Couple(b.ID, Rear, c.ID, Rear); err != nil {
		t.Fatalf("Couple: %s", err)
	}
	expected := []unten.UnitID{a.ID, b.ID, c.ID}
	for _, from := range []*Unit{a, b} {
		if got := ids(w.TrainOf(from.ID)); !cmp.Equal(got, expected) {
			t.Fatalf("from %s: diff: %s", from.ID, cmp.Diff(got, expected))
		}
	}
	// c's front points away from a, so following its front couplings starts from its end
	if got := ids(w.TrainOf(c.ID)); !cmp.Equal(got, []unten.UnitID{c.ID}) && !cmp.Equal(got, []unten.UnitID{c.ID, b.ID, a.ID}) {
		t.Fatalf("from c: got %v", got)
	}
	if got := Facings(w.TrainOf(a.ID)); !cmp.Equal(got, []float64{1, 1, -1}) {
		t.Fatalf("Facings diff: %s", cmp.Diff(got, []float64{1, 1, -1}))
	}
	if w.SameFacing(a, c) {
		t.Fatal("a and c should face opposite ways")
	}
}

func TestUncouple(t *testing.T) {
	w := newWorld(t)
	a := mustSpawn(t, w, "Workcart", 1, 60)
	b := mustSpawn(t, w, "WagonA", 1, 48)
	if err := w.Couple(a.ID, Rear, b.ID, Front); err != nil {
		t.Fatalf("Couple: %s", err)
	}
	if err := w.Couple(a.ID, Rear, b.ID, Rear); err == nil {
		t.Fatal("coupled an occupied coupling")
	}
	w.SetAllowed(a.ID, true, false)
	if err := w.Uncouple(a.ID, Rear); err == nil {
		t.Fatal("uncoupled a disallowed coupling")
	}
	w.SetAllowed(a.ID, true, true)
	if err := w.Uncouple(a.ID, Rear); err != nil {
		t.Fatalf("Uncouple: %s", err)
	}
	if len(w.TrainOf(a.ID)) != 1 || b.Couplings[Front].Partner != 0 {
		t.Fatal("units still coupled")
	}
}

func TestDestroy(t *testing.T) {
	w := newWorld(t)
	a := mustSpawn(t, w, "Workcart", 1, 60)
	b := mustSpawn(t, w, "WagonA", 1, 48)
	if err := w.Couple(a.ID, Rear, b.ID, Front); err != nil {
		t.Fatalf("Couple: %s", err)
	}
	var destroyed []unten.UnitID
	w.OnDestroy(func(u *Unit) { destroyed = append(destroyed, u.ID) })
	if err := w.Destroy(b.ID); err != nil {
		t.Fatalf("Destroy: %s", err)
	}
	if err := w.Destroy(b.ID); err == nil {
		t.Fatal("destroyed twice")
	}
	if !cmp.Equal(destroyed, []unten.UnitID{b.ID}) {
		t.Fatalf("diff: %s", cmp.Diff(destroyed, []unten.UnitID{b.ID}))
	}
	if a.Couplings[Rear].Partner != 0 || w.Get(b.ID) != nil || !b.Destroyed {
		t.Fatal("destroyed unit still linked")
	}
}

func TestStep(t *testing.T) {
	w := newWorld(t)
	a := mustSpawn(t, w, "Workcart", 1, 20)
	a.Throttle = FwdHi
	for i := 0; i < 100; i++ {
		w.Step(50 * time.Millisecond)
	}
	if a.TrackSpeed != a.Model.MaxSpeed {
		t.Fatalf("expected max speed %f, got %f", a.Model.MaxSpeed, a.TrackSpeed)
	}
	if a.Track.Distance <= 20 {
		t.Fatalf("unit didn't move: %s", a.Track)
	}
	a.Throttle = RevLo
	for i := 0; i < 200; i++ {
		w.Step(50 * time.Millisecond)
	}
	if math.Abs(a.TrackSpeed-(-0.2*a.Model.MaxSpeed)) > 1e-9 {
		t.Fatalf("expected reverse low speed, got %f", a.TrackSpeed)
	}
	if !cmp.Equal(w.Velocity(a), unten.Vec3{Z: a.TrackSpeed}) {
		t.Fatalf("velocity %s", w.Velocity(a))
	}
}

func TestStepTrain(t *testing.T) {
	w := newWorld(t)
	a := mustSpawn(t, w, "Workcart", 1, 60)
	b := mustSpawn(t, w, "Workcart_R", 1, 52.6)
	if err := w.Couple(a.ID, Rear, b.ID, Rear); err != nil {
		t.Fatalf("Couple: %s", err)
	}
	a.Throttle = FwdMed
	b.Throttle = RevMed
	for i := 0; i < 20; i++ {
		w.Step(50 * time.Millisecond)
	}
	if a.TrackSpeed <= 0 || b.TrackSpeed != -a.TrackSpeed {
		t.Fatalf("speeds %f %f", a.TrackSpeed, b.TrackSpeed)
	}
	if gap := a.Track.Distance - b.Track.Distance; math.Abs(gap-7.4) > 1e-6 {
		t.Fatalf("units drifted apart: gap %f", gap)
	}
	if p := w.Primary(w.TrainOf(b.ID)); p != a {
		t.Fatalf("primary should be a, got %s", p.ID)
	}
}

func TestZone(t *testing.T) {
	w := newWorld(t)
	a := mustSpawn(t, w, "Workcart", 0, 5)
	junk := w.AddEntity(KindJunk, unten.Vec3{Z: 40})
	var entered, exited []unten.UnitID
	z := w.AddZone(Zone{
		Point:    unten.Vec3{Z: 40},
		Radius:   1,
		Interest: KindRailUnit,
		Enabled:  true,
		OnEnter:  func(u *Unit) { entered = append(entered, u.ID) },
		OnExit:   func(u *Unit) { exited = append(exited, u.ID) },
	})
	a.Throttle = FwdLo
	for i := 0; i < 400; i++ {
		w.Step(50 * time.Millisecond)
	}
	if !cmp.Equal(entered, []unten.UnitID{a.ID}) {
		t.Fatalf("entered diff: %s", cmp.Diff(entered, []unten.UnitID{a.ID}))
	}
	if !cmp.Equal(exited, []unten.UnitID{a.ID}) {
		t.Fatalf("exited diff: %s", cmp.Diff(exited, []unten.UnitID{a.ID}))
	}
	if z.Contains(junk.ID) {
		t.Fatal("zone reported junk it isn't interested in")
	}
}
