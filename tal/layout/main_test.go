package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"nyiyui.ca/hato/unten"
)

func TestNew(t *testing.T) {
	y, err := InitTestbench1()
	if err != nil {
		t.Fatalf("error: %s", err)
	}
	if got := y.MustLookup("a").Length(); got != 30 {
		t.Fatalf("expected 30, got %f", got)
	}
	if got := y.MustLookup("b").Length(); got != 100 {
		t.Fatalf("expected 100, got %f", got)
	}
	expected := []Conn{{SegmentI: 1, Orient: OrientSame}}
	if got := y.Segments[0].Next; !cmp.Equal(got, expected) {
		t.Fatalf("Next diff: %s", cmp.Diff(got, expected))
	}
}

func TestNewInvalid(t *testing.T) {
	_, err := New([]Segment{{Comment: "lonely", Points: []unten.Vec3{{}}}})
	if err == nil {
		t.Fatal("expected error for single-point segment")
	}
	_, err = New([]Segment{{
		Comment: "dangling",
		Points:  []unten.Vec3{{}, {Z: 1}},
		Next:    []Conn{{SegmentI: 5}},
	}})
	if err == nil {
		t.Fatal("expected error for dangling connection")
	}
}

func TestTestbenches(t *testing.T) {
	for _, name := range []string{"testbench1", "testbench2", "testbench3", "testbench4"} {
		_, err := Preset(name)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
	}
	if _, err := Preset("testbench6"); err == nil {
		t.Fatal("expected error for unknown layout")
	}
}

func TestGeometry(t *testing.T) {
	y, err := InitTestbench1()
	if err != nil {
		t.Fatalf("error: %s", err)
	}
	b := y.MustLookupIndex("b")
	got := y.PointAt(Position{SegmentI: b, Distance: 20, Ascending: true})
	if expected := (unten.Vec3{Z: 50}); !cmp.Equal(got, expected) {
		t.Fatalf("PointAt diff: %s", cmp.Diff(got, expected))
	}
	tan := y.Tangent(Position{SegmentI: b, Distance: 20, Ascending: false})
	if expected := (unten.Vec3{Z: -1}); !cmp.Equal(tan, expected) {
		t.Fatalf("Tangent diff: %s", cmp.Diff(tan, expected))
	}
	pos, ok := y.FindNear(unten.Vec3{X: 1, Z: 10}, 2)
	if !ok {
		t.Fatal("FindNear found nothing")
	}
	if expected := (Position{SegmentI: 0, Distance: 10, Ascending: true, IsForward: true}); !cmp.Equal(pos, expected) {
		t.Fatalf("FindNear diff: %s", cmp.Diff(pos, expected))
	}
	if _, ok := y.FindNear(unten.Vec3{X: 5, Z: 10}, 2); ok {
		t.Fatal("FindNear found a far track")
	}
}
