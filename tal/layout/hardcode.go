package layout

import (
	"fmt"
	"math"

	"nyiyui.ca/hato/unten"
)

func v(x, z float64) unten.Vec3 { return unten.Vec3{X: x, Z: z} }

// InitTestbench1 is two straight segments joined end to end: a (30 long) then b (100 long), along +Z.
func InitTestbench1() (*Layout, error) {
	var b Builder
	a := b.Straight("a", v(0, 0), v(0, 30))
	c := b.Straight("b", v(0, 30), v(0, 130))
	b.Chain(a, c)
	return b.Build()
}

// InitTestbench2 is a single junction.
// The trunk splits into a left branch and a right branch; the straight (default) branch is the right one.
// Both branches dead-end.
func InitTestbench2() (*Layout, error) {
	var b Builder
	trunk := b.Straight("trunk", v(0, 0), v(0, 50))
	left := b.Add("left", v(0, 50), v(-10, 80), v(-20, 150))
	right := b.Straight("right", v(0, 50), v(0, 150))
	b.Join(trunk, EndFinish, left, EndStart)
	b.Join(trunk, EndFinish, right, EndStart)
	b.SetStraightest(trunk, EndFinish, 1)
	return b.Build()
}

// InitTestbench3 is a closed loop of four straight sides (each 100 long).
// The last side is laid finish-first, so both of its connections reverse orientation.
func InitTestbench3() (*Layout, error) {
	var b Builder
	north := b.Straight("north", v(0, 0), v(0, 100))
	east := b.Straight("east", v(0, 100), v(100, 100))
	south := b.Straight("south", v(100, 100), v(100, 0))
	west := b.Straight("west", v(0, 0), v(100, 0))
	b.Chain(north, east, south)
	b.Join(south, EndFinish, west, EndFinish)
	b.Join(west, EndStart, north, EndStart)
	return b.Build()
}

// InitTestbench4 is a passing loop: a main line with a siding.
// Trains leaving the station to the left take the siding.
func InitTestbench4() (*Layout, error) {
	var b Builder
	approach := b.Straight("approach", v(0, -200), v(0, 0))
	main := b.Straight("main", v(0, 0), v(0, 216))
	r := 12.0
	siding := b.Add("siding",
		v(0, 0),
		v(-r*(1-math.Cos(math.Pi/8)), r*math.Sin(math.Pi/8)),
		v(-r, 20),
		v(-r, 196),
		v(0, 216),
	)
	depart := b.Straight("depart", v(0, 216), v(0, 400))
	b.Join(approach, EndFinish, siding, EndStart)
	b.Join(approach, EndFinish, main, EndStart)
	b.SetStraightest(approach, EndFinish, 1)
	b.Join(siding, EndFinish, depart, EndStart)
	b.Join(main, EndFinish, depart, EndStart)
	b.SetStraightest(depart, EndStart, 1)
	return b.Build()
}

var presets = map[string]func() (*Layout, error){
	"testbench1": InitTestbench1,
	"testbench2": InitTestbench2,
	"testbench3": InitTestbench3,
	"testbench4": InitTestbench4,
}

// Preset builds the hardcoded layout with the given name (e.g. testbench3).
func Preset(name string) (*Layout, error) {
	fn, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown layout %q", name)
	}
	return fn()
}
