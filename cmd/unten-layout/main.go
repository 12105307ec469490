// Command unten-layout prints a layout's segments and walks along it.
package main

import (
	"flag"
	"fmt"
	"log"

	"nyiyui.ca/hato/unten/tal/layout"
)

func main() {
	name := flag.String("layout", "testbench3", "layout to print")
	step := flag.Float64("step", 50, "distance between walked positions")
	sel := flag.String("track-selection", "Left", "track selection for the walk")
	flag.Parse()

	y, err := layout.Preset(*name)
	if err != nil {
		log.Fatal(err)
	}
	ts, err := layout.ParseTrackSelection(*sel)
	if err != nil {
		log.Fatal(err)
	}

	total := 0.0
	for i, s := range y.Segments {
		fmt.Printf("%d %s: length %.1f, %d next, %d prev\n", i, s.Comment, s.Length(), len(s.Next), len(s.Prev))
		total += s.Length()
	}

	pos := layout.Position{SegmentI: 0, Ascending: true, IsForward: true}
	for d := 0.0; d <= total; d += *step {
		fmt.Printf("%6.1f → %s at %s\n", d, pos, y.PointAt(pos))
		next, _ := y.Walk(pos, *step, ts)
		if next == pos {
			fmt.Println("end of track")
			break
		}
		pos = next
	}
}
