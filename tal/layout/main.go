// Package layout describes the track graph and walks positions along it.
package layout

import (
	"fmt"

	"golang.org/x/exp/slices"
	"nyiyui.ca/hato/unten"
)

// Orient tells whether a connection keeps the direction of travel along segments.
// Reverse means the connected segment is entered from the same kind of end (start to start, or end to end), so ascending traffic becomes descending.
type Orient int

const (
	OrientSame Orient = iota
	OrientReverse
)

func (o Orient) String() string {
	if o == OrientReverse {
		return "reverse"
	}
	return "same"
}

// Conn is a branch connection from one end of a segment.
type Conn struct {
	SegmentI int    `json:"segment"`
	Orient   Orient `json:"orient"`
}

// End identifies one end of a segment.
type End int

const (
	// EndStart is where Distance is 0.
	EndStart End = iota
	// EndFinish is where Distance is the segment's length.
	EndFinish
)

// Segment is a finite piece of track.
// Points is a polyline from start to finish; the segment's length is the polyline's length.
type Segment struct {
	// Comment is a human-readable comment about the segment.
	Comment string      `json:"comment"`
	Points  []unten.Vec3 `json:"points"`
	// Next is the connections at the finish end, ordered left to right as seen by a forward traveller leaving ascending.
	Next []Conn `json:"next"`
	// Prev is the connections at the start end, ordered right to left as seen by a forward traveller leaving descending.
	Prev []Conn `json:"prev"`
	// StraightestNext is the index into Next used when a track selection does not disambiguate.
	StraightestNext int `json:"straightest-next"`
	// StraightestPrev is the index into Prev used when a track selection does not disambiguate.
	StraightestPrev int `json:"straightest-prev"`

	length float64
}

func (s *Segment) computeLength() {
	s.length = 0
	for i := 1; i < len(s.Points); i++ {
		s.length += s.Points[i].Sub(s.Points[i-1]).Len()
	}
}

// Length returns the length of the segment along its polyline.
func (s *Segment) Length() float64 { return s.length }

// Layout is a track graph. It is read-only once built.
type Layout struct {
	Segments []Segment `json:"segments"`
}

// New builds a Layout from segments, computing lengths and validating connections.
func New(segments []Segment) (*Layout, error) {
	y := &Layout{Segments: segments}
	for i := range y.Segments {
		s := &y.Segments[i]
		if len(s.Points) < 2 {
			return nil, fmt.Errorf("segment %d (%s): need at least 2 points, got %d", i, s.Comment, len(s.Points))
		}
		s.computeLength()
		for _, c := range append(slices.Clone(s.Next), s.Prev...) {
			if c.SegmentI < 0 || c.SegmentI >= len(y.Segments) {
				return nil, fmt.Errorf("segment %d (%s): connection to nonexistent segment %d", i, s.Comment, c.SegmentI)
			}
		}
		if len(s.Next) > 0 && (s.StraightestNext < 0 || s.StraightestNext >= len(s.Next)) {
			return nil, fmt.Errorf("segment %d (%s): straightest next %d out of range", i, s.Comment, s.StraightestNext)
		}
		if len(s.Prev) > 0 && (s.StraightestPrev < 0 || s.StraightestPrev >= len(s.Prev)) {
			return nil, fmt.Errorf("segment %d (%s): straightest prev %d out of range", i, s.Comment, s.StraightestPrev)
		}
	}
	return y, nil
}

// MustLookup finds a segment with a matching comment. If it doesn't it panics.
// This is for debugging/testing.
func (y *Layout) MustLookup(comment string) *Segment {
	return &y.Segments[y.MustLookupIndex(comment)]
}

// MustLookupIndex is MustLookup but returns an index.
func (y *Layout) MustLookupIndex(comment string) int {
	for i, s := range y.Segments {
		if s.Comment == comment {
			return i
		}
	}
	panic(fmt.Sprintf("found nothing when looking up for %s", comment))
}

// Position is a point on the track graph, as seen by a traveller.
type Position struct {
	SegmentI int     `json:"segment"`
	Distance float64 `json:"distance"`
	// Ascending is whether the traveller moves towards the finish end of the segment.
	Ascending bool `json:"ascending"`
	// IsForward is whether the traveller's own heading agrees with Ascending.
	// Left and right are resolved relative to it.
	IsForward bool `json:"is-forward"`
}

func (p Position) String() string {
	dir := map[bool]string{true: "asc", false: "desc"}[p.Ascending]
	return fmt.Sprintf("s%d@%.2f/%s", p.SegmentI, p.Distance, dir)
}

// Flip returns the position facing the other way.
func (p Position) Flip() Position {
	p.Ascending = !p.Ascending
	p.IsForward = !p.IsForward
	return p
}

// TrackSelection chooses between branch connections.
type TrackSelection int

const (
	// TrackDefault takes the straightest connection.
	TrackDefault TrackSelection = iota
	TrackLeft
	TrackRight
)

func (ts TrackSelection) String() string {
	switch ts {
	case TrackDefault:
		return "Default"
	case TrackLeft:
		return "Left"
	case TrackRight:
		return "Right"
	default:
		return fmt.Sprintf("TrackSelection(%d)", int(ts))
	}
}

// ParseTrackSelection parses the String form of a TrackSelection.
func ParseTrackSelection(s string) (TrackSelection, error) {
	switch s {
	case "Default":
		return TrackDefault, nil
	case "Left":
		return TrackLeft, nil
	case "Right":
		return TrackRight, nil
	}
	return TrackDefault, fmt.Errorf("unknown track selection %q", s)
}

func (ts TrackSelection) MarshalText() ([]byte, error) {
	return []byte(ts.String()), nil
}

func (ts *TrackSelection) UnmarshalText(text []byte) error {
	v, err := ParseTrackSelection(string(text))
	if err != nil {
		return err
	}
	*ts = v
	return nil
}
