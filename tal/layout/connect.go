package layout

import (
	"fmt"

	"nyiyui.ca/hato/unten"
)

// Builder accumulates segments and their connections before New validates them.
type Builder struct {
	segments []Segment
	err      error
}

// Add appends a segment through points and returns its index.
func (b *Builder) Add(comment string, points ...unten.Vec3) int {
	b.segments = append(b.segments, Segment{Comment: comment, Points: points})
	return len(b.segments) - 1
}

// Straight appends a straight segment from start to finish.
func (b *Builder) Straight(comment string, start, finish unten.Vec3) int {
	return b.Add(comment, start, finish)
}

func (b *Builder) conns(i int, e End) *[]Conn {
	if e == EndFinish {
		return &b.segments[i].Next
	}
	return &b.segments[i].Prev
}

// Join connects end ea of segment a to end eb of segment b, both ways.
// Joining a finish to a start (or vice versa) keeps orientation; joining like ends reverses it.
// Connections are appended, so join branches left to right.
func (b *Builder) Join(a int, ea End, c int, ec End) {
	if a < 0 || a >= len(b.segments) || c < 0 || c >= len(b.segments) {
		if b.err == nil {
			b.err = fmt.Errorf("join %d/%d: segment out of range", a, c)
		}
		return
	}
	o := OrientSame
	if ea == ec {
		o = OrientReverse
	}
	ca := b.conns(a, ea)
	*ca = append(*ca, Conn{SegmentI: c, Orient: o})
	cc := b.conns(c, ec)
	*cc = append(*cc, Conn{SegmentI: a, Orient: o})
}

// Chain joins the finish of each segment to the start of the next.
func (b *Builder) Chain(segs ...int) {
	for i := 1; i < len(segs); i++ {
		b.Join(segs[i-1], EndFinish, segs[i], EndStart)
	}
}

// SetStraightest marks which connection at end e of segment i is the straightest.
func (b *Builder) SetStraightest(i int, e End, connI int) {
	if e == EndFinish {
		b.segments[i].StraightestNext = connI
	} else {
		b.segments[i].StraightestPrev = connI
	}
}

// Build validates the accumulated segments.
func (b *Builder) Build() (*Layout, error) {
	if b.err != nil {
		return nil, b.err
	}
	return New(b.segments)
}
