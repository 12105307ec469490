package layout

import (
	"math"

	"go.uber.org/zap"
	"nyiyui.ca/hato/unten"
)

// maxHops bounds the number of segments a single Walk may cross.
const maxHops = 1000

// Adjacent returns the connection a traveller on segment segI takes when leaving it.
// askerIsForward is the traveller's IsForward; left and right are mirrored when it disagrees with ascending.
func (y *Layout) Adjacent(segI int, sel TrackSelection, ascending, askerIsForward bool) (Conn, bool) {
	s := &y.Segments[segI]
	options := s.Prev
	straightest := s.StraightestPrev
	if ascending {
		options = s.Next
		straightest = s.StraightestNext
	}
	switch len(options) {
	case 0:
		return Conn{}, false
	case 1:
		return options[0], true
	}
	first, last := options[0], options[len(options)-1]
	switch sel {
	case TrackLeft:
		if ascending == askerIsForward {
			return first, true
		}
		return last, true
	case TrackRight:
		if ascending == askerIsForward {
			return last, true
		}
		return first, true
	default:
		return options[straightest], true
	}
}

// Walk moves from along the track by distance, choosing branches with sel.
// A negative distance walks backwards (relative to from's direction of travel); the returned position keeps from's facing.
// Walking stops at a dead end.
// The returned path lists every segment visited, in order.
//
// If the walk crosses too many segments (a corrupt graph), the error is logged and from is returned.
func (y *Layout) Walk(from Position, distance float64, sel TrackSelection) (Position, []int) {
	if distance < 0 {
		to, path := y.walk(from.Flip(), -distance, sel)
		return to.Flip(), path
	}
	return y.walk(from, distance, sel)
}

func (y *Layout) walk(from Position, remaining float64, sel TrackSelection) (Position, []int) {
	pos := from
	path := []int{pos.SegmentI}
	for hops := 0; remaining > 0; hops++ {
		if hops > maxHops {
			zap.S().Errorw("walk crossed too many segments, track graph may be corrupt",
				"from", from,
				"hops", hops)
			return from, []int{from.SegmentI}
		}
		length := y.Segments[pos.SegmentI].Length()
		var target float64
		if pos.Ascending {
			target = pos.Distance + remaining
			remaining -= length - pos.Distance
		} else {
			target = pos.Distance - remaining
			remaining -= pos.Distance
		}
		if target >= 0 && target <= length {
			pos.Distance = target
			return pos, path
		}
		c, ok := y.Adjacent(pos.SegmentI, sel, pos.Ascending, pos.IsForward)
		if !ok {
			if pos.Ascending {
				pos.Distance = length
			} else {
				pos.Distance = 0
			}
			return pos, path
		}
		if c.Orient == OrientReverse {
			pos = pos.Flip()
		}
		pos.SegmentI = c.SegmentI
		if pos.Ascending {
			pos.Distance = 0
		} else {
			pos.Distance = y.Segments[c.SegmentI].Length()
		}
		path = append(path, c.SegmentI)
	}
	return pos, path
}

// span returns the polyline piece containing distance d and how far along it d lies.
func (s *Segment) span(d float64) (a, b unten.Vec3, t float64) {
	d = math.Max(0, math.Min(d, s.length))
	for i := 1; i < len(s.Points); i++ {
		a, b = s.Points[i-1], s.Points[i]
		l := b.Sub(a).Len()
		if d <= l || i == len(s.Points)-1 {
			if l == 0 {
				return a, b, 0
			}
			return a, b, math.Min(d/l, 1)
		}
		d -= l
	}
	return s.Points[0], s.Points[0], 0
}

// PointAt returns the world position of p.
func (y *Layout) PointAt(p Position) unten.Vec3 {
	a, b, t := y.Segments[p.SegmentI].span(p.Distance)
	return a.Add(b.Sub(a).Scale(t))
}

// Tangent returns the unit direction of travel at p.
func (y *Layout) Tangent(p Position) unten.Vec3 {
	a, b, _ := y.Segments[p.SegmentI].span(p.Distance)
	dir := b.Sub(a).Normalize()
	if !p.Ascending {
		dir = dir.Neg()
	}
	return dir
}

// IsForward reports whether heading points towards the finish end of the segment at distance d.
func (y *Layout) IsForward(segI int, d float64, heading unten.Vec3) bool {
	return y.Tangent(Position{SegmentI: segI, Distance: d, Ascending: true}).Dot(heading) >= 0
}

// FindNear returns the closest point on any segment within maxDist of point.
// The returned position ascends and is forward.
func (y *Layout) FindNear(point unten.Vec3, maxDist float64) (Position, bool) {
	best := Position{}
	bestSq := maxDist * maxDist
	found := false
	for segI := range y.Segments {
		s := &y.Segments[segI]
		offset := 0.0
		for i := 1; i < len(s.Points); i++ {
			a, b := s.Points[i-1], s.Points[i]
			ab := b.Sub(a)
			l := ab.Len()
			t := 0.0
			if l > 0 {
				t = math.Max(0, math.Min(1, point.Sub(a).Dot(ab)/(l*l)))
			}
			sq := a.Add(ab.Scale(t)).Sub(point).SqrLen()
			if sq <= bestSq {
				bestSq = sq
				best = Position{SegmentI: segI, Distance: offset + t*l, Ascending: true, IsForward: true}
				found = true
			}
			offset += l
		}
	}
	return best, found
}

// Facing returns p turned so that travel follows heading.
func (y *Layout) Facing(p Position, heading unten.Vec3) Position {
	p.Ascending = y.IsForward(p.SegmentI, p.Distance, heading)
	p.IsForward = true
	return p
}
