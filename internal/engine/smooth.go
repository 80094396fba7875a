package engine

const (
	// SmoothingFactor is the neighbour weight k of the 3-point average;
	// the centre point keeps 1-2k.
	SmoothingFactor = 0.3

	// minSmoothPoints is the shortest stroke that gets smoothed.
	minSmoothPoints = 4

	// previewTail is how many points the incremental preview keeps after
	// each render.
	previewTail = 4
)

// Point is a pointer sample in device pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Smooth applies a weighted 3-point average to every interior point. The
// first and last points are anchors and pass through unchanged. Paths
// shorter than four points are returned as a copy.
func Smooth(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	if len(points) < minSmoothPoints {
		return out
	}

	k := SmoothingFactor
	center := 1 - 2*k
	for i := 1; i < len(points)-1; i++ {
		prev, cur, next := points[i-1], points[i], points[i+1]
		out[i] = Point{
			X: prev.X*k + cur.X*center + next.X*k,
			Y: prev.Y*k + cur.Y*center + next.Y*k,
		}
	}
	return out
}

// QuadraticPath builds the path used for freehand strokes: a move to the
// first point, quadratic curves through the midpoints of consecutive
// points, and a closing line to the last point.
func QuadraticPath(points []Point) []PathCommand {
	switch len(points) {
	case 0:
		return nil
	case 1:
		p := points[0]
		return []PathCommand{{"M", p.X, p.Y}, {"L", p.X, p.Y}}
	}

	path := []PathCommand{{"M", points[0].X, points[0].Y}}
	for i := 1; i < len(points)-1; i++ {
		cur, next := points[i], points[i+1]
		xc := (cur.X + next.X) / 2
		yc := (cur.Y + next.Y) / 2
		path = append(path, PathCommand{"Q", cur.X, cur.Y, xc, yc})
	}
	last := points[len(points)-1]
	return append(path, PathCommand{"L", last.X, last.Y})
}

// Stroke collects a freehand stroke as the pointer moves. It produces a
// cheap incremental preview from a short rolling tail and keeps the full
// raw path for the final smoothing pass.
type Stroke struct {
	full []Point
	tail []Point
}

// NewStroke starts a stroke at p.
func NewStroke(p Point) *Stroke {
	return &Stroke{
		full: []Point{p},
		tail: []Point{p},
	}
}

// Add appends a sample and returns the preview path segment to draw.
func (s *Stroke) Add(p Point) []PathCommand {
	prev := s.full[len(s.full)-1]
	s.full = append(s.full, p)
	s.tail = append(s.tail, p)

	if len(s.tail) < minSmoothPoints {
		return []PathCommand{{"M", prev.X, prev.Y}, {"L", p.X, p.Y}}
	}

	smoothed := Smooth(s.tail)
	path := []PathCommand{{"M", smoothed[0].X, smoothed[0].Y}}
	for i := 1; i < len(smoothed)-1; i++ {
		cur, next := smoothed[i], smoothed[i+1]
		path = append(path, PathCommand{"Q", cur.X, cur.Y, (cur.X + next.X) / 2, (cur.Y + next.Y) / 2})
	}

	s.tail = append([]Point(nil), s.tail[len(s.tail)-previewTail:]...)
	return path
}

// Len returns the number of raw samples collected so far.
func (s *Stroke) Len() int {
	return len(s.full)
}

// Finish smooths the whole collected path once and returns it.
func (s *Stroke) Finish() []Point {
	return Smooth(s.full)
}
