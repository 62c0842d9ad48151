package geom

import (
	"math"
	"sort"
)

// Index is a uniform grid over a fixed point set. It narrows point-on-segment
// searches to the cells a segment's tolerance band can reach. The exact test
// is still applied by the caller; Index only removes points that cannot pass.
type Index struct {
	pts    []Point
	bounds Bounds
	cell   float64
	nx, ny int
	cells  [][]int
}

// NewIndex builds an index whose cells hold about perCell points on average.
func NewIndex(pts []Point, perCell int) *Index {
	if perCell < 1 {
		perCell = 4
	}
	idx := &Index{pts: pts, bounds: BoundsOf(pts)}
	w, h := idx.bounds.Width(), idx.bounds.Height()
	extent := math.Max(w, h)
	if len(pts) == 0 || extent == 0 {
		idx.cell = 1
		idx.nx, idx.ny = 1, 1
	} else {
		area := math.Max(w, extent*1e-3) * math.Max(h, extent*1e-3)
		idx.cell = math.Sqrt(area * float64(perCell) / float64(len(pts)))
		idx.nx = int(w/idx.cell) + 1
		idx.ny = int(h/idx.cell) + 1
	}
	idx.cells = make([][]int, idx.nx*idx.ny)
	for i, p := range pts {
		cx, cy := idx.cellOf(p)
		k := cy*idx.nx + cx
		idx.cells[k] = append(idx.cells[k], i)
	}
	return idx
}

func (idx *Index) Len() int { return len(idx.pts) }

func (idx *Index) cellOf(p Point) (int, int) {
	cx := int(math.Floor((p.X - idx.bounds.Min.X) / idx.cell))
	cy := int(math.Floor((p.Y - idx.bounds.Min.Y) / idx.cell))
	return clamp(cx, 0, idx.nx-1), clamp(cy, 0, idx.ny-1)
}

// Segment returns, in ascending order, every point index whose distance to
// segment ab could satisfy OnSegment(p, a, b, tol).
func (idx *Index) Segment(a, b Point, tol float64) []int {
	length := a.Dist(b)
	if length == 0 {
		// a zero-length segment accepts every point under the raw test
		all := make([]int, len(idx.pts))
		for i := range all {
			all[i] = i
		}
		return all
	}
	margin := tol / length
	box := BoundsOf([]Point{a, b}).Expand(margin)
	x0, y0 := idx.cellOf(box.Min)
	x1, y1 := idx.cellOf(box.Max)

	ab := b.Sub(a)
	halfDiag := idx.cell * math.Sqrt2 / 2
	var out []int
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			center := Point{
				idx.bounds.Min.X + (float64(cx)+0.5)*idx.cell,
				idx.bounds.Min.Y + (float64(cy)+0.5)*idx.cell,
			}
			if math.Abs(ab.Cross(center.Sub(a)))/length > margin+halfDiag {
				continue
			}
			for _, i := range idx.cells[cy*idx.nx+cx] {
				p := idx.pts[i]
				if p.X >= box.Min.X && p.X <= box.Max.X && p.Y >= box.Min.Y && p.Y <= box.Max.Y {
					out = append(out, i)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

// OnSegment returns the ascending indices of the points that lie on ab.
func (idx *Index) OnSegment(a, b Point, tol float64) []int {
	cand := idx.Segment(a, b, tol)
	out := cand[:0]
	for _, i := range cand {
		if OnSegment(idx.pts[i], a, b, tol) {
			out = append(out, i)
		}
	}
	return out
}

// Nearest returns the index of the point closest to q, preferring the lowest
// index on ties, and its distance. It returns -1 for an empty index.
func (idx *Index) Nearest(q Point) (int, float64) {
	best, bestD := -1, math.Inf(1)
	for i, p := range idx.pts {
		if d := p.Dist(q); d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
