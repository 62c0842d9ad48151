package boundary

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/geom"
)

// Loads holds the lumped vertical nodal forces. Positive totals act downward.
type Loads struct {
	Nodes map[int]float64
}

// Total returns the sum of all nodal forces.
func (l *Loads) Total() float64 {
	ids := sortedIDs(l.Nodes)
	v := make([]float64, len(ids))
	for i, n := range ids {
		v[i] = l.Nodes[n]
	}
	return floats.Sum(v)
}

// Vector returns the global load vector of an n-dof system: each node's
// total is subtracted from its vertical component, F[2n+1] -= total.
func (l *Loads) Vector(n int) []float64 {
	F := make([]float64, n)
	for _, node := range sortedIDs(l.Nodes) {
		F[2*node+1] -= l.Nodes[node]
	}
	return F
}

// LumpLoads distributes an intensity per unit length on each loaded segment
// to the nodes lying on it. Nodes are ordered by their projection on the
// segment and each receives the intensity times half the distance to each of
// its neighbors. A lone node receives the intensity times the segment length.
func LumpLoads(segs *Segments, nodes []geom.Point, intensities map[int]float64, warn *diag.Collector) (*Loads, error) {
	l := &Loads{Nodes: make(map[int]float64)}
	for _, id := range sortedIDs(intensities) {
		q := intensities[id]
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return nil, diag.Configurationf("segment %d: load %g is not finite", id, q)
		}
		if id < 0 || id >= len(segs.Segments) {
			return nil, diag.Configurationf("load on segment %d of %d", id, len(segs.Segments))
		}
		seg := segs.Segments[id]
		a, b := segs.Vertices[seg[0]], segs.Vertices[seg[1]]
		on := segs.Nodes(id)

		switch len(on) {
		case 0:
			warn.SegmentWarning(diag.UnmatchedSegment, id, "load %g matches no mesh node", q)
		case 1:
			l.Nodes[on[0]] += q * a.Dist(b)
		default:
			sort.SliceStable(on, func(i, j int) bool {
				return geom.Project(nodes[on[i]], a, b) < geom.Project(nodes[on[j]], a, b)
			})
			for i, n := range on {
				w := 0.0
				if i > 0 {
					w += nodes[n].Dist(nodes[on[i-1]]) / 2
				}
				if i < len(on)-1 {
					w += nodes[n].Dist(nodes[on[i+1]]) / 2
				}
				l.Nodes[n] += q * w
			}
		}
	}
	return l, nil
}
