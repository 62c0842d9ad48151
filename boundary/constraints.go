// Package boundary maps segment-level supports and distributed loads of a
// problem definition onto mesh nodes.
package boundary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notargets/slopefem/assembly"
	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/geom"
)

// Kind is the support type applied along a segment.
type Kind int

const (
	Fixed   Kind = iota + 1 // x and y locked
	RollerX                 // x locked, free to slide vertically
	RollerY                 // y locked, free to slide horizontally
)

var kindNames = map[Kind]string{Fixed: "Fixed", RollerX: "RollerX", RollerY: "RollerY"}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Locks returns the displacement components k restrains.
func (k Kind) Locks() Lock {
	switch k {
	case Fixed:
		return LockX | LockY
	case RollerX:
		return LockX
	case RollerY:
		return LockY
	}
	return 0
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid constraint kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if strings.EqualFold(string(text), name) {
			*k = kind
			return nil
		}
	}
	return diag.Configurationf("unknown constraint kind %q", string(text))
}

// Lock is a set of restrained displacement components.
type Lock uint8

const (
	LockX Lock = 1 << iota
	LockY
)

// Constraints is the node-level result of mapping segment supports. A node
// touched by several segments carries the union of their locks.
type Constraints struct {
	Nodes map[int]Lock
	// DOFs lists the restrained degrees of freedom in ascending order, each
	// once.
	DOFs []int
}

// IsFixed reports whether dof is restrained.
func (c *Constraints) IsFixed(dof int) bool {
	i := sort.SearchInts(c.DOFs, dof)
	return i < len(c.DOFs) && c.DOFs[i] == dof
}

// Segments pairs the PSLG geometry with the node index used to search it.
type Segments struct {
	Vertices []geom.Point
	Segments [][2]int
	Index    *geom.Index
	Tol      float64
}

// Nodes returns the ascending indices of the mesh nodes on segment id.
func (s *Segments) Nodes(id int) []int {
	seg := s.Segments[id]
	return s.Index.OnSegment(s.Vertices[seg[0]], s.Vertices[seg[1]], s.Tol)
}

func sortedIDs[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ResolveConstraints finds the nodes on every supported segment. Segments
// that match no node are reported to warn.
func ResolveConstraints(segs *Segments, supports map[int]Kind, warn *diag.Collector) (*Constraints, error) {
	c := &Constraints{Nodes: make(map[int]Lock)}
	for _, id := range sortedIDs(supports) {
		kind := supports[id]
		if !kind.Valid() {
			return nil, diag.Configurationf("segment %d: invalid constraint kind %d", id, int(kind))
		}
		if id < 0 || id >= len(segs.Segments) {
			return nil, diag.Configurationf("constraint on segment %d of %d", id, len(segs.Segments))
		}
		nodes := segs.Nodes(id)
		if len(nodes) == 0 {
			warn.SegmentWarning(diag.UnmatchedSegment, id, "%s support matches no mesh node", kind)
			continue
		}
		for _, n := range nodes {
			c.Nodes[n] |= kind.Locks()
		}
	}
	for _, n := range sortedIDs(c.Nodes) {
		lock := c.Nodes[n]
		if lock&LockX != 0 {
			c.DOFs = append(c.DOFs, 2*n)
		}
		if lock&LockY != 0 {
			c.DOFs = append(c.DOFs, 2*n+1)
		}
	}
	return c, nil
}

// ApplyPenalty adds value to the diagonal of every restrained degree of
// freedom, once per degree of freedom.
func (c *Constraints) ApplyPenalty(b *assembly.Builder, value float64) {
	for _, dof := range c.DOFs {
		b.AddPenalty(dof, value)
	}
}
