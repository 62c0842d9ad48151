// Package mesh describes the triangulated domain handed to the analysis and
// the planar straight line graph (PSLG) it is generated from.
package mesh

import (
	"fmt"
	"strconv"

	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/element"
	"github.com/notargets/slopefem/geom"
)

// Mesh is an unstructured triangulation. Attributes[k] holds the region
// attributes of triangle k as the generator emitted them; an empty entry, or
// a nil Attributes slice, means the triangle carries no region tag.
type Mesh struct {
	Nodes      []geom.Point `json:"nodes"`
	Triangles  [][3]int     `json:"triangles"`
	Attributes [][]float64  `json:"attributes,omitempty"`
}

func (m *Mesh) NumNodes() int    { return len(m.Nodes) }
func (m *Mesh) NumElements() int { return len(m.Triangles) }

// Validate checks array shapes and node references.
func (m *Mesh) Validate() error {
	if len(m.Nodes) == 0 {
		return fmt.Errorf("%w: mesh has no nodes", diag.ErrMeshing)
	}
	if len(m.Triangles) == 0 {
		return fmt.Errorf("%w: mesh has no triangles", diag.ErrMeshing)
	}
	if m.Attributes != nil && len(m.Attributes) != len(m.Triangles) {
		return fmt.Errorf("%w: %d attribute rows for %d triangles",
			diag.ErrMeshing, len(m.Attributes), len(m.Triangles))
	}
	for i, p := range m.Nodes {
		if !p.IsFinite() {
			return fmt.Errorf("%w: node %d has non-finite coordinates %v", diag.ErrMeshing, i, p)
		}
	}
	for k, tri := range m.Triangles {
		for _, n := range tri {
			if n < 0 || n >= len(m.Nodes) {
				return fmt.Errorf("%w: triangle %d references node %d of %d",
					diag.ErrMeshing, k, n, len(m.Nodes))
			}
		}
	}
	return nil
}

// Tag returns the region tag of triangle k, or "" when it has none. Only the
// first attribute is a region tag.
func (m *Mesh) Tag(k int) string {
	if k >= len(m.Attributes) || len(m.Attributes[k]) == 0 {
		return ""
	}
	return strconv.FormatFloat(m.Attributes[k][0], 'g', -1, 64)
}

// Corners returns the coordinates of triangle k.
func (m *Mesh) Corners(k int) (p1, p2, p3 geom.Point) {
	tri := m.Triangles[k]
	return m.Nodes[tri[0]], m.Nodes[tri[1]], m.Nodes[tri[2]]
}

// Normalize returns a copy of m in which every clockwise triangle has its
// second and third nodes swapped, along with the indices of the triangles that
// were reordered. Degenerate triangles are left as they are.
func (m *Mesh) Normalize() (*Mesh, []int) {
	out := &Mesh{
		Nodes:     append([]geom.Point(nil), m.Nodes...),
		Triangles: append([][3]int(nil), m.Triangles...),
	}
	if m.Attributes != nil {
		out.Attributes = make([][]float64, len(m.Attributes))
		for k, a := range m.Attributes {
			out.Attributes[k] = append([]float64(nil), a...)
		}
	}
	var flipped []int
	for k, tri := range out.Triangles {
		p1, p2, p3 := out.Corners(k)
		if element.IsDegenerate(p1, p2, p3) {
			continue
		}
		if element.Area2(p1, p2, p3) < 0 {
			out.Triangles[k] = [3]int{tri[0], tri[2], tri[1]}
			flipped = append(flipped, k)
		}
	}
	return out, flipped
}

// Region seeds a material region of a PSLG. MaxArea below zero leaves the
// global area constraint in effect.
type Region struct {
	Point      geom.Point `json:"point"`
	MaterialID int        `json:"material_id"`
	MaxArea    float64    `json:"max_area,omitempty"`
}

// PSLG is the planar straight line graph a mesh generator consumes.
type PSLG struct {
	Vertices []geom.Point
	Segments [][2]int
	Regions  []Region
}

// Validate checks segment references.
func (g *PSLG) Validate() error {
	if len(g.Vertices) < 3 {
		return diag.Configurationf("PSLG needs at least 3 vertices, got %d", len(g.Vertices))
	}
	for i, s := range g.Segments {
		for _, v := range s {
			if v < 0 || v >= len(g.Vertices) {
				return diag.Configurationf("segment %d references vertex %d of %d", i, v, len(g.Vertices))
			}
		}
	}
	return nil
}
