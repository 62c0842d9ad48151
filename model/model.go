// Package model prepares a triangulation for analysis: it fixes triangle
// winding, flags degenerate triangles, and binds every triangle to a material
// and its constitutive matrix.
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/element"
	"github.com/notargets/slopefem/material"
	"github.com/notargets/slopefem/mesh"
)

// Element is one analysis triangle. CST is nil when the triangle is
// degenerate; such elements take no part in assembly or stress recovery.
type Element struct {
	Nodes    [3]int
	Material int // index into Model.Materials
	CST      *element.CST
}

func (e *Element) Degenerate() bool { return e.CST == nil }

// Model is the read-only input of assembly and post-processing.
type Model struct {
	Mesh      *mesh.Mesh // winding normalized
	Elements  []Element
	Materials []material.Material
	D         []*mat.SymDense // constitutive matrix per entry of Materials
}

func (m *Model) NumNodes() int { return m.Mesh.NumNodes() }
func (m *Model) NumDOF() int   { return 2 * m.Mesh.NumNodes() }

// Material returns the material and constitutive matrix of element k.
func (m *Model) Material(k int) (material.Material, *mat.SymDense) {
	i := m.Elements[k].Material
	return m.Materials[i], m.D[i]
}

// NumDegenerate counts elements without a CST operator.
func (m *Model) NumDegenerate() int {
	n := 0
	for i := range m.Elements {
		if m.Elements[i].Degenerate() {
			n++
		}
	}
	return n
}

// Build validates msh and resolves materials from table. Triangles without a
// region tag get table.Default(); a tag that names no material is fatal.
// Reordered and degenerate triangles are reported to warn.
func Build(msh *mesh.Mesh, table *material.Table, warn *diag.Collector) (*Model, error) {
	if err := msh.Validate(); err != nil {
		return nil, err
	}
	def, ok := table.Default()
	if !ok {
		return nil, diag.Configurationf("material table is empty")
	}

	norm, flipped := msh.Normalize()
	for _, k := range flipped {
		warn.ElementWarning(diag.WindingNormalized, k, "clockwise triangle reordered")
	}

	md := &Model{Mesh: norm, Elements: make([]Element, len(norm.Triangles))}
	slot := make(map[int]int)
	materialSlot := func(m material.Material) (int, error) {
		if i, ok := slot[m.ID]; ok {
			return i, nil
		}
		D, err := m.D()
		if err != nil {
			return 0, fmt.Errorf("material %d (%s): %w", m.ID, m.Name, err)
		}
		slot[m.ID] = len(md.Materials)
		md.Materials = append(md.Materials, m)
		md.D = append(md.D, D)
		return slot[m.ID], nil
	}

	untagged := 0
	for k, tri := range norm.Triangles {
		el := &md.Elements[k]
		el.Nodes = tri

		m := def
		if tag := norm.Tag(k); tag != "" {
			var err error
			if m, err = table.Resolve(tag); err != nil {
				return nil, fmt.Errorf("triangle %d: %w", k, err)
			}
		} else {
			untagged++
		}
		i, err := materialSlot(m)
		if err != nil {
			return nil, err
		}
		el.Material = i

		p1, p2, p3 := norm.Corners(k)
		cst, ok := element.NewCST(p1, p2, p3)
		if !ok {
			warn.ElementWarning(diag.GeometricDegeneracy, k,
				"area2 %.3g below %g, element skipped", element.Area2(p1, p2, p3), element.DegenerateTolerance)
			continue
		}
		el.CST = cst
	}
	if untagged > 0 {
		warn.Add(diag.Warning{
			Kind:    diag.MaterialResolution,
			Element: -1,
			Segment: -1,
			Message: fmt.Sprintf("%d of %d triangles carry no region tag, using material %d (%s)",
				untagged, len(norm.Triangles), def.ID, def.Name),
		})
	}
	if md.NumDegenerate() == len(md.Elements) {
		return nil, diag.Numericalf("all %d triangles are degenerate", len(md.Elements))
	}
	return md, nil
}
