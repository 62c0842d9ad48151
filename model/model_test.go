package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/geom"
	"github.com/notargets/slopefem/material"
	"github.com/notargets/slopefem/mesh"
)

func twoMaterials(t *testing.T) *material.Table {
	t.Helper()
	tbl, err := material.NewTableFrom(
		material.Material{ID: 1, Name: "clay", E: 2e4, Nu: 0.35, UnitWeight: 18},
		material.Material{ID: 2, Name: "rock", E: 5e6, Nu: 0.25, UnitWeight: 24},
	)
	require.NoError(t, err)
	return tbl
}

func TestBuild(t *testing.T) {
	msh := &mesh.Mesh{
		Nodes: []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 2, Y: 2}},
		Triangles: [][3]int{
			{0, 1, 2}, // ccw, rock
			{0, 3, 2}, // cw, untagged
			{0, 2, 4}, // collinear
		},
		Attributes: [][]float64{{2}, {}, {1}},
	}
	warn := diag.NewCollector(nil)
	md, err := Build(msh, twoMaterials(t), warn)
	require.NoError(t, err)

	assert.Equal(t, 10, md.NumDOF())
	assert.Equal(t, 1, md.NumDegenerate())
	assert.True(t, md.Elements[2].Degenerate())
	assert.Equal(t, [3]int{0, 2, 3}, md.Elements[1].Nodes)
	assert.Greater(t, md.Elements[1].CST.Area2, 0.0)

	m0, D0 := md.Material(0)
	assert.Equal(t, "rock", m0.Name)
	m1, D1 := md.Material(1)
	assert.Equal(t, "clay", m1.Name, "untagged triangles use the first inserted material")
	assert.NotSame(t, D0, D1)
	m2, D2 := md.Material(2)
	assert.Equal(t, "clay", m2.Name)
	assert.Same(t, D1, D2, "constitutive matrices are shared per material")
	assert.Len(t, md.Materials, 2)

	assert.Equal(t, 1, warn.Count(diag.WindingNormalized))
	assert.Equal(t, 1, warn.Count(diag.GeometricDegeneracy))
	assert.Equal(t, 1, warn.Count(diag.MaterialResolution))

	// the input mesh is untouched
	assert.Equal(t, [3]int{0, 3, 2}, msh.Triangles[1])
}

func TestBuildNoAttributes(t *testing.T) {
	msh := mesh.Rectangle(geom.Bounds{Max: geom.Point{X: 2, Y: 1}}, 2, 1, nil)
	warn := diag.NewCollector(nil)
	md, err := Build(msh, twoMaterials(t), warn)
	require.NoError(t, err)
	for k := range md.Elements {
		m, _ := md.Material(k)
		assert.Equal(t, 1, m.ID)
	}
	assert.Equal(t, 1, warn.Count(diag.MaterialResolution))
	assert.Equal(t, 0, warn.Count(diag.GeometricDegeneracy))
}

func TestBuildErrors(t *testing.T) {
	t.Run("unknown tag", func(t *testing.T) {
		msh := mesh.Rectangle(geom.Bounds{Max: geom.Point{X: 1, Y: 1}}, 1, 1, []float64{7})
		_, err := Build(msh, twoMaterials(t), nil)
		assert.ErrorIs(t, err, diag.ErrMaterialNotFound)
	})
	t.Run("empty table", func(t *testing.T) {
		msh := mesh.Rectangle(geom.Bounds{Max: geom.Point{X: 1, Y: 1}}, 1, 1, nil)
		_, err := Build(msh, material.NewTable(), nil)
		assert.ErrorIs(t, err, diag.ErrConfiguration)
	})
	t.Run("bad mesh", func(t *testing.T) {
		msh := &mesh.Mesh{Nodes: []geom.Point{{X: 0, Y: 0}}, Triangles: [][3]int{{0, 1, 2}}}
		_, err := Build(msh, twoMaterials(t), nil)
		assert.ErrorIs(t, err, diag.ErrMeshing)
	})
	t.Run("all degenerate", func(t *testing.T) {
		msh := &mesh.Mesh{Nodes: []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}, Triangles: [][3]int{{0, 1, 2}}}
		_, err := Build(msh, twoMaterials(t), nil)
		assert.ErrorIs(t, err, diag.ErrNumericalFailure)
	})
}
