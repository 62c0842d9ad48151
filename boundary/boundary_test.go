package boundary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/slopefem/assembly"
	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/geom"
	"github.com/notargets/slopefem/mesh"
)

// 4x2 cells over [0,4]x[0,2]; nodes are numbered row by row, 5 per row
func testSegments(t *testing.T) (*Segments, *mesh.Mesh) {
	t.Helper()
	msh := mesh.Rectangle(geom.Bounds{Max: geom.Point{X: 4, Y: 2}}, 4, 2, nil)
	segs := &Segments{
		Vertices: []geom.Point{
			{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 2}, {X: 0, Y: 2},
			{X: 0.5, Y: 2}, {X: 1.5, Y: 2}, {X: 0.2, Y: 2}, {X: 0.8, Y: 2},
		},
		Segments: [][2]int{
			{0, 1}, // 0 bottom
			{1, 2}, // 1 right
			{2, 3}, // 2 top, right to left
			{3, 0}, // 3 left
			{4, 5}, // 4 short, holds node (1,2) only
			{6, 7}, // 5 between nodes
		},
		Index: geom.NewIndex(msh.Nodes, 4),
		Tol:   geom.DefaultTolerance,
	}
	return segs, msh
}

func TestKind(t *testing.T) {
	assert.Equal(t, LockX|LockY, Fixed.Locks())
	assert.Equal(t, LockX, RollerX.Locks())
	assert.Equal(t, LockY, RollerY.Locks())
	assert.False(t, Kind(0).Valid())

	var supports map[int]Kind
	require.NoError(t, json.Unmarshal([]byte(`{"0":"Fixed","3":"rollerx"}`), &supports))
	assert.Equal(t, map[int]Kind{0: Fixed, 3: RollerX}, supports)

	data, err := json.Marshal(map[int]Kind{1: RollerY})
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":"RollerY"}`, string(data))

	err = json.Unmarshal([]byte(`{"0":"Pinned"}`), &supports)
	assert.ErrorIs(t, err, diag.ErrConfiguration)
}

func TestResolveConstraints(t *testing.T) {
	segs, _ := testSegments(t)
	warn := diag.NewCollector(nil)
	c, err := ResolveConstraints(segs, map[int]Kind{0: Fixed, 3: RollerX, 1: RollerX}, warn)
	require.NoError(t, err)

	// bottom row 0..4 fixed, left column 0,5,10 x-locked, right column 4,9,14 x-locked
	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 18, 20, 28}
	assert.Equal(t, want, c.DOFs)
	assert.Equal(t, LockX|LockY, c.Nodes[0])
	assert.Equal(t, LockX, c.Nodes[10])
	assert.True(t, c.IsFixed(20))
	assert.False(t, c.IsFixed(21))
	assert.Equal(t, 0, warn.Len())

	t.Run("union across segments", func(t *testing.T) {
		c, err := ResolveConstraints(segs, map[int]Kind{3: RollerX, 2: RollerY}, nil)
		require.NoError(t, err)
		// node 10 (0,2) is on both the left and the top edge
		assert.Equal(t, LockX|LockY, c.Nodes[10])
	})

	t.Run("unmatched segment warns", func(t *testing.T) {
		warn := diag.NewCollector(nil)
		c, err := ResolveConstraints(segs, map[int]Kind{5: Fixed}, warn)
		require.NoError(t, err)
		assert.Empty(t, c.DOFs)
		assert.Equal(t, 1, warn.Count(diag.UnmatchedSegment))
		assert.Equal(t, 5, warn.Warnings()[0].Segment)
	})

	t.Run("bad input", func(t *testing.T) {
		_, err := ResolveConstraints(segs, map[int]Kind{9: Fixed}, nil)
		assert.ErrorIs(t, err, diag.ErrConfiguration)
		_, err = ResolveConstraints(segs, map[int]Kind{0: Kind(7)}, nil)
		assert.ErrorIs(t, err, diag.ErrConfiguration)
	})
}

func TestApplyPenalty(t *testing.T) {
	segs, msh := testSegments(t)
	// bottom and left share node 0; its x dof must be penalized once
	c, err := ResolveConstraints(segs, map[int]Kind{0: Fixed, 3: Fixed}, nil)
	require.NoError(t, err)
	b := assembly.NewBuilder(2 * msh.NumNodes())
	c.ApplyPenalty(b, 1e20)
	K := b.Finalize()
	assert.Equal(t, 1e20, K.At(0, 0))
	assert.Equal(t, 1e20, K.At(1, 1))
	assert.Equal(t, 0.0, K.At(2*12, 2*12))
	assert.Equal(t, c.DOFs, K.Penalized())
	assert.Equal(t, 0.0, K.ElasticScale())
}

func TestLumpLoads(t *testing.T) {
	segs, msh := testSegments(t)

	t.Run("uniform spacing", func(t *testing.T) {
		l, err := LumpLoads(segs, msh.Nodes, map[int]float64{2: 10}, nil)
		require.NoError(t, err)
		assert.Equal(t, map[int]float64{10: 5, 11: 10, 12: 10, 13: 10, 14: 5}, l.Nodes)
		assert.InDelta(t, 40.0, l.Total(), 1e-12)

		F := l.Vector(2 * msh.NumNodes())
		assert.Equal(t, -5.0, F[2*10+1])
		assert.Equal(t, -10.0, F[2*12+1])
		assert.Equal(t, 0.0, F[2*12])
	})

	t.Run("accumulates across segments", func(t *testing.T) {
		l, err := LumpLoads(segs, msh.Nodes, map[int]float64{2: 10, 1: -4}, nil)
		require.NoError(t, err)
		// node 14 (4,2) is a corner of the right and the top edge
		assert.InDelta(t, 5.0-2.0, l.Nodes[14], 1e-12)
		assert.InDelta(t, -4.0, l.Nodes[9], 1e-12)
	})

	t.Run("single node takes the segment length", func(t *testing.T) {
		l, err := LumpLoads(segs, msh.Nodes, map[int]float64{4: 6}, nil)
		require.NoError(t, err)
		assert.Equal(t, map[int]float64{11: 6}, l.Nodes)
	})

	t.Run("unmatched segment warns", func(t *testing.T) {
		warn := diag.NewCollector(nil)
		l, err := LumpLoads(segs, msh.Nodes, map[int]float64{5: 6}, warn)
		require.NoError(t, err)
		assert.Empty(t, l.Nodes)
		assert.Equal(t, 1, warn.Count(diag.UnmatchedSegment))
	})

	t.Run("bad input", func(t *testing.T) {
		_, err := LumpLoads(segs, msh.Nodes, map[int]float64{12: 6}, nil)
		assert.ErrorIs(t, err, diag.ErrConfiguration)
	})
}

func TestLumpLoadsNonUniform(t *testing.T) {
	nodes := []geom.Point{{X: 3, Y: 0}, {X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 1}}
	segs := &Segments{
		Vertices: []geom.Point{{X: 0, Y: 0}, {X: 3, Y: 0}},
		Segments: [][2]int{{0, 1}},
		Index:    geom.NewIndex(nodes, 2),
		Tol:      geom.DefaultTolerance,
	}
	l, err := LumpLoads(segs, nodes, map[int]float64{0: 2}, nil)
	require.NoError(t, err)
	// sorted along the segment: x = 0, 0.5, 2, 3
	assert.InDelta(t, 2*0.25, l.Nodes[1], 1e-12)
	assert.InDelta(t, 2*(0.25+0.75), l.Nodes[2], 1e-12)
	assert.InDelta(t, 2*(0.75+0.5), l.Nodes[3], 1e-12)
	assert.InDelta(t, 2*0.5, l.Nodes[0], 1e-12)
	assert.InDelta(t, 6.0, l.Total(), 1e-12)
	_, onSegment := l.Nodes[4]
	assert.False(t, onSegment)
}
