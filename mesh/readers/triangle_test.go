package readers

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/slopefem/geom"
)

const squareNode = `# unit square split along the diagonal
4  2  0  1
   1    0  0    1
   2    1  0    1
   3    1  1    1
   4    0  1    1
# Generated by triangle -pq30a1A square.poly
`

const squareEle = `2  3  1
   1       1     2     3    7
   2       1     3     4    7
`

func TestReadNodes(t *testing.T) {
	nodes, err := ReadNodes(strings.NewReader(squareNode))
	require.NoError(t, err)
	assert.Equal(t, 1, nodes.Base)
	assert.Equal(t, []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}, nodes.Points)
	assert.Equal(t, []int{1, 1, 1, 1}, nodes.Markers)
}

func TestReadElements(t *testing.T) {
	els, err := ReadElements(strings.NewReader(squareEle), 1)
	require.NoError(t, err)
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}}, els.Triangles)
	assert.Equal(t, [][]float64{{7}, {7}}, els.Attributes)

	t.Run("zero based without attributes", func(t *testing.T) {
		els, err := ReadElements(strings.NewReader("1 3 0\n0 0 1 2\n"), 0)
		require.NoError(t, err)
		assert.Equal(t, [][3]int{{0, 1, 2}}, els.Triangles)
		assert.Empty(t, els.Attributes[0])
	})

	t.Run("second order keeps corners", func(t *testing.T) {
		els, err := ReadElements(strings.NewReader("1 6 0\n1 1 2 3 4 5 6\n"), 1)
		require.NoError(t, err)
		assert.Equal(t, [][3]int{{0, 1, 2}}, els.Triangles)
	})
}

func TestReadErrors(t *testing.T) {
	cases := map[string]func() error{
		"truncated nodes": func() error {
			_, err := ReadNodes(strings.NewReader("3 2 0 0\n1 0 0\n"))
			return err
		},
		"3d nodes": func() error {
			_, err := ReadNodes(strings.NewReader("1 3 0 0\n1 0 0 0\n"))
			return err
		},
		"out of sequence": func() error {
			_, err := ReadNodes(strings.NewReader("2 2 0 0\n1 0 0\n3 1 1\n"))
			return err
		},
		"bad number": func() error {
			_, err := ReadNodes(strings.NewReader("1 2 0 0\n1 zero 0\n"))
			return err
		},
		"short triangle": func() error {
			_, err := ReadElements(strings.NewReader("1 3 1\n1 1 2 3\n"), 1)
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, fn())
		})
	}

	_, err := ReadNodes(strings.NewReader("# only a comment\n"))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWritePoly(t *testing.T) {
	var buf bytes.Buffer
	err := WritePoly(&buf, Poly{
		Vertices: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}},
		Segments: [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
		Regions:  []RegionSeed{{Point: geom.Point{X: 5, Y: 2.5}, Attribute: 1, MaxArea: -1}},
	})
	require.NoError(t, err)
	want := `4 2 0 0
1 0 0
2 10 0
3 10 5
4 0 5
4 0
1 1 2
2 2 3
3 3 4
4 4 1
0
1
1 5 2.5 1 -1
`
	assert.Equal(t, want, buf.String())

	// the vertex section reads back as a node file
	nodes, err := ReadNodes(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, geom.Point{X: 10, Y: 5}, nodes.Points[2])
}
