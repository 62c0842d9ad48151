// Package readers reads and writes the ASCII file formats of Shewchuk's
// Triangle: .poly input graphs and .node/.ele output meshes.
package readers

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/notargets/slopefem/geom"
)

// RegionSeed is one entry of the regional attributes list of a .poly file.
type RegionSeed struct {
	Point     geom.Point
	Attribute float64
	MaxArea   float64
}

// Poly is the content of a .poly file with no holes and no markers.
type Poly struct {
	Vertices []geom.Point
	Segments [][2]int
	Regions  []RegionSeed
}

// WritePoly writes p with 1-based numbering.
func WritePoly(w io.Writer, p Poly) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d 2 0 0\n", len(p.Vertices))
	for i, v := range p.Vertices {
		fmt.Fprintf(bw, "%d %s %s\n", i+1, ftoa(v.X), ftoa(v.Y))
	}
	fmt.Fprintf(bw, "%d 0\n", len(p.Segments))
	for i, s := range p.Segments {
		fmt.Fprintf(bw, "%d %d %d\n", i+1, s[0]+1, s[1]+1)
	}
	fmt.Fprintf(bw, "0\n")
	fmt.Fprintf(bw, "%d\n", len(p.Regions))
	for i, r := range p.Regions {
		fmt.Fprintf(bw, "%d %s %s %s %s\n", i+1, ftoa(r.Point.X), ftoa(r.Point.Y), ftoa(r.Attribute), ftoa(r.MaxArea))
	}
	return bw.Flush()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', 17, 64) }

// Nodes is the content of a .node file. Base is the index of the first
// vertex, 0 or 1, which the matching .ele file also uses.
type Nodes struct {
	Points     []geom.Point
	Attributes [][]float64
	Markers    []int
	Base       int
}

// ReadNodes parses a .node file.
func ReadNodes(r io.Reader) (*Nodes, error) {
	lines := newLineReader(r)
	head, err := lines.next()
	if err != nil {
		return nil, fmt.Errorf("node header: %w", err)
	}
	if len(head) < 1 {
		return nil, fmt.Errorf("node header: empty")
	}
	n, err := atoi(head, 0)
	if err != nil {
		return nil, fmt.Errorf("node header: %w", err)
	}
	dim, nAttr, nMark := 2, 0, 0
	if len(head) > 1 {
		if dim, err = atoi(head, 1); err != nil {
			return nil, fmt.Errorf("node header: %w", err)
		}
	}
	if dim != 2 {
		return nil, fmt.Errorf("node header: dimension %d, want 2", dim)
	}
	if len(head) > 2 {
		if nAttr, err = atoi(head, 2); err != nil {
			return nil, fmt.Errorf("node header: %w", err)
		}
	}
	if len(head) > 3 {
		if nMark, err = atoi(head, 3); err != nil {
			return nil, fmt.Errorf("node header: %w", err)
		}
	}

	nodes := &Nodes{
		Points:     make([]geom.Point, n),
		Attributes: make([][]float64, n),
	}
	if nMark > 0 {
		nodes.Markers = make([]int, n)
	}
	for i := 0; i < n; i++ {
		f, err := lines.next()
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if len(f) < 3+nAttr+nMark {
			return nil, fmt.Errorf("node %d: %d fields, want %d", i, len(f), 3+nAttr+nMark)
		}
		id, err := atoi(f, 0)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if i == 0 {
			nodes.Base = id
		}
		if id-nodes.Base != i {
			return nil, fmt.Errorf("node %d: out of sequence id %d", i, id)
		}
		if nodes.Points[i].X, err = atof(f, 1); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if nodes.Points[i].Y, err = atof(f, 2); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		for a := 0; a < nAttr; a++ {
			v, err := atof(f, 3+a)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			nodes.Attributes[i] = append(nodes.Attributes[i], v)
		}
		if nMark > 0 {
			if nodes.Markers[i], err = atoi(f, 3+nAttr); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
		}
	}
	return nodes, nil
}

// Elements is the content of a .ele file with node indices rebased to zero.
type Elements struct {
	Triangles  [][3]int
	Attributes [][]float64
}

// ReadElements parses a .ele file whose node numbering starts at base.
// Only the three corner nodes of higher order triangles are kept.
func ReadElements(r io.Reader, base int) (*Elements, error) {
	lines := newLineReader(r)
	head, err := lines.next()
	if err != nil {
		return nil, fmt.Errorf("element header: %w", err)
	}
	n, err := atoi(head, 0)
	if err != nil {
		return nil, fmt.Errorf("element header: %w", err)
	}
	perTri, nAttr := 3, 0
	if len(head) > 1 {
		if perTri, err = atoi(head, 1); err != nil {
			return nil, fmt.Errorf("element header: %w", err)
		}
	}
	if perTri != 3 && perTri != 6 {
		return nil, fmt.Errorf("element header: %d nodes per triangle", perTri)
	}
	if len(head) > 2 {
		if nAttr, err = atoi(head, 2); err != nil {
			return nil, fmt.Errorf("element header: %w", err)
		}
	}

	els := &Elements{
		Triangles:  make([][3]int, n),
		Attributes: make([][]float64, n),
	}
	for k := 0; k < n; k++ {
		f, err := lines.next()
		if err != nil {
			return nil, fmt.Errorf("triangle %d: %w", k, err)
		}
		if len(f) < 1+perTri+nAttr {
			return nil, fmt.Errorf("triangle %d: %d fields, want %d", k, len(f), 1+perTri+nAttr)
		}
		for c := 0; c < 3; c++ {
			v, err := atoi(f, 1+c)
			if err != nil {
				return nil, fmt.Errorf("triangle %d: %w", k, err)
			}
			els.Triangles[k][c] = v - base
		}
		for a := 0; a < nAttr; a++ {
			v, err := atof(f, 1+perTri+a)
			if err != nil {
				return nil, fmt.Errorf("triangle %d: %w", k, err)
			}
			els.Attributes[k] = append(els.Attributes[k], v)
		}
	}
	return els, nil
}

type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{sc: bufio.NewScanner(r)}
}

// next returns the fields of the next line that is not blank or a comment.
func (lr *lineReader) next() ([]string, error) {
	for lr.sc.Scan() {
		lr.line++
		text := lr.sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		if f := strings.Fields(text); len(f) > 0 {
			return f, nil
		}
	}
	if err := lr.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.ErrUnexpectedEOF
}

func atoi(f []string, i int) (int, error) {
	v, err := strconv.Atoi(f[i])
	if err != nil {
		return 0, fmt.Errorf("field %d: %w", i+1, err)
	}
	return v, nil
}

func atof(f []string, i int) (float64, error) {
	v, err := strconv.ParseFloat(f[i], 64)
	if err != nil {
		return 0, fmt.Errorf("field %d: %w", i+1, err)
	}
	return v, nil
}
