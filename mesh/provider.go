package mesh

import (
	"context"
	"fmt"
	"math"

	"github.com/notargets/slopefem/diag"
	"github.com/notargets/slopefem/geom"
)

// Provider turns a PSLG into a triangulation. Implementations must not
// modify the PSLG.
type Provider interface {
	Triangulate(ctx context.Context, g PSLG, opts Options) (*Mesh, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, g PSLG, opts Options) (*Mesh, error)

func (f ProviderFunc) Triangulate(ctx context.Context, g PSLG, opts Options) (*Mesh, error) {
	return f(ctx, g, opts)
}

// Static hands out a mesh generated ahead of time, ignoring the PSLG and the
// options.
type Static struct {
	Mesh *Mesh
}

func (s Static) Triangulate(ctx context.Context, g PSLG, opts Options) (*Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Mesh == nil {
		return nil, fmt.Errorf("%w: no mesh loaded", diag.ErrMeshing)
	}
	return s.Mesh, nil
}

// Grid meshes the bounding rectangle of the PSLG with a structured NX x NY
// grid, each cell cut into two triangles along alternating diagonals. Every
// PSLG vertex must lie on the rectangle outline; vertices that do not fall on
// grid lines are not honored. With exactly one region seed all triangles get
// its material id, otherwise they carry no tag.
type Grid struct {
	NX, NY int
}

func (gr Grid) Triangulate(ctx context.Context, g PSLG, opts Options) (*Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if gr.NX < 1 || gr.NY < 1 {
		return nil, diag.Configurationf("grid %dx%d needs at least one cell per direction", gr.NX, gr.NY)
	}
	b := geom.BoundsOf(g.Vertices)
	if b.Width() <= 0 || b.Height() <= 0 {
		return nil, fmt.Errorf("%w: PSLG bounding box %v-%v has no area", diag.ErrMeshing, b.Min, b.Max)
	}
	tol := 1e-9 * math.Max(b.Width(), b.Height())
	for i, v := range g.Vertices {
		if !b.OnBoundary(v, tol) {
			return nil, fmt.Errorf("%w: vertex %d %v is inside the bounding rectangle", diag.ErrMeshing, i, v)
		}
	}
	var tag []float64
	if len(g.Regions) == 1 {
		tag = []float64{float64(g.Regions[0].MaterialID)}
	}
	return Rectangle(b, gr.NX, gr.NY, tag), nil
}

// Rectangle builds a structured triangulation of b with nx x ny cells. Nodes
// are numbered row by row from the lower left corner. Each triangle gets a
// copy of attr.
func Rectangle(b geom.Bounds, nx, ny int, attr []float64) *Mesh {
	m := &Mesh{}
	dx := b.Width() / float64(nx)
	dy := b.Height() / float64(ny)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			x, y := b.Min.X+float64(i)*dx, b.Min.Y+float64(j)*dy
			if i == nx {
				x = b.Max.X
			}
			if j == ny {
				y = b.Max.Y
			}
			m.Nodes = append(m.Nodes, geom.Point{X: x, Y: y})
		}
	}
	node := func(i, j int) int { return j*(nx+1) + i }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			n00, n10 := node(i, j), node(i+1, j)
			n01, n11 := node(i, j+1), node(i+1, j+1)
			if (i+j)%2 == 0 {
				m.Triangles = append(m.Triangles, [3]int{n00, n10, n11}, [3]int{n00, n11, n01})
			} else {
				m.Triangles = append(m.Triangles, [3]int{n00, n10, n01}, [3]int{n10, n11, n01})
			}
		}
	}
	if attr != nil {
		m.Attributes = make([][]float64, len(m.Triangles))
		for k := range m.Attributes {
			m.Attributes[k] = append([]float64(nil), attr...)
		}
	}
	return m
}
