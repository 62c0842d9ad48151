// Package assembly accumulates element stiffness matrices into the global
// stiffness of a plane-strain model.
package assembly

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Builder is the mutable accumulation phase of a global stiffness matrix. It
// is not safe for concurrent use; parallel assembly gives every worker its
// own Builder. Finalize seals it into an immutable Stiffness.
type Builder struct {
	n         int
	dok       *sparse.DOK
	elastic   []float64 // diagonal contributed by elements
	penalized map[int]float64
	sealed    bool
}

func NewBuilder(n int) *Builder {
	return &Builder{
		n:         n,
		dok:       sparse.NewDOK(n, n),
		elastic:   make([]float64, n),
		penalized: make(map[int]float64),
	}
}

func (b *Builder) Size() int { return b.n }

func (b *Builder) check() {
	if b.sealed {
		panic("assembly: builder used after Finalize")
	}
}

// Add accumulates v into K(i, j).
func (b *Builder) Add(i, j int, v float64) {
	b.check()
	b.dok.Set(i, j, b.dok.At(i, j)+v)
	if i == j {
		b.elastic[i] += v
	}
}

// AddElement scatters a symmetric element matrix onto the listed degrees of
// freedom. Both triangles are written, so K stays exactly symmetric.
func (b *Builder) AddElement(dofs []int, ke mat.Symmetric) {
	n := ke.SymmetricDim()
	if len(dofs) != n {
		panic(fmt.Sprintf("assembly: %d dofs for a %dx%d element matrix", len(dofs), n, n))
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := ke.At(i, j)
			b.Add(dofs[i], dofs[j], v)
			if i != j {
				b.Add(dofs[j], dofs[i], v)
			}
		}
	}
}

// AddPenalty adds v to K(dof, dof) as a constraint term. Penalty terms are
// excluded from MaxElasticDiagonal.
func (b *Builder) AddPenalty(dof int, v float64) {
	b.check()
	b.dok.Set(dof, dof, b.dok.At(dof, dof)+v)
	b.penalized[dof] += v
}

// MaxElasticDiagonal returns max |K(i,i)| over element contributions only.
func (b *Builder) MaxElasticDiagonal() float64 {
	m := 0.0
	for _, v := range b.elastic {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// NNZ returns the number of stored entries.
func (b *Builder) NNZ() int { return b.dok.NNZ() }

// Entries calls fn for every stored entry in row-major order.
func (b *Builder) Entries(fn func(i, j int, v float64)) {
	type entry struct {
		i, j int
		v    float64
	}
	entries := make([]entry, 0, b.dok.NNZ())
	b.dok.DoNonZero(func(i, j int, v float64) {
		entries = append(entries, entry{i, j, v})
	})
	sort.Slice(entries, func(a, c int) bool {
		if entries[a].i != entries[c].i {
			return entries[a].i < entries[c].i
		}
		return entries[a].j < entries[c].j
	})
	for _, e := range entries {
		fn(e.i, e.j, e.v)
	}
}

// Finalize converts the accumulated entries to compressed sparse row form.
// The builder cannot be used afterwards.
func (b *Builder) Finalize() *Stiffness {
	b.check()
	b.sealed = true
	pen := make([]int, 0, len(b.penalized))
	for dof := range b.penalized {
		pen = append(pen, dof)
	}
	sort.Ints(pen)
	return &Stiffness{
		csr:          b.dok.ToCSR(),
		n:            b.n,
		elasticScale: b.MaxElasticDiagonal(),
		penalized:    pen,
	}
}
