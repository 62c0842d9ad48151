package assembly

import (
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Stiffness is an assembled, immutable global stiffness matrix.
type Stiffness struct {
	csr          *sparse.CSR
	n            int
	elasticScale float64
	penalized    []int
}

func (s *Stiffness) Dims() (int, int) { return s.n, s.n }

func (s *Stiffness) Size() int { return s.n }

func (s *Stiffness) At(i, j int) float64 { return s.csr.At(i, j) }

func (s *Stiffness) NNZ() int { return s.csr.NNZ() }

// DoNonZero calls fn for every stored entry.
func (s *Stiffness) DoNonZero(fn func(i, j int, v float64)) { s.csr.DoNonZero(fn) }

// ElasticScale is the largest diagonal magnitude contributed by elements,
// before any penalty terms.
func (s *Stiffness) ElasticScale() float64 { return s.elasticScale }

// Penalized lists the degrees of freedom that received a penalty term.
func (s *Stiffness) Penalized() []int { return append([]int(nil), s.penalized...) }

// Dense expands K into a dense symmetric matrix, reading the upper triangle.
func (s *Stiffness) Dense() *mat.SymDense {
	d := mat.NewSymDense(s.n, nil)
	s.csr.DoNonZero(func(i, j int, v float64) {
		if j >= i {
			d.SetSym(i, j, v)
		}
	})
	return d
}

// MulVec returns K*x.
func (s *Stiffness) MulVec(x []float64) []float64 {
	y := make([]float64, s.n)
	s.csr.DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
	return y
}

// Asymmetry returns max |K(i,j) - K(j,i)|.
func (s *Stiffness) Asymmetry() float64 {
	worst := 0.0
	s.csr.DoNonZero(func(i, j int, v float64) {
		worst = math.Max(worst, math.Abs(v-s.csr.At(j, i)))
	})
	return worst
}
