// Package solver solves the constrained plane-strain system K u = F with a
// dense Cholesky factorization.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/slopefem/assembly"
	"github.com/notargets/slopefem/diag"
)

// Method selects how restrained degrees of freedom are enforced.
type Method int

const (
	// Penalty adds a fixed large value to each restrained diagonal.
	Penalty Method = iota
	// ScaledPenalty adds PenaltyScale times the largest elastic diagonal.
	ScaledPenalty
	// Elimination removes restrained degrees of freedom from the system.
	Elimination
)

var methodNames = []string{"penalty", "scaled-penalty", "elimination"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

func ParseMethod(name string) (Method, error) {
	for i, n := range methodNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return Method(i), nil
		}
	}
	return 0, diag.Configurationf("unknown solver method %q", name)
}

func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Method) UnmarshalText(text []byte) error {
	v, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

const (
	DefaultPenalty        = 1e20
	DefaultPenaltyScale   = 1e8
	DefaultPivotTolerance = 1e-12
)

// Settings configures a solve. Zero values select the defaults.
type Settings struct {
	Method         Method  `json:"method"`
	Penalty        float64 `json:"penalty,omitempty"`
	PenaltyScale   float64 `json:"penalty_scale,omitempty"`
	PivotTolerance float64 `json:"pivot_tolerance,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		Method:         Penalty,
		Penalty:        DefaultPenalty,
		PenaltyScale:   DefaultPenaltyScale,
		PivotTolerance: DefaultPivotTolerance,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Penalty == 0 {
		s.Penalty = DefaultPenalty
	}
	if s.PenaltyScale == 0 {
		s.PenaltyScale = DefaultPenaltyScale
	}
	if s.PivotTolerance == 0 {
		s.PivotTolerance = DefaultPivotTolerance
	}
	return s
}

func (s Settings) Validate() error {
	if s.Method < Penalty || s.Method > Elimination {
		return diag.Configurationf("invalid solver method %d", int(s.Method))
	}
	s = s.withDefaults()
	for name, v := range map[string]float64{
		"penalty":         s.Penalty,
		"penalty_scale":   s.PenaltyScale,
		"pivot_tolerance": s.PivotTolerance,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return diag.Configurationf("solver %s must be positive and finite, got %g", name, v)
		}
	}
	return nil
}

// PenaltyValue returns the diagonal term added per restrained degree of
// freedom, or 0 for Elimination.
func (s Settings) PenaltyValue(elasticScale float64) float64 {
	s = s.withDefaults()
	switch s.Method {
	case Penalty:
		return s.Penalty
	case ScaledPenalty:
		return s.PenaltyScale * elasticScale
	}
	return 0
}

// Report describes one solve.
type Report struct {
	Method     Method
	DOFs       int // size of the factorized system
	Restrained int
	// Condition is the factorization's condition number estimate.
	Condition float64
	// PivotRatio is the smallest squared Cholesky pivot over the elastic
	// diagonal scale.
	PivotRatio float64
	Elapsed    time.Duration
}

type factorization struct {
	u     []float64
	cond  float64
	pivot float64
	err   error
}

// Solve returns u for K u = F. For the penalty methods K must already carry
// the penalty terms and restrained is only reported; for Elimination the
// restrained degrees of freedom are removed and get exactly zero.
func Solve(ctx context.Context, K *assembly.Stiffness, F []float64, restrained []int, s Settings) ([]float64, Report, error) {
	start := time.Now()
	rep := Report{Method: s.Method, Restrained: len(restrained)}
	if err := s.Validate(); err != nil {
		return nil, rep, err
	}
	s = s.withDefaults()
	n := K.Size()
	if len(F) != n {
		return nil, rep, diag.Configurationf("load vector has %d entries for %d dofs", len(F), n)
	}
	if err := ctx.Err(); err != nil {
		return nil, rep, err
	}

	free := freeDOFs(n, restrained, s.Method == Elimination)
	rep.DOFs = len(free)
	if len(free) == 0 {
		return make([]float64, n), rep, nil
	}
	scale := K.ElasticScale()
	if scale <= 0 {
		return nil, rep, diag.Numericalf("stiffness has no elastic contribution")
	}

	done := make(chan factorization, 1)
	go func() { done <- factorSolve(K, F, free, scale) }()

	var res factorization
	select {
	case <-ctx.Done():
		return nil, rep, ctx.Err()
	case res = <-done:
	}
	rep.Condition = res.cond
	rep.PivotRatio = res.pivot
	rep.Elapsed = time.Since(start)
	if res.err != nil {
		return nil, rep, res.err
	}
	if res.pivot < s.PivotTolerance {
		return nil, rep, diag.Numericalf("singular stiffness: pivot ratio %.3g below %.3g, the model is insufficiently constrained",
			res.pivot, s.PivotTolerance)
	}
	for i, v := range res.u {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, rep, diag.Numericalf("non-finite displacement at dof %d", i)
		}
	}
	return res.u, rep, nil
}

func freeDOFs(n int, restrained []int, eliminate bool) []int {
	fixed := make([]bool, n)
	if eliminate {
		for _, dof := range restrained {
			if dof >= 0 && dof < n {
				fixed[dof] = true
			}
		}
	}
	free := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !fixed[i] {
			free = append(free, i)
		}
	}
	return free
}

func factorSolve(K *assembly.Stiffness, F []float64, free []int, scale float64) (out factorization) {
	n, m := K.Size(), len(free)
	var A *mat.SymDense
	if m == n {
		A = K.Dense()
	} else {
		pos := make([]int, n)
		for i := range pos {
			pos[i] = -1
		}
		for r, dof := range free {
			pos[dof] = r
		}
		A = mat.NewSymDense(m, nil)
		K.DoNonZero(func(i, j int, v float64) {
			ri, rj := pos[i], pos[j]
			if ri >= 0 && rj >= 0 && rj >= ri {
				A.SetSym(ri, rj, v)
			}
		})
	}
	b := mat.NewVecDense(m, nil)
	for r, dof := range free {
		b.SetVec(r, F[dof])
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		out.err = diag.Numericalf("stiffness is not positive definite, the model is insufficiently constrained")
		return
	}
	out.cond = chol.Cond()
	U := chol.RawU()
	out.pivot = math.Inf(1)
	for i := 0; i < m; i++ {
		d := U.At(i, i)
		out.pivot = math.Min(out.pivot, d*d/scale)
	}

	var x mat.VecDense
	if err := chol.SolveVecTo(&x, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			out.err = fmt.Errorf("%w: cholesky solve: %v", diag.ErrNumericalFailure, err)
			return
		}
	}
	out.u = make([]float64, n)
	for r, dof := range free {
		out.u[dof] = x.AtVec(r)
	}
	return
}
