package solver

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/slopefem/assembly"
	"github.com/notargets/slopefem/diag"
)

// chain of two unit springs between dofs 0-1 and 1-2
func chain() *assembly.Builder {
	b := assembly.NewBuilder(3)
	for _, e := range [][2]int{{0, 1}, {1, 2}} {
		b.Add(e[0], e[0], 1)
		b.Add(e[1], e[1], 1)
		b.Add(e[0], e[1], -1)
		b.Add(e[1], e[0], -1)
	}
	return b
}

func TestParseMethod(t *testing.T) {
	for _, m := range []Method{Penalty, ScaledPenalty, Elimination} {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMethod(" Elimination ")
	require.NoError(t, err)
	assert.Equal(t, Elimination, got)

	_, err = ParseMethod("gauss")
	assert.ErrorIs(t, err, diag.ErrConfiguration)
}

func TestSettings(t *testing.T) {
	assert.NoError(t, Settings{}.Validate())
	assert.NoError(t, DefaultSettings().Validate())
	assert.ErrorIs(t, Settings{Method: 9}.Validate(), diag.ErrConfiguration)
	assert.ErrorIs(t, Settings{Penalty: -1}.Validate(), diag.ErrConfiguration)
	assert.ErrorIs(t, Settings{PivotTolerance: math.Inf(1)}.Validate(), diag.ErrConfiguration)

	assert.Equal(t, 1e20, Settings{}.PenaltyValue(5))
	assert.Equal(t, 5e8, Settings{Method: ScaledPenalty}.PenaltyValue(5))
	assert.Equal(t, 50.0, Settings{Method: ScaledPenalty, PenaltyScale: 10}.PenaltyValue(5))
	assert.Equal(t, 0.0, Settings{Method: Elimination}.PenaltyValue(5))
}

func TestSolveMethods(t *testing.T) {
	F := []float64{0, 0, 1}
	restrained := []int{0}

	for _, m := range []Method{Penalty, ScaledPenalty, Elimination} {
		t.Run(m.String(), func(t *testing.T) {
			s := Settings{Method: m}
			b := chain()
			if p := s.PenaltyValue(b.MaxElasticDiagonal()); p > 0 {
				for _, dof := range restrained {
					b.AddPenalty(dof, p)
				}
			}
			u, rep, err := Solve(context.Background(), b.Finalize(), F, restrained, s)
			require.NoError(t, err)
			assert.InDelta(t, 0.0, u[0], 1e-7)
			assert.InDelta(t, 1.0, u[1]-u[0], 1e-9)
			assert.InDelta(t, 2.0, u[2]-u[0], 1e-9)
			assert.Equal(t, 1, rep.Restrained)
			assert.Greater(t, rep.PivotRatio, DefaultPivotTolerance)
			if m == Elimination {
				assert.Equal(t, 0.0, u[0])
				assert.Equal(t, 2, rep.DOFs)
			} else {
				assert.Equal(t, 3, rep.DOFs)
			}
		})
	}
}

func TestSolveUnconstrained(t *testing.T) {
	for _, m := range []Method{Penalty, Elimination} {
		_, _, err := Solve(context.Background(), chain().Finalize(), []float64{0, 0, 1}, nil, Settings{Method: m})
		require.Error(t, err)
		assert.ErrorIs(t, err, diag.ErrNumericalFailure)
		assert.Equal(t, diag.CodeNumerical, diag.Classify(err))
	}
}

// positive definite, with a second pivot 1e-14 of the elastic scale
func soft() *assembly.Stiffness {
	b := assembly.NewBuilder(2)
	b.Add(0, 0, 1)
	b.Add(1, 1, 1e-14)
	return b.Finalize()
}

func TestSolveNearMechanism(t *testing.T) {
	_, rep, err := Solve(context.Background(), soft(), []float64{1, 1}, nil, Settings{})
	assert.ErrorIs(t, err, diag.ErrNumericalFailure)
	assert.InDelta(t, 1e-14, rep.PivotRatio, 1e-20)

	u, _, err := Solve(context.Background(), soft(), []float64{1, 1}, nil, Settings{PivotTolerance: 1e-16})
	require.NoError(t, err)
	assert.InDelta(t, 1e14, u[1], 1)
}

func TestSolveNonFinite(t *testing.T) {
	b := chain()
	b.AddPenalty(0, 1e20)
	_, _, err := Solve(context.Background(), b.Finalize(), []float64{0, math.NaN(), 1}, []int{0}, Settings{})
	assert.ErrorIs(t, err, diag.ErrNumericalFailure)
}

func TestSolveInputErrors(t *testing.T) {
	K := chain().Finalize()
	_, _, err := Solve(context.Background(), K, []float64{1}, nil, Settings{})
	assert.ErrorIs(t, err, diag.ErrConfiguration)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Solve(ctx, K, []float64{0, 0, 1}, []int{0}, Settings{Method: Elimination})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, diag.CodeCanceled, diag.Classify(err))
}

func TestSolveAllRestrained(t *testing.T) {
	u, rep, err := Solve(context.Background(), chain().Finalize(), []float64{1, 2, 3}, []int{0, 1, 2},
		Settings{Method: Elimination})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, u)
	assert.Equal(t, 0, rep.DOFs)
}
