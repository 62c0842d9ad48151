// Package material holds the isotropic linear-elastic material records used by
// the analysis and the plane-strain constitutive matrix they produce.
package material

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/slopefem/diag"
)

// MinCompressibility bounds 1-2nu away from zero. Poisson ratios closer to
// 0.5 make the plane-strain factor E/((1+nu)(1-2nu)) blow up.
const MinCompressibility = 1e-9

// Material is an isotropic linear-elastic soil or rock layer. E is Young's
// modulus, Nu Poisson's ratio, UnitWeight the weight per unit volume.
type Material struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	E          float64 `json:"E"`
	Nu         float64 `json:"nu"`
	UnitWeight float64 `json:"unit_weight"`
}

// Validate checks that the elastic constants give a finite, positive-definite
// constitutive matrix.
func (m Material) Validate() error {
	if m.Name == "" {
		return diag.Configurationf("material %d: empty name", m.ID)
	}
	if err := checkConstants(m.E, m.Nu); err != nil {
		return diag.Configurationf("material %d (%s): %v", m.ID, m.Name, err)
	}
	if math.IsNaN(m.UnitWeight) || math.IsInf(m.UnitWeight, 0) {
		return diag.Configurationf("material %d (%s): unit weight %g is not finite", m.ID, m.Name, m.UnitWeight)
	}
	return nil
}

// D returns the plane-strain constitutive matrix of m.
func (m Material) D() (*mat.SymDense, error) {
	return PlaneStrain(m.E, m.Nu)
}

// PlaneStrain returns the 3x3 plane-strain constitutive matrix
//
//	D = E/((1+nu)(1-2nu)) * | 1-nu  nu    0         |
//	                        | nu    1-nu  0         |
//	                        | 0     0     (1-2nu)/2 |
//
// relating (ex, ey, gxy) to (sx, sy, txy).
func PlaneStrain(E, nu float64) (*mat.SymDense, error) {
	if err := checkConstants(E, nu); err != nil {
		return nil, diag.Configurationf("%v", err)
	}
	factor := E / ((1 + nu) * (1 - 2*nu))
	d := mat.NewSymDense(3, []float64{
		1 - nu, nu, 0,
		nu, 1 - nu, 0,
		0, 0, (1 - 2*nu) / 2,
	})
	d.ScaleSym(factor, d)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			if v := d.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, diag.Configurationf("constitutive matrix entry (%d,%d) is not finite for E=%g nu=%g", i, j, E, nu)
			}
		}
	}
	return d, nil
}

func checkConstants(E, nu float64) error {
	switch {
	case math.IsNaN(E) || math.IsInf(E, 0):
		return errors.New("Young's modulus is not finite")
	case E <= 0:
		return errors.New("Young's modulus must be positive")
	case math.IsNaN(nu) || math.IsInf(nu, 0):
		return errors.New("Poisson's ratio is not finite")
	case nu <= -1:
		return errors.New("Poisson's ratio must exceed -1")
	case nu >= 0.5 || 1-2*nu < MinCompressibility:
		return errors.New("Poisson's ratio must be below 0.5 (near-incompressible material)")
	}
	return nil
}
