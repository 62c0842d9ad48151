package element

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Stress is the constant stress state of one CST element in plane strain.
// Sz is the out-of-plane normal stress nu*(Sx+Sy). Valid is false for
// degenerate elements, whose record stays zero.
type Stress struct {
	Sx       float64 `json:"sx"`
	Sy       float64 `json:"sy"`
	Txy      float64 `json:"txy"`
	Sz       float64 `json:"sz"`
	VonMises float64 `json:"von_mises"`
	Valid    bool    `json:"valid"`
}

// Stress evaluates sigma = D * B * ue for the element displacement vector ue
// (length 6) and derives the plane-strain von Mises stress.
func (e *CST) Stress(D mat.Symmetric, nu float64, ue []float64) Stress {
	eps := e.Strain(ue)
	var sig [NumStrain]float64
	for i := 0; i < NumStrain; i++ {
		for j := 0; j < NumStrain; j++ {
			sig[i] += D.At(i, j) * eps[j]
		}
	}
	s := Stress{Sx: sig[0], Sy: sig[1], Txy: sig[2], Valid: true}
	s.Sz = nu * (s.Sx + s.Sy)
	s.VonMises = VonMises(s.Sx, s.Sy, s.Sz, s.Txy)
	return s
}

// VonMises returns sqrt(((sx-sy)^2 + (sy-sz)^2 + (sz-sx)^2)/2 + 3 txy^2).
func VonMises(sx, sy, sz, txy float64) float64 {
	a, b, c := sx-sy, sy-sz, sz-sx
	return math.Sqrt((a*a+b*b+c*c)/2 + 3*txy*txy)
}
