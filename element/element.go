// Package element implements the three-node constant strain triangle (CST)
// in plane strain: its strain-displacement operator B, its stiffness
// Bt*D*B*area and the stress it carries for a given nodal displacement.
package element

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/slopefem/geom"
)

// DegenerateTolerance is the |area2| below which a triangle has no usable
// strain-displacement operator.
const DegenerateTolerance = 1e-12

const (
	NumNodes  = 3
	NumDOF    = 6 // two displacement components per node
	NumStrain = 3
)

// Area2 returns twice the signed area of triangle p1 p2 p3, positive for
// counter-clockwise vertex order.
func Area2(p1, p2, p3 geom.Point) float64 {
	return (p2.X-p1.X)*(p3.Y-p1.Y) - (p3.X-p1.X)*(p2.Y-p1.Y)
}

// SignedArea evaluates half the determinant of the homogeneous coordinate
// matrix
//
//	| 1 x1 y1 |
//	| 1 x2 y2 |
//	| 1 x3 y3 |
func SignedArea(p1, p2, p3 geom.Point) float64 {
	h := mat.NewDense(3, 3, []float64{
		1, p1.X, p1.Y,
		1, p2.X, p2.Y,
		1, p3.X, p3.Y,
	})
	return 0.5 * mat.Det(h)
}

// IsDegenerate reports whether the triangle is too thin for a CST operator.
func IsDegenerate(p1, p2, p3 geom.Point) bool {
	return math.Abs(Area2(p1, p2, p3)) < DegenerateTolerance
}

// DOFs returns the global degrees of freedom of a triangle: node n owns
// 2n (x) and 2n+1 (y).
func DOFs(nodes [3]int) [NumDOF]int {
	return [NumDOF]int{
		2 * nodes[0], 2*nodes[0] + 1,
		2 * nodes[1], 2*nodes[1] + 1,
		2 * nodes[2], 2*nodes[2] + 1,
	}
}

// CST is the geometric operator of one triangle.
type CST struct {
	Area2 float64
	// B maps the element displacement vector (u1 v1 u2 v2 u3 v3) to the
	// engineering strain (ex, ey, gxy). Dimension [3 x 6].
	B *mat.Dense
}

// NewCST builds the operator for p1 p2 p3. It returns false for a degenerate
// triangle. A clockwise triangle yields a valid operator with negative Area2;
// callers normalize winding before assembling.
func NewCST(p1, p2, p3 geom.Point) (*CST, bool) {
	area2 := Area2(p1, p2, p3)
	if math.Abs(area2) < DegenerateTolerance {
		return nil, false
	}
	b1, b2, b3 := p2.Y-p3.Y, p3.Y-p1.Y, p1.Y-p2.Y
	c1, c2, c3 := p3.X-p2.X, p1.X-p3.X, p2.X-p1.X
	B := mat.NewDense(NumStrain, NumDOF, []float64{
		b1, 0, b2, 0, b3, 0,
		0, c1, 0, c2, 0, c3,
		c1, b1, c2, b2, c3, b3,
	})
	B.Scale(1/area2, B)
	return &CST{Area2: area2, B: B}, true
}

// Area is the unsigned element area.
func (e *CST) Area() float64 { return math.Abs(e.Area2) / 2 }

// Stiffness returns ke = Bt * D * B * area for unit thickness. Only the upper
// triangle is computed and mirrored, so ke is exactly symmetric.
func (e *CST) Stiffness(D mat.Symmetric) *mat.SymDense {
	var db mat.Dense
	db.Mul(D, e.B)
	area := e.Area()
	ke := mat.NewSymDense(NumDOF, nil)
	for i := 0; i < NumDOF; i++ {
		for j := i; j < NumDOF; j++ {
			var s float64
			for k := 0; k < NumStrain; k++ {
				s += e.B.At(k, i) * db.At(k, j)
			}
			ke.SetSym(i, j, s*area)
		}
	}
	return ke
}

// Strain returns B * ue.
func (e *CST) Strain(ue []float64) [NumStrain]float64 {
	var eps [NumStrain]float64
	for k := 0; k < NumStrain; k++ {
		for j := 0; j < NumDOF; j++ {
			eps[k] += e.B.At(k, j) * ue[j]
		}
	}
	return eps
}
