package accel

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// KernelName is the entry point of the generated program.
const KernelName = "cstStiffness"

const kernelBody = `
@kernel void cstStiffness(const int *K,
                          const double *XY,
                          const int *MAT,
                          double *KE) {
	for (int k = 0; k < KMAX; ++k; @outer) {
		for (int r = 0; r < NDOF; ++r; @inner) {
			if (k < K[0]) {
				const double *p = XY + 6*k;
				const double x1 = p[0], y1 = p[1];
				const double x2 = p[2], y2 = p[3];
				const double x3 = p[4], y3 = p[5];
				const double a2 = (x2 - x1)*(y3 - y1) - (x3 - x1)*(y2 - y1);
				const double b[3] = {y2 - y3, y3 - y1, y1 - y2};
				const double c[3] = {x3 - x2, x1 - x3, x2 - x1};

				double B[3][NDOF];
				for (int i = 0; i < 3; ++i) {
					for (int j = 0; j < NDOF; ++j) {
						B[i][j] = 0.0;
					}
				}
				for (int n = 0; n < 3; ++n) {
					B[0][2*n]   = b[n]/a2;
					B[1][2*n+1] = c[n]/a2;
					B[2][2*n]   = c[n]/a2;
					B[2][2*n+1] = b[n]/a2;
				}

				const double area = 0.5*fabs(a2);
				const int m = MAT[k];
				for (int col = 0; col < NDOF; ++col) {
					double v = 0.0;
					for (int i = 0; i < 3; ++i) {
						double db = 0.0;
						for (int j = 0; j < 3; ++j) {
							db += D[m][i][j]*B[j][col];
						}
						v += B[i][r]*db;
					}
					KE[NDOF*NDOF*k + NDOF*r + col] = area*v;
				}
			}
		}
	}
}
`

// Source returns the OKL program computing element stiffness for batches of
// up to batch elements. The constitutive matrices are embedded as a static
// table indexed by material slot.
func Source(Ds []*mat.SymDense, batch int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("#define KMAX %d\n", batch))
	sb.WriteString("#define NDOF 6\n")
	sb.WriteString(fmt.Sprintf("#define NMAT %d\n\n", len(Ds)))
	ms := make([]mat.Matrix, len(Ds))
	for i, D := range Ds {
		ms[i] = D
	}
	sb.WriteString(formatStaticMatrices("D", ms))
	sb.WriteString(kernelBody)
	return sb.String()
}

// formatStaticMatrices formats equally sized matrices as one static C array
// indexed [matrix][row][col].
func formatStaticMatrices(name string, ms []mat.Matrix) string {
	rows, cols := ms[0].Dims()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("const double %s[%d][%d][%d] = {\n", name, len(ms), rows, cols))
	for k, m := range ms {
		sb.WriteString("  {\n")
		for i := 0; i < rows; i++ {
			sb.WriteString("    {")
			for j := 0; j < cols; j++ {
				if j > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(fmt.Sprintf("%.17e", m.At(i, j)))
			}
			sb.WriteString("}")
			if i < rows-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("  }")
		if k < len(ms)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("};\n")
	return sb.String()
}
