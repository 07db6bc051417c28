package match

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMatrix is matched by every *InvalidMatrixError via errors.Is.
var ErrInvalidMatrix = errors.New("invalid scoring matrix")

// InvalidMatrixError describes why a scoring matrix was rejected.
type InvalidMatrixError struct {
	Rows   int
	Reason string
}

func (e *InvalidMatrixError) Error() string {
	return fmt.Sprintf("invalid scoring matrix (%d rows): %s", e.Rows, e.Reason)
}

func (e *InvalidMatrixError) Is(target error) bool {
	return target == ErrInvalidMatrix
}

// Matrix is an N×N scoring table. Matrix[i][j] holds the points awarded when
// the entity answered level i and the user answered level j (both 0-based).
type Matrix [][]float64

// Size returns N, the number of decision levels the matrix covers.
func (m Matrix) Size() int {
	return len(m)
}

// Validate checks that m is square, at least 2×2 and holds only finite values.
func (m Matrix) Validate() error {
	n := len(m)
	if n < 2 {
		return &InvalidMatrixError{Rows: n, Reason: "need at least 2 decision levels"}
	}
	for i, row := range m {
		if len(row) != n {
			return &InvalidMatrixError{Rows: n, Reason: fmt.Sprintf("row %d has %d columns, want %d", i, len(row), n)}
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &InvalidMatrixError{Rows: n, Reason: fmt.Sprintf("cell [%d][%d] is not finite", i, j)}
			}
		}
	}
	return nil
}

// Bounds returns the smallest and largest cell values. It assumes m is valid.
func (m Matrix) Bounds() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range m {
		for _, v := range row {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// DefaultMatrix returns a linear agreement matrix for n decision levels:
// 100 points on the diagonal, falling evenly to 0 at opposite ends.
func DefaultMatrix(n int) Matrix {
	if n < 2 {
		return nil
	}
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			d := i - j
			if d < 0 {
				d = -d
			}
			m[i][j] = 100 - float64(d)*100/float64(n-1)
		}
	}
	return m
}
