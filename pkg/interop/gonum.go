// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GonumVector returns a gonum vector sharing the buffer of the view.
// gonum doesn't support empty vectors, so it fails for those.
func GonumVector(v VectorView[float64]) (*mat.VecDense, error) {
	data := v.Data()
	if len(data) == 0 {
		return nil, errors.New("GonumVector: empty vectors are not supported by gonum")
	}
	return mat.NewVecDense(len(data), data), nil
}

// GonumMatrix returns a gonum matrix sharing the buffer of the view.
//
// gonum matrices are row-major, so it returns the transpose of the (cols, rows) row-major
// matrix over the column-major buffer.
func GonumMatrix(m MatrixView[float64]) (mat.Matrix, error) {
	data := m.Data()
	if m.Rows() == 0 || m.Cols() == 0 {
		return nil, errors.Errorf("GonumMatrix: empty matrix (%d, %d) is not supported by gonum", m.Rows(), m.Cols())
	}
	return mat.NewDense(m.Cols(), m.Rows(), data).T(), nil
}

// DensifySparse copies the sparse matrix into a new gonum dense matrix.
// It's meant for diagnostics and tests: it uses rows*cols memory.
func DensifySparse[I hosttypes.Index](s SparseView[float64, I]) (*mat.Dense, error) {
	if s.Rows() == 0 || s.Cols() == 0 {
		return nil, errors.Errorf("DensifySparse: empty matrix (%d, %d) is not supported by gonum", s.Rows(), s.Cols())
	}
	dense := mat.NewDense(s.Rows(), s.Cols(), nil)
	for col := range s.Cols() {
		rowIndices, values := s.Column(col)
		for k, row := range rowIndices {
			if row < 0 || int(row) >= s.Rows() {
				return nil, errors.Errorf("DensifySparse: row index %d out of bounds for %d rows", row, s.Rows())
			}
			dense.Set(int(row), col, dense.At(int(row), col)+values[k])
		}
	}
	return dense, nil
}
