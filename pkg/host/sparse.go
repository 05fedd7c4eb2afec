// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package host

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/pkg/errors"
)

// SparseMatrix is the host's compressed sparse column (CSC) matrix object, modeled after scipy.sparse.csc_matrix.
//
// It exposes the attributes "data", "indices", "indptr", "shape", "nnz" and "format".
// The host doesn't validate the component arrays: that is the job of the interop layer.
type SparseMatrix struct {
	data, indices, indptr *Array
	rows, cols            int
}

// NewCSC creates a host sparse matrix in compressed sparse column format.
//
// data holds the non-zero values, indices their row indices, and column c occupies
// data[indptr[c]:indptr[c+1]].
func NewCSC(data, indices, indptr *Array, rows, cols int) (*SparseMatrix, error) {
	if data == nil || indices == nil || indptr == nil {
		return nil, errors.New("host.NewCSC: data, indices and indptr arrays must be given")
	}
	if rows < 0 || cols < 0 {
		return nil, errors.Errorf("host.NewCSC: invalid shape (%d, %d)", rows, cols)
	}
	return &SparseMatrix{data: data, indices: indices, indptr: indptr, rows: rows, cols: cols}, nil
}

// CSCFromFlat creates a host sparse matrix from Go slices, aliasing them.
func CSCFromFlat[T, I dtypes.Supported](data []T, indices, indptr []I, rows, cols int) (*SparseMatrix, error) {
	dataArr, err := FromFlat(data, shapes.RowMajor, len(data))
	if err != nil {
		return nil, errors.WithMessage(err, "host.CSCFromFlat data")
	}
	indicesArr, err := FromFlat(indices, shapes.RowMajor, len(indices))
	if err != nil {
		return nil, errors.WithMessage(err, "host.CSCFromFlat indices")
	}
	indptrArr, err := FromFlat(indptr, shapes.RowMajor, len(indptr))
	if err != nil {
		return nil, errors.WithMessage(err, "host.CSCFromFlat indptr")
	}
	return NewCSC(dataArr, indicesArr, indptrArr, rows, cols)
}

// Data returns the array of non-zero values.
func (m *SparseMatrix) Data() *Array { return m.data }

// Indices returns the array of row indices of the non-zero values.
func (m *SparseMatrix) Indices() *Array { return m.indices }

// IndPtr returns the array of column pointers.
func (m *SparseMatrix) IndPtr() *Array { return m.indptr }

// Rows returns the number of rows.
func (m *SparseMatrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *SparseMatrix) Cols() int { return m.cols }

// HasAttr implements AttrGetter.
func (m *SparseMatrix) HasAttr(name string) bool {
	if m == nil {
		return false
	}
	switch name {
	case "data", "indices", "indptr", "shape", "nnz", "format":
		return true
	}
	return false
}

// GetAttr implements AttrGetter.
func (m *SparseMatrix) GetAttr(name string) (Object, bool) {
	if m == nil {
		return nil, false
	}
	switch name {
	case "data":
		return m.data, true
	case "indices":
		return m.indices, true
	case "indptr":
		return m.indptr, true
	case "shape":
		return IntTuple(m.rows, m.cols), true
	case "nnz":
		return m.data.Size(), true
	case "format":
		return "csc", true
	}
	return nil, false
}

// String implements fmt.Stringer.
func (m *SparseMatrix) String() string {
	if m == nil {
		return "SparseMatrix(NULL)"
	}
	return fmt.Sprintf("SparseMatrix(csc, shape=(%d, %d), nnz=%d, dtype=%s, index=%s)",
		m.rows, m.cols, m.data.Size(), m.data.DType(), m.indptr.DType())
}
