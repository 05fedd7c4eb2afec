// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"fmt"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/host"
)

// SparseMarker is the attribute whose presence identifies a host object as a sparse matrix.
const SparseMarker = "indptr"

// IsSparseMatrix returns whether obj is a sparse matrix: that is, whether it exposes the "indptr" attribute.
// No other property of obj is checked.
func IsSparseMatrix(obj host.Object) bool {
	return host.HasAttr(obj, SparseMarker)
}

// SparseView is a non-owning view over a host sparse matrix in compressed sparse column (CSC) format.
// Values are of type T, and row indices and column pointers of type I.
//
// Column c holds the values Values()[ColStart()[c]:ColEnd()[c]], with row indices
// RowIndices()[ColStart()[c]:ColEnd()[c]].
//
// It's only valid during the host.Call that created it.
type SparseView[T hosttypes.Element, I hosttypes.Index] struct {
	values     []T
	rowIndices []I
	indptr     []I
	rows, cols int
	call       *host.Call
}

// isNullObject returns whether obj is nil or a nil pointer, map or interface.
func isNullObject(obj host.Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// sparseComponent fetches and validates one of the arrays of a sparse matrix.
func sparseComponent(obj host.Object, name, attr string, dtype dtypes.DType, msg string) (*host.Array, error) {
	value, found := host.GetAttr(obj, attr)
	if !found {
		return nil, newConversionError(name, MissingAttribute,
			fmt.Sprintf("%s: sparse matrix is missing the attribute %q", name, attr), "")
	}
	arr, ok := value.(*host.Array)
	if !ok {
		return nil, newConversionError(name, Type, msg, fmt.Sprintf("attribute %q is a %T, not an array", attr, value))
	}
	if v := firstViolation(
		func() *Violation { return CheckArray(arr, dtype) },
		func() *Violation { return CheckRank(arr, 1) },
	); v != nil {
		return nil, fromViolation(name, msg, v)
	}
	return arr, nil
}

// sparseShape extracts (rows, cols) from the "shape" attribute of a sparse matrix.
func sparseShape(obj host.Object, name string) (rows, cols int, err error) {
	msg := name + ": shape should be a tuple"
	value, found := host.GetAttr(obj, "shape")
	if !found {
		return 0, 0, newConversionError(name, MissingAttribute,
			fmt.Sprintf("%s: sparse matrix is missing the attribute %q", name, "shape"), "")
	}
	tuple, ok := value.(host.Tuple)
	if !ok {
		return 0, 0, newConversionError(name, ShapeTuple, msg, fmt.Sprintf("got %T", value))
	}
	if tuple.Len() != 2 {
		return 0, 0, newConversionError(name, ShapeTuple, msg, fmt.Sprintf("got %d elements, expected 2", tuple.Len()))
	}
	rows, okRows := tuple.Int(0)
	cols, okCols := tuple.Int(1)
	if !okRows || !okCols || rows < 0 || cols < 0 {
		return 0, 0, newConversionError(name, ShapeTuple, msg, fmt.Sprintf("got %v, expected 2 non-negative integers", tuple))
	}
	return rows, cols, nil
}

// ToSparse converts a host sparse matrix (any object exposing "data", "indices", "indptr" and "shape")
// to a SparseView.
//
// "indptr" and "indices" must be 1D arrays of dtype I, and "data" a 1D array of dtype T. All of them
// must be contiguous and in the native byte order. "shape" must be a 2-tuple (rows, cols).
// rows and cols must be representable by I. "indptr" must have at least cols+1 entries, start at a
// non-negative offset and never decrease, and indptr[cols] can't exceed the number of values or row indices.
//
// The three arrays are borrowed by call, and the view aliases their buffers.
func ToSparse[T hosttypes.Element, I hosttypes.Index](call *host.Call, obj host.Object, name string) (SparseView[T, I], error) {
	var view SparseView[T, I]
	if isNullObject(obj) {
		return view, nullError(name)
	}
	indexDType := hosttypes.TagOf[I]()
	indptrArr, err := sparseComponent(obj, name, "indptr", indexDType, name+": indptr array should be 1d int's")
	if err != nil {
		return view, err
	}
	indicesArr, err := sparseComponent(obj, name, "indices", indexDType, name+": indices array should be 1d int's")
	if err != nil {
		return view, err
	}
	dataMsg := name + ": data array should be 1d and match datatype"
	dataArr, err := sparseComponent(obj, name, "data", hosttypes.TagOf[T](), dataMsg)
	if err != nil {
		return view, err
	}
	rows, cols, err := sparseShape(obj, name)
	if err != nil {
		return view, err
	}

	indptr, err := host.FlatData[I](indptrArr)
	if err != nil {
		return view, newConversionError(name, Contiguity, name+": indptr array should be 1d int's", err.Error())
	}
	indices, err := host.FlatData[I](indicesArr)
	if err != nil {
		return view, newConversionError(name, Contiguity, name+": indices array should be 1d int's", err.Error())
	}
	values, err := host.FlatData[T](dataArr)
	if err != nil {
		return view, newConversionError(name, Contiguity, dataMsg, err.Error())
	}
	if int(I(rows)) != rows || int(I(cols)) != cols {
		return view, newConversionError(name, Bounds,
			fmt.Sprintf("%s: shape should fit in the %s indices", name, indexDType),
			fmt.Sprintf("got shape (%d, %d)", rows, cols))
	}
	if cause := checkColumnPointers(indptr, cols, min(len(values), len(indices))); cause != "" {
		return view, newConversionError(name, Bounds,
			fmt.Sprintf("%s: indptr array should have one entry per column plus one, increasing and within the values bounds", name),
			cause)
	}

	if err := call.Borrow(indptrArr, indicesArr, dataArr); err != nil {
		return view, err
	}
	view = SparseView[T, I]{
		values:     values,
		rowIndices: indices,
		indptr:     indptr,
		rows:       rows,
		cols:       cols,
		call:       call,
	}
	return view, nil
}

// checkColumnPointers returns why indptr can't delimit cols columns over nnz entries, or "" if it can.
func checkColumnPointers[I hosttypes.Index](indptr []I, cols, nnz int) string {
	if len(indptr) <= cols {
		return fmt.Sprintf("indptr has %d entries for %d columns", len(indptr), cols)
	}
	if indptr[0] < 0 {
		return fmt.Sprintf("indptr[0]=%d is negative", indptr[0])
	}
	for c := range cols {
		if indptr[c] > indptr[c+1] {
			return fmt.Sprintf("indptr[%d]=%d is greater than indptr[%d]=%d", c, indptr[c], c+1, indptr[c+1])
		}
	}
	if last := int64(indptr[cols]); last > int64(nnz) {
		return fmt.Sprintf("indptr[%d]=%d, with only %d values and row indices", cols, last, nnz)
	}
	return ""
}

// InferTypes returns the value and index dtypes of obj, so callers can pick the instantiation
// of the conversion to use.
//
// For sparse matrices they are the dtypes of the "data" and "indptr" arrays. For dense arrays the value
// dtype is the array's, and the index dtype is the engine's native index, hosttypes.NativeIndex.
func InferTypes(obj host.Object) (value, index dtypes.DType, err error) {
	const name = "input"
	if isNullObject(obj) {
		return dtypes.InvalidDType, dtypes.InvalidDType, nullError(name)
	}
	if IsSparseMatrix(obj) {
		attrDType := func(attr string) (dtypes.DType, error) {
			v, found := host.GetAttr(obj, attr)
			if !found {
				return dtypes.InvalidDType, newConversionError(name, MissingAttribute,
					fmt.Sprintf("%s: sparse matrix is missing the attribute %q", name, attr), "")
			}
			arr, ok := v.(*host.Array)
			if !ok || arr == nil {
				return dtypes.InvalidDType, newConversionError(name, Type,
					fmt.Sprintf("%s: attribute %q should be an array", name, attr), fmt.Sprintf("got %T", v))
			}
			return arr.DType(), nil
		}
		if value, err = attrDType("data"); err != nil {
			return
		}
		index, err = attrDType("indptr")
		return
	}
	arr, ok := obj.(*host.Array)
	if !ok {
		return dtypes.InvalidDType, dtypes.InvalidDType, newConversionError(name, Type,
			name+": expected an array or a sparse matrix", fmt.Sprintf("got %T", obj))
	}
	return arr.DType(), hosttypes.NativeIndex, nil
}

// Rows returns the number of rows.
func (s SparseView[T, I]) Rows() int { return s.rows }

// Cols returns the number of columns.
func (s SparseView[T, I]) Cols() int { return s.cols }

// MaxNonZeros returns the number of values of the underlying data array.
func (s SparseView[T, I]) MaxNonZeros() int { return len(s.values) }

// Values returns the non-zero values, aliasing the host buffer. It panics if the call has exited.
func (s SparseView[T, I]) Values() []T {
	checkViewAlive(s.call)
	return s.values
}

// RowIndices returns the row index of each value, aliasing the host buffer.
func (s SparseView[T, I]) RowIndices() []I {
	checkViewAlive(s.call)
	return s.rowIndices
}

// ColStart returns, for each column, the position of its first value. It aliases the host indptr buffer.
func (s SparseView[T, I]) ColStart() []I {
	checkViewAlive(s.call)
	return s.indptr[:s.cols]
}

// ColEnd returns, for each column, the position after its last value. It aliases the host indptr
// buffer, offset by one element from ColStart.
func (s SparseView[T, I]) ColEnd() []I {
	checkViewAlive(s.call)
	return s.indptr[1 : s.cols+1]
}

// Column returns the row indices and values of column c, aliasing the host buffers.
func (s SparseView[T, I]) Column(c int) ([]I, []T) {
	if c < 0 || c >= s.cols {
		exceptions.Panicf("SparseView.Column(%d): out of bounds for %d columns", c, s.cols)
	}
	start, end := s.ColStart()[c], s.ColEnd()[c]
	return s.rowIndices[start:end], s.values[start:end]
}

// At returns the value at row i, column j, or zero if it's not stored.
// Duplicate entries are summed.
func (s SparseView[T, I]) At(i, j int) T {
	if i < 0 || i >= s.rows {
		exceptions.Panicf("SparseView.At(%d, %d): out of bounds for shape (%d, %d)", i, j, s.rows, s.cols)
	}
	var sum T
	rowIndices, values := s.Column(j)
	for k, row := range rowIndices {
		if int(row) == i {
			sum += values[k]
		}
	}
	return sum
}
