// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/pkg/errors"
)

// VectorView is a non-owning view over a 1D host array.
// It's only valid during the host.Call that created it.
type VectorView[T hosttypes.Element] struct {
	data []T
	call *host.Call
}

// MatrixView is a non-owning view over a 2D column-major host array.
// It's only valid during the host.Call that created it.
type MatrixView[T hosttypes.Element] struct {
	data       []T
	rows, cols int
	call       *host.Call
}

// TensorView is a non-owning view over a 3D column-major host array, with axes (classes, rows, cols).
// It's only valid during the host.Call that created it.
type TensorView[T hosttypes.Element] struct {
	data                []T
	classes, rows, cols int
	call                *host.Call
}

func checkViewAlive(call *host.Call) {
	if call == nil {
		exceptions.Panicf("interop: using an uninitialized view")
	}
	call.CheckAlive()
}

// nullError is the error for a null array handle.
func nullError(name string) error {
	return newConversionError(name, Null, name+": the array to convert is NULL", "")
}

// borrowFlat borrows the validated array for the call and returns its flat data.
func borrowFlat[T hosttypes.Element](call *host.Call, a *host.Array, name, msg string) ([]T, error) {
	data, err := host.FlatData[T](a)
	if err != nil {
		return nil, newConversionError(name, Contiguity, msg, err.Error())
	}
	if err := call.Borrow(a); err != nil {
		return nil, errors.WithMessagef(err, "converting %q", name)
	}
	return data, nil
}

// ToVector converts a host array to a vector view.
//
// The array must be 1D, of dtype T, aligned, contiguous and in the native byte order.
// The array is borrowed by call, and the view aliases its buffer.
func ToVector[T hosttypes.Element](call *host.Call, a *host.Array, name string) (VectorView[T], error) {
	if a == nil {
		return VectorView[T]{}, nullError(name)
	}
	msg := fmt.Sprintf("%s should be aligned 1D %s array", name, hosttypes.DisplayNameOf[T]())
	if v := firstViolation(
		func() *Violation { return CheckNotNull(a) },
		func() *Violation { return CheckRank(a, 1) },
		func() *Violation { return CheckType(a, hosttypes.TagOf[T]()) },
		func() *Violation { return CheckAligned(a) },
		func() *Violation { return CheckContiguous(a) },
		func() *Violation { return CheckNativeByteOrder(a) },
	); v != nil {
		return VectorView[T]{}, fromViolation(name, msg, v)
	}
	data, err := borrowFlat[T](call, a, name, msg)
	if err != nil {
		return VectorView[T]{}, err
	}
	return VectorView[T]{data: data, call: call}, nil
}

// checkDenseFortran validates arrays for ToMatrix and ToTensor.
func checkDenseFortran[T hosttypes.Element](a *host.Array, rank int, name string) (msg string, err error) {
	msg = fmt.Sprintf("%s matrices should be f-contiguous %dD %s array", name, rank, hosttypes.DisplayNameOf[T]())
	if v := firstViolation(
		func() *Violation { return CheckNotNull(a) },
		func() *Violation { return CheckRank(a, rank) },
		func() *Violation { return CheckType(a, hosttypes.TagOf[T]()) },
		func() *Violation { return CheckColumnMajor(a) },
		func() *Violation { return CheckNativeByteOrder(a) },
	); v != nil {
		return msg, fromViolation(name, msg, v)
	}
	return msg, nil
}

// ToMatrix converts a host array to a matrix view.
//
// The array must be 2D, of dtype T, column-major contiguous and in the native byte order.
// The array is borrowed by call, and the view aliases its buffer.
func ToMatrix[T hosttypes.Element](call *host.Call, a *host.Array, name string) (MatrixView[T], error) {
	if a == nil {
		return MatrixView[T]{}, nullError(name)
	}
	msg, err := checkDenseFortran[T](a, 2, name)
	if err != nil {
		return MatrixView[T]{}, err
	}
	data, err := borrowFlat[T](call, a, name, msg)
	if err != nil {
		return MatrixView[T]{}, err
	}
	return MatrixView[T]{data: data, rows: a.Dim(0), cols: a.Dim(1), call: call}, nil
}

// ToTensor converts a host array to a 3D tensor view, with axes (classes, rows, cols).
//
// The array must be 3D, of dtype T, column-major contiguous and in the native byte order.
// The array is borrowed by call, and the view aliases its buffer.
func ToTensor[T hosttypes.Element](call *host.Call, a *host.Array, name string) (TensorView[T], error) {
	if a == nil {
		return TensorView[T]{}, nullError(name)
	}
	msg, err := checkDenseFortran[T](a, 3, name)
	if err != nil {
		return TensorView[T]{}, err
	}
	data, err := borrowFlat[T](call, a, name, msg)
	if err != nil {
		return TensorView[T]{}, err
	}
	return TensorView[T]{data: data, classes: a.Dim(0), rows: a.Dim(1), cols: a.Dim(2), call: call}, nil
}

// Len returns the number of elements.
func (v VectorView[T]) Len() int { return len(v.data) }

// Data returns the elements, aliasing the host buffer. It panics if the call has exited.
func (v VectorView[T]) Data() []T {
	checkViewAlive(v.call)
	return v.data
}

// At returns the i-th element.
func (v VectorView[T]) At(i int) T { return v.Data()[i] }

// Set the i-th element.
func (v VectorView[T]) Set(i int, value T) { v.Data()[i] = value }

// Rows returns the number of rows.
func (m MatrixView[T]) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m MatrixView[T]) Cols() int { return m.cols }

// Shape returns (rows, cols).
func (m MatrixView[T]) Shape() (rows, cols int) { return m.rows, m.cols }

// Data returns the elements in column-major order, aliasing the host buffer. It panics if the call has exited.
func (m MatrixView[T]) Data() []T {
	checkViewAlive(m.call)
	return m.data
}

// At returns the element at row i, column j.
func (m MatrixView[T]) At(i, j int) T { return m.Data()[m.index(i, j)] }

// Set the element at row i, column j.
func (m MatrixView[T]) Set(i, j int, value T) { m.Data()[m.index(i, j)] = value }

// Col returns column j, aliasing the host buffer.
func (m MatrixView[T]) Col(j int) []T {
	if j < 0 || j >= m.cols {
		exceptions.Panicf("MatrixView.Col(%d): out of bounds for %d columns", j, m.cols)
	}
	return m.Data()[j*m.rows : (j+1)*m.rows]
}

func (m MatrixView[T]) index(i, j int) int {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		exceptions.Panicf("MatrixView.At(%d, %d): out of bounds for shape (%d, %d)", i, j, m.rows, m.cols)
	}
	return j*m.rows + i
}

// Classes returns the dimension of the first axis.
func (t TensorView[T]) Classes() int { return t.classes }

// Rows returns the dimension of the second axis.
func (t TensorView[T]) Rows() int { return t.rows }

// Cols returns the dimension of the third axis.
func (t TensorView[T]) Cols() int { return t.cols }

// Shape returns (classes, rows, cols).
func (t TensorView[T]) Shape() (classes, rows, cols int) { return t.classes, t.rows, t.cols }

// Data returns the elements in column-major order, aliasing the host buffer. It panics if the call has exited.
func (t TensorView[T]) Data() []T {
	checkViewAlive(t.call)
	return t.data
}

// At returns the element at (c, i, j).
func (t TensorView[T]) At(c, i, j int) T { return t.Data()[t.index(c, i, j)] }

// Set the element at (c, i, j).
func (t TensorView[T]) Set(c, i, j int, value T) { t.Data()[t.index(c, i, j)] = value }

func (t TensorView[T]) index(c, i, j int) int {
	if c < 0 || c >= t.classes || i < 0 || i >= t.rows || j < 0 || j >= t.cols {
		exceptions.Panicf("TensorView.At(%d, %d, %d): out of bounds for shape (%d, %d, %d)",
			c, i, j, t.classes, t.rows, t.cols)
	}
	return c + t.classes*(i+t.rows*j)
}
