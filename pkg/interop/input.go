// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/pkg/errors"
)

// InputKind tells whether an Input holds a dense or a sparse matrix.
type InputKind int

const (
	DenseInput InputKind = iota
	SparseInput
)

// String implements fmt.Stringer.
func (k InputKind) String() string {
	if k == SparseInput {
		return "sparse"
	}
	return "dense"
}

// Input is a matrix argument that may be dense or sparse: exactly one of Dense or Sparse is set,
// as given by Kind.
type Input[T hosttypes.Element, I hosttypes.Index] struct {
	kind   InputKind
	dense  MatrixView[T]
	sparse SparseView[T, I]
}

// ToInput converts a host object to an Input, resolving once whether it's sparse (see IsSparseMatrix)
// and then converting it with ToSparse or ToMatrix.
func ToInput[T hosttypes.Element, I hosttypes.Index](call *host.Call, obj host.Object, name string) (Input[T, I], error) {
	if IsSparseMatrix(obj) {
		sparse, err := ToSparse[T, I](call, obj, name)
		if err != nil {
			return Input[T, I]{}, err
		}
		return Input[T, I]{kind: SparseInput, sparse: sparse}, nil
	}
	if isNullObject(obj) {
		return Input[T, I]{}, nullError(name)
	}
	arr, ok := obj.(*host.Array)
	if !ok {
		return Input[T, I]{}, errors.WithStack(&ConversionError{
			Arg: name, Constraint: Type, Msg: name + ": expected an array or a sparse matrix"})
	}
	dense, err := ToMatrix[T](call, arr, name)
	if err != nil {
		return Input[T, I]{}, err
	}
	return Input[T, I]{kind: DenseInput, dense: dense}, nil
}

// Kind returns whether the input is dense or sparse.
func (in Input[T, I]) Kind() InputKind { return in.kind }

// IsSparse is a shortcut to Kind() == SparseInput.
func (in Input[T, I]) IsSparse() bool { return in.kind == SparseInput }

// Dense returns the dense matrix. It panics if the input is sparse.
func (in Input[T, I]) Dense() MatrixView[T] {
	if in.kind != DenseInput {
		exceptions.Panicf("Input.Dense() called on a %s input", in.kind)
	}
	return in.dense
}

// Sparse returns the sparse matrix. It panics if the input is dense.
func (in Input[T, I]) Sparse() SparseView[T, I] {
	if in.kind != SparseInput {
		exceptions.Panicf("Input.Sparse() called on a %s input", in.kind)
	}
	return in.sparse
}

// Rows returns the number of rows of the matrix.
func (in Input[T, I]) Rows() int {
	if in.kind == SparseInput {
		return in.sparse.Rows()
	}
	return in.dense.Rows()
}

// Cols returns the number of columns of the matrix.
func (in Input[T, I]) Cols() int {
	if in.kind == SparseInput {
		return in.sparse.Cols()
	}
	return in.dense.Cols()
}
