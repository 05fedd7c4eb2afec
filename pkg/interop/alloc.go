// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/pkg/errors"
)

// The allocators return new uninitialized host arrays, owned by the host, for the engine to write its results in.
// They go through the runtime of the call, which holds its allocation lock only for the allocation itself.
// Allocation errors (e.g. host.ErrOutOfMemory) are returned as is.

// AllocateVector allocates a 1D array of n elements of type T.
func AllocateVector[T hosttypes.Element](call *host.Call, n int) (*host.Array, error) {
	return call.Runtime().Allocate(hosttypes.TagOf[T](), []int{n}, shapes.RowMajor)
}

// AllocateMatrix allocates a column-major (rows, cols) array of type T.
func AllocateMatrix[T hosttypes.Element](call *host.Call, rows, cols int) (*host.Array, error) {
	return call.Runtime().Allocate(hosttypes.TagOf[T](), []int{rows, cols}, shapes.ColumnMajor)
}

// AllocateTensor allocates a column-major (classes, rows, cols) array of type T.
func AllocateTensor[T hosttypes.Element](call *host.Call, classes, rows, cols int) (*host.Array, error) {
	return call.Runtime().Allocate(hosttypes.TagOf[T](), []int{classes, rows, cols}, shapes.ColumnMajor)
}

// AllocateResult allocates an array of the given element dtype in the layout the views expect:
// 1D arrays are contiguous, 2D and 3D arrays column-major.
func AllocateResult(call *host.Call, dtype dtypes.DType, dims ...int) (*host.Array, error) {
	if !hosttypes.IsElement(dtype) {
		return nil, errors.Errorf("AllocateResult: dtype %s is not an element type", dtype)
	}
	switch len(dims) {
	case 1:
		return call.Runtime().Allocate(dtype, dims, shapes.RowMajor)
	case 2, 3:
		return call.Runtime().Allocate(dtype, dims, shapes.ColumnMajor)
	default:
		return nil, errors.Errorf("AllocateResult: rank %d not supported, expected 1, 2 or 3", len(dims))
	}
}

// AllocateLabelMap allocates a row-major label map of type T with shape (m, n, V), for size (m, n, V).
// If size is (m, n), V is 1.
func AllocateLabelMap[T hosttypes.Element](call *host.Call, size []int) (*host.Array, error) {
	var dims []int
	switch len(size) {
	case 2:
		dims = []int{size[0], size[1], 1}
	case 3:
		dims = []int{size[0], size[1], size[2]}
	default:
		return nil, errors.Errorf("AllocateLabelMap(%v): size must have 2 or 3 elements", size)
	}
	return call.Runtime().Allocate(hosttypes.TagOf[T](), dims, shapes.RowMajor)
}
