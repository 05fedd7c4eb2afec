// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"iter"
	"math"

	"github.com/gomlx/exceptions"
)

// Order of the elements of a multidimensional array in memory.
type Order uint8

const (
	// RowMajor is the "C" order: the last axis varies fastest. It's the default order of host arrays.
	RowMajor Order = iota

	// ColumnMajor is the "Fortran" order: the first axis varies fastest. It's the order the numeric
	// engine expects for matrices and 3D arrays.
	ColumnMajor
)

// String implements fmt.Stringer.
func (o Order) String() string {
	switch o {
	case RowMajor:
		return "C"
	case ColumnMajor:
		return "F"
	default:
		return "InvalidOrder"
	}
}

// Strides returns the strides in bytes of each axis for a contiguous layout in the given order.
// Axes with dimension 0 still get a stride: the layout of an empty array is well-defined even
// though no element is ever addressed.
func (s Shape) Strides(order Order) []int {
	rank := s.Rank()
	strides := make([]int, rank)
	if rank == 0 {
		return strides
	}
	stride := s.DType.Size()
	switch order {
	case RowMajor:
		for axis := rank - 1; axis >= 0; axis-- {
			strides[axis] = stride
			stride *= max(s.Dimensions[axis], 1)
		}
	case ColumnMajor:
		for axis := 0; axis < rank; axis++ {
			strides[axis] = stride
			stride *= max(s.Dimensions[axis], 1)
		}
	default:
		exceptions.Panicf("Shape.Strides(%d): invalid order", order)
	}
	return strides
}

// CheckedMemory returns the number of bytes of a contiguous array of the shape, and false if it
// doesn't fit in an int.
func (s Shape) CheckedMemory() (int, bool) {
	if s.IsZeroSize() {
		return 0, true
	}
	memory := s.DType.Size()
	for _, dim := range s.Dimensions {
		var ok bool
		if memory, ok = mulInt(memory, dim); !ok {
			return 0, false
		}
	}
	return memory, true
}

// Extent returns the number of bytes spanned by a layout with the given byte strides, from the start of
// its first element to the end of its last. It's 0 for empty arrays, and false if it doesn't fit in an int.
//
// Dimensions and strides must not be negative.
func Extent(itemSize int, dims, strides []int) (int, bool) {
	for _, dim := range dims {
		if dim == 0 {
			return 0, true
		}
	}
	span := itemSize
	for axis, dim := range dims {
		step, ok := mulInt(dim-1, strides[axis])
		if !ok || span > math.MaxInt-step {
			return 0, false
		}
		span += step
	}
	return span, true
}

// mulInt multiplies two non-negative ints, returning false on overflow.
func mulInt(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// Offset returns the byte offset of the element at the given indices, given the byte strides.
func Offset(strides []int, indices ...int) int {
	if len(strides) != len(indices) {
		exceptions.Panicf("shapes.Offset: got %d indices for rank %d", len(indices), len(strides))
	}
	offset := 0
	for axis, idx := range indices {
		offset += idx * strides[axis]
	}
	return offset
}

// Iter iterates over all indices of the shape in row-major order.
//
// It yields the flat (row-major) index and a slice of indices for each axis. The indices slice is owned
// by the iterator and reused: don't change it inside the loop, and clone it if it must be kept.
func (s Shape) Iter() iter.Seq2[int, []int] {
	return func(yield func(int, []int) bool) {
		if !s.Ok() || s.IsZeroSize() {
			return
		}
		rank := s.Rank()
		indices := make([]int, rank)
		for flatIdx := range s.Size() {
			if !yield(flatIdx, indices) {
				return
			}
			for axis := rank - 1; axis >= 0; axis-- {
				indices[axis]++
				if indices[axis] < s.Dimensions[axis] {
					break
				}
				indices[axis] = 0
			}
		}
	}
}
