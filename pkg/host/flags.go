// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package host

import (
	"strings"
	"unsafe"
)

// Flags describe the memory layout of an Array. They mirror NumPy's array flags.
type Flags uint8

const (
	// CContiguous is set if the data is in a single row-major ("C" order) segment.
	CContiguous Flags = 1 << iota

	// FContiguous is set if the data is in a single column-major ("Fortran" order) segment.
	FContiguous

	// Aligned is set if the data pointer and all strides are multiples of the element size.
	Aligned

	// NotSwapped is set if the data is in the machine's native byte order.
	NotSwapped

	// OwnData is set if the array owns its buffer, as opposed to being a view of another array.
	OwnData
)

// Has returns whether all the given flags are set.
func (f Flags) Has(flags Flags) bool { return f&flags == flags }

// String implements fmt.Stringer, listing the set flags.
func (f Flags) String() string {
	var parts []string
	for _, entry := range []struct {
		flag Flags
		name string
	}{
		{CContiguous, "C_CONTIGUOUS"},
		{FContiguous, "F_CONTIGUOUS"},
		{Aligned, "ALIGNED"},
		{NotSwapped, "NOTSWAPPED"},
		{OwnData, "OWNDATA"},
	} {
		if f.Has(entry.flag) {
			parts = append(parts, entry.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// layoutFlags computes the contiguity and alignment flags for the given layout.
//
// Axes of dimension 1 don't affect contiguity, and arrays with any axis of dimension 0 are contiguous
// in both orders, as in NumPy.
func layoutFlags(itemSize int, dims, strides []int, data unsafe.Pointer) Flags {
	var flags Flags
	cContiguous, fContiguous := true, true
	isEmpty := false
	for _, dim := range dims {
		if dim == 0 {
			isEmpty = true
		}
	}
	if !isEmpty {
		expected := itemSize
		for axis := len(dims) - 1; axis >= 0; axis-- {
			if dims[axis] == 1 {
				continue
			}
			if strides[axis] != expected {
				cContiguous = false
				break
			}
			expected *= dims[axis]
		}
		expected = itemSize
		for axis := 0; axis < len(dims); axis++ {
			if dims[axis] == 1 {
				continue
			}
			if strides[axis] != expected {
				fContiguous = false
				break
			}
			expected *= dims[axis]
		}
	}
	if cContiguous {
		flags |= CContiguous
	}
	if fContiguous {
		flags |= FContiguous
	}

	aligned := true
	if itemSize > 1 {
		if data != nil && uintptr(data)%uintptr(itemSize) != 0 {
			aligned = false
		}
		for _, stride := range strides {
			if stride%itemSize != 0 {
				aligned = false
			}
		}
	}
	if aligned {
		flags |= Aligned
	}
	return flags
}
