// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/host"
)

// Violation describes why an array failed a layout check.
type Violation struct {
	Constraint Constraint
	Cause      string
}

// String implements fmt.Stringer.
func (v *Violation) String() string {
	if v == nil {
		return "ok"
	}
	return fmt.Sprintf("%s: %s", v.Constraint, v.Cause)
}

func violationf(constraint Constraint, format string, args ...any) *Violation {
	return &Violation{Constraint: constraint, Cause: fmt.Sprintf(format, args...)}
}

// The Check* predicates below return nil if the array passes the check.
// They never modify the array, and they all fail with a Null violation for a nil array.

// CheckNotNull fails for the null handle and for arrays whose buffer has been freed.
func CheckNotNull(a *host.Array) *Violation {
	if a == nil {
		return violationf(Null, "the array to convert is NULL")
	}
	if a.IsFreed() {
		return violationf(Null, "the array %s was freed", a.ID())
	}
	return nil
}

// CheckContiguous fails if the array is not contiguous in either row-major or column-major order.
func CheckContiguous(a *host.Array) *Violation {
	if v := CheckNotNull(a); v != nil {
		return v
	}
	if !a.Flags().Has(host.CContiguous) && !a.Flags().Has(host.FContiguous) {
		return violationf(Contiguity, "array with shape %v and strides %v is not contiguous", a.Dims(), a.Strides())
	}
	return nil
}

// CheckNativeByteOrder fails if the array data is byte-swapped relative to the machine's byte order.
func CheckNativeByteOrder(a *host.Array) *Violation {
	if v := CheckNotNull(a); v != nil {
		return v
	}
	if !a.Flags().Has(host.NotSwapped) {
		return violationf(ByteOrder, "array is not in the machine's native byte order")
	}
	return nil
}

// CheckRank fails if the array doesn't have exactly rank axes.
func CheckRank(a *host.Array, rank int) *Violation {
	if v := CheckNotNull(a); v != nil {
		return v
	}
	if a.Rank() != rank {
		return violationf(Rank, "expected %dD array, got %dD array with shape %v", rank, a.Rank(), a.Dims())
	}
	return nil
}

// CheckType fails if the array elements are not exactly of the given dtype.
func CheckType(a *host.Array, dtype dtypes.DType) *Violation {
	if v := CheckNotNull(a); v != nil {
		return v
	}
	if a.DType() != dtype {
		return violationf(Type, "expected dtype %s, got %s", hosttypes.HostName(dtype), hosttypes.HostName(a.DType()))
	}
	return nil
}

// CheckColumnMajor fails if the array is not contiguous in column-major (Fortran) order.
func CheckColumnMajor(a *host.Array) *Violation {
	if v := CheckNotNull(a); v != nil {
		return v
	}
	if !a.Flags().Has(host.FContiguous) {
		return violationf(ColumnMajor, "array with shape %v and strides %v is not f-contiguous", a.Dims(), a.Strides())
	}
	return nil
}

// CheckAligned fails if the data pointer or the strides are not multiples of the element size.
func CheckAligned(a *host.Array) *Violation {
	if v := CheckNotNull(a); v != nil {
		return v
	}
	if !a.Flags().Has(host.Aligned) {
		return violationf(Alignment, "array data is not aligned to %d bytes", a.DType().Size())
	}
	return nil
}

// CheckArray runs, in order, the checks for not-null, contiguity, native byte order and dtype.
// It returns the first violation found.
func CheckArray(a *host.Array, dtype dtypes.DType) *Violation {
	for _, check := range []func(*host.Array) *Violation{CheckNotNull, CheckContiguous, CheckNativeByteOrder} {
		if v := check(a); v != nil {
			return v
		}
	}
	return CheckType(a, dtype)
}

// firstViolation runs the checks in order and returns the first violation.
func firstViolation(checks ...func() *Violation) *Violation {
	for _, check := range checks {
		if v := check(); v != nil {
			return v
		}
	}
	return nil
}
