// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// UncheckedAxis can be used in CheckDims for an axis whose dimension doesn't matter.
const UncheckedAxis = int(-1)

// HasShape is implemented by Shape itself and by host arrays.
type HasShape interface {
	Shape() Shape
}

// CheckDims fails if the shape doesn't have the given rank and dimensions.
// Axes given as UncheckedAxis match any dimension.
func (s Shape) CheckDims(dimensions ...int) error {
	if s.Rank() != len(dimensions) {
		return errors.Errorf("shape %s has rank %d, wanted %d", s, s.Rank(), len(dimensions))
	}
	for axis, want := range dimensions {
		if want != UncheckedAxis && s.Dimensions[axis] != want {
			return errors.Errorf("shape %s has dimension %d on axis %d, wanted %v", s, s.Dimensions[axis], axis, dimensions)
		}
	}
	return nil
}

// Check fails if the shape doesn't have the given dtype, rank and dimensions.
func (s Shape) Check(dtype dtypes.DType, dimensions ...int) error {
	if dtype != s.DType {
		return errors.Errorf("shape %s has dtype %s, wanted %s", s, s.DType, dtype)
	}
	return s.CheckDims(dimensions...)
}

// CheckDims is the HasShape version of Shape.CheckDims.
func CheckDims(shaped HasShape, dimensions ...int) error {
	return shaped.Shape().CheckDims(dimensions...)
}
