// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/x448/float16"
)

// realNumber are the Go types for which the inspect report prints a value range.
type realNumber interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// valueRange returns "[min, max]" of the values of arr, or "-" if it's empty, not contiguous or
// not of a real number dtype.
//
// Byte-swapped arrays are swapped back to the native order first.
func valueRange(arr *host.Array) string {
	if arr == nil || arr.IsFreed() || arr.Size() == 0 {
		return "-"
	}
	if !arr.Flags().Has(host.NotSwapped) {
		native, err := arr.ByteSwapped()
		if err != nil {
			return "-"
		}
		arr = native
	}
	switch arr.DType() {
	case dtypes.Float16:
		halves, err := host.FlatData[float16.Float16](arr)
		if err != nil {
			return "-"
		}
		values := make([]float32, len(halves))
		for ii, h := range halves {
			values[ii] = h.Float32()
		}
		return formatRange(values)
	case dtypes.Float32:
		return rangeOf[float32](arr)
	case dtypes.Float64:
		return rangeOf[float64](arr)
	case dtypes.Int8:
		return rangeOf[int8](arr)
	case dtypes.Int16:
		return rangeOf[int16](arr)
	case dtypes.Int32:
		return rangeOf[int32](arr)
	case dtypes.Int64:
		return rangeOf[int64](arr)
	case dtypes.Uint8:
		return rangeOf[uint8](arr)
	case dtypes.Uint16:
		return rangeOf[uint16](arr)
	case dtypes.Uint32:
		return rangeOf[uint32](arr)
	case dtypes.Uint64:
		return rangeOf[uint64](arr)
	}
	return "-"
}

func rangeOf[T realNumber](arr *host.Array) string {
	values, err := host.FlatData[T](arr)
	if err != nil {
		return "-"
	}
	return formatRange(values)
}

func formatRange[T realNumber](values []T) string {
	if len(values) == 0 {
		return "-"
	}
	return fmt.Sprintf("[%v, %v]", slices.Min(values), slices.Max(values))
}
