// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package matfile loads variables of MATLAB .mat (v5) files as host arrays.
package matfile

import (
	"io"
	"os"

	"github.com/daniellowtw/matlab"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/pkg/errors"
)

// ReadVectorFile reads the variable varName of the .mat file as a 1D host array. See ReadVector.
func ReadVectorFile(rt *host.Runtime, filePath, varName string) (*host.Array, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .mat file %q", filePath)
	}
	defer func() { _ = f.Close() }()
	arr, err := ReadVector(rt, f, varName)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", filePath)
	}
	return arr, nil
}

// ReadVector reads the variable varName of a .mat file as a 1D host array allocated by rt.
//
// MATLAB stores matrices in column-major order, so the values of a matrix variable come out
// flattened in column-major order. The dtype follows the MATLAB class of the variable.
func ReadVector(rt *host.Runtime, r io.Reader, varName string) (*host.Array, error) {
	matlabFile, err := matlab.NewFileFromReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse .mat file")
	}
	v, found := matlabFile.GetVar(varName)
	if !found {
		return nil, errors.Errorf("variable %q not found in .mat file", varName)
	}
	return fromValues(rt, v.Value())
}

// fromValues converts the values of a MATLAB variable to a 1D host array.
// All values must have the same numeric Go type.
func fromValues(rt *host.Runtime, values []any) (*host.Array, error) {
	if len(values) == 0 {
		return nil, errors.New("empty MATLAB variable")
	}
	switch values[0].(type) {
	case int8:
		return fill[int8](rt, values)
	case uint8:
		return fill[uint8](rt, values)
	case int16:
		return fill[int16](rt, values)
	case uint16:
		return fill[uint16](rt, values)
	case int32:
		return fill[int32](rt, values)
	case uint32:
		return fill[uint32](rt, values)
	case int64:
		return fill[int64](rt, values)
	case uint64:
		return fill[uint64](rt, values)
	case float32:
		return fill[float32](rt, values)
	case float64:
		return fill[float64](rt, values)
	default:
		return nil, errors.Errorf("unsupported MATLAB value type %T", values[0])
	}
}

func fill[T int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64](rt *host.Runtime, values []any) (*host.Array, error) {
	arr, err := rt.Allocate(dtypes.FromGenericsType[T](), []int{len(values)}, shapes.RowMajor)
	if err != nil {
		return nil, err
	}
	flat, err := host.FlatData[T](arr)
	if err != nil {
		return nil, err
	}
	for ii, value := range values {
		typed, ok := value.(T)
		if !ok {
			_ = rt.Free(arr)
			return nil, errors.Errorf("MATLAB value #%d is a %T, expected all values of type %T", ii, value, flat[0])
		}
		flat[ii] = typed
	}
	return arr, nil
}
