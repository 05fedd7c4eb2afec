// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/gomlx/hostarray/pkg/interop"
	"github.com/pkg/errors"
)

// describeFn builds a view of an array and describes it.
type describeFn func(call *host.Call, arr *host.Array, name string) (string, error)

var (
	// matrixViews dispatches dense matrices and sparse matrices to the Input instantiation of their types.
	matrixViews = interop.NewDispatchTable[string]("hostarray")

	vectorViews = make(map[dtypes.DType]describeFn)
	tensorViews = make(map[dtypes.DType]describeFn)
)

func init() {
	registerViews[uint8]()
	registerViews[int32]()
	registerViews[int64]()
	registerViews[float32]()
	registerViews[float64]()
}

func registerViews[T hosttypes.Element]() {
	interop.Register(matrixViews, describeInput[T, int32])
	interop.Register(matrixViews, describeInput[T, int64])
	vectorViews[hosttypes.TagOf[T]()] = describeVector[T]
	tensorViews[hosttypes.TagOf[T]()] = describeTensor[T]
}

func describeInput[T hosttypes.Element, I hosttypes.Index](_ *host.Call, input interop.Input[T, I]) (string, error) {
	if input.IsSparse() {
		sparse := input.Sparse()
		return fmt.Sprintf("sparse %s/%s matrix %dx%d, nnz=%s", hosttypes.DisplayNameOf[T](), hosttypes.DisplayNameOf[I](),
			sparse.Rows(), sparse.Cols(), commas(sparse.MaxNonZeros())), nil
	}
	return fmt.Sprintf("%s matrix %dx%d", hosttypes.DisplayNameOf[T](), input.Rows(), input.Cols()), nil
}

func describeVector[T hosttypes.Element](call *host.Call, arr *host.Array, name string) (string, error) {
	view, err := interop.ToVector[T](call, arr, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s vector of %s", hosttypes.DisplayNameOf[T](), commas(view.Len())), nil
}

func describeTensor[T hosttypes.Element](call *host.Call, arr *host.Array, name string) (string, error) {
	view, err := interop.ToTensor[T](call, arr, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s tensor %dx%dx%d", hosttypes.DisplayNameOf[T](), view.Classes(), view.Rows(), view.Cols()), nil
}

// viewTypes returns the value and index types of the views to build for obj: the ones
// inferred from obj, overridden by -dtype and -index.
func viewTypes(obj host.Object) (value, index dtypes.DType, err error) {
	value, index, err = interop.InferTypes(obj)
	if err != nil {
		return
	}
	if *flagDType != "" {
		var ok bool
		if value, ok = hosttypes.FromName(*flagDType); !ok {
			err = errors.Errorf("-dtype=%q is not a supported element type", *flagDType)
			return
		}
	}
	if *flagIndex != "" {
		var ok bool
		index, ok = hosttypes.FromName(*flagIndex)
		if !ok || !hosttypes.IsIndex(index) {
			err = errors.Errorf("-index=%q is not a supported index type", *flagIndex)
			return
		}
	}
	return
}

// describeView builds the view matching the rank of obj, and describes it.
// Conversion errors are returned, with the constraint that failed.
func describeView(call *host.Call, obj host.Object, name string) (string, error) {
	value, index, err := viewTypes(obj)
	if err != nil {
		return "", err
	}
	arr, isArray := obj.(*host.Array)
	if !isArray || arr.Rank() == 2 {
		return matrixViews.RunAs(call, obj, name, value, index)
	}
	var views map[dtypes.DType]describeFn
	switch arr.Rank() {
	case 1:
		views = vectorViews
	case 3:
		views = tensorViews
	default:
		return "", errors.Errorf("%s: no view for %dD arrays", name, arr.Rank())
	}
	fn, found := views[value]
	if !found {
		return "", errors.Errorf("%s: no view for values of type %s", name, hosttypes.HostName(value))
	}
	return fn(call, arr, name)
}
