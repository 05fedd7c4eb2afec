// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"maps"
	"os"
	"slices"

	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/gomlx/hostarray/pkg/host/npy"
	"github.com/gomlx/hostarray/pkg/interop"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// convert rewrites the arrays of the .npz file inPath to outPath, in the layout the views expect.
// Sparse matrices are written back as sparse matrices.
func convert(rt *host.Runtime, inPath, outPath string) error {
	arrays, err := npy.ReadNpzFile(rt, inPath)
	if err != nil {
		return err
	}
	if _, found := arrays[interop.SparseMarker]; found {
		return convertSparse(rt, inPath, outPath)
	}

	names := slices.Sorted(maps.Keys(arrays))
	bar := newProgressBar(len(names), "converting")
	err = rt.Call("convert", func(call *host.Call) error {
		for _, name := range names {
			converted, err := convertArray(call, arrays[name])
			if err != nil {
				return errors.WithMessagef(err, "converting %q", name)
			}
			arrays[name] = converted
			_ = bar.Add(1)
		}
		return nil
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}
	return npy.WriteNpzFile(arrays, outPath)
}

func convertSparse(rt *host.Runtime, inPath, outPath string) error {
	m, err := npy.ReadSparseNpzFile(rt, inPath)
	if err != nil {
		return err
	}
	var converted [3]*host.Array
	err = rt.Call("convert", func(call *host.Call) error {
		for ii, component := range []*host.Array{m.Data(), m.Indices(), m.IndPtr()} {
			arr, err := convertArray(call, component)
			if err != nil {
				return err
			}
			converted[ii] = arr
		}
		return nil
	})
	if err != nil {
		return err
	}
	m, err = host.NewCSC(converted[0], converted[1], converted[2], m.Rows(), m.Cols())
	if err != nil {
		return err
	}
	return npy.WriteSparseNpzFile(m, outPath)
}

// convertArray copies arr to an array allocated with interop.AllocateResult, and frees arr.
// Arrays that can't back a view (other dtypes or ranks) are returned as is.
func convertArray(call *host.Call, arr *host.Array) (*host.Array, error) {
	if !hosttypes.IsElement(arr.DType()) || arr.Rank() < 1 || arr.Rank() > 3 {
		klog.V(1).Infof("convert: keeping %s as is", arr)
		return arr, nil
	}
	converted, err := interop.AllocateResult(call, arr.DType(), arr.Dims()...)
	if err != nil {
		return nil, err
	}
	if err := host.Copy(converted, arr); err != nil {
		return nil, err
	}
	if err := call.Runtime().Free(arr); err != nil {
		return nil, err
	}
	return converted, nil
}

func newProgressBar(n int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionUseANSICodes(!*flagNoColor),
		progressbar.OptionEnableColorCodes(!*flagNoColor),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("arrays"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
	)
}
