// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/gomlx/hostarray/pkg/host/npy"
	"github.com/gomlx/hostarray/pkg/interop/labelmap"
	"k8s.io/klog/v2"
)

// render draws the label map stored in the .npy file inPath to the image file outPath.
func render(rt *host.Runtime, inPath, outPath string) error {
	arr, err := npy.ReadFile(rt, inPath)
	if err != nil {
		return err
	}
	return rt.Call("render", func(call *host.Call) error {
		img, err := labelmap.ToImage().MaxValue(*flagMaxValue).Scale(*flagScale).Single(call, arr)
		if err != nil {
			return err
		}
		klog.V(1).Infof("render: %s -> %dx%d image", arr, img.Bounds().Dx(), img.Bounds().Dy())
		return labelmap.Save(img, outPath)
	})
}
