// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package labelmap renders label maps, the row-major (height, width, V) arrays allocated with
// interop.AllocateLabelMap, as images.
package labelmap

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/gomlx/hostarray/pkg/interop"
	"github.com/pkg/errors"
)

// ToImageConfig holds the configuration returned by ToImage. Once configured, use Single to
// convert a label map.
type ToImageConfig struct {
	maxValue float64
	scale    int
}

// ToImage returns a configuration to convert label maps to images.
//
// Label maps with V=1 become gray images, with V=3 RGB images and with V=4 RGBA images.
func ToImage() *ToImageConfig {
	return &ToImageConfig{scale: 1}
}

// MaxValue sets the value mapped to full intensity. It defaults to 1.0 for float dtypes
// and 255 for integer dtypes. Values are clipped to [0, MaxValue].
//
// It returns the ToImageConfig object, so configuration calls can be cascaded.
func (ti *ToImageConfig) MaxValue(v float64) *ToImageConfig {
	ti.maxValue = v
	return ti
}

// Scale enlarges the image by an integer factor, with nearest-neighbor interpolation, so small label maps
// are visible. It defaults to 1.
func (ti *ToImageConfig) Scale(factor int) *ToImageConfig {
	ti.scale = factor
	return ti
}

// Single converts the label map arr, borrowed by call during the conversion, to an image.
func (ti *ToImageConfig) Single(call *host.Call, arr *host.Array) (image.Image, error) {
	if v := interop.CheckRank(arr, 3); v != nil {
		return nil, errors.Errorf("labelmap.ToImage: %s", v)
	}
	if !hosttypes.IsElement(arr.DType()) {
		return nil, errors.Errorf("labelmap.ToImage: unsupported dtype %s", arr.DType())
	}
	if v := interop.CheckArray(arr, arr.DType()); v != nil {
		return nil, errors.Errorf("labelmap.ToImage: %s", v)
	}
	if !arr.Flags().Has(host.CContiguous) {
		return nil, errors.Errorf("labelmap.ToImage: label map must be row-major, got strides %v", arr.Strides())
	}
	channels := arr.Dim(2)
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, errors.Errorf("labelmap.ToImage: label map with V=%d not supported, V must be 1, 3 or 4", channels)
	}
	if ti.scale < 1 {
		return nil, errors.Errorf("labelmap.ToImage: invalid scale %d", ti.scale)
	}
	if err := call.Borrow(arr); err != nil {
		return nil, err
	}

	var img *image.NRGBA
	var err error
	switch arr.DType() {
	case hosttypes.TagOf[uint8]():
		img, err = toImage[uint8](ti, arr)
	case hosttypes.TagOf[int32]():
		img, err = toImage[int32](ti, arr)
	case hosttypes.TagOf[int64]():
		img, err = toImage[int64](ti, arr)
	case hosttypes.TagOf[float32]():
		img, err = toImage[float32](ti, arr)
	case hosttypes.TagOf[float64]():
		img, err = toImage[float64](ti, arr)
	}
	if err != nil {
		return nil, err
	}
	if ti.scale > 1 {
		bounds := img.Bounds()
		return imaging.Resize(img, bounds.Dx()*ti.scale, bounds.Dy()*ti.scale, imaging.NearestNeighbor), nil
	}
	return img, nil
}

func toImage[T hosttypes.Element](ti *ToImageConfig, arr *host.Array) (*image.NRGBA, error) {
	height, width, channels := arr.Dim(0), arr.Dim(1), arr.Dim(2)
	data, err := host.FlatData[T](arr)
	if err != nil {
		return nil, err
	}
	maxValue := ti.maxValue
	if maxValue == 0 {
		if arr.DType().IsFloat() {
			maxValue = 1.0
		} else {
			maxValue = 255.0
		}
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	pos := 0
	for h := range height {
		for w := range width {
			pix := img.Pix[h*img.Stride+w*4 : h*img.Stride+w*4+4]
			pix[3] = 255
			for c := range channels {
				v := math.Round(255 * float64(data[pos]) / maxValue)
				pos++
				v = min(max(v, 0), 255)
				if channels == 1 {
					pix[0], pix[1], pix[2] = uint8(v), uint8(v), uint8(v)
				} else {
					pix[c] = uint8(v)
				}
			}
		}
	}
	return img, nil
}

// Save the image to filePath. The format is taken from the file extension (e.g. ".png", ".jpg").
func Save(img image.Image, filePath string) error {
	return errors.Wrapf(imaging.Save(img, filePath), "saving image to %q", filePath)
}
