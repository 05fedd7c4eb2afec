// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package host

import (
	"slices"
	"sync/atomic"
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Array is the host's array descriptor: a buffer owned by the host plus the metadata needed to interpret it.
//
// A nil *Array is the host's null handle.
//
// The buffer is either owned by the Array (allocated by a Runtime, or wrapped with FromFlat/FromBuffer),
// or shared with a base Array, for views created with Transpose or Strided.
type Array struct {
	id      uuid.UUID
	shape   shapes.Shape
	strides []int // In bytes.
	buf     []byte
	offset  int // Offset in bytes of the first element in buf.
	flags   Flags

	// base is the array owning buf, for views. nil if this array owns its buffer.
	base *Array

	// runtime that allocated the array, if any.
	runtime *Runtime

	// borrowCount and freed are only used in the root array (the one with base == nil).
	borrowCount atomic.Int32
	freed       atomic.Bool
}

var nativeIsLittleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// IsLittleEndian returns whether the machine's native byte order is little-endian.
func IsLittleEndian() bool { return nativeIsLittleEndian }

// newArray creates the Array and computes its flags. It assumes the layout has been validated.
func newArray(shape shapes.Shape, strides []int, buf []byte, offset int, notSwapped bool, base *Array) *Array {
	a := &Array{
		id:      uuid.New(),
		shape:   shape,
		strides: strides,
		buf:     buf,
		offset:  offset,
		base:    base,
	}
	var data unsafe.Pointer
	if offset < len(buf) {
		data = unsafe.Pointer(&buf[offset])
	}
	a.flags = layoutFlags(shape.DType.Size(), shape.Dimensions, strides, data)
	if notSwapped {
		a.flags |= NotSwapped
	}
	if base == nil {
		a.flags |= OwnData
	}
	return a
}

func checkHostDType(dtype dtypes.DType) error {
	if _, found := hosttypes.AnyHostID(dtype); !found {
		return errors.Errorf("host cannot hold arrays of dtype %s", dtype)
	}
	return nil
}

// FromBuffer creates an Array over buf, without copying it.
//
// The first element is at byte offset. strides are in bytes: if nil, the array is laid out in row-major order.
// notSwapped tells whether the data is in the machine's native byte order.
// Negative strides are not supported.
//
// The returned Array owns buf: the caller should not modify or reuse it while the Array is in use.
func FromBuffer(dtype dtypes.DType, buf []byte, offset int, dims, strides []int, notSwapped bool) (*Array, error) {
	if err := checkHostDType(dtype); err != nil {
		return nil, err
	}
	for _, dim := range dims {
		if dim < 0 {
			return nil, errors.Errorf("host.FromBuffer(%s, dims=%v): negative dimension", dtype, dims)
		}
	}
	shape := shapes.Make(dtype, dims...)
	if strides == nil {
		strides = shape.Strides(shapes.RowMajor)
	} else {
		strides = slices.Clone(strides)
	}
	if len(strides) != len(dims) {
		return nil, errors.Errorf("host.FromBuffer(%s): got %d strides for %d dimensions", shape, len(strides), len(dims))
	}
	for _, stride := range strides {
		if stride < 0 {
			return nil, errors.Errorf("host.FromBuffer(%s): negative strides %v not supported", shape, strides)
		}
	}
	if offset < 0 {
		return nil, errors.Errorf("host.FromBuffer(%s): negative offset %d", shape, offset)
	}
	if _, ok := shape.CheckedMemory(); !ok {
		return nil, errors.Errorf("host.FromBuffer(%s): number of bytes overflows", shape)
	}
	span, ok := shapes.Extent(dtype.Size(), dims, strides)
	if !ok {
		return nil, errors.Errorf("host.FromBuffer(%s, strides=%v): layout span overflows", shape, strides)
	}
	if offset > len(buf) || span > len(buf)-offset {
		return nil, errors.Errorf("host.FromBuffer(%s, strides=%v): buffer has %d bytes, layout needs %d after offset %d",
			shape, strides, len(buf), span, offset)
	}
	return newArray(shape, strides, buf, offset, notSwapped, nil), nil
}

// FromFlat creates an Array aliasing the flat Go slice, laid out in the given order.
//
// The slice is not copied: the Array shares it. len(flat) must match the product of dims.
func FromFlat[T dtypes.Supported](flat []T, order shapes.Order, dims ...int) (*Array, error) {
	dtype := dtypes.FromGenericsType[T]()
	if err := checkHostDType(dtype); err != nil {
		return nil, err
	}
	for _, dim := range dims {
		if dim < 0 {
			return nil, errors.Errorf("host.FromFlat(%s, dims=%v): negative dimension", dtype, dims)
		}
	}
	shape := shapes.Make(dtype, dims...)
	if _, ok := shape.CheckedMemory(); !ok {
		return nil, errors.Errorf("host.FromFlat(%s): number of bytes overflows", shape)
	}
	if shape.Size() != len(flat) {
		return nil, errors.Errorf("host.FromFlat(%s): flat data has %d elements, shape needs %d",
			shape, len(flat), shape.Size())
	}
	return newArray(shape, shape.Strides(order), sliceBytes(flat), 0, true, nil), nil
}

// sliceBytes returns the bytes backing flat, without copying.
func sliceBytes[T any](flat []T) []byte {
	if len(flat) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(flat))), uintptr(len(flat))*unsafe.Sizeof(zero))
}

// root returns the array that owns the buffer.
func (a *Array) root() *Array {
	for a.base != nil {
		a = a.base
	}
	return a
}

// ID returns the unique identity of the array object. Views of the same buffer have different IDs.
func (a *Array) ID() uuid.UUID { return a.id }

// Shape returns the dtype and dimensions of the array. It implements shapes.HasShape.
func (a *Array) Shape() shapes.Shape { return a.shape }

// DType of the array elements.
func (a *Array) DType() dtypes.DType { return a.shape.DType }

// Rank returns the number of axes.
func (a *Array) Rank() int { return a.shape.Rank() }

// Dims returns a copy of the dimensions of the array.
func (a *Array) Dims() []int { return slices.Clone(a.shape.Dimensions) }

// Dim returns the dimension of the given axis. Negative axes count from the end.
func (a *Array) Dim(axis int) int { return a.shape.Dim(axis) }

// Size returns the number of elements.
func (a *Array) Size() int { return a.shape.Size() }

// Strides returns a copy of the strides, in bytes.
func (a *Array) Strides() []int { return slices.Clone(a.strides) }

// Flags returns the layout flags of the array.
func (a *Array) Flags() Flags { return a.flags }

// Base returns the array owning the buffer of a view, or nil if a owns its buffer.
func (a *Array) Base() *Array { return a.base }

// IsFreed returns whether the buffer of the array has been freed by its Runtime.
func (a *Array) IsFreed() bool { return a.root().freed.Load() }

// IsBorrowed returns whether the buffer of the array is borrowed by a Call in progress.
func (a *Array) IsBorrowed() bool { return a.root().borrowCount.Load() > 0 }

// Bytes returns the bytes spanned by the array, starting at its first element, without copying.
// For non-contiguous arrays the span includes the bytes skipped by the strides.
//
// It returns nil for freed or empty arrays.
func (a *Array) Bytes() []byte {
	if a.IsFreed() {
		return nil
	}
	// The span was checked for overflow when the array was created.
	n, _ := shapes.Extent(a.DType().Size(), a.shape.Dimensions, a.strides)
	if n == 0 {
		return nil
	}
	return a.buf[a.offset : a.offset+n]
}

// DataPointer returns the address of the first element, or nil for freed or empty arrays.
func (a *Array) DataPointer() unsafe.Pointer {
	data := a.Bytes()
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}

// FlatData returns the elements of a contiguous array (in either order) as a Go slice that aliases
// the host buffer.
//
// The values are in the array's byte order: if the array is byte-swapped, so are the values.
func FlatData[T dtypes.Supported](a *Array) ([]T, error) {
	if a == nil {
		return nil, errors.New("host.FlatData: nil array")
	}
	if dtype := dtypes.FromGenericsType[T](); dtype != a.DType() {
		return nil, errors.Errorf("host.FlatData[%s]: array has dtype %s", dtype, a.DType())
	}
	if a.IsFreed() {
		return nil, errors.Errorf("host.FlatData: array %s was freed", a.id)
	}
	if !a.flags.Has(CContiguous) && !a.flags.Has(FContiguous) {
		return nil, errors.Errorf("host.FlatData: array %s with strides %v is not contiguous", a.shape, a.strides)
	}
	data := a.Bytes()
	if len(data) == 0 {
		return []T{}, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), a.Size()), nil
}

// Transpose returns a view of the array with the axes reversed. The buffer is shared.
// The transpose of a row-major array is column-major, and vice versa.
func (a *Array) Transpose() *Array {
	dims := slices.Clone(a.shape.Dimensions)
	strides := slices.Clone(a.strides)
	slices.Reverse(dims)
	slices.Reverse(strides)
	return newArray(shapes.Make(a.DType(), dims...), strides, a.buf, a.offset, a.flags.Has(NotSwapped), a)
}

// Strided returns a view of the array taking one every step elements along axis. The buffer is shared.
func (a *Array) Strided(axis, step int) (*Array, error) {
	if axis < 0 || axis >= a.Rank() {
		return nil, errors.Errorf("Array.Strided(axis=%d): invalid axis for rank %d", axis, a.Rank())
	}
	if step <= 0 {
		return nil, errors.Errorf("Array.Strided(step=%d): step must be positive", step)
	}
	dims := slices.Clone(a.shape.Dimensions)
	strides := slices.Clone(a.strides)
	dims[axis] = (dims[axis] + step - 1) / step
	strides[axis] *= step
	return newArray(shapes.Make(a.DType(), dims...), strides, a.buf, a.offset, a.flags.Has(NotSwapped), a), nil
}

// ByteSwapped returns a copy of the array, with the same layout, whose elements have their bytes reversed.
// The NotSwapped flag of the copy is the opposite of the one of a.
func (a *Array) ByteSwapped() (*Array, error) {
	if a.IsFreed() {
		return nil, errors.Errorf("Array.ByteSwapped: array %s was freed", a.id)
	}
	itemSize := a.DType().Size()
	span := a.Bytes()
	buf := slices.Clone(span)
	for _, indices := range a.shape.Iter() {
		offset := shapes.Offset(a.strides, indices...)
		slices.Reverse(buf[offset : offset+itemSize])
	}
	return newArray(a.shape.Clone(), slices.Clone(a.strides), buf, 0, !a.flags.Has(NotSwapped), nil), nil
}

// Copy copies the elements of src into dst, converting between their layouts and byte orders.
// Both arrays must have the same dtype and dimensions.
func Copy(dst, src *Array) error {
	if dst == nil || src == nil {
		return errors.New("host.Copy: nil array")
	}
	if err := dst.shape.Check(src.DType(), src.shape.Dimensions...); err != nil {
		return errors.WithMessage(err, "host.Copy: dst and src shapes differ")
	}
	if dst.IsFreed() || src.IsFreed() {
		return errors.New("host.Copy: array was freed")
	}
	itemSize := src.DType().Size()
	swap := dst.flags.Has(NotSwapped) != src.flags.Has(NotSwapped)
	dstData, srcData := dst.Bytes(), src.Bytes()
	for _, indices := range src.shape.Iter() {
		srcOffset := shapes.Offset(src.strides, indices...)
		dstOffset := shapes.Offset(dst.strides, indices...)
		element := dstData[dstOffset : dstOffset+itemSize]
		copy(element, srcData[srcOffset:srcOffset+itemSize])
		if swap {
			slices.Reverse(element)
		}
	}
	return nil
}

// HasAttr implements AttrGetter: arrays expose "shape", "ndim", "dtype", "size" and "flags".
func (a *Array) HasAttr(name string) bool {
	if a == nil {
		return false
	}
	switch name {
	case "shape", "ndim", "dtype", "size", "flags":
		return true
	}
	return false
}

// GetAttr implements AttrGetter.
func (a *Array) GetAttr(name string) (Object, bool) {
	if a == nil {
		return nil, false
	}
	switch name {
	case "shape":
		return IntTuple(a.shape.Dimensions...), true
	case "ndim":
		return a.Rank(), true
	case "dtype":
		return hosttypes.HostName(a.DType()), true
	case "size":
		return a.Size(), true
	case "flags":
		return a.flags, true
	}
	return nil, false
}

// String implements fmt.Stringer.
func (a *Array) String() string {
	if a == nil {
		return "Array(NULL)"
	}
	return "Array" + a.shape.String() + "{" + a.flags.String() + "}"
}
