// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package hosttypes is the registry of element types that can cross the boundary between the
// host (the embedding runtime that owns the arrays) and the numeric engine.
//
// The set of element types is closed: int32, int64, uint8, float32 and float64. Each one maps to
// the host's type identifier (NumPy type numbers) and to the display name used in error messages.
//
// Element types are represented by dtypes.DType from github.com/gomlx/gopjrt/dtypes, the same
// enum used by the rest of GoMLX. The host itself may hold arrays of other dtypes (bool, float16,
// complex, ...): those are known by AnyHostID and FromHostID, but they never convert to a view.
package hosttypes

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Element is the closed set of Go types that can be viewed by the engine. Used as a generics constraint.
type Element interface {
	int32 | int64 | uint8 | float32 | float64
}

// Index is the set of Go types used for sparse indices and index pointers. Used as a generics constraint.
type Index interface {
	int32 | int64
}

// NativeIndex is the index width used by the engine for dense inputs, where there is no index array
// to read it from.
const NativeIndex = dtypes.Int64

// Host type numbers, as defined by NumPy (numpy/ndarraytypes.h) on 64-bit Linux.
const (
	HostBool       = 0
	HostInt8       = 1
	HostUint8      = 2
	HostInt16      = 3
	HostUint16     = 4
	HostInt32      = 5 // NPY_INT, a.k.a. "intc".
	HostUint32     = 6
	HostInt64      = 7 // NPY_LONG, which is NPY_INT64 on LP64 platforms.
	HostUint64     = 8
	HostFloat32    = 11
	HostFloat64    = 12
	HostComplex64  = 14
	HostComplex128 = 15
	HostFloat16    = 23
)

type entry struct {
	hostID      int
	displayName string
}

// registry holds the closed set of element types. Adding a type requires an entry here and a new
// member in the Element constraint.
var registry = map[dtypes.DType]entry{
	dtypes.Int32:   {HostInt32, "intc"},
	dtypes.Int64:   {HostInt64, "int64"},
	dtypes.Uint8:   {HostUint8, "uint8"},
	dtypes.Float32: {HostFloat32, "float32"},
	dtypes.Float64: {HostFloat64, "float64"},
}

// hostOnly maps the dtypes the host may hold but that are not element types.
var hostOnly = map[dtypes.DType]int{
	dtypes.Bool:       HostBool,
	dtypes.Int8:       HostInt8,
	dtypes.Int16:      HostInt16,
	dtypes.Uint16:     HostUint16,
	dtypes.Uint32:     HostUint32,
	dtypes.Uint64:     HostUint64,
	dtypes.Float16:    HostFloat16,
	dtypes.Complex64:  HostComplex64,
	dtypes.Complex128: HostComplex128,
}

var fromHost = func() map[int]dtypes.DType {
	m := make(map[int]dtypes.DType, len(registry)+len(hostOnly))
	for dtype, e := range registry {
		m[e.hostID] = dtype
	}
	for dtype, id := range hostOnly {
		m[id] = dtype
	}
	return m
}()

// TagOf returns the element type tag for the Go type T.
func TagOf[T Element]() dtypes.DType {
	return dtypes.FromGenericsType[T]()
}

// IsElement returns whether dtype is one of the element types that can be converted to a view.
func IsElement(dtype dtypes.DType) bool {
	_, found := registry[dtype]
	return found
}

// IsIndex returns whether dtype can be used as a sparse index type.
func IsIndex(dtype dtypes.DType) bool {
	return dtype == dtypes.Int32 || dtype == dtypes.Int64
}

// HostID returns the host type identifier for the element type.
//
// It panics if dtype is not an element type: the set is fixed, so this is a bug in the caller.
func HostID(dtype dtypes.DType) int {
	e, found := registry[dtype]
	if !found {
		exceptions.Panicf("hosttypes.HostID(%s): not a supported element type", dtype)
	}
	return e.hostID
}

// DisplayName returns the name of the element type as the host user knows it, e.g. "intc" for int32.
//
// It panics if dtype is not an element type.
func DisplayName(dtype dtypes.DType) string {
	e, found := registry[dtype]
	if !found {
		exceptions.Panicf("hosttypes.DisplayName(%s): not a supported element type", dtype)
	}
	return e.displayName
}

// HostIDOf is the generic version of HostID.
func HostIDOf[T Element]() int { return HostID(TagOf[T]()) }

// DisplayNameOf is the generic version of DisplayName.
func DisplayNameOf[T Element]() string { return DisplayName(TagOf[T]()) }

// AnyHostID returns the host type identifier for any dtype the host can hold, including the ones
// that are not element types. It returns false for dtypes the host doesn't know.
func AnyHostID(dtype dtypes.DType) (int, bool) {
	if e, found := registry[dtype]; found {
		return e.hostID, true
	}
	id, found := hostOnly[dtype]
	return id, found
}

// FromHostID is the reverse of AnyHostID.
func FromHostID(id int) (dtypes.DType, bool) {
	dtype, found := fromHost[id]
	return dtype, found
}

// FromName returns the element type for a display name (e.g. "intc") or a lower-case dtype name
// (e.g. "int32"). It returns false if name is not an element type.
func FromName(name string) (dtypes.DType, bool) {
	for dtype, e := range registry {
		if name == e.displayName || name == strings.ToLower(dtype.String()) {
			return dtype, true
		}
	}
	return dtypes.InvalidDType, false
}

// HostName returns a name for any dtype the host can hold: the display name for element types,
// and the lower-case dtype name otherwise.
func HostName(dtype dtypes.DType) string {
	if e, found := registry[dtype]; found {
		return e.displayName
	}
	if dtype == dtypes.Float16 {
		return "float16"
	}
	if _, found := hostOnly[dtype]; found {
		return strings.ToLower(dtype.String())
	}
	return "unknown"
}
