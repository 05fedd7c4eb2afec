// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package host models the embedding runtime that owns the arrays handed to the numeric engine.
//
// It provides what the interop layer needs from a host, and nothing more:
//
//   - Array: the array descriptor -- a buffer owned by the host, plus dtype, dimensions, byte strides
//     and the NumPy-like Flags (contiguity, alignment, byte order).
//   - Generic object introspection (HasAttr/GetAttr), used to duck-type sparse matrices,
//     and the host's plain objects: Attrs, Tuple and SparseMatrix.
//   - Runtime: the process-wide allocation context. Allocation holds its lock only for the duration
//     of the allocation, and it may fail with ErrOutOfMemory.
//   - Call: the scope of one native call. Arrays converted to views are borrowed by the Call until
//     it exits, and views check that their Call is still alive when accessed.
//
// Arrays are never freed, resized or mutated by this package while borrowed: Runtime.Free returns
// ErrBorrowed instead. Mutation of the data by other goroutines while a Call is in progress is not
// checked -- it's a precondition on the caller.
package host

import (
	"maps"
	"slices"
)

// Object is any value owned by the host: arrays, tuples, numbers, sparse matrices, or any other
// value that implements AttrGetter.
type Object = any

// AttrGetter is implemented by host objects that expose named attributes.
type AttrGetter interface {
	// HasAttr returns whether the object has the attribute.
	HasAttr(name string) bool

	// GetAttr returns the attribute, or false if the object doesn't have it.
	GetAttr(name string) (Object, bool)
}

// HasAttr is the host's generic introspection: it returns whether obj exposes the attribute name.
// It returns false for nil objects and for objects without attributes.
func HasAttr(obj Object, name string) bool {
	getter, ok := obj.(AttrGetter)
	if !ok || getter == nil {
		return false
	}
	return getter.HasAttr(name)
}

// GetAttr returns the attribute name of obj, or false if obj doesn't expose it.
func GetAttr(obj Object, name string) (Object, bool) {
	getter, ok := obj.(AttrGetter)
	if !ok || getter == nil {
		return nil, false
	}
	return getter.GetAttr(name)
}

// Attrs is a plain host object holding arbitrary named attributes.
// Any Attrs with an "indptr" attribute is seen as a sparse matrix by the interop layer.
type Attrs map[string]Object

// HasAttr implements AttrGetter.
func (a Attrs) HasAttr(name string) bool {
	_, found := a[name]
	return found
}

// GetAttr implements AttrGetter.
func (a Attrs) GetAttr(name string) (Object, bool) {
	value, found := a[name]
	return value, found
}

// Names returns the sorted attribute names.
func (a Attrs) Names() []string {
	return slices.Sorted(maps.Keys(a))
}

// Tuple is the host's fixed-size sequence, used for instance for the "shape" attribute.
type Tuple []Object

// Len returns the number of items in the tuple.
func (t Tuple) Len() int { return len(t) }

// Int returns the i-th item as an int, if it is an integer.
func (t Tuple) Int(i int) (int, bool) {
	if i < 0 || i >= len(t) {
		return 0, false
	}
	return AsInt(t[i])
}

// IntTuple creates a Tuple from a list of ints.
func IntTuple(values ...int) Tuple {
	t := make(Tuple, len(values))
	for i, v := range values {
		t[i] = v
	}
	return t
}

// AsInt converts a host integer object to int. It returns false for non-integer objects.
func AsInt(obj Object) (int, bool) {
	switch v := obj.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case int16:
		return int(v), true
	case int8:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	default:
		return 0, false
	}
}
