// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

type dispatchKey struct {
	value, index dtypes.DType
}

func (k dispatchKey) String() string {
	return fmt.Sprintf("%s/%s", hosttypes.HostName(k.value), hosttypes.HostName(k.index))
}

// DispatchTable selects, at run time, the instantiation of a function for the value and index dtypes
// of its input, as given by InferTypes.
//
// Entries are added with Register, usually at initialization, and then it's safe for concurrent use.
type DispatchTable[R any] struct {
	name    string
	entries map[dispatchKey]func(call *host.Call, obj host.Object, name string) (R, error)
}

// NewDispatchTable creates an empty table. The name is used in error messages.
func NewDispatchTable[R any](name string) *DispatchTable[R] {
	return &DispatchTable[R]{
		name:    name,
		entries: make(map[dispatchKey]func(*host.Call, host.Object, string) (R, error)),
	}
}

// Register fn as the entry of table for inputs with values of type T and indices of type I.
// Registering the same pair twice panics.
func Register[T hosttypes.Element, I hosttypes.Index, R any](table *DispatchTable[R], fn func(call *host.Call, input Input[T, I]) (R, error)) {
	key := dispatchKey{hosttypes.TagOf[T](), hosttypes.TagOf[I]()}
	if _, found := table.entries[key]; found {
		exceptions.Panicf("DispatchTable(%q): entry for %s registered twice", table.name, key)
	}
	table.entries[key] = func(call *host.Call, obj host.Object, name string) (R, error) {
		input, err := ToInput[T, I](call, obj, name)
		if err != nil {
			var zero R
			return zero, err
		}
		return fn(call, input)
	}
}

// Run converts obj with the instantiation matching its dtypes, and calls the registered function.
// It fails with a Type ConversionError if no entry matches.
func (table *DispatchTable[R]) Run(call *host.Call, obj host.Object, name string) (R, error) {
	var zero R
	value, index, err := InferTypes(obj)
	if err != nil {
		return zero, err
	}
	return table.RunAs(call, obj, name, value, index)
}

// RunAs is like Run, but uses the given dtypes instead of inferring them from obj.
// The conversion still checks obj against them, so a mismatch fails with a Type ConversionError.
func (table *DispatchTable[R]) RunAs(call *host.Call, obj host.Object, name string, value, index dtypes.DType) (R, error) {
	var zero R
	key := dispatchKey{value, index}
	fn, found := table.entries[key]
	if !found {
		return zero, errors.WithStack(&ConversionError{
			Arg:        name,
			Constraint: Type,
			Msg:        fmt.Sprintf("%s: %s has no implementation for values of type %s and indices of type %s", name, table.name, hosttypes.HostName(value), hosttypes.HostName(index)),
			Cause:      "supported: " + strings.Join(table.Supported(), ", "),
		})
	}
	klog.V(2).Infof("%s: dispatching %q to %s", table.name, name, key)
	return fn(call, obj, name)
}

// Supported lists the registered "value/index" dtype pairs, sorted.
func (table *DispatchTable[R]) Supported() []string {
	keys := make([]string, 0, len(table.entries))
	for key := range table.entries {
		keys = append(keys, key.String())
	}
	slices.Sort(keys)
	return keys
}
