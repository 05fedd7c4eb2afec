// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package host

import (
	"os"
	"reflect"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// MemoryLimitEnv is the environment variable read by DefaultRuntime to configure its memory limit.
// It takes humanized sizes, like "512MiB" or "2GB".
const MemoryLimitEnv = "HOSTARRAY_MEMORY_LIMIT"

// MaxBufferBytes is the largest buffer Runtime.Allocate will attempt, regardless of the memory limit.
const MaxBufferBytes int64 = 1 << 47

var (
	// ErrOutOfMemory is returned by Runtime.Allocate when the allocation would exceed the memory limit.
	ErrOutOfMemory = errors.New("host: out of memory")

	// ErrBorrowed is returned by Runtime.Free when the array is borrowed by a Call in progress.
	ErrBorrowed = errors.New("host: array is borrowed by a call in progress")
)

// Runtime is the host's process-wide allocation context.
//
// Allocation, freeing and borrow bookkeeping take the runtime lock only for the duration of the operation.
// Create it with NewRuntime and configure it with its With* methods before use.
type Runtime struct {
	mu          sync.Mutex
	memoryLimit int64
	allocated   int64
	borrows     borrowRegistry
}

// NewRuntime creates a Runtime without memory limit.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// WithMemoryLimit sets the maximum number of bytes the runtime may have allocated at any time.
// A limit <= 0 means no limit. It returns the runtime itself, so calls can be chained.
func (rt *Runtime) WithMemoryLimit(bytes int64) *Runtime {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.memoryLimit = bytes
	return rt
}

// MemoryLimit returns the configured memory limit, or 0 if there is no limit.
func (rt *Runtime) MemoryLimit() int64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return max(rt.memoryLimit, 0)
}

// Allocated returns the number of bytes currently allocated by the runtime.
func (rt *Runtime) Allocated() int64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.allocated
}

// Borrowed returns the list of arrays currently borrowed by calls in progress. Useful to find leaks.
func (rt *Runtime) Borrowed() []Borrow {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.borrows.list()
}

var (
	defaultRuntime     *Runtime
	defaultRuntimeOnce sync.Once
)

// DefaultRuntime returns the process-wide Runtime, created on first use.
// Its memory limit is read from the environment variable MemoryLimitEnv, if set.
func DefaultRuntime() *Runtime {
	defaultRuntimeOnce.Do(func() {
		defaultRuntime = NewRuntime()
		limit, err := MemoryLimitFromEnv()
		if err != nil {
			klog.Warningf("ignoring %s: %v", MemoryLimitEnv, err)
			return
		}
		defaultRuntime.WithMemoryLimit(limit)
	})
	return defaultRuntime
}

// MemoryLimitFromEnv parses the memory limit in the environment variable MemoryLimitEnv.
// It returns 0 (no limit) if the variable is not set.
func MemoryLimitFromEnv() (int64, error) {
	value, found := os.LookupEnv(MemoryLimitEnv)
	if !found || value == "" {
		return 0, nil
	}
	return ParseMemoryLimit(value)
}

// ParseMemoryLimit parses a humanized size, like "100MB" or "1.5GiB".
func ParseMemoryLimit(value string) (int64, error) {
	limit, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid memory limit %q", value)
	}
	return int64(limit), nil
}

// Allocate a new uninitialized array owned by the host, laid out contiguously in the given order.
//
// The buffer is allocated as a Go slice of the dtype's Go type, so it's aligned for the dtype.
// It returns an error wrapping ErrOutOfMemory if the allocation would exceed the memory limit.
func (rt *Runtime) Allocate(dtype dtypes.DType, dims []int, order shapes.Order) (*Array, error) {
	return rt.allocate(dtype, dims, order, true)
}

// AllocateSwapped is like Allocate, but the array is flagged as holding data in the non-native byte order.
// It's used by loaders of data serialized in the other byte order.
func (rt *Runtime) AllocateSwapped(dtype dtypes.DType, dims []int, order shapes.Order) (*Array, error) {
	return rt.allocate(dtype, dims, order, false)
}

func (rt *Runtime) allocate(dtype dtypes.DType, dims []int, order shapes.Order, notSwapped bool) (*Array, error) {
	if err := checkHostDType(dtype); err != nil {
		return nil, err
	}
	for _, dim := range dims {
		if dim < 0 {
			return nil, errors.Errorf("Runtime.Allocate(%s, dims=%v): negative dimension", dtype, dims)
		}
	}
	shape := shapes.Make(dtype, dims...)
	bytes, ok := shape.CheckedMemory()
	if !ok || int64(bytes) > MaxBufferBytes {
		return nil, errors.Wrapf(ErrOutOfMemory, "allocating %s: more than the %s a single buffer can hold",
			shape, humanize.IBytes(uint64(MaxBufferBytes)))
	}
	memory := int64(bytes)

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.memoryLimit > 0 && rt.allocated+memory > rt.memoryLimit {
		return nil, errors.Wrapf(ErrOutOfMemory, "allocating %s (%s) with %s of %s already in use",
			shape, humanize.IBytes(uint64(memory)),
			humanize.IBytes(uint64(rt.allocated)), humanize.IBytes(uint64(rt.memoryLimit)))
	}
	var buf []byte
	if memory > 0 {
		size := shape.Size()
		flatV := reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), size, size)
		buf = unsafe.Slice((*byte)(flatV.UnsafePointer()), memory)
	}
	rt.allocated += memory
	arr := newArray(shape, shape.Strides(order), buf, 0, notSwapped, nil)
	arr.runtime = rt
	if klog.V(2).Enabled() {
		klog.Infof("host: allocated %s in %s order, id=%s (%s in use)",
			shape, order, arr.id, humanize.IBytes(uint64(rt.allocated)))
	}
	return arr, nil
}

// Free the buffer of an array allocated by this runtime.
//
// It returns an error wrapping ErrBorrowed if a Call in progress borrows the array.
// Views of a freed array see it as freed too.
func (rt *Runtime) Free(arr *Array) error {
	if arr == nil {
		return errors.New("Runtime.Free(nil)")
	}
	if arr.base != nil {
		return errors.Errorf("Runtime.Free(%s): array is a view, free its base array instead", arr.id)
	}
	if arr.runtime != rt {
		return errors.Errorf("Runtime.Free(%s): array was not allocated by this runtime", arr.id)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if arr.freed.Load() {
		return errors.Errorf("Runtime.Free(%s): array already freed", arr.id)
	}
	if count := arr.borrowCount.Load(); count > 0 {
		return errors.Wrapf(ErrBorrowed, "Runtime.Free(%s): %d borrow(s) in progress", arr.id, count)
	}
	arr.freed.Store(true)
	rt.allocated -= int64(arr.shape.Memory())
	klog.V(2).Infof("host: freed %s, id=%s", arr.shape, arr.id)
	return nil
}
