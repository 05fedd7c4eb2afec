// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package hosttypes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, dtypes.Int32, TagOf[int32]())
	assert.Equal(t, dtypes.Int64, TagOf[int64]())
	assert.Equal(t, dtypes.Uint8, TagOf[uint8]())
	assert.Equal(t, dtypes.Float32, TagOf[float32]())
	assert.Equal(t, dtypes.Float64, TagOf[float64]())

	assert.Equal(t, "intc", DisplayNameOf[int32]())
	assert.Equal(t, "uint8", DisplayNameOf[uint8]())
	assert.Equal(t, "float32", DisplayNameOf[float32]())
	assert.Equal(t, "float64", DisplayNameOf[float64]())

	assert.Equal(t, HostInt32, HostIDOf[int32]())
	assert.Equal(t, HostInt64, HostIDOf[int64]())
	assert.Equal(t, HostUint8, HostIDOf[uint8]())
	assert.Equal(t, HostFloat32, HostIDOf[float32]())
	assert.Equal(t, HostFloat64, HostIDOf[float64]())
}

func TestRegistryBothDirections(t *testing.T) {
	for _, dtype := range []dtypes.DType{dtypes.Int32, dtypes.Int64, dtypes.Uint8, dtypes.Float32, dtypes.Float64} {
		require.True(t, IsElement(dtype))
		back, found := FromHostID(HostID(dtype))
		require.True(t, found)
		require.Equal(t, dtype, back)
	}
	for _, dtype := range []dtypes.DType{dtypes.Bool, dtypes.Float16, dtypes.Complex64, dtypes.Uint64} {
		require.False(t, IsElement(dtype))
		id, found := AnyHostID(dtype)
		require.True(t, found)
		back, found := FromHostID(id)
		require.True(t, found)
		require.Equal(t, dtype, back)
	}
	_, found := FromHostID(999)
	require.False(t, found)
}

func TestUnsupportedTagPanics(t *testing.T) {
	require.Panics(t, func() { _ = HostID(dtypes.Float16) })
	require.Panics(t, func() { _ = DisplayName(dtypes.Bool) })
	require.Equal(t, "float16", HostName(dtypes.Float16))
	require.Equal(t, "bool", HostName(dtypes.Bool))
	require.Equal(t, "intc", HostName(dtypes.Int32))
}

func TestIndexTypes(t *testing.T) {
	assert.True(t, IsIndex(dtypes.Int32))
	assert.True(t, IsIndex(dtypes.Int64))
	assert.False(t, IsIndex(dtypes.Uint8))
	assert.False(t, IsIndex(dtypes.Float64))
	assert.Equal(t, dtypes.Int64, NativeIndex)
}

func TestFromName(t *testing.T) {
	for name, want := range map[string]dtypes.DType{
		"intc": dtypes.Int32, "int32": dtypes.Int32, "int64": dtypes.Int64,
		"uint8": dtypes.Uint8, "float32": dtypes.Float32, "float64": dtypes.Float64,
	} {
		got, ok := FromName(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := FromName("bfloat16")
	assert.False(t, ok)
}
