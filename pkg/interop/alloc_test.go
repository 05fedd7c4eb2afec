// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	rt := host.NewRuntime()
	call := rt.Enter("alloc")
	defer call.Exit()

	vector, err := AllocateVector[uint8](call, 5)
	require.NoError(t, err)
	assert.Equal(t, dtypes.Uint8, vector.DType())
	assert.Equal(t, []int{5}, vector.Dims())

	matrix, err := AllocateMatrix[int32](call, 3, 4)
	require.NoError(t, err)
	assert.True(t, matrix.Flags().Has(host.FContiguous|host.Aligned|host.NotSwapped))
	assert.False(t, matrix.Flags().Has(host.CContiguous))

	tensor, err := AllocateTensor[float32](call, 2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, tensor.Rank())
	assert.Equal(t, []int{2, 3, 4}, tensor.Dims())
	assert.Nil(t, CheckColumnMajor(tensor))

	labels, err := AllocateLabelMap[uint8](call, []int{4, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 1}, labels.Dims())
	labels, err = AllocateLabelMap[float64](call, []int{4, 5, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 3}, labels.Dims())
	assert.True(t, labels.Flags().Has(host.CContiguous))
	assert.False(t, labels.Flags().Has(host.FContiguous))
	_, err = AllocateLabelMap[float64](call, []int{4})
	require.Error(t, err)

	wantBytes := int64(5 + 3*4*4 + 2*3*4*4 + 4*5 + 4*5*3*8)
	assert.Equal(t, wantBytes, rt.Allocated())
}

func TestAllocateOutOfMemory(t *testing.T) {
	rt := host.NewRuntime().WithMemoryLimit(1024)
	err := rt.Call("oom", func(call *host.Call) error {
		_, err := AllocateMatrix[float64](call, 10, 10)
		require.NoError(t, err)
		_, err = AllocateMatrix[float64](call, 10, 10)
		return err
	})
	require.ErrorIs(t, err, host.ErrOutOfMemory)
	// Host errors are propagated as is, not as conversion errors.
	assert.False(t, IsConversionError(err))
	assert.Equal(t, host.ErrOutOfMemory, errors.Cause(err))
}

func TestAllocateHugeMatrix(t *testing.T) {
	rt := host.NewRuntime().WithMemoryLimit(1 << 20)
	call := rt.Enter("huge")
	defer call.Exit()
	_, err := AllocateMatrix[float64](call, 1<<40, 1<<40)
	require.ErrorIs(t, err, host.ErrOutOfMemory)
	_, err = AllocateTensor[uint8](call, 1<<21, 1<<21, 1<<21)
	require.ErrorIs(t, err, host.ErrOutOfMemory)
	assert.Zero(t, rt.Allocated())
}

func TestAllocateResult(t *testing.T) {
	rt := host.NewRuntime()
	call := rt.Enter("alloc")
	defer call.Exit()

	matrix, err := AllocateResult(call, dtypes.Float32, 2, 3)
	require.NoError(t, err)
	assert.Nil(t, CheckColumnMajor(matrix))
	vector, err := AllocateResult(call, dtypes.Int64, 4)
	require.NoError(t, err)
	assert.Nil(t, CheckContiguous(vector))

	_, err = AllocateResult(call, dtypes.Float32, 2, 3, 4, 5)
	require.Error(t, err)
	_, err = AllocateResult(call, dtypes.BFloat16, 2)
	require.Error(t, err)
}
