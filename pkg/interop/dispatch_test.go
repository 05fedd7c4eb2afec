// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"fmt"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// describeInput is a registered entry: it reports which instantiation was called and the input kind.
func describeInput[T hosttypes.Element, I hosttypes.Index](_ *host.Call, input Input[T, I]) (string, error) {
	return fmt.Sprintf("%s/%s:%s:%dx%d", hosttypes.DisplayNameOf[T](), hosttypes.DisplayNameOf[I](),
		input.Kind(), input.Rows(), input.Cols()), nil
}

func newTestTable() *DispatchTable[string] {
	table := NewDispatchTable[string]("describe")
	Register(table, describeInput[float32, int32])
	Register(table, describeInput[float64, int64])
	Register(table, describeInput[float32, int64])
	return table
}

func TestToInput(t *testing.T) {
	rt := host.NewRuntime()
	err := rt.Call("input", func(call *host.Call) error {
		input, err := ToInput[float64, int32](call, exampleSparse(t), "X")
		require.NoError(t, err)
		require.True(t, input.IsSparse())
		require.Equal(t, SparseInput, input.Kind())
		require.Equal(t, 3, input.Rows())
		require.Equal(t, 2, input.Cols())
		require.Equal(t, 3, input.Sparse().MaxNonZeros())
		require.Panics(t, func() { input.Dense() })

		arr, err := host.FromFlat([]float64{1, 2, 3, 4, 5, 6}, shapes.ColumnMajor, 3, 2)
		require.NoError(t, err)
		input, err = ToInput[float64, int32](call, arr, "X")
		require.NoError(t, err)
		require.Equal(t, DenseInput, input.Kind())
		require.Equal(t, 3, input.Rows())
		require.Equal(t, float64(4), input.Dense().At(0, 1))
		require.Panics(t, func() { input.Sparse() })

		_, err = ToInput[float64, int32](call, nil, "X")
		requireConversionError(t, err, Null)
		_, err = ToInput[float64, int32](call, 3.0, "X")
		requireConversionError(t, err, Type)
		return nil
	})
	require.NoError(t, err)
}

func TestDispatchTable(t *testing.T) {
	table := newTestTable()
	assert.Equal(t, []string{"float32/int64", "float32/intc", "float64/int64"}, table.Supported())
	require.Panics(t, func() { Register(table, describeInput[float32, int32]) })

	rt := host.NewRuntime()
	err := rt.Call("dispatch", func(call *host.Call) error {
		// Sparse float32 values with int32 indices.
		sparse32, err := host.CSCFromFlat([]float32{1, 2}, []int32{0, 1}, []int32{0, 1, 2}, 2, 2)
		require.NoError(t, err)
		got, err := table.Run(call, sparse32, "X")
		require.NoError(t, err)
		assert.Equal(t, "float32/intc:sparse:2x2", got)

		// Sparse float64 values with int64 indices.
		sparse64, err := host.CSCFromFlat([]float64{1, 2}, []int64{0, 1}, []int64{0, 1, 2}, 3, 2)
		require.NoError(t, err)
		got, err = table.Run(call, sparse64, "X")
		require.NoError(t, err)
		assert.Equal(t, "float64/int64:sparse:3x2", got)

		// Dense input uses the native index type.
		dense, err := host.FromFlat([]float32{1, 2, 3, 4, 5, 6}, shapes.ColumnMajor, 2, 3)
		require.NoError(t, err)
		got, err = table.Run(call, dense, "X")
		require.NoError(t, err)
		assert.Equal(t, "float32/int64:dense:2x3", got)

		// No entry for (float64, int32).
		_, err = table.Run(call, exampleSparse(t), "X")
		convErr := requireConversionError(t, err, Type)
		assert.Contains(t, convErr.Msg, "float64")
		assert.Contains(t, convErr.Cause, "float32/intc")

		// RunAs skips inference, but the conversion still checks the types.
		got, err = table.RunAs(call, sparse32, "X", dtypes.Float32, dtypes.Int32)
		require.NoError(t, err)
		assert.Equal(t, "float32/intc:sparse:2x2", got)
		_, err = table.RunAs(call, sparse32, "X", dtypes.Float32, dtypes.Int64)
		requireConversionError(t, err, Type)

		// Conversion errors of the entry are returned as is.
		rowMajor, err := host.FromFlat([]float32{1, 2, 3, 4}, shapes.RowMajor, 2, 2)
		require.NoError(t, err)
		_, err = table.Run(call, rowMajor, "X")
		requireConversionError(t, err, ColumnMajor)
		return nil
	})
	require.NoError(t, err)
}
