// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireConversionError checks err is a ConversionError for the given constraint, and returns it.
func requireConversionError(t *testing.T, err error, constraint Constraint) *ConversionError {
	t.Helper()
	require.Error(t, err)
	convErr := AsConversionError(err)
	require.NotNilf(t, convErr, "expected ConversionError, got %+v", err)
	require.Equalf(t, constraint, convErr.Constraint, "error: %v", err)
	return convErr
}

func testVectorRoundTrip[T hosttypes.Element](t *testing.T) {
	rt := host.NewRuntime()
	const n = 7
	err := rt.Call("vector", func(call *host.Call) error {
		arr, err := AllocateVector[T](call, n)
		require.NoError(t, err)
		flat, err := host.FlatData[T](arr)
		require.NoError(t, err)
		for i := range flat {
			flat[i] = T(i + 1)
		}
		view, err := ToVector[T](call, arr, "w")
		require.NoError(t, err)
		require.Equal(t, n, view.Len())
		for i := range n {
			require.Equal(t, T(i+1), view.At(i))
		}
		view.Set(0, T(100))
		require.Equal(t, T(100), flat[0], "view should alias the host buffer")
		return nil
	})
	require.NoError(t, err)
}

func TestVectorRoundTrip(t *testing.T) {
	t.Run("int32", testVectorRoundTrip[int32])
	t.Run("int64", testVectorRoundTrip[int64])
	t.Run("uint8", testVectorRoundTrip[uint8])
	t.Run("float32", testVectorRoundTrip[float32])
	t.Run("float64", testVectorRoundTrip[float64])
}

func TestToVectorFailures(t *testing.T) {
	rt := host.NewRuntime()
	call := rt.Enter("failures")
	defer call.Exit()

	// Rank mismatch, regardless of type and contiguity.
	for _, order := range []shapes.Order{shapes.RowMajor, shapes.ColumnMajor} {
		arr, err := host.FromFlat([]float64{1, 2, 3, 4}, order, 2, 2)
		require.NoError(t, err)
		_, err = ToVector[float64](call, arr, "w")
		convErr := requireConversionError(t, err, Rank)
		assert.Equal(t, "w", convErr.Arg)
		assert.Equal(t, "w should be aligned 1D float64 array", convErr.Msg)
		_, err = ToVector[int32](call, arr, "w")
		requireConversionError(t, err, Rank)
	}

	// Type mismatch: no implicit coercion.
	arr, err := host.FromFlat([]float32{1, 2, 3}, shapes.RowMajor, 3)
	require.NoError(t, err)
	_, err = ToVector[float64](call, arr, "w")
	convErr := requireConversionError(t, err, Type)
	assert.Contains(t, err.Error(), "float64")
	assert.Contains(t, convErr.Cause, "float32")

	// int32 uses the "intc" display name.
	_, err = ToVector[int32](call, arr, "labels")
	convErr = requireConversionError(t, err, Type)
	assert.Equal(t, "labels should be aligned 1D intc array", convErr.Msg)

	// Misaligned buffer.
	buf := make([]byte, 3*4+1)
	misaligned, err := host.FromBuffer(dtypes.Float32, buf, 1, []int{3}, nil, true)
	require.NoError(t, err)
	_, err = ToVector[float32](call, misaligned, "w")
	requireConversionError(t, err, Alignment)

	// Non-contiguous.
	base, err := host.FromFlat([]float32{1, 2, 3, 4, 5, 6}, shapes.RowMajor, 6)
	require.NoError(t, err)
	strided, err := base.Strided(0, 2)
	require.NoError(t, err)
	_, err = ToVector[float32](call, strided, "w")
	requireConversionError(t, err, Contiguity)

	// Byte swapped.
	swapped, err := base.ByteSwapped()
	require.NoError(t, err)
	_, err = ToVector[float32](call, swapped, "w")
	requireConversionError(t, err, ByteOrder)

	// Null.
	_, err = ToVector[float32](call, nil, "w")
	convErr = requireConversionError(t, err, Null)
	assert.Contains(t, convErr.Error(), "NULL")

	// Nothing was borrowed by failed conversions.
	require.Empty(t, rt.Borrowed())
}

func TestMatrix(t *testing.T) {
	rt := host.NewRuntime()
	for _, dims := range [][2]int{{1, 1}, {3, 2}, {2, 5}, {4, 4}} {
		m, n := dims[0], dims[1]
		err := rt.Call("matrix", func(call *host.Call) error {
			arr, err := AllocateMatrix[float32](call, m, n)
			require.NoError(t, err)
			require.Nil(t, CheckColumnMajor(arr))
			flat, err := host.FlatData[float32](arr)
			require.NoError(t, err)
			require.Len(t, flat, m*n)
			for j := range n {
				for i := range m {
					flat[j*m+i] = float32(10*i + j)
				}
			}

			view, err := ToMatrix[float32](call, arr, "X")
			require.NoError(t, err)
			rows, cols := view.Shape()
			require.Equal(t, m, rows)
			require.Equal(t, n, cols)
			require.Len(t, view.Data(), m*n)
			for i := range m {
				for j := range n {
					require.Equal(t, float32(10*i+j), view.At(i, j))
				}
			}
			col := view.Col(n - 1)
			require.Len(t, col, m)
			require.Equal(t, float32(n-1), col[0])
			view.Set(m-1, 0, -1)
			require.Equal(t, float32(-1), flat[m-1])
			return nil
		})
		require.NoError(t, err)
	}
}

func TestToMatrixFailures(t *testing.T) {
	rt := host.NewRuntime()
	call := rt.Enter("failures")
	defer call.Exit()

	// Row-major matrix, correct type and rank.
	arr, err := host.FromFlat([]float64{1, 2, 3, 4, 5, 6}, shapes.RowMajor, 2, 3)
	require.NoError(t, err)
	_, err = ToMatrix[float64](call, arr, "X")
	convErr := requireConversionError(t, err, ColumnMajor)
	assert.Equal(t, "X matrices should be f-contiguous 2D float64 array", convErr.Msg)
	assert.Contains(t, err.Error(), "not f-contiguous")

	// Its transpose is column-major, and is accepted.
	view, err := ToMatrix[float64](call, arr.Transpose(), "X")
	require.NoError(t, err)
	require.Equal(t, 3, view.Rows())
	require.Equal(t, 2, view.Cols())
	require.Equal(t, float64(4), view.At(0, 1))

	// Wrong rank and type.
	vector, err := host.FromFlat([]float64{1, 2}, shapes.RowMajor, 2)
	require.NoError(t, err)
	_, err = ToMatrix[float64](call, vector, "X")
	requireConversionError(t, err, Rank)
	_, err = ToMatrix[float32](call, arr.Transpose(), "X")
	requireConversionError(t, err, Type)

	// Byte swapped column-major.
	swapped, err := arr.Transpose().ByteSwapped()
	require.NoError(t, err)
	require.NotNil(t, CheckNativeByteOrder(swapped))
	_, err = ToMatrix[float64](call, swapped, "X")
	requireConversionError(t, err, ByteOrder)

	_, err = ToMatrix[float64](call, nil, "X")
	requireConversionError(t, err, Null)
}

func TestTensor(t *testing.T) {
	rt := host.NewRuntime()
	err := rt.Call("tensor", func(call *host.Call) error {
		arr, err := AllocateTensor[float64](call, 2, 3, 4)
		require.NoError(t, err)
		require.Equal(t, 3, arr.Rank())
		require.Equal(t, []int{2, 3, 4}, arr.Dims())
		require.Nil(t, CheckColumnMajor(arr))

		flat, err := host.FlatData[float64](arr)
		require.NoError(t, err)
		for ii := range flat {
			flat[ii] = float64(ii)
		}
		view, err := ToTensor[float64](call, arr, "dual")
		require.NoError(t, err)
		classes, rows, cols := view.Shape()
		require.Equal(t, []int{2, 3, 4}, []int{classes, rows, cols})
		// Column-major: the first axis varies fastest.
		require.Equal(t, float64(1), view.At(1, 0, 0))
		require.Equal(t, float64(2), view.At(0, 1, 0))
		require.Equal(t, float64(6), view.At(0, 0, 1))
		require.Equal(t, float64(1+2*2+6*3), view.At(1, 2, 3))
		view.Set(1, 2, 3, -1)
		require.Equal(t, float64(-1), flat[len(flat)-1])
		require.Panics(t, func() { view.At(2, 0, 0) })

		rowMajor, err := host.FromFlat(make([]float64, 24), shapes.RowMajor, 2, 3, 4)
		require.NoError(t, err)
		_, err = ToTensor[float64](call, rowMajor, "dual")
		convErr := requireConversionError(t, err, ColumnMajor)
		require.Equal(t, "dual matrices should be f-contiguous 3D float64 array", convErr.Msg)
		_, err = ToTensor[float64](call, rowMajor.Transpose(), "dual")
		require.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestViewLifetime(t *testing.T) {
	rt := host.NewRuntime()
	var (
		vector VectorView[int64]
		matrix MatrixView[int64]
		arr    *host.Array
	)
	err := rt.Call("lifetime", func(call *host.Call) error {
		var err error
		arr, err = AllocateMatrix[int64](call, 2, 2)
		require.NoError(t, err)
		matrix, err = ToMatrix[int64](call, arr, "X")
		require.NoError(t, err)
		vecArr, err := AllocateVector[int64](call, 3)
		require.NoError(t, err)
		vector, err = ToVector[int64](call, vecArr, "w")
		require.NoError(t, err)

		// While the call is in progress, the arrays are borrowed and can't be freed.
		require.ErrorIs(t, rt.Free(arr), host.ErrBorrowed)
		require.NotPanics(t, func() { _ = matrix.Data() })
		return nil
	})
	require.NoError(t, err)

	// Views can't be used after the call exits.
	require.Panics(t, func() { _ = matrix.Data() })
	require.Panics(t, func() { _ = vector.At(0) })
	require.Equal(t, 2, matrix.Rows())
	require.NoError(t, rt.Free(arr))

	var uninitialized VectorView[float32]
	require.Panics(t, func() { _ = uninitialized.Data() })
}

func TestFreedArrayIsNull(t *testing.T) {
	rt := host.NewRuntime()
	arr, err := rt.Allocate(dtypes.Float32, []int{3}, shapes.RowMajor)
	require.NoError(t, err)
	require.NoError(t, rt.Free(arr))
	err = rt.Call("freed", func(call *host.Call) error {
		_, err := ToVector[float32](call, arr, "w")
		return err
	})
	requireConversionError(t, err, Null)
}

func TestEmptyArrays(t *testing.T) {
	rt := host.NewRuntime()
	err := rt.Call("empty", func(call *host.Call) error {
		arr, err := AllocateMatrix[float64](call, 0, 3)
		require.NoError(t, err)
		view, err := ToMatrix[float64](call, arr, "X")
		require.NoError(t, err)
		require.Empty(t, view.Data())
		require.Equal(t, 3, view.Cols())
		_, err = GonumMatrix(view)
		require.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}
