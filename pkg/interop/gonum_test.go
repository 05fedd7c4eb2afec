// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interop

import (
	"testing"

	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGonumAdapters(t *testing.T) {
	rt := host.NewRuntime()
	err := rt.Call("gonum", func(call *host.Call) error {
		arr, err := host.FromFlat([]float64{1, 2, 3, 4, 5, 6}, shapes.ColumnMajor, 2, 3)
		require.NoError(t, err)
		view, err := ToMatrix[float64](call, arr, "X")
		require.NoError(t, err)
		m, err := GonumMatrix(view)
		require.NoError(t, err)
		rows, cols := m.Dims()
		assert.Equal(t, 2, rows)
		assert.Equal(t, 3, cols)
		for i := range rows {
			for j := range cols {
				assert.Equal(t, view.At(i, j), m.At(i, j))
			}
		}

		vecArr, err := host.FromFlat([]float64{1, 1, 1}, shapes.RowMajor, 3)
		require.NoError(t, err)
		vecView, err := ToVector[float64](call, vecArr, "w")
		require.NoError(t, err)
		vec, err := GonumVector(vecView)
		require.NoError(t, err)

		// X·w is the sum of each row.
		var product mat.VecDense
		product.MulVec(m, vec)
		assert.Equal(t, []float64{1 + 3 + 5, 2 + 4 + 6}, product.RawVector().Data)

		// The gonum vector shares the host buffer.
		vec.SetVec(0, 10)
		assert.Equal(t, 10.0, vecView.At(0))
		return nil
	})
	require.NoError(t, err)
}
