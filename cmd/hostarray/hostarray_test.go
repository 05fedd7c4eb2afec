// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/gomlx/hostarray/pkg/host/npy"
	"github.com/gomlx/hostarray/pkg/interop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func writeTestNpz(t *testing.T) string {
	labels, err := host.FromFlat([]uint8{0, 1, 1}, shapes.RowMajor, 3)
	require.NoError(t, err)
	rowMajor, err := host.FromFlat([]float64{1, 2, 3, 4, 5, 6}, shapes.RowMajor, 2, 3)
	require.NoError(t, err)
	weights, err := host.FromFlat([]float32{1, 2, 3, 4}, shapes.ColumnMajor, 2, 2)
	require.NoError(t, err)
	x4d, err := host.FromFlat(make([]int32, 16), shapes.RowMajor, 2, 2, 2, 2)
	require.NoError(t, err)
	filePath := filepath.Join(t.TempDir(), "arrays.npz")
	require.NoError(t, npy.WriteNpzFile(map[string]*host.Array{
		"labels": labels, "rowmajor": rowMajor, "weights": weights, "x4d": x4d}, filePath))
	return filePath
}

func TestInspectFile(t *testing.T) {
	rt := host.NewRuntime()
	reports, err := inspectFile(rt, writeTestNpz(t))
	require.NoError(t, err)
	require.Len(t, reports, 4)

	assert.Equal(t, "labels", reports[0].Name)
	assert.Equal(t, "uint8 vector of 3", reports[0].View)
	assert.False(t, reports[0].Failed)

	assert.Equal(t, "rowmajor", reports[1].Name)
	assert.True(t, reports[1].Failed)
	assert.True(t, strings.HasPrefix(reports[1].View, "column-major: "), reports[1].View)
	assert.Equal(t, "[2 3]", reports[1].Shape)

	assert.Equal(t, "float32 matrix 2x2", reports[2].View)
	assert.Equal(t, "float32", reports[2].DType)
	assert.Equal(t, "[1, 4]", reports[2].Range)

	assert.True(t, reports[3].Failed)
	assert.Contains(t, reports[3].View, "4D")

	// Views are released once inspection is done.
	assert.Empty(t, rt.Borrowed())

	_, err = inspectFile(rt, "labels.txt")
	require.Error(t, err)
}

func TestInspectSparse(t *testing.T) {
	m, err := host.CSCFromFlat([]float64{1, 2, 3}, []int32{0, 2, 1}, []int32{0, 1, 3}, 3, 2)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, npy.WriteSparseNpz(m, &buf))
	filePath := filepath.Join(t.TempDir(), "sparse.npz")
	require.NoError(t, os.WriteFile(filePath, buf.Bytes(), 0o644))

	reports, err := inspectFile(host.NewRuntime(), filePath)
	require.NoError(t, err)
	require.NotEmpty(t, reports)
	assert.Equal(t, "(sparse)", reports[0].Name)
	assert.Equal(t, "float64/intc", reports[0].DType)
	assert.Equal(t, "sparse float64/intc matrix 3x2, nnz=3", reports[0].View)
	assert.Equal(t, "[1, 3]", reports[0].Range)
	assert.False(t, reports[0].Failed)
}

func TestValueRange(t *testing.T) {
	halves := []float16.Float16{float16.Fromfloat32(0.5), float16.Fromfloat32(-2), float16.Fromfloat32(1.5)}
	arr, err := host.FromFlat(halves, shapes.RowMajor, 3)
	require.NoError(t, err)
	assert.Equal(t, "[-2, 1.5]", valueRange(arr))

	// float16 arrays are valid host data, and can be read back from .npy files.
	filePath := filepath.Join(t.TempDir(), "halves.npy")
	require.NoError(t, npy.WriteFile(arr, filePath))
	reports, err := inspectFile(host.NewRuntime(), filePath)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "float16", reports[0].DType)
	assert.Equal(t, "[-2, 1.5]", reports[0].Range)
	assert.True(t, reports[0].Failed, "float16 is not an element type")

	// Byte-swapped arrays are reported in their native values.
	ints, err := host.FromFlat([]int32{7, -3, 300}, shapes.RowMajor, 3)
	require.NoError(t, err)
	swapped, err := ints.ByteSwapped()
	require.NoError(t, err)
	assert.Equal(t, "[-3, 300]", valueRange(swapped))

	empty, err := host.FromFlat([]float64{}, shapes.RowMajor, 0)
	require.NoError(t, err)
	assert.Equal(t, "-", valueRange(empty))
	flags, err := host.FromFlat([]bool{true}, shapes.RowMajor, 1)
	require.NoError(t, err)
	assert.Equal(t, "-", valueRange(flags))
}

func TestWriteReportCSV(t *testing.T) {
	reports := []arrayReport{
		{Name: "labels", DType: "uint8", Shape: "[3]", Flags: "C_CONTIGUOUS", Bytes: "3 B", View: "uint8 vector of 3"},
		{Name: "rowmajor", DType: "float64", Shape: "[2 3]", View: "failed", Failed: true},
	}
	var buf bytes.Buffer
	require.NoError(t, writeReportCSV(reports, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,DType,Shape,Flags,Bytes,Range,View,Failed", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "labels,uint8,"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",true"), lines[2])
}

func TestConvert(t *testing.T) {
	rt := host.NewRuntime()
	outPath := filepath.Join(t.TempDir(), "converted.npz")
	require.NoError(t, convert(rt, writeTestNpz(t), outPath))

	arrays, err := npy.ReadNpzFile(rt, outPath)
	require.NoError(t, err)
	require.Len(t, arrays, 4)
	assert.True(t, arrays["rowmajor"].Flags().Has(host.FContiguous))
	assert.False(t, arrays["rowmajor"].Flags().Has(host.CContiguous))
	// Arrays of other ranks are kept as they are.
	assert.True(t, arrays["x4d"].Flags().Has(host.CContiguous))

	err = rt.Call("check", func(call *host.Call) error {
		matrix, err := interop.ToMatrix[float64](call, arrays["rowmajor"], "rowmajor")
		if err != nil {
			return err
		}
		assert.Equal(t, float64(2), matrix.At(0, 1))
		assert.Equal(t, float64(4), matrix.At(1, 0))
		return nil
	})
	require.NoError(t, err)
}

func TestConvertSparse(t *testing.T) {
	m, err := host.CSCFromFlat([]float32{1, 2}, []int64{0, 1}, []int64{0, 1, 2}, 2, 2)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, npy.WriteSparseNpz(m, &buf))
	dir := t.TempDir()
	inPath, outPath := filepath.Join(dir, "in.npz"), filepath.Join(dir, "out.npz")
	require.NoError(t, os.WriteFile(inPath, buf.Bytes(), 0o644))

	rt := host.NewRuntime()
	require.NoError(t, convert(rt, inPath, outPath))
	converted, err := npy.ReadSparseNpzFile(rt, outPath)
	require.NoError(t, err)
	assert.Equal(t, 2, converted.Rows())
	values, err := host.FlatData[float32](converted.Data())
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, values)
}

func TestRender(t *testing.T) {
	labels, err := host.FromFlat([]uint8{0, 128, 255, 0, 128, 255}, shapes.RowMajor, 2, 3, 1)
	require.NoError(t, err)
	dir := t.TempDir()
	inPath, outPath := filepath.Join(dir, "labels.npy"), filepath.Join(dir, "labels.png")
	require.NoError(t, npy.WriteFile(labels, inPath))

	require.NoError(t, render(host.NewRuntime(), inPath, outPath))
	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
