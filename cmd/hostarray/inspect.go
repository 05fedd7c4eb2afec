// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/hostarray/pkg/core/hosttypes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/gomlx/hostarray/pkg/host/matfile"
	"github.com/gomlx/hostarray/pkg/host/npy"
	"github.com/gomlx/hostarray/pkg/interop"
	"github.com/gomlx/hostarray/pkg/support/fsutil"
	"github.com/pkg/errors"
)

// arrayReport is one line of the inspect report.
type arrayReport struct {
	Name, DType, Shape, Flags, Bytes, Range, View string
	Failed                                        bool
}

var reportColumns = []string{"Name", "DType", "Shape", "Flags", "Bytes", "Range", "View"}

func (r arrayReport) row() []string {
	return []string{r.Name, r.DType, r.Shape, r.Flags, r.Bytes, r.Range, r.View}
}

// inspect prints the report of the arrays in filePath, as a table or as CSV with -csv.
func inspect(rt *host.Runtime, filePath string) error {
	reports, err := inspectFile(rt, filePath)
	if err != nil {
		return err
	}
	if *flagCSV {
		if *flagOutput == "" {
			return writeReportCSV(reports, os.Stdout)
		}
		return fsutil.WriteFile(*flagOutput, func(w io.Writer) error { return writeReportCSV(reports, w) })
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Arrays in %s", filePath)))
	table := newTableWithReds(reportColumns, lipgloss.Left, lipgloss.Left, lipgloss.Right, lipgloss.Left, lipgloss.Right, lipgloss.Right, lipgloss.Left)
	for _, r := range reports {
		table.Row(r.Failed, r.row()...)
	}
	fmt.Println(table.Table.Render())
	return nil
}

// inspectFile reads the arrays of filePath, and builds the views for each of them.
func inspectFile(rt *host.Runtime, filePath string) (reports []arrayReport, err error) {
	objects := make(map[string]host.Object)
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".npy":
		arr, err := npy.ReadFile(rt, filePath)
		if err != nil {
			return nil, err
		}
		objects[strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))] = arr
	case ".npz":
		arrays, err := npy.ReadNpzFile(rt, filePath)
		if err != nil {
			return nil, err
		}
		for name, arr := range arrays {
			objects[name] = arr
		}
		if _, found := arrays[interop.SparseMarker]; found {
			m, err := npy.ReadSparseNpzFile(rt, filePath)
			if err != nil {
				return nil, err
			}
			objects["(sparse)"] = m
		}
	case ".mat":
		arr, err := matfile.ReadVectorFile(rt, filePath, *flagVar)
		if err != nil {
			return nil, err
		}
		objects[*flagVar] = arr
	default:
		return nil, errors.Errorf("unknown file type %q, expected .npy, .npz or .mat", filepath.Ext(filePath))
	}

	err = rt.Call("inspect", func(call *host.Call) error {
		for _, name := range slices.Sorted(maps.Keys(objects)) {
			reports = append(reports, inspectObject(call, objects[name], name))
		}
		return nil
	})
	return
}

func inspectObject(call *host.Call, obj host.Object, name string) arrayReport {
	r := arrayReport{Name: name}
	switch v := obj.(type) {
	case *host.Array:
		r.DType = hosttypes.HostName(v.DType())
		r.Shape = fmt.Sprint(v.Dims())
		r.Flags = v.Flags().String()
		r.Bytes = humanize.Bytes(uint64(v.Shape().Memory()))
		r.Range = valueRange(v)
	case *host.SparseMatrix:
		r.DType = fmt.Sprintf("%s/%s", hosttypes.HostName(v.Data().DType()), hosttypes.HostName(v.IndPtr().DType()))
		r.Shape = fmt.Sprintf("[%d %d]", v.Rows(), v.Cols())
		r.Flags = "csc"
		memory := v.Data().Shape().Memory() + v.Indices().Shape().Memory() + v.IndPtr().Shape().Memory()
		r.Bytes = humanize.Bytes(uint64(memory))
		r.Range = valueRange(v.Data())
	}
	view, err := describeView(call, obj, name)
	if err != nil {
		r.Failed = true
		if convErr := interop.AsConversionError(err); convErr != nil {
			r.View = fmt.Sprintf("%s: %s", convErr.Constraint, convErr.Error())
		} else {
			r.View = err.Error()
		}
		return r
	}
	r.View = view
	return r
}

// writeReportCSV writes the reports with one column per field, plus a "Failed" column.
func writeReportCSV(reports []arrayReport, w io.Writer) error {
	columns := make([][]string, len(reportColumns))
	failed := make([]bool, len(reports))
	for ii, r := range reports {
		for col, value := range r.row() {
			columns[col] = append(columns[col], value)
		}
		failed[ii] = r.Failed
	}
	allSeries := make([]series.Series, 0, len(reportColumns)+1)
	for col, name := range reportColumns {
		allSeries = append(allSeries, series.New(columns[col], series.String, name))
	}
	allSeries = append(allSeries, series.New(failed, series.Bool, "Failed"))
	df := dataframe.New(allSeries...)
	if df.Err != nil {
		return errors.Wrap(df.Err, "building report")
	}
	return errors.Wrap(df.WriteCSV(w), "writing report")
}
