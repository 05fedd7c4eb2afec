// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package npy

import (
	"archive/zip"
	"io"
	"maps"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/gomlx/hostarray/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// npzContents holds the entries of a .npz archive: the arrays, and the scalar bytes strings.
type npzContents struct {
	arrays  map[string]*host.Array
	strings map[string]string
}

func readNpz(rt *host.Runtime, r io.ReaderAt, size int64) (*npzContents, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create zip reader for .npz")
	}
	contents := &npzContents{
		arrays:  make(map[string]*host.Array),
		strings: make(map[string]string),
	}
	for _, f := range zipReader.File {
		cleanPath := path.Clean(f.Name)
		if path.IsAbs(cleanPath) || strings.HasPrefix(cleanPath, "..") {
			return nil, errors.Errorf("invalid (malicious?) path in .npz archive: %q (normalized to %q)",
				f.Name, cleanPath)
		}
		if !strings.HasSuffix(f.Name, ".npy") {
			klog.V(1).Infof("npy: skipping %q in .npz archive", f.Name)
			continue
		}
		name := strings.TrimSuffix(f.Name, ".npy")
		if err := contents.readEntry(rt, f, name); err != nil {
			return nil, errors.WithMessagef(err, "failed to read %q from .npz", f.Name)
		}
	}
	return contents, nil
}

func (c *npzContents) readEntry(rt *host.Runtime, f *zip.File, name string) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to open entry")
	}
	defer func() { _ = rc.Close() }()
	h, err := readHeader(rc)
	if err != nil {
		return err
	}
	if reBytes.MatchString(h.descr) {
		c.strings[name], err = readBytesString(rc, h)
		return err
	}
	c.arrays[name], err = readData(rt, rc, h)
	return err
}

// ReadNpz reads the arrays of a .npz archive, allocating them with rt.
// The names are the entries of the archive without the ".npy" suffix.
// Entries holding bytes strings are skipped.
func ReadNpz(rt *host.Runtime, r io.ReaderAt, size int64) (map[string]*host.Array, error) {
	contents, err := readNpz(rt, r, size)
	if err != nil {
		return nil, err
	}
	for name := range contents.strings {
		klog.V(1).Infof("npy: skipping bytes string %q in .npz archive", name)
	}
	return contents.arrays, nil
}

// ReadNpzFile reads the arrays of a .npz file. See ReadNpz.
func ReadNpzFile(rt *host.Runtime, filePath string) (map[string]*host.Array, error) {
	var arrays map[string]*host.Array
	err := withFile(filePath, func(file *os.File, size int64) (err error) {
		arrays, err = ReadNpz(rt, file, size)
		return
	})
	return arrays, err
}

func withFile(filePath string, fn func(file *os.File, size int64) error) error {
	file, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", filePath)
	}
	defer func() { _ = file.Close() }()
	info, err := file.Stat()
	if err != nil {
		return errors.Wrapf(err, "failed to stat %q", filePath)
	}
	return errors.WithMessagef(fn(file, info.Size()), "reading %q", filePath)
}

// WriteNpz serializes the arrays as a .npz archive, with entries sorted by name.
func WriteNpz(arrays map[string]*host.Array, w io.Writer) error {
	zipWriter := zip.NewWriter(w)
	for _, name := range slices.Sorted(maps.Keys(arrays)) {
		entry, err := zipWriter.Create(name + ".npy")
		if err != nil {
			return errors.Wrapf(err, "failed to create %q in .npz archive", name+".npy")
		}
		if err := Write(arrays[name], entry); err != nil {
			return errors.WithMessagef(err, "failed to write array %q to .npz archive", name)
		}
	}
	return errors.Wrapf(zipWriter.Close(), "failed to close .npz archive")
}

// WriteNpzFile serializes the arrays to a .npz file. See WriteNpz.
func WriteNpzFile(arrays map[string]*host.Array, filePath string) error {
	return fsutil.WriteFile(filePath, func(w io.Writer) error { return WriteNpz(arrays, w) })
}

// ReadSparseNpz reads a sparse matrix saved with scipy.sparse.save_npz.
//
// Only the compressed sparse column format ("csc") is supported.
func ReadSparseNpz(rt *host.Runtime, r io.ReaderAt, size int64) (*host.SparseMatrix, error) {
	contents, err := readNpz(rt, r, size)
	if err != nil {
		return nil, err
	}
	format, found := contents.strings["format"]
	if !found {
		return nil, errors.New("not a sparse matrix .npz: missing \"format\" entry")
	}
	if format != "csc" {
		return nil, errors.Errorf("sparse format %q not supported, only \"csc\" is", format)
	}
	var components [3]*host.Array
	for ii, name := range []string{"data", "indices", "indptr"} {
		arr, found := contents.arrays[name]
		if !found {
			return nil, errors.Errorf("sparse matrix .npz missing %q entry", name)
		}
		components[ii] = arr
	}
	shapeArr, found := contents.arrays["shape"]
	if !found {
		return nil, errors.New("sparse matrix .npz missing \"shape\" entry")
	}
	dims, err := shapeValues(shapeArr)
	if err != nil {
		return nil, err
	}
	return host.NewCSC(components[0], components[1], components[2], dims[0], dims[1])
}

// ReadSparseNpzFile reads a sparse matrix from a file saved with scipy.sparse.save_npz. See ReadSparseNpz.
func ReadSparseNpzFile(rt *host.Runtime, filePath string) (*host.SparseMatrix, error) {
	var m *host.SparseMatrix
	err := withFile(filePath, func(file *os.File, size int64) (err error) {
		m, err = ReadSparseNpz(rt, file, size)
		return
	})
	return m, err
}

// shapeValues reads the (rows, cols) of the "shape" entry of a sparse .npz.
func shapeValues(arr *host.Array) ([2]int, error) {
	var dims [2]int
	if err := shapes.CheckDims(arr, 2); err != nil {
		return dims, errors.WithMessage(err, "sparse matrix \"shape\" entry should have 2 elements")
	}
	if !arr.Flags().Has(host.NotSwapped) {
		var err error
		if arr, err = arr.ByteSwapped(); err != nil {
			return dims, err
		}
	}
	switch arr.DType() {
	case dtypes.Int64:
		values, err := host.FlatData[int64](arr)
		if err != nil {
			return dims, err
		}
		dims = [2]int{int(values[0]), int(values[1])}
	case dtypes.Int32:
		values, err := host.FlatData[int32](arr)
		if err != nil {
			return dims, err
		}
		dims = [2]int{int(values[0]), int(values[1])}
	default:
		return dims, errors.Errorf("sparse matrix \"shape\" entry should be integers, got %s", arr.DType())
	}
	return dims, nil
}

// WriteSparseNpz serializes the sparse matrix in the layout of scipy.sparse.save_npz.
func WriteSparseNpz(m *host.SparseMatrix, w io.Writer) error {
	if m == nil {
		return errors.New("npy.WriteSparseNpz(nil)")
	}
	zipWriter := zip.NewWriter(w)
	arrays := map[string]*host.Array{"data": m.Data(), "indices": m.Indices(), "indptr": m.IndPtr()}
	shape, err := host.FromFlat([]int64{int64(m.Rows()), int64(m.Cols())}, shapes.RowMajor, 2)
	if err != nil {
		return err
	}
	arrays["shape"] = shape
	for _, name := range slices.Sorted(maps.Keys(arrays)) {
		entry, err := zipWriter.Create(name + ".npy")
		if err != nil {
			return errors.Wrapf(err, "failed to create %q in .npz archive", name+".npy")
		}
		if err := Write(arrays[name], entry); err != nil {
			return errors.WithMessagef(err, "failed to write %q to .npz archive", name)
		}
	}
	entry, err := zipWriter.Create("format.npy")
	if err != nil {
		return errors.Wrapf(err, "failed to create \"format.npy\" in .npz archive")
	}
	if err := writeBytesString(entry, "csc"); err != nil {
		return err
	}
	return errors.Wrapf(zipWriter.Close(), "failed to close .npz archive")
}

// WriteSparseNpzFile serializes the sparse matrix to a .npz file. See WriteSparseNpz.
func WriteSparseNpzFile(m *host.SparseMatrix, filePath string) error {
	return fsutil.WriteFile(filePath, func(w io.Writer) error { return WriteSparseNpz(m, w) })
}
