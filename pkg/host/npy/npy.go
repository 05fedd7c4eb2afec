// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package npy reads and writes host arrays in NumPy's .npy and .npz file formats.
//
// Unlike most readers, it keeps the memory layout of the file: arrays saved in Fortran order are
// loaded as column-major arrays, and arrays saved in the non-native byte order are loaded as
// byte-swapped arrays (without the host.NotSwapped flag). This way files can be used to reproduce
// exactly the arrays the interop layer receives.
package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hostarray/pkg/core/shapes"
	"github.com/gomlx/hostarray/pkg/host"
	"github.com/gomlx/hostarray/pkg/support/fsutil"
	"github.com/pkg/errors"
)

const (
	magic = "\x93NUMPY"

	// maxHeaderLen protects against corrupted files.
	maxHeaderLen = 1 << 20
)

var (
	reDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	reFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
	reBytes   = regexp.MustCompile(`^\|S(\d+)$`)
)

// header of a .npy file.
type header struct {
	descr        string
	dims         []int
	fortranOrder bool
}

// ReadFile reads a .npy file into an array allocated by rt.
func ReadFile(rt *host.Runtime, filePath string) (*host.Array, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npy file %q", filePath)
	}
	defer func() { _ = file.Close() }()
	arr, err := Read(rt, file)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", filePath)
	}
	return arr, nil
}

// Read a .npy file (versions 1.0, 2.0 or 3.0) from r into an array allocated by rt.
func Read(rt *host.Runtime, r io.Reader) (*host.Array, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	return readData(rt, r, h)
}

func readHeader(r io.Reader) (h header, err error) {
	preamble := make([]byte, len(magic)+2)
	if _, err = io.ReadFull(r, preamble); err != nil {
		err = errors.Wrapf(err, "failed to read .npy magic string and version")
		return
	}
	if string(preamble[:len(magic)]) != magic {
		err = errors.Errorf("invalid .npy file format: magic string mismatch")
		return
	}
	major, minor := preamble[len(magic)], preamble[len(magic)+1]

	var headerLen int
	switch major {
	case 1:
		lenBytes := make([]byte, 2)
		if _, err = io.ReadFull(r, lenBytes); err != nil {
			err = errors.Wrapf(err, "failed to read header length (v1.0)")
			return
		}
		headerLen = int(binary.LittleEndian.Uint16(lenBytes))
	case 2, 3:
		lenBytes := make([]byte, 4)
		if _, err = io.ReadFull(r, lenBytes); err != nil {
			err = errors.Wrapf(err, "failed to read header length (v%d.%d)", major, minor)
			return
		}
		headerLen = int(binary.LittleEndian.Uint32(lenBytes))
		if headerLen > maxHeaderLen {
			err = errors.Errorf("header length %d is larger than the maximum supported %d", headerLen, maxHeaderLen)
			return
		}
	default:
		err = errors.Errorf("unsupported .npy version: %d.%d", major, minor)
		return
	}

	headerBytes := make([]byte, headerLen)
	if _, err = io.ReadFull(r, headerBytes); err != nil {
		err = errors.Wrapf(err, "failed to read header")
		return
	}
	h, err = parseHeader(string(headerBytes))
	if err != nil {
		err = errors.WithMessage(err, "failed to parse .npy header")
	}
	return
}

// parseHeader extracts descr, shape, and fortran_order from the .npy header, a Python dict literal like
// "{'descr': '<f4', 'fortran_order': False, 'shape': (1, 2, 3), }".
func parseHeader(text string) (h header, err error) {
	mDescr := reDescr.FindStringSubmatch(text)
	if len(mDescr) < 2 {
		err = errors.Errorf("could not find 'descr' in header: %q", text)
		return
	}
	h.descr = mDescr[1]

	mFortran := reFortran.FindStringSubmatch(text)
	if len(mFortran) < 2 {
		err = errors.Errorf("could not find 'fortran_order' in header: %q", text)
		return
	}
	h.fortranOrder = mFortran[1] == "True"

	mShape := reShape.FindStringSubmatch(text)
	if len(mShape) < 2 {
		err = errors.Errorf("could not find 'shape' in header: %q", text)
		return
	}
	h.dims = []int{}
	for _, part := range strings.Split(mShape[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" { // Trailing comma, as in "(10,)", or scalar "()".
			continue
		}
		dim, pErr := strconv.Atoi(part)
		if pErr != nil || dim < 0 {
			err = errors.Errorf("invalid shape value %q in header %q", part, text)
			return
		}
		h.dims = append(h.dims, dim)
	}
	return
}

// parseDescr converts a NumPy dtype string to a dtypes.DType, and tells whether its byte order is
// the machine's native one.
func parseDescr(descr string) (dtype dtypes.DType, notSwapped bool, err error) {
	notSwapped = true
	typeStr := descr
	if len(descr) > 0 {
		switch descr[0] {
		case '<':
			notSwapped = host.IsLittleEndian()
			typeStr = descr[1:]
		case '>':
			notSwapped = !host.IsLittleEndian()
			typeStr = descr[1:]
		case '=', '|':
			typeStr = descr[1:]
		}
	}
	switch typeStr {
	case "b1", "?":
		dtype = dtypes.Bool
	case "i1":
		dtype = dtypes.Int8
	case "u1":
		dtype = dtypes.Uint8
	case "i2":
		dtype = dtypes.Int16
	case "u2":
		dtype = dtypes.Uint16
	case "i4":
		dtype = dtypes.Int32
	case "u4":
		dtype = dtypes.Uint32
	case "i8":
		dtype = dtypes.Int64
	case "u8":
		dtype = dtypes.Uint64
	case "f2":
		dtype = dtypes.Float16
	case "f4":
		dtype = dtypes.Float32
	case "f8":
		dtype = dtypes.Float64
	case "c8":
		dtype = dtypes.Complex64
	case "c16":
		dtype = dtypes.Complex128
	default:
		err = errors.Errorf("unsupported NumPy dtype %q", descr)
		return
	}
	if dtype.Size() == 1 {
		notSwapped = true
	}
	return
}

// readData allocates the array described by the header and reads its data.
func readData(rt *host.Runtime, r io.Reader, h header) (*host.Array, error) {
	dtype, notSwapped, err := parseDescr(h.descr)
	if err != nil {
		return nil, err
	}
	order := shapes.RowMajor
	if h.fortranOrder {
		order = shapes.ColumnMajor
	}
	allocate := rt.Allocate
	if !notSwapped {
		allocate = rt.AllocateSwapped
	}
	arr, err := allocate(dtype, h.dims, order)
	if err != nil {
		return nil, errors.WithMessagef(err, "allocating array for .npy data")
	}
	if data := arr.Bytes(); len(data) > 0 {
		if _, err = io.ReadFull(r, data); err != nil {
			_ = rt.Free(arr)
			return nil, errors.Wrapf(err, "failed to read array data (expected %d bytes)", len(data))
		}
	}
	return arr, nil
}

// descrOf returns the NumPy dtype string for the array, including its byte order.
func descrOf(arr *host.Array) (string, error) {
	var typeStr string
	switch arr.DType() {
	case dtypes.Bool:
		return "|b1", nil
	case dtypes.Int8:
		return "|i1", nil
	case dtypes.Uint8:
		return "|u1", nil
	case dtypes.Int16:
		typeStr = "i2"
	case dtypes.Uint16:
		typeStr = "u2"
	case dtypes.Int32:
		typeStr = "i4"
	case dtypes.Uint32:
		typeStr = "u4"
	case dtypes.Int64:
		typeStr = "i8"
	case dtypes.Uint64:
		typeStr = "u8"
	case dtypes.Float16:
		typeStr = "f2"
	case dtypes.Float32:
		typeStr = "f4"
	case dtypes.Float64:
		typeStr = "f8"
	case dtypes.Complex64:
		typeStr = "c8"
	case dtypes.Complex128:
		typeStr = "c16"
	default:
		return "", errors.Errorf("unsupported dtype for .npy: %s", arr.DType())
	}
	littleEndian := host.IsLittleEndian() == arr.Flags().Has(host.NotSwapped)
	if littleEndian {
		return "<" + typeStr, nil
	}
	return ">" + typeStr, nil
}

// shapeTuple formats dims as a Python tuple: "()", "(3,)" or "(2, 3)".
func shapeTuple(dims []int) string {
	if len(dims) == 1 {
		return fmt.Sprintf("(%d,)", dims[0])
	}
	parts := make([]string, len(dims))
	for ii, dim := range dims {
		parts[ii] = strconv.Itoa(dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// writeHeader writes the preamble and the header dict, padded so the data starts at a multiple of 64 bytes.
func writeHeader(w io.Writer, descr string, fortranOrder bool, dims []int) error {
	fortranStr := "False"
	if fortranOrder {
		fortranStr = "True"
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", descr, fortranStr, shapeTuple(dims))

	var buf bytes.Buffer
	buf.WriteString(magic)
	preambleLen := len(magic) + 2 + 2
	version := []byte{1, 0}
	if len(dict)+1+preambleLen+64 > 0xFFFF {
		version = []byte{2, 0}
		preambleLen += 2
	}
	buf.Write(version)
	headerLen := len(dict) + 1
	if pad := (preambleLen + headerLen) % 64; pad != 0 {
		headerLen += 64 - pad
	}
	if version[0] == 1 {
		_ = binary.Write(&buf, binary.LittleEndian, uint16(headerLen))
	} else {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(headerLen))
	}
	buf.WriteString(dict)
	buf.WriteString(strings.Repeat(" ", headerLen-len(dict)-1))
	buf.WriteByte('\n')
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy header")
	}
	return nil
}

// Write serializes the array in .npy format.
//
// The array must be contiguous. Column-major arrays are written with fortran_order set, and
// byte-swapped arrays are written with the corresponding byte order in the dtype.
func Write(arr *host.Array, w io.Writer) error {
	if arr == nil || arr.IsFreed() {
		return errors.New("npy.Write: null or freed array")
	}
	flags := arr.Flags()
	if !flags.Has(host.CContiguous) && !flags.Has(host.FContiguous) {
		return errors.Errorf("npy.Write: array %s is not contiguous", arr.Shape())
	}
	descr, err := descrOf(arr)
	if err != nil {
		return err
	}
	fortranOrder := !flags.Has(host.CContiguous)
	if err := writeHeader(w, descr, fortranOrder, arr.Dims()); err != nil {
		return err
	}
	if data := arr.Bytes(); len(data) > 0 {
		if _, err := w.Write(data); err != nil {
			return errors.Wrapf(err, "failed to write array data")
		}
	}
	return nil
}

// WriteFile serializes the array to a .npy file.
func WriteFile(arr *host.Array, filePath string) error {
	return fsutil.WriteFile(filePath, func(w io.Writer) error { return Write(arr, w) })
}

// writeBytesString writes a 0-dimensional NumPy bytes string, e.g. numpy.array(b"csc").
func writeBytesString(w io.Writer, value string) error {
	if err := writeHeader(w, fmt.Sprintf("|S%d", len(value)), false, nil); err != nil {
		return err
	}
	_, err := io.WriteString(w, value)
	return errors.Wrapf(err, "failed to write bytes string")
}

// readBytesString reads the data of a 0-dimensional NumPy bytes string with the given header.
func readBytesString(r io.Reader, h header) (string, error) {
	m := reBytes.FindStringSubmatch(h.descr)
	if m == nil || len(h.dims) != 0 {
		return "", errors.Errorf("expected a scalar bytes string, got dtype %q with shape %v", h.descr, h.dims)
	}
	n, _ := strconv.Atoi(m[1])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", errors.Wrapf(err, "failed to read bytes string")
	}
	return strings.TrimRight(string(data), "\x00"), nil
}
