// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package interop converts host arrays into non-owning views for the numeric engine, and allocates
// host arrays for the engine's results.
//
// Inputs are validated eagerly: a conversion either returns a complete view or a *ConversionError,
// never a partially built view. Views alias the host buffers, and they are only valid during the
// host.Call that created them: accessing their data after the call exits panics.
//
// Dense matrices and 3D tensors must be column-major (Fortran order), since that's how the engine
// stores them. Sparse matrices must be in compressed sparse column (CSC) format.
//
// There is no implicit type coercion: the element type of the array must match exactly the one requested.
package interop

import (
	"fmt"

	"github.com/pkg/errors"
)

// Constraint identifies which requirement of a conversion was violated.
type Constraint int

const (
	Null Constraint = iota
	Rank
	Type
	Contiguity
	ByteOrder
	ColumnMajor
	Alignment
	ShapeTuple
	MissingAttribute
	Bounds
)

var constraintNames = []string{
	Null:             "null",
	Rank:             "rank",
	Type:             "type",
	Contiguity:       "contiguity",
	ByteOrder:        "byte order",
	ColumnMajor:      "column-major",
	Alignment:        "alignment",
	ShapeTuple:       "shape tuple",
	MissingAttribute: "missing attribute",
	Bounds:           "bounds",
}

// String implements fmt.Stringer.
func (c Constraint) String() string {
	if c < 0 || int(c) >= len(constraintNames) {
		return fmt.Sprintf("Constraint(%d)", int(c))
	}
	return constraintNames[c]
}

// ConversionError is the only kind of error returned by the conversions of this package.
//
// Msg names the argument and what was expected of it, and Cause describes what was found instead.
type ConversionError struct {
	// Arg is the name of the argument that failed the conversion.
	Arg string

	// Constraint violated.
	Constraint Constraint

	// Msg is the message describing what was expected, e.g. "X matrices should be f-contiguous 2D float32 array".
	Msg string

	// Cause describes the actual violation, it may be empty.
	Cause string
}

// Error implements error.
func (e *ConversionError) Error() string {
	if e.Cause == "" {
		return e.Msg
	}
	return e.Msg + ": " + e.Cause
}

// newConversionError creates the ConversionError with a stack trace.
func newConversionError(arg string, constraint Constraint, msg, cause string) error {
	return errors.WithStack(&ConversionError{Arg: arg, Constraint: constraint, Msg: msg, Cause: cause})
}

// fromViolation converts a validation failure to a ConversionError.
func fromViolation(arg, msg string, v *Violation) error {
	return newConversionError(arg, v.Constraint, msg, v.Cause)
}

// AsConversionError returns the ConversionError in err's chain, or nil if there is none.
func AsConversionError(err error) *ConversionError {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr
	}
	return nil
}

// IsConversionError returns whether err is (or wraps) a ConversionError.
func IsConversionError(err error) bool {
	return AsConversionError(err) != nil
}
