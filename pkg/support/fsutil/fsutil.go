// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fsutil contains utilities for working with the file system.
package fsutil

import (
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ExpandHome replaces a leading "~" or "~user" in filePath by the user's home directory.
// Other paths are returned as is.
//
// It returns an error for unknown users (e.g. "~unknown/labels.npy").
func ExpandHome(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~") {
		return filePath, nil
	}
	userName, rest, _ := strings.Cut(filePath[1:], "/")
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to lookup home directory for user in path %q", filePath)
	}
	return filepath.Join(usr.HomeDir, rest), nil
}

// WriteFile creates filePath and calls write with it. If write fails the partially written file is removed.
func WriteFile(filePath string, write func(w io.Writer) error) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", filePath)
	}
	if err = write(file); err == nil {
		err = errors.Wrapf(file.Close(), "failed to close %q", filePath)
	} else {
		_ = file.Close()
	}
	if err != nil {
		_ = os.Remove(filePath)
		return errors.WithMessagef(err, "writing %q", filePath)
	}
	return nil
}
