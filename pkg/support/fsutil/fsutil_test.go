// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"io"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	got, err := ExpandHome("/tmp/labels.npy")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/labels.npy", got)

	usr, err := user.Current()
	require.NoError(t, err)
	got, err = ExpandHome("~/data/labels.npy")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(usr.HomeDir, "data/labels.npy"), got)
	got, err = ExpandHome("~")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(usr.HomeDir), got)

	_, err = ExpandHome("~no_such_user_for_hostarray/labels.npy")
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, WriteFile(filePath, func(w io.Writer) error {
		_, err := io.WriteString(w, "csc")
		return err
	}))
	contents, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, "csc", string(contents))

	// Failed writes leave no file behind.
	failedPath := filepath.Join(t.TempDir(), "failed.txt")
	err = WriteFile(failedPath, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("disk full")
	})
	require.ErrorContains(t, err, "disk full")
	_, err = os.Stat(failedPath)
	assert.True(t, os.IsNotExist(err))

	require.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "out.txt"), func(io.Writer) error { return nil }))
}
