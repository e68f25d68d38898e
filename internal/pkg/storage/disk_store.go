// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/elastic/elastic-agent-libs/file"
)

const defaultPerm os.FileMode = 0o644

// Storage reads and replaces a single file on disk.
type Storage interface {
	// Save replaces the content of the target with the content of the reader.
	Save(io.Reader) error

	// Load return an io.ReadCloser for the target.
	Load() (io.ReadCloser, error)

	// Exists checks if the target exists.
	Exists() (bool, error)
}

// DiskStore writes to a temporary file and rotates it over the target, so a
// failed write never leaves a truncated target behind.
type DiskStore struct {
	target string
}

// NewDiskStore creates a disk store for target.
func NewDiskStore(target string) *DiskStore {
	return &DiskStore{target: target}
}

// Exists check if the store file exists on the disk
func (d *DiskStore) Exists() (bool, error) {
	_, err := os.Stat(d.target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Save writes the content of in to a temporary file next to the target and,
// once the write is synced, replaces the target with it. An existing target
// keeps its permissions.
func (d *DiskStore) Save(in io.Reader) error {
	tmpFile := d.target + ".tmp"

	perm := defaultPerm
	if fi, err := os.Stat(d.target); err == nil {
		perm = fi.Mode().Perm()
	}

	fd, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("could not save to %s: %w", tmpFile, err)
	}

	// Always clean up the temporary file and ignore errors.
	defer os.Remove(tmpFile)

	if _, err := io.Copy(fd, in); err != nil {
		if err := fd.Close(); err != nil {
			return fmt.Errorf("could not close temporary file %s: %w", tmpFile, err)
		}
		return fmt.Errorf("could not save content to %s: %w", tmpFile, err)
	}

	if err := fd.Sync(); err != nil {
		_ = fd.Close()
		return fmt.Errorf("could not sync temporary file %s: %w", tmpFile, err)
	}

	if err := fd.Close(); err != nil {
		return fmt.Errorf("could not close temporary file %s: %w", tmpFile, err)
	}

	// the umask may have narrowed the mode passed to OpenFile
	if err := os.Chmod(tmpFile, perm); err != nil {
		return fmt.Errorf("could not set permissions on temporary file %s: %w", tmpFile, err)
	}

	if err := file.SafeFileRotate(d.target, tmpFile); err != nil {
		return fmt.Errorf("could not replace target file %s: %w", d.target, err)
	}

	return nil
}

// Load return a io.ReadCloser for the target file.
func (d *DiskStore) Load() (io.ReadCloser, error) {
	fd, err := os.Open(d.target)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", d.target, err)
	}
	return fd, nil
}
