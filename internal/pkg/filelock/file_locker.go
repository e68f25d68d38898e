// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package filelock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const retryDelay = 100 * time.Millisecond

var ErrLocked = errors.New("file is locked by another process")

// FileLocker holds an advisory lock on behalf of a target file. The lock file
// lives in the temporary directory so nothing is left next to the target.
//
// With a zero timeout Lock fails immediately when the lock is held elsewhere,
// otherwise it retries until the timeout expires.
type FileLocker struct {
	target   string
	fileLock *flock.Flock
	timeout  time.Duration
}

// NewFileLocker returns a locker guarding target.
func NewFileLocker(target string, timeout time.Duration) (*FileLocker, error) {
	lockPath, err := LockPath(target)
	if err != nil {
		return nil, err
	}
	return &FileLocker{
		target:   target,
		fileLock: flock.New(lockPath),
		timeout:  timeout,
	}, nil
}

// LockPath returns the lock file used for target. Every relative spelling of
// the same target maps to the same lock file.
func LockPath(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", target, err)
	}
	sum := sha256.Sum256([]byte(abs))
	name := fmt.Sprintf("%s-%s.lock", filepath.Base(abs), hex.EncodeToString(sum[:8]))
	return filepath.Join(os.TempDir(), name), nil
}

func (fl *FileLocker) Lock(ctx context.Context) error {
	var locked bool
	var err error

	if fl.timeout > 0 {
		timeoutCtx, cancel := context.WithTimeout(ctx, fl.timeout)
		defer cancel()
		locked, err = fl.fileLock.TryLockContext(timeoutCtx, retryDelay)
	} else {
		locked, err = fl.fileLock.TryLock()
	}

	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("locking %s: %w", fl.target, err)
	}
	if !locked {
		return fmt.Errorf("failed locking %s: %w", fl.target, ErrLocked)
	}
	return nil
}

func (fl *FileLocker) Unlock() error {
	return fl.fileLock.Unlock()
}

// Path returns the lock file path.
func (fl *FileLocker) Path() string {
	return fl.fileLock.Path()
}
