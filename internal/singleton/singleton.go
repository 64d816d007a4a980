// SPDX-License-Identifier: AGPL-3.0-only

// Package singleton guarantees at most one scheduler process per lock path.
package singleton

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// retryDelay is how often Acquire polls a held lock.
const retryDelay = 250 * time.Millisecond

// Lock is an acquired singleton lock.
type Lock struct {
	flock *flock.Flock
}

func newFlock(path string) (*flock.Flock, error) {
	file := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, fmt.Errorf("singleton: create lock directory: %w", err)
	}
	return flock.New(file), nil
}

// TryAcquire takes the lock at <path>.lock without waiting. It returns
// false when another process holds it.
func TryAcquire(path string) (*Lock, bool, error) {
	fl, err := newFlock(path)
	if err != nil {
		return nil, false, err
	}
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("singleton: try lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{flock: fl}, true, nil
}

// Acquire waits for the lock at <path>.lock until ctx is done.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	fl, err := newFlock(path)
	if err != nil {
		return nil, err
	}
	locked, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, fmt.Errorf("singleton: lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("singleton: lock %s not acquired", fl.Path())
	}
	return &Lock{flock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.flock.Path()
}

// Release releases the lock.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}
