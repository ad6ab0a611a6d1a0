// Package lock provides advisory file locks guarding on-disk artifacts.
//
// Each guarded artifact gets a dot-prefixed lock file in the same
// directory. Writers take the lock exclusively for the duration of one
// operation; readers take it shared.
package lock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Suffix is appended to the artifact name to form the lock file name.
const Suffix = ".lock"

// Path returns the lock file path for an artifact name inside dir.
func Path(dir, name string) string {
	return filepath.Join(dir, "."+name+Suffix)
}

// Release undoes a successful Exclusive or Shared call.
type Release func()

// Exclusive blocks until the artifact's lock is held exclusively.
func Exclusive(dir, name string) (Release, error) {
	fl := flock.New(Path(dir, name))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Shared blocks until the artifact's lock is held in shared mode.
func Shared(dir, name string) (Release, error) {
	fl := flock.New(Path(dir, name))
	if err := fl.RLock(); err != nil {
		return nil, fmt.Errorf("read lock %s: %w", name, err)
	}
	return func() { _ = fl.Unlock() }, nil
}
